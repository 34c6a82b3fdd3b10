// Package handler wires validation workflow endpoints: opening requests,
// reminding pending validators, and submitting responses.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stilltrue/internal/validation"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/platform/httputil"
	"stilltrue/pkg/requestcontext"
)

// Service defines the workflow operations the handler exposes.
type Service interface {
	Open(ctx context.Context, claimID id.ClaimID, kind id.RequestKind, versionID id.TextVersionID) (*validation.Request, error)
	Remind(ctx context.Context, claimID id.ClaimID) ([]validation.PendingRecipient, error)
	Submit(ctx context.Context, requestID id.RequestID, answer id.Answer, answerContext string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts workflow endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/claims/{claimID}/validation-requests", h.HandleOpen)
	r.Post("/claims/{claimID}/validation-requests/remind", h.HandleRemind)
	r.Post("/validation-requests/{requestID}/responses", h.HandleSubmit)
}

// HandleOpen handles POST /claims/{claimID}/validation-requests. A claim
// with a request already open yields 409 with the distinguishable conflict
// message callers branch on to fall back to reminding.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claimID, err := claimIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[OpenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	request, err := h.service.Open(ctx, claimID, req.ParsedKind(), req.ParsedVersionID())
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeConflict) {
			h.logger.WarnContext(ctx, "validation request open failed",
				"request_id", requestID, "claim_id", claimID.String(), "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "validation request opened",
		"request_id", requestID,
		"claim_id", claimID.String(),
		"validation_request_id", request.ID.String(),
		"kind", request.Kind.String())
	httputil.WriteJSON(w, http.StatusCreated, FromRequest(request))
}

// HandleRemind handles POST /claims/{claimID}/validation-requests/remind.
// An empty list means every validator has answered; that is a 200, not an
// error.
func (h *Handler) HandleRemind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claimID, err := claimIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	pending, err := h.service.Remind(ctx, claimID)
	if err != nil {
		h.logger.WarnContext(ctx, "validation reminder failed",
			"request_id", requestID, "claim_id", claimID.String(), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pending)
}

// HandleSubmit handles POST /validation-requests/{requestID}/responses.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	validationRequestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid validation request id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Submit(ctx, validationRequestID, req.ParsedAnswer(), req.Context); err != nil {
		h.logger.WarnContext(ctx, "validation response rejected",
			"request_id", requestID,
			"validation_request_id", validationRequestID.String(),
			"error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

func claimIDFromURL(r *http.Request) (id.ClaimID, error) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		return id.ClaimID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid claim id")
	}
	return claimID, nil
}
