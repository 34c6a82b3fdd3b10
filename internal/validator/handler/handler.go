// Package handler wires validator registry endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stilltrue/internal/validator"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/platform/httputil"
	"stilltrue/pkg/requestcontext"
)

// Service defines the registry operations the handler exposes.
type Service interface {
	AddByEmail(ctx context.Context, claimID id.ClaimID, email string, kind id.ValidatorKind) error
	Remove(ctx context.Context, claimID id.ClaimID, profileID id.ProfileID) error
	List(ctx context.Context, claimID id.ClaimID) ([]*validator.Validator, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/claims/{claimID}/validators", h.HandleAdd)
	r.Delete("/claims/{claimID}/validators/{profileID}", h.HandleRemove)
	r.Get("/claims/{claimID}/validators", h.HandleList)
}

// HandleAdd handles POST /claims/{claimID}/validators.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claimID, err := claimIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.AddByEmail(ctx, claimID, req.Email, req.ParsedKind()); err != nil {
		h.logger.WarnContext(ctx, "validator registration failed",
			"request_id", requestID, "claim_id", claimID.String(), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// HandleRemove handles DELETE /claims/{claimID}/validators/{profileID}.
// Removal is idempotent; removing an absent validator succeeds.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID, err := claimIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profileID, err := id.ParseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid profile id"))
		return
	}

	if err := h.service.Remove(ctx, claimID, profileID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// HandleList handles GET /claims/{claimID}/validators.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID, err := claimIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	validators, err := h.service.List(ctx, claimID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromValidators(validators))
}

func claimIDFromURL(r *http.Request) (id.ClaimID, error) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		return id.ClaimID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid claim id")
	}
	return claimID, nil
}
