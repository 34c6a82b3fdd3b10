// Package handler wires claim lifecycle endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stilltrue/internal/claim"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/platform/httputil"
	"stilltrue/pkg/requestcontext"
)

// Service defines the claim operations the handler exposes.
type Service interface {
	Create(ctx context.Context, wsID id.WorkspaceID, visibility id.Visibility,
		cadence id.ReviewCadence, mode id.ValidationMode, text string) (*claim.Claim, error)
	EditTextAndVisibility(ctx context.Context, claimID id.ClaimID, newText string, newVisibility id.Visibility) error
	EditValidationSettings(ctx context.Context, claimID id.ClaimID, cadence id.ReviewCadence, mode id.ValidationMode) error
	Retire(ctx context.Context, claimID id.ClaimID) error
	Versions(ctx context.Context, claimID id.ClaimID) ([]*claim.TextVersion, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts claim endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/claims", h.HandleCreate)
	r.Post("/claims/{claimID}/text", h.HandleEditText)
	r.Post("/claims/{claimID}/settings", h.HandleEditSettings)
	r.Post("/claims/{claimID}/retire", h.HandleRetire)
	r.Get("/claims/{claimID}/versions", h.HandleVersions)
}

// HandleCreate handles POST /claims.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Create(ctx, req.ParsedWorkspaceID(), req.ParsedVisibility(),
		req.ParsedCadence(), req.ParsedMode(), req.Text)
	if err != nil {
		h.logger.WarnContext(ctx, "claim creation failed",
			"request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "claim created",
		"request_id", requestID, "claim_id", c.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, FromClaim(c))
}

// HandleEditText handles POST /claims/{claimID}/text.
func (h *Handler) HandleEditText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claimID, err := claimIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[EditTextRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.EditTextAndVisibility(ctx, claimID, req.NewText, req.ParsedVisibility()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// HandleEditSettings handles POST /claims/{claimID}/settings.
func (h *Handler) HandleEditSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claimID, err := claimIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[EditSettingsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.EditValidationSettings(ctx, claimID, req.ParsedCadence(), req.ParsedMode()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// HandleRetire handles POST /claims/{claimID}/retire.
func (h *Handler) HandleRetire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claimID, err := claimIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Retire(ctx, claimID); err != nil {
		h.logger.WarnContext(ctx, "claim retirement failed",
			"request_id", requestID, "claim_id", claimID.String(), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// HandleVersions handles GET /claims/{claimID}/versions.
func (h *Handler) HandleVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID, err := claimIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	versions, err := h.service.Versions(ctx, claimID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVersions(versions))
}

func claimIDFromURL(r *http.Request) (id.ClaimID, error) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		return id.ClaimID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid claim id")
	}
	return claimID, nil
}
