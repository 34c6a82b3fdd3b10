// Package handler wires workspace onboarding and identity endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stilltrue/internal/workspace"
	id "stilltrue/pkg/domain"
	"stilltrue/pkg/platform/httputil"
	"stilltrue/pkg/requestcontext"
)

// Service defines the workspace operations the handler exposes.
type Service interface {
	Bootstrap(ctx context.Context, name, email string) (*workspace.Workspace, *workspace.Profile, error)
	ProfileIDs(ctx context.Context) ([]id.ProfileID, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts workspace endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/workspaces/bootstrap", h.HandleBootstrap)
	r.Get("/me/profiles", h.HandleMyProfiles)
}

// HandleBootstrap handles POST /workspaces/bootstrap.
func (h *Handler) HandleBootstrap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BootstrapRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ws, owner, err := h.service.Bootstrap(ctx, req.Name, req.Email)
	if err != nil {
		h.logger.WarnContext(ctx, "workspace bootstrap failed",
			"request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "workspace bootstrapped",
		"request_id", requestID,
		"workspace_id", ws.ID.String(),
		"owner_profile_id", owner.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, FromBootstrap(ws, owner))
}

// HandleMyProfiles handles GET /me/profiles.
func (h *Handler) HandleMyProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileIDs, err := h.service.ProfileIDs(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProfileIDs(profileIDs))
}
