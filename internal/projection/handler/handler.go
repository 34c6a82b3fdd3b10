// Package handler wires the read-model endpoints: workspace claims list,
// validation summary, inbox, and derived claim states.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stilltrue/internal/claimstate"
	"stilltrue/internal/projection"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/platform/httputil"
)

// Reader defines the projection queries the handler exposes.
type Reader interface {
	WorkspaceClaims(ctx context.Context, wsID id.WorkspaceID) ([]projection.ClaimRow, error)
	ValidationSummary(ctx context.Context, claimID id.ClaimID) (*projection.Summary, error)
	Inbox(ctx context.Context) ([]projection.InboxRow, error)
}

// StateReader defines the derived-state query.
type StateReader interface {
	StatesForWorkspace(ctx context.Context, wsID id.WorkspaceID) ([]claimstate.ClaimStateRow, error)
}

type Handler struct {
	reader Reader
	states StateReader
	logger *slog.Logger
}

func New(reader Reader, states StateReader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, states: states, logger: logger}
}

// Register mounts read-model endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/workspaces/{workspaceID}/claims", h.HandleWorkspaceClaims)
	r.Get("/workspaces/{workspaceID}/claim-states", h.HandleClaimStates)
	r.Get("/claims/{claimID}/validation-summary", h.HandleValidationSummary)
	r.Get("/validation-requests/inbox", h.HandleInbox)
}

// HandleWorkspaceClaims handles GET /workspaces/{workspaceID}/claims.
func (h *Handler) HandleWorkspaceClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	wsID, err := workspaceIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rows, err := h.reader.WorkspaceClaims(ctx, wsID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

// HandleClaimStates handles GET /workspaces/{workspaceID}/claim-states.
func (h *Handler) HandleClaimStates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	wsID, err := workspaceIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rows, err := h.states.StatesForWorkspace(ctx, wsID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

// HandleValidationSummary handles GET /claims/{claimID}/validation-summary.
func (h *Handler) HandleValidationSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid claim id"))
		return
	}

	summary, err := h.reader.ValidationSummary(ctx, claimID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleInbox handles GET /validation-requests/inbox.
func (h *Handler) HandleInbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.reader.Inbox(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func workspaceIDFromURL(r *http.Request) (id.WorkspaceID, error) {
	wsID, err := id.ParseWorkspaceID(chi.URLParam(r, "workspaceID"))
	if err != nil {
		return id.WorkspaceID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid workspace id")
	}
	return wsID, nil
}
