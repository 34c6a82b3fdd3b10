package handler

import (
	"time"

	"stilltrue/internal/workspace"
	id "stilltrue/pkg/domain"
)

// BootstrapResponse is the HTTP response for POST /workspaces/bootstrap.
type BootstrapResponse struct {
	WorkspaceID    string    `json:"workspace_id"`
	Name           string    `json:"name"`
	OwnerProfileID string    `json:"owner_profile_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func FromBootstrap(ws *workspace.Workspace, owner *workspace.Profile) *BootstrapResponse {
	return &BootstrapResponse{
		WorkspaceID:    ws.ID.String(),
		Name:           ws.Name,
		OwnerProfileID: owner.ID.String(),
		CreatedAt:      ws.CreatedAt,
	}
}

// ProfileIDsResponse is the HTTP response for GET /me/profiles.
type ProfileIDsResponse struct {
	ProfileIDs []string `json:"profile_ids"`
}

func FromProfileIDs(profileIDs []id.ProfileID) *ProfileIDsResponse {
	out := make([]string, len(profileIDs))
	for i, pid := range profileIDs {
		out[i] = pid.String()
	}
	return &ProfileIDsResponse{ProfileIDs: out}
}
