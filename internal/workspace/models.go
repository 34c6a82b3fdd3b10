// Package workspace owns the tenant boundary and the workspace-scoped
// identities (profiles) of authenticated users. Every ownership check in the
// core compares against profile ids resolved here, never against bare user
// ids, so a caller who belongs to several workspaces is a different "person"
// in each.
package workspace

import (
	"strings"
	"time"

	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
)

type Status string

const (
	StatusActive Status = "active"
)

// Workspace is a tenant boundary. Immutable after onboarding in this core's
// scope.
type Workspace struct {
	ID        id.WorkspaceID `json:"id"`
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// Profile is a workspace-scoped identity. One user holds at most one profile
// per workspace.
type Profile struct {
	ID          id.ProfileID   `json:"id"`
	WorkspaceID id.WorkspaceID `json:"workspace_id"`
	UserID      id.UserID      `json:"-"`
	Email       string         `json:"email"`
	CreatedAt   time.Time      `json:"created_at"`
}

func NewWorkspace(wsID id.WorkspaceID, name string, now time.Time) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "workspace name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeValidation, "workspace name must be 128 characters or less")
	}
	return &Workspace{ID: wsID, Name: name, Status: StatusActive, CreatedAt: now}, nil
}

func NewProfile(profileID id.ProfileID, wsID id.WorkspaceID, userID id.UserID, email string, now time.Time) (*Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "profile email is invalid")
	}
	return &Profile{ID: profileID, WorkspaceID: wsID, UserID: userID, Email: email, CreatedAt: now}, nil
}
