package workspace

import (
	"context"

	id "stilltrue/pkg/domain"
)

// Store persists workspaces and profiles. Implementations return
// sentinel.ErrNotFound / sentinel.ErrConflict; the service layer translates.
type Store interface {
	// Bootstrap creates a workspace and its first profile atomically.
	// Fails with sentinel.ErrConflict when the user already holds a profile
	// in a workspace with the same name.
	Bootstrap(ctx context.Context, ws *Workspace, owner *Profile) error

	FindWorkspace(ctx context.Context, wsID id.WorkspaceID) (*Workspace, error)

	// ListProfilesByUser returns every profile the user holds, across all
	// workspaces. The identity set for ownership checks.
	ListProfilesByUser(ctx context.Context, userID id.UserID) ([]*Profile, error)

	FindProfile(ctx context.Context, profileID id.ProfileID) (*Profile, error)

	// FindMemberByEmail resolves an email to a profile within one workspace.
	FindMemberByEmail(ctx context.Context, wsID id.WorkspaceID, email string) (*Profile, error)

	// FindProfiles resolves a batch of profile ids (missing ids are skipped,
	// not errors; callers use it for display data like reminder emails).
	FindProfiles(ctx context.Context, profileIDs []id.ProfileID) ([]*Profile, error)
}
