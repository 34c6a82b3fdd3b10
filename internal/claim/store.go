package claim

import (
	"context"
	"time"

	id "stilltrue/pkg/domain"
)

// Store persists claims and their text versions. Implementations return
// sentinel errors; services translate them into coded domain errors.
type Store interface {
	// CreateWithText inserts the claim and its first text version
	// atomically.
	CreateWithText(ctx context.Context, c *Claim, first *TextVersion) error

	FindByID(ctx context.Context, claimID id.ClaimID) (*Claim, error)

	// AppendText appends a new text version and updates the claim's
	// visibility in the same transaction. History is never rewritten.
	AppendText(ctx context.Context, version *TextVersion, visibility id.Visibility) error

	UpdateSettings(ctx context.Context, claimID id.ClaimID, cadence id.ReviewCadence, mode id.ValidationMode) error

	// Retire marks the claim retired and, in the same transaction, closes
	// any validation request still open for it. Returns
	// sentinel.ErrInvalidState when the claim is already retired.
	Retire(ctx context.Context, claimID id.ClaimID, retiredAt time.Time) error

	// ListByWorkspace returns all claims in a workspace, newest first.
	// Visibility filtering is the projection layer's job.
	ListByWorkspace(ctx context.Context, wsID id.WorkspaceID) ([]*Claim, error)

	// ListVersions returns a claim's text history, newest first.
	ListVersions(ctx context.Context, claimID id.ClaimID) ([]*TextVersion, error)

	FindVersion(ctx context.Context, versionID id.TextVersionID) (*TextVersion, error)

	// LatestVersion returns the current wording.
	LatestVersion(ctx context.Context, claimID id.ClaimID) (*TextVersion, error)
}
