package validator

import (
	"context"

	id "stilltrue/pkg/domain"
)

// Store persists the validator registry.
type Store interface {
	// Add registers a validator. Returns sentinel.ErrConflict when the
	// profile is already registered for the claim.
	Add(ctx context.Context, v *Validator) error

	// Remove unregisters a validator. Removal is idempotent: removing an
	// absent validator is not an error. The returned bool reports whether
	// a row was actually deleted.
	Remove(ctx context.Context, claimID id.ClaimID, profileID id.ProfileID) (bool, error)

	ListByClaim(ctx context.Context, claimID id.ClaimID) ([]*Validator, error)
}
