package validation

import (
	"context"
	"time"

	id "stilltrue/pkg/domain"
	"stilltrue/internal/validator"
)

// Store is the transactional persistence surface of the workflow engine.
// Mutating methods are called inside a claim-scoped transaction (see
// service.Tx); the store's constraints, not service logic, are the last
// line of defense for the one-open-request and one-response-per-responder
// invariants.
type Store interface {
	// CreateOpenRequest inserts an open request. Returns
	// sentinel.ErrConflict when the claim already has an open request.
	CreateOpenRequest(ctx context.Context, r *Request) error

	FindRequest(ctx context.Context, requestID id.RequestID) (*Request, error)

	// FindRequestForUpdate loads a request with a write lock when the
	// store is transaction-bound, serializing concurrent submits on the
	// same request. Equivalent to FindRequest for the memory store, whose
	// serialization comes from the claim-sharded transaction runner.
	FindRequestForUpdate(ctx context.Context, requestID id.RequestID) (*Request, error)

	// OpenRequestForClaim returns the claim's open request, or
	// sentinel.ErrNotFound when none is open.
	OpenRequestForClaim(ctx context.Context, claimID id.ClaimID) (*Request, error)

	// IncrementAttempt bumps attempt_count of an open request and returns
	// the new count. sentinel.ErrInvalidState when the request is closed.
	IncrementAttempt(ctx context.Context, requestID id.RequestID) (int, error)

	// AddResponse records a response. sentinel.ErrConflict when the
	// responder already answered this request.
	AddResponse(ctx context.Context, resp *Response) error

	ListResponses(ctx context.Context, requestID id.RequestID) ([]*Response, error)

	// CloseRequest transitions open -> closed. sentinel.ErrInvalidState
	// when the request is already closed.
	CloseRequest(ctx context.Context, requestID id.RequestID, closedAt time.Time) error

	// CloseOpenRequestForClaim closes the claim's open request if one
	// exists; no-op otherwise. Used when a claim is retired.
	CloseOpenRequestForClaim(ctx context.Context, claimID id.ClaimID, closedAt time.Time) error

	// RegisterValidator inserts a registry row from within the workflow
	// transaction (the owner-fallback rule of request opening).
	// sentinel.ErrConflict when already registered.
	RegisterValidator(ctx context.Context, v *validator.Validator) error

	// ListValidatorProfileIDs returns the claim's currently registered
	// validators. Read inside the submit transaction so `all` mode closes
	// against a live snapshot of the registry.
	ListValidatorProfileIDs(ctx context.Context, claimID id.ClaimID) ([]id.ProfileID, error)

	// ListByClaim returns all requests of a claim, newest first.
	ListByClaim(ctx context.Context, claimID id.ClaimID) ([]*Request, error)

	// LatestClosedByClaim returns the most recently closed request, or
	// sentinel.ErrNotFound when the claim has none.
	LatestClosedByClaim(ctx context.Context, claimID id.ClaimID) (*Request, error)

	// ListForValidatorProfiles returns requests addressed to any of the
	// given profiles (the caller's inbox), newest first.
	ListForValidatorProfiles(ctx context.Context, profileIDs []id.ProfileID) ([]*Request, error)
}
