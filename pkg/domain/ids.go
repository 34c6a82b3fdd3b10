// Package domain holds the shared value objects of the claim-validation core:
// typed identifiers and the enumerations used across modules.
//
// IDs are distinct named UUID types so the compiler rejects cross-entity
// mix-ups (a ProfileID can never be passed where a ClaimID is expected).
// Construct them from external input via the Parse* functions, which enforce
// non-nil, well-formed UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "stilltrue/pkg/domain-errors"
)

type (
	// UserID identifies an authenticated account. Never used for ownership
	// checks directly; ownership is always profile-scoped.
	UserID uuid.UUID

	// WorkspaceID identifies a tenant boundary.
	WorkspaceID uuid.UUID

	// ProfileID identifies a workspace-scoped identity of a user. The unit
	// of ownership everywhere in the core.
	ProfileID uuid.UUID

	// ClaimID identifies a claim.
	ClaimID uuid.UUID

	// TextVersionID identifies one immutable wording of a claim.
	TextVersionID uuid.UUID

	// RequestID identifies one validation request.
	RequestID uuid.UUID
)

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id WorkspaceID) String() string   { return uuid.UUID(id).String() }
func (id ProfileID) String() string     { return uuid.UUID(id).String() }
func (id ClaimID) String() string       { return uuid.UUID(id).String() }
func (id TextVersionID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string     { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id WorkspaceID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id TextVersionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }

// The id types marshal as canonical UUID strings. Named array types do not
// inherit uuid.UUID's encoding methods, so each carries its own pair.

func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id WorkspaceID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id ProfileID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ClaimID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id TextVersionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RequestID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *WorkspaceID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ProfileID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ClaimID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TextVersionID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RequestID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }

func NewUserID() UserID               { return UserID(uuid.New()) }
func NewWorkspaceID() WorkspaceID     { return WorkspaceID(uuid.New()) }
func NewProfileID() ProfileID         { return ProfileID(uuid.New()) }
func NewClaimID() ClaimID             { return ClaimID(uuid.New()) }
func NewTextVersionID() TextVersionID { return TextVersionID(uuid.New()) }
func NewRequestID() RequestID         { return RequestID(uuid.New()) }

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseWorkspaceID(s string) (WorkspaceID, error) {
	u, err := parseUUID(s, "workspace id")
	return WorkspaceID(u), err
}

func ParseProfileID(s string) (ProfileID, error) {
	u, err := parseUUID(s, "profile id")
	return ProfileID(u), err
}

func ParseClaimID(s string) (ClaimID, error) {
	u, err := parseUUID(s, "claim id")
	return ClaimID(u), err
}

func ParseTextVersionID(s string) (TextVersionID, error) {
	u, err := parseUUID(s, "text version id")
	return TextVersionID(u), err
}

func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request id")
	return RequestID(u), err
}
