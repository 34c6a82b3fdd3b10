// Package claim owns claim records and their append-only text history.
//
// Invariants:
//   - A claim's owner is immutable after creation (no transfer operation).
//   - Text versions are append-only; editing never mutates an existing
//     version, so the wording a validator responded to is always auditable.
//   - A retired claim accepts no further edits and no new validation
//     requests. Retirement is terminal.
package claim

import (
	"strings"
	"time"

	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
)

// Claim is the central entity: an assertion tracked for periodic truth
// validation, scoped to one workspace and owned by one profile.
type Claim struct {
	ID             id.ClaimID        `json:"id"`
	WorkspaceID    id.WorkspaceID    `json:"workspace_id"`
	OwnerProfileID id.ProfileID      `json:"owner_profile_id"`
	Visibility     id.Visibility     `json:"visibility"`
	ReviewCadence  id.ReviewCadence  `json:"review_cadence"`
	ValidationMode id.ValidationMode `json:"validation_mode"`
	CreatedAt      time.Time         `json:"created_at"`
	RetiredAt      *time.Time        `json:"retired_at,omitempty"`
}

func (c *Claim) IsRetired() bool {
	return c.RetiredAt != nil
}

// IsOwnedByAny reports whether the claim's owner is in the caller's resolved
// profile set. Ownership is a set-membership test because one caller may
// hold a profile per workspace.
func (c *Claim) IsOwnedByAny(profileIDs []id.ProfileID) bool {
	for _, pid := range profileIDs {
		if pid == c.OwnerProfileID {
			return true
		}
	}
	return false
}

// TextVersion is one immutable wording of a claim. The version with the
// greatest CreatedAt is current.
type TextVersion struct {
	ID                 id.TextVersionID `json:"id"`
	ClaimID            id.ClaimID       `json:"claim_id"`
	Text               string           `json:"text"`
	CreatedAt          time.Time        `json:"created_at"`
	CreatedByProfileID id.ProfileID     `json:"created_by_profile_id"`
}

// NewClaim validates and constructs a claim.
func NewClaim(claimID id.ClaimID, wsID id.WorkspaceID, owner id.ProfileID,
	visibility id.Visibility, cadence id.ReviewCadence, mode id.ValidationMode,
	now time.Time) (*Claim, error) {
	if wsID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "claim requires a workspace")
	}
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "claim requires an owner profile")
	}
	return &Claim{
		ID:             claimID,
		WorkspaceID:    wsID,
		OwnerProfileID: owner,
		Visibility:     visibility,
		ReviewCadence:  cadence,
		ValidationMode: mode,
		CreatedAt:      now,
	}, nil
}

// NewTextVersion validates and constructs a text version. Text must be
// non-empty after trimming.
func NewTextVersion(versionID id.TextVersionID, claimID id.ClaimID, text string,
	author id.ProfileID, now time.Time) (*TextVersion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "claim text cannot be empty")
	}
	return &TextVersion{
		ID:                 versionID,
		ClaimID:            claimID,
		Text:               text,
		CreatedAt:          now,
		CreatedByProfileID: author,
	}, nil
}
