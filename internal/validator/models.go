// Package validator owns the registry of people and automations entitled to
// answer validation requests for a claim.
package validator

import (
	"time"

	id "stilltrue/pkg/domain"
)

// Validator maps a claim to one entitled responder profile.
type Validator struct {
	ClaimID   id.ClaimID       `json:"claim_id"`
	ProfileID id.ProfileID     `json:"validator_profile_id"`
	Kind      id.ValidatorKind `json:"kind"`
	AddedAt   time.Time        `json:"added_at"`
}
