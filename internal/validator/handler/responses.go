package handler

import (
	"time"

	"stilltrue/internal/validator"
)

// ValidatorResponse is one registry entry in GET /claims/{id}/validators.
type ValidatorResponse struct {
	ClaimID   string    `json:"claim_id"`
	ProfileID string    `json:"validator_profile_id"`
	Kind      string    `json:"kind"`
	AddedAt   time.Time `json:"added_at"`
}

func FromValidators(validators []*validator.Validator) []ValidatorResponse {
	out := make([]ValidatorResponse, len(validators))
	for i, v := range validators {
		out[i] = ValidatorResponse{
			ClaimID:   v.ClaimID.String(),
			ProfileID: v.ProfileID.String(),
			Kind:      v.Kind.String(),
			AddedAt:   v.AddedAt,
		}
	}
	return out
}
