package handler

import (
	"time"

	"stilltrue/internal/validation"
)

// RequestResponse is the HTTP response for an opened validation request.
type RequestResponse struct {
	ID            string     `json:"id"`
	ClaimID       string     `json:"claim_id"`
	TextVersionID string     `json:"claim_text_version_id"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	AttemptCount  int        `json:"attempt_count"`
	CreatedAt     time.Time  `json:"created_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

func FromRequest(r *validation.Request) *RequestResponse {
	return &RequestResponse{
		ID:            r.ID.String(),
		ClaimID:       r.ClaimID.String(),
		TextVersionID: r.TextVersionID.String(),
		Kind:          r.Kind.String(),
		Status:        r.Status.String(),
		AttemptCount:  r.AttemptCount,
		CreatedAt:     r.CreatedAt,
		ClosedAt:      r.ClosedAt,
	}
}
