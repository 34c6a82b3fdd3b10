package handler

import (
	"time"

	"stilltrue/internal/claim"
)

// ClaimResponse is the HTTP response for POST /claims.
type ClaimResponse struct {
	ID             string    `json:"id"`
	WorkspaceID    string    `json:"workspace_id"`
	OwnerProfileID string    `json:"owner_profile_id"`
	Visibility     string    `json:"visibility"`
	ReviewCadence  string    `json:"review_cadence"`
	ValidationMode string    `json:"validation_mode"`
	CreatedAt      time.Time `json:"created_at"`
}

func FromClaim(c *claim.Claim) *ClaimResponse {
	return &ClaimResponse{
		ID:             c.ID.String(),
		WorkspaceID:    c.WorkspaceID.String(),
		OwnerProfileID: c.OwnerProfileID.String(),
		Visibility:     c.Visibility.String(),
		ReviewCadence:  c.ReviewCadence.String(),
		ValidationMode: c.ValidationMode.String(),
		CreatedAt:      c.CreatedAt,
	}
}

// VersionResponse is one text version in GET /claims/{id}/versions.
type VersionResponse struct {
	ID                 string    `json:"id"`
	ClaimID            string    `json:"claim_id"`
	Text               string    `json:"text"`
	CreatedAt          time.Time `json:"created_at"`
	CreatedByProfileID string    `json:"created_by_profile_id"`
}

func FromVersions(versions []*claim.TextVersion) []VersionResponse {
	out := make([]VersionResponse, len(versions))
	for i, v := range versions {
		out[i] = VersionResponse{
			ID:                 v.ID.String(),
			ClaimID:            v.ClaimID.String(),
			Text:               v.Text,
			CreatedAt:          v.CreatedAt,
			CreatedByProfileID: v.CreatedByProfileID.String(),
		}
	}
	return out
}
