package handler

import (
	"strings"

	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
)

const maxClaimTextBytes = 4096

// CreateRequest is the HTTP request body for POST /claims.
type CreateRequest struct {
	WorkspaceID    string `json:"workspace_id"`
	Visibility     string `json:"visibility"`
	ReviewCadence  string `json:"review_cadence"`
	ValidationMode string `json:"validation_mode"`
	Text           string `json:"text"`

	parsedWorkspaceID id.WorkspaceID
	parsedVisibility  id.Visibility
	parsedCadence     id.ReviewCadence
	parsedMode        id.ValidationMode
}

// Validate implements httputil.Validatable.
func (r *CreateRequest) Validate() error {
	wsID, err := id.ParseWorkspaceID(r.WorkspaceID)
	if err != nil {
		return err
	}
	r.parsedWorkspaceID = wsID

	visibility, err := id.ParseVisibility(r.Visibility)
	if err != nil {
		return err
	}
	r.parsedVisibility = visibility

	cadence, err := id.ParseReviewCadence(r.ReviewCadence)
	if err != nil {
		return err
	}
	r.parsedCadence = cadence

	mode, err := id.ParseValidationMode(r.ValidationMode)
	if err != nil {
		return err
	}
	r.parsedMode = mode

	if len(r.Text) > maxClaimTextBytes {
		return dErrors.New(dErrors.CodeValidation, "claim text is too long")
	}
	if strings.TrimSpace(r.Text) == "" {
		return dErrors.New(dErrors.CodeValidation, "claim text cannot be empty")
	}
	return nil
}

func (r *CreateRequest) ParsedWorkspaceID() id.WorkspaceID { return r.parsedWorkspaceID }
func (r *CreateRequest) ParsedVisibility() id.Visibility   { return r.parsedVisibility }
func (r *CreateRequest) ParsedCadence() id.ReviewCadence   { return r.parsedCadence }
func (r *CreateRequest) ParsedMode() id.ValidationMode     { return r.parsedMode }

// EditTextRequest is the HTTP request body for POST /claims/{id}/text.
type EditTextRequest struct {
	NewText       string `json:"new_text"`
	NewVisibility string `json:"new_visibility"`

	parsedVisibility id.Visibility
}

// Validate implements httputil.Validatable.
func (r *EditTextRequest) Validate() error {
	visibility, err := id.ParseVisibility(r.NewVisibility)
	if err != nil {
		return err
	}
	r.parsedVisibility = visibility

	if len(r.NewText) > maxClaimTextBytes {
		return dErrors.New(dErrors.CodeValidation, "claim text is too long")
	}
	if strings.TrimSpace(r.NewText) == "" {
		return dErrors.New(dErrors.CodeValidation, "claim text cannot be empty")
	}
	return nil
}

func (r *EditTextRequest) ParsedVisibility() id.Visibility { return r.parsedVisibility }

// EditSettingsRequest is the HTTP request body for POST /claims/{id}/settings.
type EditSettingsRequest struct {
	ReviewCadence  string `json:"review_cadence"`
	ValidationMode string `json:"validation_mode"`

	parsedCadence id.ReviewCadence
	parsedMode    id.ValidationMode
}

// Validate implements httputil.Validatable.
func (r *EditSettingsRequest) Validate() error {
	cadence, err := id.ParseReviewCadence(r.ReviewCadence)
	if err != nil {
		return err
	}
	r.parsedCadence = cadence

	mode, err := id.ParseValidationMode(r.ValidationMode)
	if err != nil {
		return err
	}
	r.parsedMode = mode
	return nil
}

func (r *EditSettingsRequest) ParsedCadence() id.ReviewCadence { return r.parsedCadence }
func (r *EditSettingsRequest) ParsedMode() id.ValidationMode   { return r.parsedMode }
