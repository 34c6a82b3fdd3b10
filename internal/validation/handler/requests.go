package handler

import (
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
)

const maxContextBytes = 2048

// OpenRequest is the HTTP request body for
// POST /claims/{id}/validation-requests.
type OpenRequest struct {
	Kind          string `json:"kind"`
	TextVersionID string `json:"claim_text_version_id"`

	parsedKind      id.RequestKind
	parsedVersionID id.TextVersionID
}

// Validate implements httputil.Validatable.
func (r *OpenRequest) Validate() error {
	if r.Kind == "" {
		r.Kind = id.RequestManual.String()
	}
	kind, err := id.ParseRequestKind(r.Kind)
	if err != nil {
		return err
	}
	r.parsedKind = kind

	versionID, err := id.ParseTextVersionID(r.TextVersionID)
	if err != nil {
		return err
	}
	r.parsedVersionID = versionID
	return nil
}

func (r *OpenRequest) ParsedKind() id.RequestKind        { return r.parsedKind }
func (r *OpenRequest) ParsedVersionID() id.TextVersionID { return r.parsedVersionID }

// SubmitRequest is the HTTP request body for
// POST /validation-requests/{id}/responses.
type SubmitRequest struct {
	Answer  string `json:"answer"`
	Context string `json:"context"`

	parsedAnswer id.Answer
}

// Validate implements httputil.Validatable.
func (r *SubmitRequest) Validate() error {
	answer, err := id.ParseAnswer(r.Answer)
	if err != nil {
		return err
	}
	r.parsedAnswer = answer

	if len(r.Context) > maxContextBytes {
		return dErrors.New(dErrors.CodeValidation, "context is too long")
	}
	return nil
}

func (r *SubmitRequest) ParsedAnswer() id.Answer { return r.parsedAnswer }
