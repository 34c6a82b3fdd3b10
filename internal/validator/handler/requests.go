package handler

import (
	"strings"

	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
)

// AddRequest is the HTTP request body for POST /claims/{id}/validators.
type AddRequest struct {
	Email string `json:"email"`
	Kind  string `json:"kind"`

	parsedKind id.ValidatorKind
}

// Validate implements httputil.Validatable.
func (r *AddRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Kind == "" {
		r.Kind = id.ValidatorHuman.String()
	}
	kind, err := id.ParseValidatorKind(r.Kind)
	if err != nil {
		return err
	}
	r.parsedKind = kind
	return nil
}

func (r *AddRequest) ParsedKind() id.ValidatorKind { return r.parsedKind }
