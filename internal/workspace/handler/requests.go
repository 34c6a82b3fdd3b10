package handler

import (
	"strings"

	dErrors "stilltrue/pkg/domain-errors"
)

// BootstrapRequest is the HTTP request body for POST /workspaces/bootstrap.
type BootstrapRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate implements httputil.Validatable.
func (r *BootstrapRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "workspace name is required")
	}
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}
