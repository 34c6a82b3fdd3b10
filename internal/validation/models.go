// Package validation owns the validation-request state machine: opening,
// response collection, reminding, closing.
//
// Central invariants:
//   - At most one open request per claim at any time. The store's
//     uniqueness constraint is the source of truth, never an in-memory
//     flag.
//   - At most one response per (request, responder). Resubmission is
//     rejected, not overwritten.
//   - A request transitions open -> closed exactly once and never reopens.
package validation

import (
	"strings"
	"time"

	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
)

// AlreadyOpenMessage is part of the public contract: callers match on it to
// fall back from "open" to "remind". Do not reword.
const AlreadyOpenMessage = "open validation request already exists"

// ErrAlreadyOpen is the distinguishable conflict returned when opening a
// request for a claim that already has one open.
func ErrAlreadyOpen() error {
	return dErrors.New(dErrors.CodeConflict, AlreadyOpenMessage)
}

// Request is one round of "is this claim still true?", pinned to the exact
// wording being judged.
type Request struct {
	ID            id.RequestID     `json:"id"`
	ClaimID       id.ClaimID       `json:"claim_id"`
	TextVersionID id.TextVersionID `json:"claim_text_version_id"`
	Kind          id.RequestKind   `json:"kind"`
	Status        id.RequestStatus `json:"status"`
	// AttemptCount starts at 1: opening the request is the first attempt
	// to reach the validators. Reminding increments it.
	AttemptCount int        `json:"attempt_count"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

func (r *Request) IsOpen() bool {
	return r.Status == id.StatusOpen
}

// Response is one validator's answer to one request.
type Response struct {
	RequestID          id.RequestID `json:"request_id"`
	ResponderProfileID id.ProfileID `json:"responder_profile_id"`
	Answer             id.Answer    `json:"answer"`
	Context            *string      `json:"context,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

// NewRequest constructs an open request.
func NewRequest(requestID id.RequestID, claimID id.ClaimID, versionID id.TextVersionID,
	kind id.RequestKind, now time.Time) *Request {
	return &Request{
		ID:            requestID,
		ClaimID:       claimID,
		TextVersionID: versionID,
		Kind:          kind,
		Status:        id.StatusOpen,
		AttemptCount:  1,
		CreatedAt:     now,
	}
}

// NewResponse validates and constructs a response. Context is trimmed;
// empty context is stored as absent.
func NewResponse(requestID id.RequestID, responder id.ProfileID, answer id.Answer,
	context string, now time.Time) *Response {
	resp := &Response{
		RequestID:          requestID,
		ResponderProfileID: responder,
		Answer:             answer,
		CreatedAt:          now,
	}
	if trimmed := strings.TrimSpace(context); trimmed != "" {
		resp.Context = &trimmed
	}
	return resp
}

// PendingRecipient is one validator who has not yet answered the open
// request, with the email the caller needs to notify them.
type PendingRecipient struct {
	RequestID id.RequestID `json:"request_id"`
	ProfileID id.ProfileID `json:"pending_validator_profile_id"`
	Email     string       `json:"pending_validator_email"`
}
