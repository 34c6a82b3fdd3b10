// Package notify carries the *decision* to notify validators out of the
// core. The core never sends email; it enqueues deliveries for an external
// sender. What to send and to whom is in scope, SMTP is not.
package notify

import (
	"context"
	"time"

	id "stilltrue/pkg/domain"
)

type Kind string

const (
	// KindRequestOpened notifies validators that a new request wants their
	// answer.
	KindRequestOpened Kind = "request_opened"
	// KindReminder nudges validators who have not responded yet.
	KindReminder Kind = "reminder"
)

// Delivery is one pending notification to one recipient.
type Delivery struct {
	Kind               Kind         `json:"kind"`
	RequestID          id.RequestID `json:"request_id"`
	ClaimID            id.ClaimID   `json:"claim_id"`
	RecipientProfileID id.ProfileID `json:"recipient_profile_id"`
	RecipientEmail     string       `json:"recipient_email"`
	QueuedAt           time.Time    `json:"queued_at"`
}

//go:generate mockgen -source=notify.go -destination=mocks/mocks.go -package=mocks Dispatcher

// Dispatcher hands deliveries to whatever transports them. Implementations
// must be safe for concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, deliveries []Delivery) error
}
