// Package audit records an append-only trail of core mutations. Events are
// emitted by services after a successful commit; the trail is observational
// and never blocks a business operation (fail-open, logged on publish error).
package audit

import (
	"time"

	id "stilltrue/pkg/domain"
)

type EventKind string

const (
	EventWorkspaceBootstrapped EventKind = "workspace.bootstrapped"
	EventClaimCreated          EventKind = "claim.created"
	EventClaimTextEdited       EventKind = "claim.text_edited"
	EventClaimSettingsEdited   EventKind = "claim.settings_edited"
	EventClaimRetired          EventKind = "claim.retired"
	EventValidatorAdded        EventKind = "validator.added"
	EventValidatorRemoved      EventKind = "validator.removed"
	EventRequestOpened         EventKind = "validation_request.opened"
	EventRequestReminded       EventKind = "validation_request.reminded"
	EventRequestClosed         EventKind = "validation_request.closed"
	EventResponseRecorded      EventKind = "validation_response.recorded"
)

// Event is one audit record. Attrs are flat key/value pairs so sinks need no
// schema knowledge.
type Event struct {
	Kind           EventKind         `json:"kind"`
	ActorProfileID id.ProfileID      `json:"actor_profile_id"`
	Attrs          map[string]string `json:"attrs,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// NewEvent builds an event from alternating key/value attribute pairs.
func NewEvent(kind EventKind, actor id.ProfileID, attrs ...string) Event {
	e := Event{Kind: kind, ActorProfileID: actor}
	if len(attrs) > 1 {
		e.Attrs = make(map[string]string, len(attrs)/2)
		for i := 0; i+1 < len(attrs); i += 2 {
			e.Attrs[attrs[i]] = attrs[i+1]
		}
	}
	return e
}
