package testutil

import (
	"net/http"
	"time"

	id "stilltrue/pkg/domain"
	"stilltrue/pkg/requestcontext"
)

// WithUserID adds an authenticated user id to the request context,
// simulating what the auth middleware does. Invalid ids are ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithRequestTime pins the request-scoped time, matching the RequestID
// middleware's behavior so tests observe deterministic timestamps.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
