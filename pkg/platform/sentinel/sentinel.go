package sentinel

import "errors"

// Sentinel errors returned by stores. They state facts about storage, not
// policy: services translate them into coded domain errors with context the
// store cannot know (who asked, which operation).
//
//   - ErrNotFound: the row does not exist
//   - ErrConflict: a uniqueness constraint rejected the write (one open
//     request per claim, one response per responder, duplicate validator)
//   - ErrInvalidState: the row exists but is in the wrong state for the
//     requested mutation (closed request, retired claim)
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)
