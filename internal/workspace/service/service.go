// Package service implements workspace onboarding and caller identity
// resolution. The resolver output (the caller's profile-id set) is the input
// to every ownership check in the other modules.
package service

import (
	"context"
	"errors"
	"log/slog"

	"stilltrue/internal/audit"
	"stilltrue/internal/workspace"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/platform/sentinel"
	"stilltrue/pkg/requestcontext"
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service resolves identities and onboards workspaces.
type Service struct {
	store  workspace.Store
	logger *slog.Logger
	audit  AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func New(store workspace.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// callerID extracts the authenticated user, failing closed when the request
// context carries no identity.
func callerID(ctx context.Context) (id.UserID, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "caller is not authenticated")
	}
	return userID, nil
}

// Bootstrap onboards a workspace: creates it together with the caller's
// owner profile, atomically.
func (s *Service) Bootstrap(ctx context.Context, name, email string) (*workspace.Workspace, *workspace.Profile, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, nil, err
	}

	now := requestcontext.Now(ctx)
	ws, err := workspace.NewWorkspace(id.NewWorkspaceID(), name, now)
	if err != nil {
		return nil, nil, err
	}
	owner, err := workspace.NewProfile(id.NewProfileID(), ws.ID, userID, email, now)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.Bootstrap(ctx, ws, owner); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "workspace already exists for this user")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to bootstrap workspace")
	}

	s.emitAudit(ctx, audit.EventWorkspaceBootstrapped, owner.ID,
		"workspace_id", ws.ID.String())
	return ws, owner, nil
}

// ProfileIDs resolves the caller to their workspace-scoped identity set.
func (s *Service) ProfileIDs(ctx context.Context) ([]id.ProfileID, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := s.store.ListProfilesByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve profiles")
	}
	out := make([]id.ProfileID, len(profiles))
	for i, p := range profiles {
		out[i] = p.ID
	}
	return out, nil
}

// Profiles returns the caller's full profile records, for the /me surface.
func (s *Service) Profiles(ctx context.Context) ([]*workspace.Profile, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := s.store.ListProfilesByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve profiles")
	}
	return profiles, nil
}

func (s *Service) emitAudit(ctx context.Context, kind audit.EventKind, actor id.ProfileID, attrs ...string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, audit.NewEvent(kind, actor, attrs...)); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"event", string(kind),
			"error", err,
			"request_id", requestcontext.RequestID(ctx))
	}
}
