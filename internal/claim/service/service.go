// Package service implements the claim store operations: creation, text and
// settings edits, and retirement. All mutations are owner-only, compared
// against the caller's resolved profile set.
package service

import (
	"context"
	"errors"
	"log/slog"

	"stilltrue/internal/audit"
	"stilltrue/internal/claim"
	"stilltrue/internal/platform/metrics"
	"stilltrue/internal/workspace"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/platform/sentinel"
	"stilltrue/pkg/requestcontext"
)

// IdentityResolver supplies the caller's workspace-scoped profiles.
type IdentityResolver interface {
	Profiles(ctx context.Context) ([]*workspace.Profile, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates claim mutations.
type Service struct {
	store    claim.Store
	identity IdentityResolver
	logger   *slog.Logger
	audit    AuditPublisher
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store claim.Store, identity IdentityResolver, opts ...Option) *Service {
	s := &Service{store: store, identity: identity, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a claim with its first text version; the caller's profile
// in the target workspace becomes the owner.
func (s *Service) Create(ctx context.Context, wsID id.WorkspaceID, visibility id.Visibility,
	cadence id.ReviewCadence, mode id.ValidationMode, text string) (*claim.Claim, error) {
	owner, err := s.callerProfileInWorkspace(ctx, wsID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	c, err := claim.NewClaim(id.NewClaimID(), wsID, owner.ID, visibility, cadence, mode, now)
	if err != nil {
		return nil, err
	}
	first, err := claim.NewTextVersion(id.NewTextVersionID(), c.ID, text, owner.ID, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateWithText(ctx, c, first); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create claim")
	}

	if s.metrics != nil {
		s.metrics.ClaimsCreated.Inc()
	}
	s.emitAudit(ctx, audit.EventClaimCreated, owner.ID,
		"claim_id", c.ID.String(),
		"workspace_id", wsID.String())
	return c, nil
}

// EditTextAndVisibility appends a new text version and updates visibility.
// Owner-only; rejected on retired claims.
func (s *Service) EditTextAndVisibility(ctx context.Context, claimID id.ClaimID,
	newText string, newVisibility id.Visibility) error {
	c, caller, err := s.ownedClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if c.IsRetired() {
		return dErrors.New(dErrors.CodeValidation, "claim is retired")
	}

	version, err := claim.NewTextVersion(id.NewTextVersionID(), claimID, newText, caller, requestcontext.Now(ctx))
	if err != nil {
		return err
	}

	if err := s.store.AppendText(ctx, version, newVisibility); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.New(dErrors.CodeValidation, "claim is retired")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "claim not found")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to edit claim text")
		}
	}

	s.emitAudit(ctx, audit.EventClaimTextEdited, caller,
		"claim_id", claimID.String(),
		"text_version_id", version.ID.String())
	return nil
}

// EditValidationSettings updates cadence and mode. Owner-only; rejected on
// retired claims.
func (s *Service) EditValidationSettings(ctx context.Context, claimID id.ClaimID,
	cadence id.ReviewCadence, mode id.ValidationMode) error {
	c, caller, err := s.ownedClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if c.IsRetired() {
		return dErrors.New(dErrors.CodeValidation, "claim is retired")
	}

	if err := s.store.UpdateSettings(ctx, claimID, cadence, mode); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.New(dErrors.CodeValidation, "claim is retired")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "claim not found")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to edit validation settings")
		}
	}

	s.emitAudit(ctx, audit.EventClaimSettingsEdited, caller,
		"claim_id", claimID.String())
	return nil
}

// Retire marks a claim retired. Terminal: a second retire fails with a
// validation error rather than silently no-oping, so callers learn their
// view was stale. Any open validation request is closed in the same
// transaction.
func (s *Service) Retire(ctx context.Context, claimID id.ClaimID) error {
	_, caller, err := s.ownedClaim(ctx, claimID)
	if err != nil {
		return err
	}

	if err := s.store.Retire(ctx, claimID, requestcontext.Now(ctx)); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.New(dErrors.CodeValidation, "claim is already retired")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "claim not found")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to retire claim")
		}
	}

	if s.metrics != nil {
		s.metrics.ClaimsRetired.Inc()
	}
	s.emitAudit(ctx, audit.EventClaimRetired, caller,
		"claim_id", claimID.String())
	return nil
}

// Versions returns a claim's text history. Owners always see it; other
// workspace members only for workspace-visible claims.
func (s *Service) Versions(ctx context.Context, claimID id.ClaimID) ([]*claim.TextVersion, error) {
	c, err := s.store.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}

	profiles, err := s.identity.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	if !canRead(c, profiles) {
		// Present "not found" rather than confirming the claim exists.
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}

	versions, err := s.store.ListVersions(ctx, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load text history")
	}
	return versions, nil
}

// ownedClaim loads the claim and verifies the caller owns it.
func (s *Service) ownedClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, id.ProfileID, error) {
	profiles, err := s.identity.Profiles(ctx)
	if err != nil {
		return nil, id.ProfileID{}, err
	}

	c, err := s.store.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, id.ProfileID{}, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, id.ProfileID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}

	for _, p := range profiles {
		if p.ID == c.OwnerProfileID {
			return c, p.ID, nil
		}
	}
	return nil, id.ProfileID{}, dErrors.New(dErrors.CodeForbidden, "caller does not own this claim")
}

// callerProfileInWorkspace finds the caller's profile in the workspace, or
// fails with forbidden when the caller is not a member.
func (s *Service) callerProfileInWorkspace(ctx context.Context, wsID id.WorkspaceID) (*workspace.Profile, error) {
	profiles, err := s.identity.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if p.WorkspaceID == wsID {
			return p, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeForbidden, "caller is not a member of this workspace")
}

func canRead(c *claim.Claim, profiles []*workspace.Profile) bool {
	for _, p := range profiles {
		if p.ID == c.OwnerProfileID {
			return true
		}
		if c.Visibility == id.VisibilityWorkspace && p.WorkspaceID == c.WorkspaceID {
			return true
		}
	}
	return false
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
