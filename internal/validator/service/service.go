// Package service implements owner-managed validator registry operations.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"stilltrue/internal/audit"
	"stilltrue/internal/claim"
	"stilltrue/internal/validator"
	"stilltrue/internal/workspace"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/platform/sentinel"
	"stilltrue/pkg/requestcontext"
)

type IdentityResolver interface {
	Profiles(ctx context.Context) ([]*workspace.Profile, error)
}

// MemberDirectory resolves emails to member profiles within a workspace.
type MemberDirectory interface {
	FindMemberByEmail(ctx context.Context, wsID id.WorkspaceID, email string) (*workspace.Profile, error)
}

type ClaimReader interface {
	FindByID(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages the validator registry for claims the caller owns.
type Service struct {
	store    validator.Store
	claims   ClaimReader
	members  MemberDirectory
	identity IdentityResolver
	logger   *slog.Logger
	audit    AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func New(store validator.Store, claims ClaimReader, members MemberDirectory,
	identity IdentityResolver, opts ...Option) *Service {
	s := &Service{store: store, claims: claims, members: members, identity: identity, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddByEmail registers a workspace member as a validator for an owned claim.
func (s *Service) AddByEmail(ctx context.Context, claimID id.ClaimID, email string, kind id.ValidatorKind) error {
	c, caller, err := s.ownedClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if c.IsRetired() {
		return dErrors.New(dErrors.CodeValidation, "claim is retired")
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return dErrors.New(dErrors.CodeValidation, "validator email cannot be empty")
	}

	member, err := s.members.FindMemberByEmail(ctx, c.WorkspaceID, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no workspace member with this email")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve member")
	}

	v := &validator.Validator{
		ClaimID:   claimID,
		ProfileID: member.ID,
		Kind:      kind,
		AddedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Add(ctx, v); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeValidation, "validator already registered for this claim")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add validator")
	}

	s.emitAudit(ctx, audit.EventValidatorAdded, caller,
		"claim_id", claimID.String(),
		"validator_profile_id", member.ID.String())
	return nil
}

// Remove unregisters a validator. Idempotent: removing an absent validator
// succeeds silently, so retried removals never surface spurious failures.
func (s *Service) Remove(ctx context.Context, claimID id.ClaimID, profileID id.ProfileID) error {
	_, caller, err := s.ownedClaim(ctx, claimID)
	if err != nil {
		return err
	}

	removed, err := s.store.Remove(ctx, claimID, profileID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove validator")
	}
	if removed {
		s.emitAudit(ctx, audit.EventValidatorRemoved, caller,
			"claim_id", claimID.String(),
			"validator_profile_id", profileID.String())
	}
	return nil
}

// List returns the registered validators of an owned claim. Owner-only: the
// validator list is one of the fields the member-safe projection must never
// carry.
func (s *Service) List(ctx context.Context, claimID id.ClaimID) ([]*validator.Validator, error) {
	if _, _, err := s.ownedClaim(ctx, claimID); err != nil {
		return nil, err
	}
	validators, err := s.store.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list validators")
	}
	return validators, nil
}

func (s *Service) ownedClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, id.ProfileID, error) {
	profiles, err := s.identity.Profiles(ctx)
	if err != nil {
		return nil, id.ProfileID{}, err
	}

	c, err := s.claims.FindByID(ctx, claimID)
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
