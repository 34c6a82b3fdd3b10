package claimstate

import (
	"context"
	"errors"
	"log/slog"

	"stilltrue/internal/claim"
	"stilltrue/internal/validation"
	"stilltrue/internal/workspace"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/platform/sentinel"
)

// IdentityResolver supplies the caller's workspace-scoped profiles.
type IdentityResolver interface {
	Profiles(ctx context.Context) ([]*workspace.Profile, error)
}

// ClaimLister supplies a workspace's claims.
type ClaimLister interface {
	ListByWorkspace(ctx context.Context, wsID id.WorkspaceID) ([]*claim.Claim, error)
}

// HistoryReader supplies the closed-request history a derivation needs.
type HistoryReader interface {
	LatestClosedByClaim(ctx context.Context, claimID id.ClaimID) (*validation.Request, error)
	ListResponses(ctx context.Context, requestID id.RequestID) ([]*validation.Response, error)
}

// ClaimStateRow is one derived state for one owned claim.
type ClaimStateRow struct {
	ClaimID id.ClaimID    `json:"claim_id"`
	State   id.ClaimState `json:"state"`
}

// Service answers the owner-only state query.
type Service struct {
	claims   ClaimLister
	history  HistoryReader
	identity IdentityResolver
	logger   *slog.Logger
}

func New(claims ClaimLister, history HistoryReader, identity IdentityResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{claims: claims, history: history, identity: identity, logger: logger}
}

// StatesForWorkspace derives the state of every claim the caller owns in
// the workspace. Claims owned by others are omitted, not blanked; state is
// owner-visible only.
func (s *Service) StatesForWorkspace(ctx context.Context, wsID id.WorkspaceID) ([]ClaimStateRow, error) {
	profiles, err := s.identity.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	profileIDs := make([]id.ProfileID, len(profiles))
	for i, p := range profiles {
		profileIDs[i] = p.ID
	}

	claims, err := s.claims.ListByWorkspace(ctx, wsID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list workspace claims")
	}

	rows := make([]ClaimStateRow, 0, len(claims))
	for _, c := range claims {
		if !c.IsOwnedByAny(profileIDs) {
			continue
		}
		state, err := s.deriveFor(ctx, c)
		if err != nil {
			return nil, err
		}
		rows = append(rows, ClaimStateRow{ClaimID: c.ID, State: state})
	}
	return rows, nil
}

func (s *Service) deriveFor(ctx context.Context, c *claim.Claim) (id.ClaimState, error) {
	latest, err := s.history.LatestClosedByClaim(ctx, c.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Derive(c, nil, nil), nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load validation history")
	}
	responses, err := s.history.ListResponses(ctx, latest.ID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load validation responses")
	}
	return Derive(c, latest, responses), nil
}
