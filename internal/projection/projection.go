// Package projection implements the read models of the API: the member-safe
// workspace claims list, the owner-only validation summary, and the
// validation-request inbox. Projections decide what each caller may see;
// owner-only fields are omitted from member views, never blanked.
package projection

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stilltrue/internal/claim"
	"stilltrue/internal/validation"
	"stilltrue/internal/workspace"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/platform/sentinel"
)

type IdentityResolver interface {
	Profiles(ctx context.Context) ([]*workspace.Profile, error)
}

// ClaimReader is the slice of the claim store the projections read.
type ClaimReader interface {
	FindByID(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error)
	ListByWorkspace(ctx context.Context, wsID id.WorkspaceID) ([]*claim.Claim, error)
	FindVersion(ctx context.Context, versionID id.TextVersionID) (*claim.TextVersion, error)
	LatestVersion(ctx context.Context, claimID id.ClaimID) (*claim.TextVersion, error)
}

// HistoryReader is the slice of the workflow store the projections read.
type HistoryReader interface {
	ListByClaim(ctx context.Context, claimID id.ClaimID) ([]*validation.Request, error)
	ListResponses(ctx context.Context, requestID id.RequestID) ([]*validation.Response, error)
	ListForValidatorProfiles(ctx context.Context, profileIDs []id.ProfileID) ([]*validation.Request, error)
}

// ClaimRow is one entry of the member-safe workspace claims list. It carries
// no validation state, validator set, or summary counts.
type ClaimRow struct {
	ID             id.ClaimID        `json:"id"`
	WorkspaceID    id.WorkspaceID    `json:"workspace_id"`
	OwnerProfileID id.ProfileID      `json:"owner_profile_id"`
	Visibility     id.Visibility     `json:"visibility"`
	ReviewCadence  id.ReviewCadence  `json:"review_cadence"`
	ValidationMode id.ValidationMode `json:"validation_mode"`
	CreatedAt      time.Time         `json:"created_at"`
	CurrentText    string            `json:"current_text"`
}

// Summary aggregates a claim's validation history for its owner.
type Summary struct {
	TotalRequests  int `json:"total_requests"`
	OpenRequests   int `json:"open_requests"`
	ClosedRequests int `json:"closed_requests"`
	TotalResponses int `json:"total_responses"`
	YesCount       int `json:"yes_count"`
	UnsureCount    int `json:"unsure_count"`
	NoCount        int `json:"no_count"`
}

// InboxRow is one validation request addressed to the caller, joined with
// the claim and the pinned wording the caller is being asked to judge.
type InboxRow struct {
	RequestID      id.RequestID     `json:"request_id"`
	ClaimID        id.ClaimID       `json:"claim_id"`
	TextVersionID  id.TextVersionID `json:"claim_text_version_id"`
	Kind           id.RequestKind   `json:"kind"`
	Status         id.RequestStatus `json:"status"`
	AttemptCount   int              `json:"attempt_count"`
	CreatedAt      time.Time        `json:"created_at"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty"`
	WorkspaceID    id.WorkspaceID   `json:"workspace_id"`
	Visibility     id.Visibility    `json:"visibility"`
	OwnerProfileID id.ProfileID     `json:"owner_profile_id"`
	ClaimText      string           `json:"claim_text"`
}

// Service serves the read models.
type Service struct {
	claims   ClaimReader
	history  HistoryReader
	identity IdentityResolver
	logger   *slog.Logger
}

func New(claims ClaimReader, history HistoryReader, identity IdentityResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{claims: claims, history: history, identity: identity, logger: logger}
}

// WorkspaceClaims lists the claims a workspace member may see: workspace-
// visible claims plus the caller's own private ones. Retired claims are
// excluded entirely.
func (s *Service) WorkspaceClaims(ctx context.Context, wsID id.WorkspaceID) ([]ClaimRow, error) {
	caller, err := s.callerProfileInWorkspace(ctx, wsID)
	if err != nil {
		return nil, err
	}

	claims, err := s.claims.ListByWorkspace(ctx, wsID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list workspace claims")
	}

	rows := make([]ClaimRow, 0, len(claims))
	for _, c := range claims {
		if c.IsRetired() {
			continue
		}
		if c.Visibility == id.VisibilityPrivate && c.OwnerProfileID != caller.ID {
			continue
		}
		current, err := s.claims.LatestVersion(ctx, c.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load current claim text")
		}
		rows = append(rows, ClaimRow{
			ID:             c.ID,
			WorkspaceID:    c.WorkspaceID,
			OwnerProfileID: c.OwnerProfileID,
			Visibility:     c.Visibility,
			ReviewCadence:  c.ReviewCadence,
			ValidationMode: c.ValidationMode,
			CreatedAt:      c.CreatedAt,
			CurrentText:    current.Text,
		})
	}
	return rows, nil
}

// ValidationSummary aggregates request and response counts for an owned
// claim. Owner-only.
func (s *Service) ValidationSummary(ctx context.Context, claimID id.ClaimID) (*Summary, error) {
	if err := s.requireOwner(ctx, claimID); err != nil {
		return nil, err
	}

	requests, err := s.history.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list validation requests")
	}

	summary := &Summary{}
	for _, r := range requests {
		summary.TotalRequests++
		if r.IsOpen() {
			summary.OpenRequests++
		} else {
			summary.ClosedRequests++
		}
		responses, err := s.history.ListResponses(ctx, r.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list validation responses")
		}
		for _, resp := range responses {
			summary.TotalResponses++
			switch resp.Answer {
			case id.AnswerYes:
				summary.YesCount++
			case id.AnswerUnsure:
				summary.UnsureCount++
			case id.AnswerNo:
				summary.NoCount++
			}
		}
	}
	return summary, nil
}

// Inbox lists the validation requests addressed to any of the caller's
// profiles, newest first, each pinned to the wording under judgment.
func (s *Service) Inbox(ctx context.Context) ([]InboxRow, error) {
	profiles, err := s.identity.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	profileIDs := make([]id.ProfileID, len(profiles))
	for i, p := range profiles {
		profileIDs[i] = p.ID
	}

	requests, err := s.history.ListForValidatorProfiles(ctx, profileIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list inbox requests")
	}

	rows := make([]InboxRow, 0, len(requests))
	for _, r := range requests {
		c, err := s.claims.FindByID(ctx, r.ClaimID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim for inbox")
		}
		version, err := s.claims.FindVersion(ctx, r.TextVersionID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pinned claim text")
		}
		rows = append(rows, InboxRow{
			RequestID:      r.ID,
			ClaimID:        r.ClaimID,
			TextVersionID:  r.TextVersionID,
			Kind:           r.Kind,
			Status:         r.Status,
			AttemptCount:   r.AttemptCount,
			CreatedAt:      r.CreatedAt,
			ClosedAt:       r.ClosedAt,
			WorkspaceID:    c.WorkspaceID,
			Visibility:     c.Visibility,
			OwnerProfileID: c.OwnerProfileID,
			ClaimText:      version.Text,
		})
	}
	return rows, nil
}

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

func (s *Service) requireOwner(ctx context.Context, claimID id.ClaimID) error {
	profiles, err := s.identity.Profiles(ctx)
	if err != nil {
		return err
	}
	c, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	profileIDs := make([]id.ProfileID, len(profiles))
	for i, p := range profiles {
		profileIDs[i] = p.ID
	}
	if !c.IsOwnedByAny(profileIDs) {
		return dErrors.New(dErrors.CodeForbidden, "only the claim owner may view the validation summary")
	}
	return nil
}
