package projection

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"stilltrue/internal/claim"
	"stilltrue/internal/validation"
	"stilltrue/internal/validator"
	"stilltrue/internal/workspace"
	workspaceservice "stilltrue/internal/workspace/service"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/requestcontext"
)

type ProjectionSuite struct {
	suite.Suite

	now    time.Time
	ws     *workspace.Workspace
	owner  *workspace.Profile
	member *workspace.Profile

	wsStore  *workspace.MemoryStore
	claims   *claim.MemoryStore
	registry *validator.MemoryStore
	store    *validation.MemoryStore
	service  *Service
}

func TestProjectionSuite(t *testing.T) {
	suite.Run(t, new(ProjectionSuite))
}

func (s *ProjectionSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.wsStore = workspace.NewMemoryStore()
	s.claims = claim.NewMemoryStore()
	s.registry = validator.NewMemoryStore()
	s.store = validation.NewMemoryStore(s.registry)
	s.claims.AttachRequestCloser(s.store)

	ws, err := workspace.NewWorkspace(id.NewWorkspaceID(), "acme", s.now)
	s.Require().NoError(err)
	owner, err := workspace.NewProfile(id.NewProfileID(), ws.ID, id.NewUserID(), "owner@acme.test", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.wsStore.Bootstrap(context.Background(), ws, owner))
	s.ws, s.owner = ws, owner

	member, err := workspace.NewProfile(id.NewProfileID(), ws.ID, id.NewUserID(), "member@acme.test", s.now)
	s.Require().NoError(err)
	s.wsStore.AddProfile(member)
	s.member = member

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	identity := workspaceservice.New(s.wsStore, workspaceservice.WithLogger(logger))
	s.service = New(s.claims, s.store, identity, logger)
}

func (s *ProjectionSuite) ctxFor(p *workspace.Profile) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), p.UserID)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *ProjectionSuite) mustClaim(owner *workspace.Profile, visibility id.Visibility, text string) (*claim.Claim, *claim.TextVersion) {
	c, err := claim.NewClaim(id.NewClaimID(), s.ws.ID, owner.ID,
		visibility, id.CadenceMonthly, id.ModeAny, s.now)
	s.Require().NoError(err)
	first, err := claim.NewTextVersion(id.NewTextVersionID(), c.ID, text, owner.ID, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.claims.CreateWithText(context.Background(), c, first))
	return c, first
}

func (s *ProjectionSuite) TestWorkspaceClaimsExcludesRetired() {
	live, _ := s.mustClaim(s.owner, id.VisibilityWorkspace, "live claim")
	retired, _ := s.mustClaim(s.owner, id.VisibilityWorkspace, "retired claim")
	s.Require().NoError(s.claims.Retire(context.Background(), retired.ID, s.now))

	rows, err := s.service.WorkspaceClaims(s.ctxFor(s.member), s.ws.ID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(live.ID, rows[0].ID)
	s.Equal("live claim", rows[0].CurrentText)
}

func (s *ProjectionSuite) TestWorkspaceClaimsHidesOthersPrivateClaims() {
	s.mustClaim(s.owner, id.VisibilityPrivate, "owner private")
	shared, _ := s.mustClaim(s.owner, id.VisibilityWorkspace, "shared")

	memberRows, err := s.service.WorkspaceClaims(s.ctxFor(s.member), s.ws.ID)
	s.Require().NoError(err)
	s.Require().Len(memberRows, 1)
	s.Equal(shared.ID, memberRows[0].ID)

	ownerRows, err := s.service.WorkspaceClaims(s.ctxFor(s.owner), s.ws.ID)
	s.Require().NoError(err)
	s.Len(ownerRows, 2)
}

func (s *ProjectionSuite) TestWorkspaceClaimsRequiresMembership() {
	outsider, err := workspace.NewProfile(id.NewProfileID(), id.NewWorkspaceID(), id.NewUserID(), "out@other.test", s.now)
	s.Require().NoError(err)
	s.wsStore.AddProfile(outsider)

	_, err = s.service.WorkspaceClaims(s.ctxFor(outsider), s.ws.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ProjectionSuite) TestClaimRowCarriesNoValidationFields() {
	s.mustClaim(s.owner, id.VisibilityWorkspace, "shared")

	rows, err := s.service.WorkspaceClaims(s.ctxFor(s.member), s.ws.ID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)

	raw, err := json.Marshal(rows[0])
	s.Require().NoError(err)
	var asMap map[string]any
	s.Require().NoError(json.Unmarshal(raw, &asMap))
	for _, forbidden := range []string{"state", "validators", "total_requests", "yes_count"} {
		_, ok := asMap[forbidden]
		s.False(ok, "member-safe row must not carry %q", forbidden)
	}
}

func (s *ProjectionSuite) TestValidationSummaryCountsAndOwnership() {
	c, v := s.mustClaim(s.owner, id.VisibilityWorkspace, "shared")

	open := validation.NewRequest(id.NewRequestID(), c.ID, v.ID, id.RequestManual, s.now)
	s.Require().NoError(s.store.CreateOpenRequest(context.Background(), open))
	s.Require().NoError(s.store.AddResponse(context.Background(),
		validation.NewResponse(open.ID, s.member.ID, id.AnswerYes, "", s.now)))
	s.Require().NoError(s.store.AddResponse(context.Background(),
		validation.NewResponse(open.ID, s.owner.ID, id.AnswerNo, "", s.now)))
	s.Require().NoError(s.store.CloseRequest(context.Background(), open.ID, s.now))

	second := validation.NewRequest(id.NewRequestID(), c.ID, v.ID, id.RequestScheduled, s.now.Add(time.Hour))
	s.Require().NoError(s.store.CreateOpenRequest(context.Background(), second))
	s.Require().NoError(s.store.AddResponse(context.Background(),
		validation.NewResponse(second.ID, s.member.ID, id.AnswerUnsure, "", s.now.Add(time.Hour))))

	summary, err := s.service.ValidationSummary(s.ctxFor(s.owner), c.ID)
	s.Require().NoError(err)
	s.Equal(2, summary.TotalRequests)
	s.Equal(1, summary.OpenRequests)
	s.Equal(1, summary.ClosedRequests)
	s.Equal(3, summary.TotalResponses)
	s.Equal(1, summary.YesCount)
	s.Equal(1, summary.UnsureCount)
	s.Equal(1, summary.NoCount)

	_, err = s.service.ValidationSummary(s.ctxFor(s.member), c.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ProjectionSuite) TestInboxPinsRespondedWording() {
	c, first := s.mustClaim(s.owner, id.VisibilityWorkspace, "original wording")
	s.Require().NoError(s.registry.Add(context.Background(), &validator.Validator{
		ClaimID:   c.ID,
		ProfileID: s.member.ID,
		Kind:      id.ValidatorHuman,
		AddedAt:   s.now,
	}))

	request := validation.NewRequest(id.NewRequestID(), c.ID, first.ID, id.RequestManual, s.now)
	s.Require().NoError(s.store.CreateOpenRequest(context.Background(), request))

	// The wording changes after the request was opened; the inbox must keep
	// showing the pinned version.
	edit, err := claim.NewTextVersion(id.NewTextVersionID(), c.ID, "edited wording", s.owner.ID, s.now.Add(time.Hour))
	require.NoError(s.T(), err)
	s.Require().NoError(s.claims.AppendText(context.Background(), edit, id.VisibilityWorkspace))

	rows, err := s.service.Inbox(s.ctxFor(s.member))
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(request.ID, rows[0].RequestID)
	s.Equal("original wording", rows[0].ClaimText)
	s.Equal(c.WorkspaceID, rows[0].WorkspaceID)
	s.Equal(s.owner.ID, rows[0].OwnerProfileID)

	ownerRows, err := s.service.Inbox(s.ctxFor(s.owner))
	s.Require().NoError(err)
	s.Empty(ownerRows, "requests only land in registered validators' inboxes")
}
