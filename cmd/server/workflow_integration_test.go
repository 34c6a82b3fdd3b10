//go:build integration

package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stilltrue/internal/claim"
	"stilltrue/internal/validation"
	validationservice "stilltrue/internal/validation/service"
	"stilltrue/internal/validator"
	"stilltrue/internal/workspace"
	workspaceservice "stilltrue/internal/workspace/service"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/platform/sentinel"
	"stilltrue/pkg/requestcontext"
	"stilltrue/pkg/testutil/containers"
)

// WorkflowPostgresSuite runs the validation workflow end to end against a
// real database, exercising the row locking and the partial unique index
// that the memory stores can only approximate.
type WorkflowPostgresSuite struct {
	suite.Suite

	pg  *containers.PostgresContainer
	now time.Time

	wsStore *workspace.PostgresStore
	claims  *claim.PostgresStore
	service *validationservice.Service
	store   *validation.PostgresStore

	ws      *workspace.Workspace
	owner   *workspace.Profile
	member1 *workspace.Profile
	member2 *workspace.Profile
}

func TestWorkflowPostgresSuite(t *testing.T) {
	suite.Run(t, new(WorkflowPostgresSuite))
}

func (s *WorkflowPostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
}

func (s *WorkflowPostgresSuite) TearDownSuite() {
	if s.pg != nil {
		_ = s.pg.DB.Close()
		_ = s.pg.Container.Terminate(context.Background())
	}
}

func (s *WorkflowPostgresSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.pg.Truncate(ctx))

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.wsStore = workspace.NewPostgresStore(s.pg.DB)
	s.claims = claim.NewPostgresStore(s.pg.DB)
	s.store = validation.NewPostgresStore(s.pg.DB)

	ws, err := workspace.NewWorkspace(id.NewWorkspaceID(), "acme", s.now)
	s.Require().NoError(err)
	owner, err := workspace.NewProfile(id.NewProfileID(), ws.ID, id.NewUserID(), "owner@acme.test", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.wsStore.Bootstrap(ctx, ws, owner))
	s.ws, s.owner = ws, owner

	s.member1 = s.addMember("member1@acme.test")
	s.member2 = s.addMember("member2@acme.test")

	identity := workspaceservice.New(s.wsStore, workspaceservice.WithLogger(logger))
	s.service = validationservice.New(s.store, newValidationPostgresTx(s.pg.DB),
		s.claims, identity, s.wsStore, validationservice.WithLogger(logger))
}

func (s *WorkflowPostgresSuite) addMember(email string) *workspace.Profile {
	p, err := workspace.NewProfile(id.NewProfileID(), s.ws.ID, id.NewUserID(), email, s.now)
	s.Require().NoError(err)
	_, execErr := s.pg.DB.ExecContext(context.Background(),
		`INSERT INTO profiles (id, workspace_id, user_id, email, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID.String(), p.WorkspaceID.String(), p.UserID.String(), p.Email, p.CreatedAt)
	s.Require().NoError(execErr)
	return p
}

func (s *WorkflowPostgresSuite) ctxFor(p *workspace.Profile) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), p.UserID)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *WorkflowPostgresSuite) newClaim(mode id.ValidationMode, validators ...*workspace.Profile) (*claim.Claim, *claim.TextVersion) {
	ctx := context.Background()
	c, err := claim.NewClaim(id.NewClaimID(), s.ws.ID, s.owner.ID,
		id.VisibilityWorkspace, id.CadenceMonthly, mode, s.now)
	s.Require().NoError(err)
	version, err := claim.NewTextVersion(id.NewTextVersionID(), c.ID, "the claim", s.owner.ID, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.claims.CreateWithText(ctx, c, version))

	registry := validator.NewPostgresStore(s.pg.DB)
	for _, p := range validators {
		s.Require().NoError(registry.Add(ctx, &validator.Validator{
			ClaimID: c.ID, ProfileID: p.ID, Kind: id.ValidatorHuman, AddedAt: s.now,
		}))
	}
	return c, version
}

func (s *WorkflowPostgresSuite) TestConcurrentOpensAdmitExactlyOne() {
	c, version := s.newClaim(id.ModeAny, s.member1)

	const attempts = 6
	results := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = s.service.Open(s.ctxFor(s.owner), c.ID, id.RequestManual, version.ID)
		}()
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			conflicted++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(attempts-1, conflicted)
}

func (s *WorkflowPostgresSuite) TestConcurrentSubmitsInAllModeCloseOnce() {
	c, version := s.newClaim(id.ModeAll, s.member1, s.member2)

	request, err := s.service.Open(s.ctxFor(s.owner), c.ID, id.RequestManual, version.ID)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range []*workspace.Profile{s.member1, s.member2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.service.Submit(s.ctxFor(p), request.ID, id.AnswerYes, "")
		}()
	}
	wg.Wait()
	s.Require().NoError(errs[0])
	s.Require().NoError(errs[1])

	ctx := context.Background()
	closed, err := s.store.FindRequest(ctx, request.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusClosed, closed.Status)

	responses, err := s.store.ListResponses(ctx, request.ID)
	s.Require().NoError(err)
	s.Len(responses, 2)
}

func (s *WorkflowPostgresSuite) TestAnyModeFirstResponseCloses() {
	c, version := s.newClaim(id.ModeAny, s.member1, s.member2)

	request, err := s.service.Open(s.ctxFor(s.owner), c.ID, id.RequestManual, version.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Submit(s.ctxFor(s.member1), request.ID, id.AnswerNo, "stale since March"))

	err = s.service.Submit(s.ctxFor(s.member2), request.ID, id.AnswerYes, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "closed request rejects late responses")
}

func (s *WorkflowPostgresSuite) TestRetireClosesOpenRequestAtomically() {
	c, version := s.newClaim(id.ModeAll, s.member1)

	request, err := s.service.Open(s.ctxFor(s.owner), c.ID, id.RequestManual, version.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.claims.Retire(context.Background(), c.ID, s.now.Add(time.Hour)))

	found, err := s.store.FindRequest(context.Background(), request.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusClosed, found.Status)

	_, err = s.store.OpenRequestForClaim(context.Background(), c.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
