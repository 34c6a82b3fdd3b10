//go:build integration

package validation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stilltrue/internal/validation"
	"stilltrue/internal/validator"
	id "stilltrue/pkg/domain"
	"stilltrue/pkg/platform/sentinel"
	"stilltrue/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite

	pg    *containers.PostgresContainer
	store *validation.PostgresStore
	now   time.Time

	claimID   id.ClaimID
	versionID id.TextVersionID
	owner     id.ProfileID
	responder id.ProfileID
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = validation.NewPostgresStore(s.pg.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.pg != nil {
		_ = s.pg.DB.Close()
		_ = s.pg.Container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.pg.Truncate(ctx))

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	wsID := id.NewWorkspaceID()
	s.owner = id.NewProfileID()
	s.responder = id.NewProfileID()
	s.claimID = id.NewClaimID()
	s.versionID = id.NewTextVersionID()

	db := s.pg.DB
	_, err := db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, created_at) VALUES ($1, 'acme', $2)`,
		wsID.String(), s.now)
	s.Require().NoError(err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO profiles (id, workspace_id, user_id, email, created_at)
		 VALUES ($1, $2, $3, 'owner@acme.test', $4), ($5, $2, $6, 'member@acme.test', $4)`,
		s.owner.String(), wsID.String(), id.NewUserID().String(), s.now,
		s.responder.String(), id.NewUserID().String())
	s.Require().NoError(err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO claims (id, workspace_id, owner_profile_id, visibility, review_cadence, validation_mode, created_at)
		 VALUES ($1, $2, $3, 'workspace', 'monthly', 'any', $4)`,
		s.claimID.String(), wsID.String(), s.owner.String(), s.now)
	s.Require().NoError(err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO claim_text_versions (id, claim_id, text, created_at, created_by_profile_id)
		 VALUES ($1, $2, 'the claim', $3, $4)`,
		s.versionID.String(), s.claimID.String(), s.now, s.owner.String())
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) openRequest() *validation.Request {
	r := validation.NewRequest(id.NewRequestID(), s.claimID, s.versionID, id.RequestManual, s.now)
	s.Require().NoError(s.store.CreateOpenRequest(context.Background(), r))
	return r
}

func (s *PostgresStoreSuite) TestUniqueIndexAdmitsOneOpenRequest() {
	ctx := context.Background()
	s.openRequest()

	second := validation.NewRequest(id.NewRequestID(), s.claimID, s.versionID, id.RequestManual, s.now)
	err := s.store.CreateOpenRequest(ctx, second)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestConcurrentOpensAdmitExactlyOne() {
	ctx := context.Background()

	const attempts = 8
	results := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := validation.NewRequest(id.NewRequestID(), s.claimID, s.versionID, id.RequestManual, s.now)
			results[i] = s.store.CreateOpenRequest(ctx, r)
		}()
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, sentinel.ErrConflict):
			conflicted++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(attempts-1, conflicted)
}

func (s *PostgresStoreSuite) TestClosedRequestDoesNotBlockReopen() {
	ctx := context.Background()
	first := s.openRequest()
	s.Require().NoError(s.store.CloseRequest(ctx, first.ID, s.now.Add(time.Hour)))

	second := validation.NewRequest(id.NewRequestID(), s.claimID, s.versionID, id.RequestScheduled, s.now.Add(2*time.Hour))
	s.Require().NoError(s.store.CreateOpenRequest(ctx, second))

	open, err := s.store.OpenRequestForClaim(ctx, s.claimID)
	s.Require().NoError(err)
	s.Equal(second.ID, open.ID)
}

func (s *PostgresStoreSuite) TestDuplicateResponseConflicts() {
	ctx := context.Background()
	r := s.openRequest()

	first := validation.NewResponse(r.ID, s.responder, id.AnswerYes, "looks right", s.now)
	s.Require().NoError(s.store.AddResponse(ctx, first))

	again := validation.NewResponse(r.ID, s.responder, id.AnswerNo, "", s.now.Add(time.Minute))
	s.Require().ErrorIs(s.store.AddResponse(ctx, again), sentinel.ErrConflict)

	responses, err := s.store.ListResponses(ctx, r.ID)
	s.Require().NoError(err)
	s.Require().Len(responses, 1)
	s.Equal(id.AnswerYes, responses[0].Answer)
	s.Require().NotNil(responses[0].Context)
	s.Equal("looks right", *responses[0].Context)
}

func (s *PostgresStoreSuite) TestEmptyContextStoredAsAbsent() {
	ctx := context.Background()
	r := s.openRequest()

	s.Require().NoError(s.store.AddResponse(ctx,
		validation.NewResponse(r.ID, s.responder, id.AnswerUnsure, "   ", s.now)))

	responses, err := s.store.ListResponses(ctx, r.ID)
	s.Require().NoError(err)
	s.Require().Len(responses, 1)
	s.Nil(responses[0].Context)
}

func (s *PostgresStoreSuite) TestIncrementAttemptDistinguishesClosedFromMissing() {
	ctx := context.Background()
	r := s.openRequest()

	count, err := s.store.IncrementAttempt(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(2, count)

	s.Require().NoError(s.store.CloseRequest(ctx, r.ID, s.now.Add(time.Hour)))

	_, err = s.store.IncrementAttempt(ctx, r.ID)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.IncrementAttempt(ctx, id.NewRequestID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCloseRequestIsTerminal() {
	ctx := context.Background()
	r := s.openRequest()

	s.Require().NoError(s.store.CloseRequest(ctx, r.ID, s.now.Add(time.Hour)))
	s.Require().ErrorIs(s.store.CloseRequest(ctx, r.ID, s.now.Add(2*time.Hour)), sentinel.ErrInvalidState)

	found, err := s.store.FindRequest(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusClosed, found.Status)
	s.Require().NotNil(found.ClosedAt)
	s.True(found.ClosedAt.Equal(s.now.Add(time.Hour)), "first close timestamp wins")
}

func (s *PostgresStoreSuite) TestLatestClosedByClaimOrdersByCloseTime() {
	ctx := context.Background()

	first := s.openRequest()
	s.Require().NoError(s.store.CloseRequest(ctx, first.ID, s.now.Add(time.Hour)))

	second := validation.NewRequest(id.NewRequestID(), s.claimID, s.versionID, id.RequestManual, s.now.Add(2*time.Hour))
	s.Require().NoError(s.store.CreateOpenRequest(ctx, second))
	s.Require().NoError(s.store.CloseRequest(ctx, second.ID, s.now.Add(3*time.Hour)))

	latest, err := s.store.LatestClosedByClaim(ctx, s.claimID)
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)
}

func (s *PostgresStoreSuite) TestListForValidatorProfilesJoinsRegistry() {
	ctx := context.Background()
	r := s.openRequest()

	s.Require().NoError(s.store.RegisterValidator(ctx, &validator.Validator{
		ClaimID:   s.claimID,
		ProfileID: s.responder,
		Kind:      id.ValidatorHuman,
		AddedAt:   s.now,
	}))

	inbox, err := s.store.ListForValidatorProfiles(ctx, []id.ProfileID{s.responder})
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)
	s.Equal(r.ID, inbox[0].ID)

	none, err := s.store.ListForValidatorProfiles(ctx, []id.ProfileID{s.owner})
	s.Require().NoError(err)
	s.Empty(none)
}
