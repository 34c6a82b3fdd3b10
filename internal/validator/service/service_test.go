package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stilltrue/internal/claim"
	"stilltrue/internal/validator"
	"stilltrue/internal/workspace"
	workspaceservice "stilltrue/internal/workspace/service"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
	"stilltrue/pkg/requestcontext"
)

type RegistrySuite struct {
	suite.Suite

	now     time.Time
	ws      *workspace.Workspace
	owner   *workspace.Profile
	member  *workspace.Profile
	wsStore *workspace.MemoryStore
	claims  *claim.MemoryStore
	store   *validator.MemoryStore
	service *Service
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.wsStore = workspace.NewMemoryStore()
	s.claims = claim.NewMemoryStore()
	s.store = validator.NewMemoryStore()

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
	s.service = New(s.store, s.claims, s.wsStore, identity, WithLogger(logger))
}

func (s *RegistrySuite) ctxFor(p *workspace.Profile) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), p.UserID)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *RegistrySuite) mustClaim() *claim.Claim {
	c, err := claim.NewClaim(id.NewClaimID(), s.ws.ID, s.owner.ID,
		id.VisibilityWorkspace, id.CadenceMonthly, id.ModeAny, s.now)
	s.Require().NoError(err)
	first, err := claim.NewTextVersion(id.NewTextVersionID(), c.ID, "claim text", s.owner.ID, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.claims.CreateWithText(context.Background(), c, first))
	return c
}

func (s *RegistrySuite) TestAddByEmailRegistersMember() {
	c := s.mustClaim()

	s.Require().NoError(s.service.AddByEmail(s.ctxFor(s.owner), c.ID, "Member@Acme.Test", id.ValidatorHuman))

	validators, err := s.service.List(s.ctxFor(s.owner), c.ID)
	s.Require().NoError(err)
	s.Require().Len(validators, 1)
	s.Equal(s.member.ID, validators[0].ProfileID)
}

func (s *RegistrySuite) TestAddUnknownEmailIsNotFound() {
	c := s.mustClaim()

	err := s.service.AddByEmail(s.ctxFor(s.owner), c.ID, "nobody@acme.test", id.ValidatorHuman)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RegistrySuite) TestAddDuplicateRejected() {
	c := s.mustClaim()
	s.Require().NoError(s.service.AddByEmail(s.ctxFor(s.owner), c.ID, s.member.Email, id.ValidatorHuman))

	err := s.service.AddByEmail(s.ctxFor(s.owner), c.ID, s.member.Email, id.ValidatorHuman)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "already registered")
}

func (s *RegistrySuite) TestAddIsOwnerOnly() {
	c := s.mustClaim()

	err := s.service.AddByEmail(s.ctxFor(s.member), c.ID, s.member.Email, id.ValidatorHuman)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *RegistrySuite) TestAddRejectedOnRetiredClaim() {
	c := s.mustClaim()
	s.Require().NoError(s.claims.Retire(context.Background(), c.ID, s.now))

	err := s.service.AddByEmail(s.ctxFor(s.owner), c.ID, s.member.Email, id.ValidatorHuman)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *RegistrySuite) TestRemoveIsIdempotent() {
	c := s.mustClaim()
	s.Require().NoError(s.service.AddByEmail(s.ctxFor(s.owner), c.ID, s.member.Email, id.ValidatorHuman))

	s.Require().NoError(s.service.Remove(s.ctxFor(s.owner), c.ID, s.member.ID))
	s.Require().NoError(s.service.Remove(s.ctxFor(s.owner), c.ID, s.member.ID), "second removal succeeds silently")

	validators, err := s.service.List(s.ctxFor(s.owner), c.ID)
	s.Require().NoError(err)
	s.Empty(validators)
}

func (s *RegistrySuite) TestListIsOwnerOnly() {
	c := s.mustClaim()

	_, err := s.service.List(s.ctxFor(s.member), c.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
