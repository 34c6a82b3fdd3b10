package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stilltrue/internal/claim"
	"stilltrue/internal/validation"
	validationservice "stilltrue/internal/validation/service"
	"stilltrue/internal/validator"
	"stilltrue/internal/workspace"
	workspaceservice "stilltrue/internal/workspace/service"
	id "stilltrue/pkg/domain"
	"stilltrue/pkg/testutil"
)

type handlerFixture struct {
	router  http.Handler
	now     time.Time
	owner   *workspace.Profile
	member  *workspace.Profile
	claim   *claim.Claim
	version *claim.TextVersion
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	wsStore := workspace.NewMemoryStore()
	claimStore := claim.NewMemoryStore()
	registry := validator.NewMemoryStore()
	store := validation.NewMemoryStore(registry)
	claimStore.AttachRequestCloser(store)

	ws, err := workspace.NewWorkspace(id.NewWorkspaceID(), "acme", now)
	require.NoError(t, err)
	owner, err := workspace.NewProfile(id.NewProfileID(), ws.ID, id.NewUserID(), "owner@acme.test", now)
	require.NoError(t, err)
	require.NoError(t, wsStore.Bootstrap(context.Background(), ws, owner))

	member, err := workspace.NewProfile(id.NewProfileID(), ws.ID, id.NewUserID(), "member@acme.test", now)
	require.NoError(t, err)
	wsStore.AddProfile(member)

	c, err := claim.NewClaim(id.NewClaimID(), ws.ID, owner.ID,
		id.VisibilityWorkspace, id.CadenceMonthly, id.ModeAny, now)
	require.NoError(t, err)
	version, err := claim.NewTextVersion(id.NewTextVersionID(), c.ID, "the claim", owner.ID, now)
	require.NoError(t, err)
	require.NoError(t, claimStore.CreateWithText(context.Background(), c, version))
	require.NoError(t, registry.Add(context.Background(), &validator.Validator{
		ClaimID: c.ID, ProfileID: member.ID, Kind: id.ValidatorHuman, AddedAt: now,
	}))

	identity := workspaceservice.New(wsStore, workspaceservice.WithLogger(logger))
	svc := validationservice.New(store, validationservice.NewShardedMemoryTx(store),
		claimStore, identity, wsStore, validationservice.WithLogger(logger))

	r := chi.NewRouter()
	New(svc, logger).Register(r)

	return &handlerFixture{
		router:  r,
		now:     now,
		owner:   owner,
		member:  member,
		claim:   c,
		version: version,
	}
}

func (f *handlerFixture) as(t *testing.T, p *workspace.Profile, req *http.Request) *http.Request {
	t.Helper()
	req = testutil.WithUserID(req, p.UserID.String())
	return testutil.WithRequestTime(req, f.now)
}

func TestHandleOpenCreatesRequest(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewJSONRequest(t, http.MethodPost,
		"/claims/"+f.claim.ID.String()+"/validation-requests",
		map[string]string{"claim_text_version_id": f.version.ID.String()})
	rec := testutil.DoRequest(f.router, f.as(t, f.owner, req))

	testutil.AssertStatus(t, rec, http.StatusCreated)
	resp := testutil.UnmarshalResponse[RequestResponse](t, rec)
	assert.Equal(t, f.claim.ID.String(), resp.ClaimID)
	assert.Equal(t, "manual", resp.Kind, "kind defaults to manual")
	assert.Equal(t, "open", resp.Status)
	assert.Equal(t, 1, resp.AttemptCount)
}

func TestHandleOpenConflictEnvelope(t *testing.T) {
	f := newFixture(t)

	body := map[string]string{"claim_text_version_id": f.version.ID.String()}
	first := testutil.NewJSONRequest(t, http.MethodPost,
		"/claims/"+f.claim.ID.String()+"/validation-requests", body)
	testutil.AssertStatus(t, testutil.DoRequest(f.router, f.as(t, f.owner, first)), http.StatusCreated)

	second := testutil.NewJSONRequest(t, http.MethodPost,
		"/claims/"+f.claim.ID.String()+"/validation-requests", body)
	rec := testutil.DoRequest(f.router, f.as(t, f.owner, second))

	testutil.AssertStatusAndError(t, rec, http.StatusConflict, "conflict")
	errResp := testutil.UnmarshalErrorResponse(t, rec)
	assert.Equal(t, validation.AlreadyOpenMessage, errResp["error_description"])
}

func TestHandleOpenInvalidClaimID(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewJSONRequest(t, http.MethodPost,
		"/claims/not-a-uuid/validation-requests",
		map[string]string{"claim_text_version_id": f.version.ID.String()})
	rec := testutil.DoRequest(f.router, f.as(t, f.owner, req))

	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "invalid_input")
}

func TestHandleOpenNonOwnerForbidden(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewJSONRequest(t, http.MethodPost,
		"/claims/"+f.claim.ID.String()+"/validation-requests",
		map[string]string{"claim_text_version_id": f.version.ID.String()})
	rec := testutil.DoRequest(f.router, f.as(t, f.member, req))

	testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "forbidden")
}

func TestHandleRemindReturnsPendingList(t *testing.T) {
	f := newFixture(t)

	open := testutil.NewJSONRequest(t, http.MethodPost,
		"/claims/"+f.claim.ID.String()+"/validation-requests",
		map[string]string{"claim_text_version_id": f.version.ID.String()})
	testutil.AssertStatus(t, testutil.DoRequest(f.router, f.as(t, f.owner, open)), http.StatusCreated)

	remind := testutil.NewRequest(t, http.MethodPost,
		"/claims/"+f.claim.ID.String()+"/validation-requests/remind")
	rec := testutil.DoRequest(f.router, f.as(t, f.owner, remind))

	testutil.AssertStatus(t, rec, http.StatusOK)
	pending := testutil.UnmarshalResponse[[]validation.PendingRecipient](t, rec)
	require.Len(t, *pending, 1)
	assert.Equal(t, f.member.ID, (*pending)[0].ProfileID)
}

func TestHandleRemindWithoutOpenRequestIsNotFound(t *testing.T) {
	f := newFixture(t)

	remind := testutil.NewRequest(t, http.MethodPost,
		"/claims/"+f.claim.ID.String()+"/validation-requests/remind")
	rec := testutil.DoRequest(f.router, f.as(t, f.owner, remind))

	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
}

func TestHandleSubmitRecordsResponse(t *testing.T) {
	f := newFixture(t)

	open := testutil.NewJSONRequest(t, http.MethodPost,
		"/claims/"+f.claim.ID.String()+"/validation-requests",
		map[string]string{"claim_text_version_id": f.version.ID.String()})
	openRec := testutil.DoRequest(f.router, f.as(t, f.owner, open))
	testutil.AssertStatus(t, openRec, http.StatusCreated)
	opened := testutil.UnmarshalResponse[RequestResponse](t, openRec)

	submit := testutil.NewJSONRequest(t, http.MethodPost,
		"/validation-requests/"+opened.ID+"/responses",
		map[string]string{"answer": "yes", "context": "checked last week"})
	rec := testutil.DoRequest(f.router, f.as(t, f.member, submit))

	testutil.AssertStatus(t, rec, http.StatusNoContent)
}

func TestHandleSubmitRejectsUnknownAnswer(t *testing.T) {
	f := newFixture(t)

	submit := testutil.NewJSONRequest(t, http.MethodPost,
		"/validation-requests/"+id.NewRequestID().String()+"/responses",
		map[string]string{"answer": "maybe"})
	rec := testutil.DoRequest(f.router, f.as(t, f.member, submit))

	testutil.AssertStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestHandleSubmitInvalidRequestID(t *testing.T) {
	f := newFixture(t)

	submit := testutil.NewJSONRequest(t, http.MethodPost,
		"/validation-requests/nope/responses",
		map[string]string{"answer": "yes"})
	rec := testutil.DoRequest(f.router, f.as(t, f.member, submit))

	testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "invalid_input")
}
