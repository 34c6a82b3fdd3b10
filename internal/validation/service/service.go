// Package service implements the validation workflow engine: opening
// requests, reminding pending validators, and recording responses with the
// mode-aware close decision. All state transitions run inside a claim-scoped
// transaction; the store's uniqueness constraints back the invariants the
// service checks.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stilltrue/internal/audit"
	"stilltrue/internal/claim"
	"stilltrue/internal/notify"
	"stilltrue/internal/platform/metrics"
	"stilltrue/internal/validation"
	"stilltrue/internal/validator"
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

// ClaimReader is the slice of the claim store the workflow needs: the claim
// for ownership/mode/retirement and the version being pinned.
type ClaimReader interface {
	FindByID(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error)
	FindVersion(ctx context.Context, versionID id.TextVersionID) (*claim.TextVersion, error)
}

// ProfileDirectory resolves profile ids to display data (emails for
// notification recipients). Missing ids are skipped by contract.
type ProfileDirectory interface {
	FindProfiles(ctx context.Context, profileIDs []id.ProfileID) ([]*workspace.Profile, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the request lifecycle. Reads go straight to the
// store; every mutation runs through the Tx runner so concurrent callers on
// the same claim serialize on one consistent snapshot.
type Service struct {
	store      validation.Store
	tx         Tx
	claims     ClaimReader
	identity   IdentityResolver
	directory  ProfileDirectory
	dispatcher notify.Dispatcher
	logger     *slog.Logger
	audit      AuditPublisher
	metrics    *metrics.Metrics
	tracer     trace.Tracer
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

func WithDispatcher(d notify.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

func New(store validation.Store, tx Tx, claims ClaimReader, identity IdentityResolver,
	directory ProfileDirectory, opts ...Option) *Service {
	s := &Service{
		store:     store,
		tx:        tx,
		claims:    claims,
		identity:  identity,
		directory: directory,
		logger:    slog.Default(),
		tracer:    otel.Tracer("stilltrue/validation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a validation request for the claim, pinned to the given text
// version. Owner-only. When the claim has no registered validators the owner
// is registered as the sole recipient before the request is created, so
// every request is answerable by at least one party. Returns the
// distinguishable already-open conflict when the claim has an open request.
func (s *Service) Open(ctx context.Context, claimID id.ClaimID, kind id.RequestKind,
	versionID id.TextVersionID) (*validation.Request, error) {
	ctx, span := s.tracer.Start(ctx, "validation.Open",
		trace.WithAttributes(
			attribute.String("claim_id", claimID.String()),
			attribute.String("kind", kind.String())))
	defer span.End()

	c, owner, err := s.ownedClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.IsRetired() {
		return nil, dErrors.New(dErrors.CodeValidation, "claim is retired")
	}

	version, err := s.claims.FindVersion(ctx, versionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim text version not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim text version")
	}
	if version.ClaimID != claimID {
		return nil, dErrors.New(dErrors.CodeValidation, "text version does not belong to this claim")
	}

	now := requestcontext.Now(ctx)
	request := validation.NewRequest(id.NewRequestID(), claimID, versionID, kind, now)

	var recipients []id.ProfileID
	err = s.tx.RunInClaimTx(ctx, claimID, func(store validation.Store) error {
		registered, err := store.ListValidatorProfileIDs(ctx, claimID)
		if err != nil {
			return err
		}
		if len(registered) == 0 {
			fallback := &validator.Validator{
				ClaimID:   claimID,
				ProfileID: c.OwnerProfileID,
				Kind:      id.ValidatorHuman,
				AddedAt:   now,
			}
			if err := store.RegisterValidator(ctx, fallback); err != nil {
				return err
			}
			registered = []id.ProfileID{c.OwnerProfileID}
		}
		recipients = registered
		return store.CreateOpenRequest(ctx, request)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			if s.metrics != nil {
				s.metrics.OpenConflicts.Inc()
			}
			return nil, validation.ErrAlreadyOpen()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open validation request")
	}

	if s.metrics != nil {
		s.metrics.RequestsOpened.WithLabelValues(kind.String()).Inc()
	}
	s.emitAudit(ctx, audit.NewEvent(audit.EventRequestOpened, owner,
		"request_id", request.ID.String(),
		"claim_id", claimID.String(),
		"kind", kind.String()))
	s.dispatch(ctx, notify.KindRequestOpened, request, recipients)
	return request, nil
}

// Remind returns the validators of the claim's open request who have not
// responded yet, bumping the request's attempt count. An empty result means
// everyone has answered; that is a valid outcome, not an error. Owner-only.
func (s *Service) Remind(ctx context.Context, claimID id.ClaimID) ([]validation.PendingRecipient, error) {
	ctx, span := s.tracer.Start(ctx, "validation.Remind",
		trace.WithAttributes(attribute.String("claim_id", claimID.String())))
	defer span.End()

	_, owner, err := s.ownedClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	var (
		request *validation.Request
		pending []id.ProfileID
	)
	err = s.tx.RunInClaimTx(ctx, claimID, func(store validation.Store) error {
		request, err = store.OpenRequestForClaim(ctx, claimID)
		if err != nil {
			return err
		}
		registered, err := store.ListValidatorProfileIDs(ctx, claimID)
		if err != nil {
			return err
		}
		responses, err := store.ListResponses(ctx, request.ID)
		if err != nil {
			return err
		}
		responded := make(map[id.ProfileID]bool, len(responses))
		for _, r := range responses {
			responded[r.ResponderProfileID] = true
		}
		for _, pid := range registered {
			if !responded[pid] {
				pending = append(pending, pid)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		count, err := store.IncrementAttempt(ctx, request.ID)
		if err != nil {
			return err
		}
		request.AttemptCount = count
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no open validation request for this claim")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remind validators")
	}
	if len(pending) == 0 {
		return []validation.PendingRecipient{}, nil
	}

	profiles, err := s.directory.FindProfiles(ctx, pending)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve pending validators")
	}
	recipients := make([]validation.PendingRecipient, 0, len(profiles))
	for _, p := range profiles {
		recipients = append(recipients, validation.PendingRecipient{
			RequestID: request.ID,
			ProfileID: p.ID,
			Email:     p.Email,
		})
	}

	if s.metrics != nil {
		s.metrics.RemindersQueued.Add(float64(len(recipients)))
	}
	s.emitAudit(ctx, audit.NewEvent(audit.EventRequestReminded, owner,
		"request_id", request.ID.String(),
		"claim_id", claimID.String()))
	s.dispatch(ctx, notify.KindReminder, request, pending)
	return recipients, nil
}

// Submit records the caller's answer on the request and evaluates the close
// condition in the same transaction: under `any` mode the first response
// closes the request; under `all` mode it closes once every currently
// registered validator has answered.
func (s *Service) Submit(ctx context.Context, requestID id.RequestID, answer id.Answer,
	answerContext string) error {
	ctx, span := s.tracer.Start(ctx, "validation.Submit",
		trace.WithAttributes(
			attribute.String("request_id", requestID.String()),
			attribute.String("answer", answer.String())))
	defer span.End()

	profiles, err := s.identity.Profiles(ctx)
	if err != nil {
		return err
	}

	// Resolve the claim outside the transaction to know which shard to
	// lock; the open-state check is repeated under the lock.
	request, err := s.store.FindRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "validation request not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load validation request")
	}
	c, err := s.claims.FindByID(ctx, request.ClaimID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}

	var responder id.ProfileID
	for _, p := range profiles {
		if p.WorkspaceID == c.WorkspaceID {
			responder = p.ID
			break
		}
	}
	if responder.IsZero() {
		return dErrors.New(dErrors.CodeForbidden, "caller is not a member of this workspace")
	}

	var closed bool
	err = s.tx.RunInClaimTx(ctx, request.ClaimID, func(store validation.Store) error {
		locked, err := store.FindRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !locked.IsOpen() {
			return dErrors.New(dErrors.CodeValidation, "validation request is not open")
		}

		registered, err := store.ListValidatorProfileIDs(ctx, locked.ClaimID)
		if err != nil {
			return err
		}
		entitled := false
		for _, pid := range registered {
			if pid == responder {
				entitled = true
				break
			}
		}
		if !entitled {
			return dErrors.New(dErrors.CodeForbidden, "caller is not an entitled validator for this claim")
		}

		now := requestcontext.Now(ctx)
		resp := validation.NewResponse(requestID, responder, answer, answerContext, now)
		if err := store.AddResponse(ctx, resp); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeValidation, "response already recorded for this request")
			}
			return err
		}

		if c.ValidationMode == id.ModeAny {
			closed = true
		} else {
			responses, err := store.ListResponses(ctx, requestID)
			if err != nil {
				return err
			}
			responded := make(map[id.ProfileID]bool, len(responses))
			for _, r := range responses {
				responded[r.ResponderProfileID] = true
			}
			closed = true
			for _, pid := range registered {
				if !responded[pid] {
					closed = false
					break
				}
			}
		}
		if closed {
			return store.CloseRequest(ctx, requestID, now)
		}
		return nil
	})
	if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to submit validation response")
	}

	if s.metrics != nil {
		s.metrics.ResponsesTotal.WithLabelValues(answer.String()).Inc()
		if closed {
			s.metrics.RequestsClosed.Inc()
		}
	}
	s.emitAudit(ctx, audit.NewEvent(audit.EventResponseRecorded, responder,
		"request_id", requestID.String(),
		"claim_id", request.ClaimID.String(),
		"answer", answer.String()))
	if closed {
		s.emitAudit(ctx, audit.NewEvent(audit.EventRequestClosed, responder,
			"request_id", requestID.String(),
			"claim_id", request.ClaimID.String()))
	}
	return nil
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
	profileIDs := make([]id.ProfileID, len(profiles))
	for i, p := range profiles {
		profileIDs[i] = p.ID
	}
	if !c.IsOwnedByAny(profileIDs) {
		return nil, id.ProfileID{}, dErrors.New(dErrors.CodeForbidden, "only the claim owner may manage validation requests")
	}
	return c, c.OwnerProfileID, nil
}

func (s *Service) dispatch(ctx context.Context, kind notify.Kind, request *validation.Request,
	recipientIDs []id.ProfileID) {
	if s.dispatcher == nil || len(recipientIDs) == 0 {
		return
	}
	profiles, err := s.directory.FindProfiles(ctx, recipientIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve notification recipients",
			"request_id", request.ID.String(), "error", err)
		return
	}
	now := requestcontext.Now(ctx)
	deliveries := make([]notify.Delivery, 0, len(profiles))
	for _, p := range profiles {
		deliveries = append(deliveries, notify.Delivery{
			Kind:               kind,
			RequestID:          request.ID,
			ClaimID:            request.ClaimID,
			RecipientProfileID: p.ID,
			RecipientEmail:     p.Email,
			QueuedAt:           now,
		})
	}
	if err := s.dispatcher.Dispatch(ctx, deliveries); err != nil {
		s.logger.WarnContext(ctx, "failed to dispatch notifications",
			"request_id", request.ID.String(), "kind", string(kind), "error", err)
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		if s.metrics != nil {
			s.metrics.AuditPublishFail.Inc()
		}
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"kind", string(event.Kind), "error", err)
	}
}
