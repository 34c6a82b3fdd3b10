package validation

import (
	"context"
	"sort"
	"sync"
	"time"

	id "stilltrue/pkg/domain"
	"stilltrue/internal/validator"
	"stilltrue/pkg/platform/sentinel"
)

type responseKey struct {
	requestID id.RequestID
	responder id.ProfileID
}

// MemoryStore is the in-memory workflow store. The registry is shared with
// the validator module's store so owner-fallback registration and live
// `all`-mode snapshots observe the same rows the registry service manages.
//
// Individual methods are lock-consistent; multi-step workflow atomicity
// comes from the claim-sharded transaction runner in the service package.
type MemoryStore struct {
	mu        sync.RWMutex
	requests  map[id.RequestID]*Request
	responses map[responseKey]*Response
	registry  validator.Store
}

func NewMemoryStore(registry validator.Store) *MemoryStore {
	return &MemoryStore{
		requests:  make(map[id.RequestID]*Request),
		responses: make(map[responseKey]*Response),
		registry:  registry,
	}
}

func (s *MemoryStore) CreateOpenRequest(_ context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.ClaimID == r.ClaimID && existing.IsOpen() {
			return sentinel.ErrConflict
		}
	}
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

func (s *MemoryStore) FindRequest(_ context.Context, requestID id.RequestID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// FindRequestForUpdate matches FindRequest; exclusion is provided by the
// claim-sharded transaction runner, not by this store.
func (s *MemoryStore) FindRequestForUpdate(ctx context.Context, requestID id.RequestID) (*Request, error) {
	return s.FindRequest(ctx, requestID)
}

func (s *MemoryStore) OpenRequestForClaim(_ context.Context, claimID id.ClaimID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.ClaimID == claimID && r.IsOpen() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) IncrementAttempt(_ context.Context, requestID id.RequestID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	if !r.IsOpen() {
		return 0, sentinel.ErrInvalidState
	}
	r.AttemptCount++
	return r.AttemptCount, nil
}

func (s *MemoryStore) AddResponse(_ context.Context, resp *Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := responseKey{requestID: resp.RequestID, responder: resp.ResponderProfileID}
	if _, exists := s.responses[key]; exists {
		return sentinel.ErrConflict
	}
	cp := *resp
	s.responses[key] = &cp
	return nil
}

func (s *MemoryStore) ListResponses(_ context.Context, requestID id.RequestID) ([]*Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Response
	for key, resp := range s.responses {
		if key.requestID == requestID {
			cp := *resp
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CloseRequest(_ context.Context, requestID id.RequestID, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !r.IsOpen() {
		return sentinel.ErrInvalidState
	}
	at := closedAt
	r.Status = id.StatusClosed
	r.ClosedAt = &at
	return nil
}

func (s *MemoryStore) CloseOpenRequestForClaim(_ context.Context, claimID id.ClaimID, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ClaimID == claimID && r.IsOpen() {
			at := closedAt
			r.Status = id.StatusClosed
			r.ClosedAt = &at
		}
	}
	return nil
}

func (s *MemoryStore) RegisterValidator(ctx context.Context, v *validator.Validator) error {
	return s.registry.Add(ctx, v)
}

func (s *MemoryStore) ListValidatorProfileIDs(ctx context.Context, claimID id.ClaimID) ([]id.ProfileID, error) {
	validators, err := s.registry.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	out := make([]id.ProfileID, len(validators))
	for i, v := range validators {
		out[i] = v.ProfileID
	}
	return out, nil
}

func (s *MemoryStore) ListByClaim(_ context.Context, claimID id.ClaimID) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, r := range s.requests {
		if r.ClaimID == claimID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) LatestClosedByClaim(_ context.Context, claimID id.ClaimID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Request
	for _, r := range s.requests {
		if r.ClaimID != claimID || r.IsOpen() || r.ClosedAt == nil {
			continue
		}
		if latest == nil || r.ClosedAt.After(*latest.ClosedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) ListForValidatorProfiles(ctx context.Context, profileIDs []id.ProfileID) ([]*Request, error) {
	recipient := make(map[id.ProfileID]bool, len(profileIDs))
	for _, pid := range profileIDs {
		recipient[pid] = true
	}

	s.mu.RLock()
	claims := make(map[id.ClaimID]bool)
	for _, r := range s.requests {
		claims[r.ClaimID] = true
	}
	s.mu.RUnlock()

	addressed := make(map[id.ClaimID]bool)
	for claimID := range claims {
		ids, err := s.ListValidatorProfileIDs(ctx, claimID)
		if err != nil {
			return nil, err
		}
		for _, pid := range ids {
			if recipient[pid] {
				addressed[claimID] = true
				break
			}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, r := range s.requests {
		if addressed[r.ClaimID] {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
