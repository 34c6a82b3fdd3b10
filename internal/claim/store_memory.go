package claim

import (
	"context"
	"sort"
	"sync"
	"time"

	id "stilltrue/pkg/domain"
	"stilltrue/pkg/platform/sentinel"
)

// OpenRequestCloser lets the claim store close an open validation request
// when a claim is retired, without importing the validation package.
type OpenRequestCloser interface {
	CloseOpenRequestForClaim(ctx context.Context, claimID id.ClaimID, closedAt time.Time) error
}

// MemoryStore is the in-memory Store for development and unit tests.
// Mutations take the store lock, which is coarse but correct; the postgres
// store is the concurrency-serious implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	claims   map[id.ClaimID]*Claim
	versions map[id.ClaimID][]*TextVersion
	requests OpenRequestCloser
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims:   make(map[id.ClaimID]*Claim),
		versions: make(map[id.ClaimID][]*TextVersion),
	}
}

// AttachRequestCloser wires the validation store in so Retire can close open
// requests. Optional; without it retire only marks the claim.
func (s *MemoryStore) AttachRequestCloser(closer OpenRequestCloser) {
	s.requests = closer
}

func (s *MemoryStore) CreateWithText(_ context.Context, c *Claim, first *TextVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.claims[c.ID]; exists {
		return sentinel.ErrConflict
	}
	claimCopy := *c
	versionCopy := *first
	s.claims[c.ID] = &claimCopy
	s.versions[c.ID] = []*TextVersion{&versionCopy}
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, claimID id.ClaimID) (*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) AppendText(_ context.Context, version *TextVersion, visibility id.Visibility) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[version.ClaimID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.IsRetired() {
		return sentinel.ErrInvalidState
	}
	cp := *version
	s.versions[version.ClaimID] = append(s.versions[version.ClaimID], &cp)
	c.Visibility = visibility
	return nil
}

func (s *MemoryStore) UpdateSettings(_ context.Context, claimID id.ClaimID, cadence id.ReviewCadence, mode id.ValidationMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.IsRetired() {
		return sentinel.ErrInvalidState
	}
	c.ReviewCadence = cadence
	c.ValidationMode = mode
	return nil
}

func (s *MemoryStore) Retire(ctx context.Context, claimID id.ClaimID, retiredAt time.Time) error {
	s.mu.Lock()
	c, ok := s.claims[claimID]
	if !ok {
		s.mu.Unlock()
		return sentinel.ErrNotFound
	}
	if c.IsRetired() {
		s.mu.Unlock()
		return sentinel.ErrInvalidState
	}
	at := retiredAt
	c.RetiredAt = &at
	s.mu.Unlock()

	if s.requests != nil {
		return s.requests.CloseOpenRequestForClaim(ctx, claimID, retiredAt)
	}
	return nil
}

func (s *MemoryStore) ListByWorkspace(_ context.Context, wsID id.WorkspaceID) ([]*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Claim
	for _, c := range s.claims {
		if c.WorkspaceID == wsID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListVersions(_ context.Context, claimID id.ClaimID) ([]*TextVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.claims[claimID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	versions := s.versions[claimID]
	out := make([]*TextVersion, len(versions))
	for i, v := range versions {
		cp := *v
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) FindVersion(_ context.Context, versionID id.TextVersionID) (*TextVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, versions := range s.versions {
		for _, v := range versions {
			if v.ID == versionID {
				cp := *v
				return &cp, nil
			}
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) LatestVersion(ctx context.Context, claimID id.ClaimID) (*TextVersion, error) {
	versions, err := s.ListVersions(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return versions[0], nil
}
