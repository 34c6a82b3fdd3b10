package validator

import (
	"context"
	"sort"
	"sync"

	id "stilltrue/pkg/domain"
	"stilltrue/pkg/platform/sentinel"
)

// MemoryStore is the in-memory registry for development and unit tests.
type MemoryStore struct {
	mu         sync.RWMutex
	validators map[id.ClaimID]map[id.ProfileID]*Validator
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{validators: make(map[id.ClaimID]map[id.ProfileID]*Validator)}
}

func (s *MemoryStore) Add(_ context.Context, v *Validator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byProfile, ok := s.validators[v.ClaimID]
	if !ok {
		byProfile = make(map[id.ProfileID]*Validator)
		s.validators[v.ClaimID] = byProfile
	}
	if _, exists := byProfile[v.ProfileID]; exists {
		return sentinel.ErrConflict
	}
	cp := *v
	byProfile[v.ProfileID] = &cp
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, claimID id.ClaimID, profileID id.ProfileID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byProfile, ok := s.validators[claimID]
	if !ok {
		return false, nil
	}
	if _, exists := byProfile[profileID]; !exists {
		return false, nil
	}
	delete(byProfile, profileID)
	return true, nil
}

func (s *MemoryStore) ListByClaim(_ context.Context, claimID id.ClaimID) ([]*Validator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byProfile := s.validators[claimID]
	out := make([]*Validator, 0, len(byProfile))
	for _, v := range byProfile {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}
