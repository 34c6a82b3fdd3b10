package workspace

import (
	"context"
	"strings"
	"sync"

	id "stilltrue/pkg/domain"
	"stilltrue/pkg/platform/sentinel"
)

// MemoryStore is the in-memory Store used in development and unit tests.
type MemoryStore struct {
	mu         sync.RWMutex
	workspaces map[id.WorkspaceID]*Workspace
	profiles   map[id.ProfileID]*Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workspaces: make(map[id.WorkspaceID]*Workspace),
		profiles:   make(map[id.ProfileID]*Profile),
	}
}

func (s *MemoryStore) Bootstrap(_ context.Context, ws *Workspace, owner *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.profiles {
		if p.UserID == owner.UserID {
			if existing, ok := s.workspaces[p.WorkspaceID]; ok && existing.Name == ws.Name {
				return sentinel.ErrConflict
			}
		}
	}

	wsCopy := *ws
	ownerCopy := *owner
	s.workspaces[ws.ID] = &wsCopy
	s.profiles[owner.ID] = &ownerCopy
	return nil
}

func (s *MemoryStore) FindWorkspace(_ context.Context, wsID id.WorkspaceID) (*Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[wsID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *ws
	return &cp, nil
}

func (s *MemoryStore) ListProfilesByUser(_ context.Context, userID id.UserID) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Profile
	for _, p := range s.profiles {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindProfile(_ context.Context, profileID id.ProfileID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) FindMemberByEmail(_ context.Context, wsID id.WorkspaceID, email string) (*Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.WorkspaceID == wsID && p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) FindProfiles(_ context.Context, profileIDs []id.ProfileID) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Profile, 0, len(profileIDs))
	for _, pid := range profileIDs {
		if p, ok := s.profiles[pid]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// AddProfile registers an additional member profile. Membership management is
// out of the core's operation surface, but tests and seeding need it.
func (s *MemoryStore) AddProfile(p *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.ID] = &cp
}
