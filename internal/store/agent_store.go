// Package store implements the repository layer as in-memory, mutex-guarded
// indexes in the manner of the teacher's pkg/runbook.Cache, rather than
// against a generated ORM client. Storage technology is explicitly out of
// scope for this module (only a transactional, key-indexed store with range
// scans is required); an in-memory store satisfies that contract while
// keeping the module buildable without codegen or a live database.
package store

import (
	"sort"
	"sync"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/models"
)

// AgentStore holds Agent rows indexed by id and by owning organisation.
type AgentStore struct {
	mu    sync.RWMutex
	byID  map[string]*models.Agent
	byOrg map[string]map[string]struct{}
}

// NewAgentStore builds an empty AgentStore.
func NewAgentStore() *AgentStore {
	return &AgentStore{
		byID:  make(map[string]*models.Agent),
		byOrg: make(map[string]map[string]struct{}),
	}
}

// Put inserts or replaces an agent.
func (s *AgentStore) Put(a *models.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.byID[a.ID] = &cp

	orgSet, ok := s.byOrg[a.OwnerOrganizationID]
	if !ok {
		orgSet = make(map[string]struct{})
		s.byOrg[a.OwnerOrganizationID] = orgSet
	}
	orgSet[a.ID] = struct{}{}
}

// Get returns the agent with the given id.
func (s *AgentStore) Get(id string) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// ListByOrganization returns every agent owned by orgID, sorted by id for
// deterministic pagination.
func (s *AgentStore) ListByOrganization(orgID string) []*models.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOrg[orgID]
	out := make([]*models.Agent, 0, len(ids))
	for id := range ids {
		cp := *s.byID[id]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Exists reports whether an agent with the given id is known.
func (s *AgentStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// ListAll returns every agent across all organisations, sorted by id for
// deterministic pagination. For a registry-wide admin listing; org-scoped
// callers should use ListByOrganization instead.
func (s *AgentStore) ListAll() []*models.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Agent, 0, len(s.byID))
	for _, a := range s.byID {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete removes an agent by id. Deleting an unknown id is a no-op.
func (s *AgentStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	if orgSet, ok := s.byOrg[a.OwnerOrganizationID]; ok {
		delete(orgSet, id)
	}
}
