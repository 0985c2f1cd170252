package store

import (
	"sort"
	"sync"
	"time"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/models"
)

// CertificateStore holds Certificate rows and the certificate revocation
// list, enforcing "at most one active certificate per agent" (spec §4.1)
// as a store-level invariant rather than leaving it to callers.
type CertificateStore struct {
	mu           sync.RWMutex
	byID         map[string]*models.Certificate
	byAgent      map[string]map[string]struct{}
	activeByAgent map[string]string // agent id -> certificate id, only when active
	revocations  []models.RevocationEntry
	crlDirty     bool
}

// NewCertificateStore builds an empty CertificateStore.
func NewCertificateStore() *CertificateStore {
	return &CertificateStore{
		byID:          make(map[string]*models.Certificate),
		byAgent:       make(map[string]map[string]struct{}),
		activeByAgent: make(map[string]string),
	}
}

// ActiveForAgent returns the certificate currently marked active for
// agentID, if any.
func (s *CertificateStore) ActiveForAgent(agentID string) (*models.Certificate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.activeByAgent[agentID]
	if !ok {
		return nil, false
	}
	cp := *s.byID[id]
	return &cp, true
}

// Put inserts or replaces a certificate and updates the active-certificate
// index. It does NOT itself revoke a previously active certificate for the
// same agent: per spec §4.1 that supersession must go through Revoke (with
// reason "superseded") so it is recorded on the CRL. internal/ca.Issue
// calls Revoke on the prior active certificate before calling Put for the
// new one; Put here only refuses to let two certificates be tracked active
// for the same agent at once.
func (s *CertificateStore) Put(c *models.Certificate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Status == models.CertificateStatusActive {
		s.activeByAgent[c.AgentID] = c.ID
	} else if s.activeByAgent[c.AgentID] == c.ID {
		delete(s.activeByAgent, c.AgentID)
	}

	cp := *c
	s.byID[c.ID] = &cp

	agentSet, ok := s.byAgent[c.AgentID]
	if !ok {
		agentSet = make(map[string]struct{})
		s.byAgent[c.AgentID] = agentSet
	}
	agentSet[c.ID] = struct{}{}
}

// Get returns the certificate with the given id.
func (s *CertificateStore) Get(id string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ListByAgent returns every certificate ever issued to agentID, newest
// first.
func (s *CertificateStore) ListByAgent(agentID string) []*models.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byAgent[agentID]
	out := make([]*models.Certificate, 0, len(ids))
	for id := range ids {
		cp := *s.byID[id]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out
}

// ListAll returns every certificate across all agents, newest-issued first.
func (s *CertificateStore) ListAll() []*models.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Certificate, 0, len(s.byID))
	for _, c := range s.byID {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out
}

// Revoke marks a certificate revoked and appends a revocation entry,
// invalidating the memoized CRL snapshot (spec §9).
func (s *CertificateStore) Revoke(entry models.RevocationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[entry.CertificateID]
	if !ok {
		return apperr.ErrNotFound
	}
	c.Status = models.CertificateStatusRevoked
	now := entry.RevokedAt
	c.RevokedAt = &now
	c.RevocationReason = entry.Reason

	if s.activeByAgent[c.AgentID] == c.ID {
		delete(s.activeByAgent, c.AgentID)
	}

	s.revocations = append(s.revocations, entry)
	s.crlDirty = true
	return nil
}

// ExpireOverdue transitions every active certificate whose ExpiresAt has
// passed now to expired, removing it from the active-certificate index, and
// returns the ids transitioned. Verify (spec §9) deliberately never mutates
// stored status, so this is the only path that actually flips an
// active certificate to expired; it exists for internal/worker's periodic
// expiry sweep.
func (s *CertificateStore) ExpireOverdue(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for agentID, id := range s.activeByAgent {
		c := s.byID[id]
		if c == nil || !now.After(c.ExpiresAt) {
			continue
		}
		c.Status = models.CertificateStatusExpired
		delete(s.activeByAgent, agentID)
		expired = append(expired, id)
	}
	sort.Strings(expired)
	return expired
}

// CRL returns the full revocation list and whether it changed since the
// last call (the caller/internal/ca memoizes the serialised snapshot keyed
// on this flag).
func (s *CertificateStore) CRL() ([]models.RevocationEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirty := s.crlDirty
	s.crlDirty = false

	out := make([]models.RevocationEntry, len(s.revocations))
	copy(out, s.revocations)
	return out, dirty
}
