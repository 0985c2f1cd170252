package store

import (
	"sync"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/models"
)

// KeypairStore holds AgentKeypair metadata indexed by agent id. The private
// key material itself lives sealed on disk under internal/keymanager; this
// store only tracks where it is and what the public half looks like.
type KeypairStore struct {
	mu   sync.RWMutex
	byID map[string]*models.AgentKeypair
}

// NewKeypairStore builds an empty KeypairStore.
func NewKeypairStore() *KeypairStore {
	return &KeypairStore{byID: make(map[string]*models.AgentKeypair)}
}

// Put inserts or replaces a keypair record.
func (s *KeypairStore) Put(k *models.AgentKeypair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *k
	s.byID[k.AgentID] = &cp
}

// Get returns the keypair record for agentID.
func (s *KeypairStore) Get(agentID string) (*models.AgentKeypair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.byID[agentID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *k
	return &cp, nil
}
