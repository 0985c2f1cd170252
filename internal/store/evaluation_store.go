package store

import (
	"sort"
	"sync"
	"time"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/models"
)

// EvaluationStore holds EvaluationRun rows indexed by id and by agent.
type EvaluationStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.EvaluationRun
	byAgent map[string]map[string]struct{}
}

// NewEvaluationStore builds an empty EvaluationStore.
func NewEvaluationStore() *EvaluationStore {
	return &EvaluationStore{
		byID:    make(map[string]*models.EvaluationRun),
		byAgent: make(map[string]map[string]struct{}),
	}
}

// Put inserts or replaces an evaluation run.
func (s *EvaluationStore) Put(e *models.EvaluationRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.byID[e.ID] = &cp

	agentSet, ok := s.byAgent[e.AgentID]
	if !ok {
		agentSet = make(map[string]struct{})
		s.byAgent[e.AgentID] = agentSet
	}
	agentSet[e.ID] = struct{}{}
}

// Get returns the evaluation run with the given id.
func (s *EvaluationStore) Get(id string) (*models.EvaluationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// ListByAgent returns every evaluation for agentID, most recently created
// first.
func (s *EvaluationStore) ListByAgent(agentID string) []*models.EvaluationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byAgent[agentID]
	out := make([]*models.EvaluationRun, 0, len(ids))
	for id := range ids {
		cp := *s.byID[id]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// CountActive returns the number of evaluation runs currently pending or
// running, for internal/metrics's queue-depth gauge.
func (s *EvaluationStore) CountActive() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.byID {
		if e.Status == models.EvaluationStatusPending || e.Status == models.EvaluationStatusRunning {
			count++
		}
	}
	return count
}

// terminalEvaluationStatuses are the statuses eligible for retention pruning;
// pending/running runs are never pruned regardless of age.
var terminalEvaluationStatuses = map[models.EvaluationStatus]bool{
	models.EvaluationStatusCompleted: true,
	models.EvaluationStatusFailed:    true,
	models.EvaluationStatusCancelled: true,
}

// PruneTerminalBefore deletes every evaluation run in a terminal status
// whose CreatedAt is before cutoff, returning the count deleted.
func (s *EvaluationStore) PruneTerminalBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, e := range s.byID {
		if !terminalEvaluationStatuses[e.Status] || !e.CreatedAt.Before(cutoff) {
			continue
		}
		delete(s.byID, id)
		if agentSet, ok := s.byAgent[e.AgentID]; ok {
			delete(agentSet, id)
		}
		pruned++
	}
	return pruned
}
