package store

import (
	"sort"
	"sync"
	"time"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/models"
)

// TraceStore holds Trace and Span rows. Spans are indexed by trace id so a
// full trace (with its span tree) can be range-scanned in one call.
type TraceStore struct {
	mu           sync.RWMutex
	traces       map[string]*models.Trace
	byAgent      map[string]map[string]struct{}
	spans        map[string]*models.Span
	spansByTrace map[string][]string // trace id -> span ids, insertion order
}

// NewTraceStore builds an empty TraceStore.
func NewTraceStore() *TraceStore {
	return &TraceStore{
		traces:       make(map[string]*models.Trace),
		byAgent:      make(map[string]map[string]struct{}),
		spans:        make(map[string]*models.Span),
		spansByTrace: make(map[string][]string),
	}
}

// PutTrace inserts or replaces a trace.
func (s *TraceStore) PutTrace(t *models.Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.traces[t.ID] = &cp

	agentSet, ok := s.byAgent[t.AgentID]
	if !ok {
		agentSet = make(map[string]struct{})
		s.byAgent[t.AgentID] = agentSet
	}
	agentSet[t.ID] = struct{}{}
}

// GetTrace returns the trace with the given id.
func (s *TraceStore) GetTrace(id string) (*models.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.traces[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// ListTracesByAgent returns every trace belonging to agentID, most recently
// started first.
func (s *TraceStore) ListTracesByAgent(agentID string) []*models.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byAgent[agentID]
	out := make([]*models.Trace, 0, len(ids))
	for id := range ids {
		cp := *s.traces[id]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// AppendSpan adds a span under its trace, preserving submission order.
func (s *TraceStore) AppendSpan(sp *models.Span) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sp
	s.spans[sp.ID] = &cp
	s.spansByTrace[sp.TraceID] = append(s.spansByTrace[sp.TraceID], sp.ID)
}

// GetSpan returns the span with the given id.
func (s *TraceStore) GetSpan(id string) (*models.Span, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.spans[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *sp
	return &cp, nil
}

// ListSpans returns every span under traceID in submission order.
func (s *TraceStore) ListSpans(traceID string) []*models.Span {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.spansByTrace[traceID]
	out := make([]*models.Span, 0, len(ids))
	for _, id := range ids {
		cp := *s.spans[id]
		out = append(out, &cp)
	}
	return out
}

// DeleteTrace removes a single trace and its spans by id, regardless of
// status. Deleting an unknown id is a no-op. For an owner explicitly
// discarding one trace; the retention sweep's age/status-scoped pruning
// stays on PruneCompletedBefore.
func (s *TraceStore) DeleteTrace(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.traces[id]
	if !ok {
		return
	}
	for _, spanID := range s.spansByTrace[id] {
		delete(s.spans, spanID)
	}
	delete(s.spansByTrace, id)
	delete(s.traces, id)
	if agentSet, ok := s.byAgent[t.AgentID]; ok {
		delete(agentSet, id)
	}
}

// CountOpen reports how many traces have not yet reached a terminal status.
// No metrics gauge is fed from it.
func (s *TraceStore) CountOpen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	open := 0
	for _, t := range s.traces {
		if t.Status == models.TraceStatusOpen {
			open++
		}
	}
	return open
}

// PruneCompletedBefore deletes every trace (and its spans) whose EndedAt is
// before cutoff and whose status has already reached a terminal state,
// returning the count deleted. Open traces are never pruned regardless of
// age (spec §9 retention: "never prune an in-flight trace").
func (s *TraceStore) PruneCompletedBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, t := range s.traces {
		if t.Status == models.TraceStatusOpen {
			continue
		}
		if t.EndedAt == nil || !t.EndedAt.Before(cutoff) {
			continue
		}
		for _, spanID := range s.spansByTrace[id] {
			delete(s.spans, spanID)
		}
		delete(s.spansByTrace, id)
		delete(s.traces, id)
		if agentSet, ok := s.byAgent[t.AgentID]; ok {
			delete(agentSet, id)
		}
		pruned++
	}
	return pruned
}
