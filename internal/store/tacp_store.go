package store

import (
	"sync"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/models"
)

// TACPStore holds TACPSession and DelegatedTask rows, plus an envelope
// history searchable by in_reply_to. internal/tacp's SendAndWait does not
// use it; it correlates replies through per-session waiters.
type TACPStore struct {
	mu        sync.RWMutex
	sessions  map[string]*models.TACPSession
	tasks     map[string]*models.DelegatedTask
	tasksBySession map[string][]string
	envelopes map[string]*models.MessageEnvelope // by message id, for in_reply_to lookup
}

// NewTACPStore builds an empty TACPStore.
func NewTACPStore() *TACPStore {
	return &TACPStore{
		sessions:       make(map[string]*models.TACPSession),
		tasks:          make(map[string]*models.DelegatedTask),
		tasksBySession: make(map[string][]string),
		envelopes:      make(map[string]*models.MessageEnvelope),
	}
}

// PutSession inserts or replaces a session.
func (s *TACPStore) PutSession(sess *models.TACPSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
}

// GetSession returns the session with the given id.
func (s *TACPStore) GetSession(id string) (*models.TACPSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

// PutTask inserts or replaces a delegated task.
func (s *TACPStore) PutTask(t *models.DelegatedTask) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.ID]; !exists {
		s.tasksBySession[t.SessionID] = append(s.tasksBySession[t.SessionID], t.ID)
	}
	cp := *t
	s.tasks[t.ID] = &cp
}

// GetTask returns the task with the given id.
func (s *TACPStore) GetTask(id string) (*models.DelegatedTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// ListTasksBySession returns every task delegated within sessionID, in
// creation order.
func (s *TACPStore) ListTasksBySession(sessionID string) []*models.DelegatedTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.tasksBySession[sessionID]
	out := make([]*models.DelegatedTask, 0, len(ids))
	for _, id := range ids {
		cp := *s.tasks[id]
		out = append(out, &cp)
	}
	return out
}

// RecordEnvelope stores an envelope for later in_reply_to lookup via
// FindReply.
func (s *TACPStore) RecordEnvelope(e *models.MessageEnvelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.envelopes[e.MessageID] = &cp
}

// FindReply returns the envelope whose InReplyTo matches messageID, if one
// has been recorded yet.
func (s *TACPStore) FindReply(messageID string) (*models.MessageEnvelope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.envelopes {
		if e.InReplyTo == messageID {
			cp := *e
			return &cp, true
		}
	}
	return nil, false
}
