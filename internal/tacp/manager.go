package tacp

import (
	"sync"
	"time"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/models"
)

// Manager keeps every live TACP session in memory keyed by session id, in
// the manner of the teacher's pkg/session.Manager generalised from a single
// chat session to a two-party trust-verified channel.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager builds an empty Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create opens a new pending session (spec §4.5 state machine's entry
// state), awaiting the responder's accept or reject.
func (m *Manager) Create(initiatorID, responderID, purpose string, constraints models.SessionConstraints) *Session {
	s := newSession(initiatorID, responderID, purpose, constraints)
	m.mu.Lock()
	m.sessions[s.Record.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the live session for id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s, nil
}

// List returns a snapshot of every known session's persisted record.
func (m *Manager) List() []models.TACPSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.TACPSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		s.mu.Lock()
		out = append(out, s.Record)
		s.mu.Unlock()
	}
	return out
}

// Accept transitions a pending session to active (spec §4.5 state machine).
func (m *Manager) Accept(id string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Record.Status != models.SessionStatusPending {
		return nil, apperr.New(apperr.KindPreconditionFailed, "session is not pending", map[string]any{"status": s.Record.Status})
	}

	now := time.Now().UTC()
	s.Record.Status = models.SessionStatusActive
	s.Record.ActivatedAt = &now
	s.lastActivity = now
	s.audit("session_accept", "")
	return s, nil
}

// Reject transitions a pending session to rejected.
func (m *Manager) Reject(id, reason string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Record.Status != models.SessionStatusPending {
		return nil, apperr.New(apperr.KindPreconditionFailed, "session is not pending", map[string]any{"status": s.Record.Status})
	}

	s.Record.Status = models.SessionStatusRejected
	s.audit("session_reject", reason)
	return s, nil
}

// End transitions any non-terminal session to ended, idempotently.
func (m *Manager) End(id string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isTerminal() {
		return s, nil
	}

	now := time.Now().UTC()
	s.Record.Status = models.SessionStatusEnded
	s.Record.EndedAt = &now
	s.audit("session_end", "")
	return s, nil
}

// Delete removes a session's record entirely, used by DELETE /v1/sessions/{id}.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// CountActive returns the number of sessions currently in the active state,
// for internal/metrics's session gauge.
func (m *Manager) CountActive() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, s := range m.sessions {
		s.mu.Lock()
		if s.Record.Status == models.SessionStatusActive {
			count++
		}
		s.mu.Unlock()
	}
	return count
}

// SweepIdle transitions every active session whose last processed message is
// older than maxIdle to expired (spec §5: "idle sessions beyond the
// configured max-idle timeout transition to expired"), returning the count
// expired. Intended to be called periodically by internal/worker.
func (m *Manager) SweepIdle(maxIdle time.Duration) int {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	now := time.Now().UTC()
	expired := 0
	for _, s := range sessions {
		s.mu.Lock()
		if s.Record.Status == models.SessionStatusActive && now.Sub(s.lastActivity) > maxIdle {
			s.Record.Status = models.SessionStatusExpired
			s.audit("session_expired", "idle timeout")
			expired++
		}
		s.mu.Unlock()
	}
	return expired
}
