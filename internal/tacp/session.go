package tacp

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trustfabric/agentca/internal/models"
)

// Session wraps a models.TACPSession with the runtime machinery needed to
// serialise message processing (spec §5: "each session's incoming message
// stream is processed in order") and correlate send_and_wait requests,
// mirroring the teacher's pkg/session.Session split between persisted
// record and live instance.
type Session struct {
	mu           sync.Mutex // serialises all processing for this session
	Record       models.TACPSession
	lastActivity time.Time
	tasks        map[string]*models.DelegatedTask

	pendingMu sync.Mutex
	pending   map[string]chan models.MessageEnvelope // outgoing message_id -> waiter
}

func newSession(initiatorID, responderID, purpose string, constraints models.SessionConstraints) *Session {
	now := time.Now().UTC()
	return &Session{
		Record: models.TACPSession{
			ID:               uuid.NewString(),
			InitiatorAgentID: initiatorID,
			ResponderAgentID: responderID,
			Purpose:          purpose,
			Status:           models.SessionStatusPending,
			Constraints:      constraints,
			CreatedAt:        now,
		},
		lastActivity: now,
		tasks:        make(map[string]*models.DelegatedTask),
		pending:      make(map[string]chan models.MessageEnvelope),
	}
}

// audit appends one entry to the session's audit log. Caller must hold mu.
func (s *Session) audit(event, detail string) {
	s.Record.AuditLog = append(s.Record.AuditLog, models.AuditEntry{
		Timestamp: time.Now().UTC(),
		Event:     event,
		Detail:    detail,
	})
}

// isTerminal reports whether the session is in a state that rejects further
// messages (spec §4.5: "terminal states reject all further messages with
// error"). Caller must hold mu.
func (s *Session) isTerminal() bool {
	switch s.Record.Status {
	case models.SessionStatusEnded, models.SessionStatusRejected, models.SessionStatusExpired:
		return true
	default:
		return false
	}
}

// registerWait records msgID as awaiting a correlated reply and returns the
// channel it will arrive on.
func (s *Session) registerWait(msgID string) chan models.MessageEnvelope {
	ch := make(chan models.MessageEnvelope, 1)
	s.pendingMu.Lock()
	s.pending[msgID] = ch
	s.pendingMu.Unlock()
	return ch
}

func (s *Session) cancelWait(msgID string) {
	s.pendingMu.Lock()
	delete(s.pending, msgID)
	s.pendingMu.Unlock()
}

// deliverReply resolves the pending wait matched by env.InReplyTo, if any,
// consuming it so a reply is only ever delivered once (spec §4.5:
// "resolves it on the first incoming envelope whose in_reply_to matches").
func (s *Session) deliverReply(env models.MessageEnvelope) {
	if env.InReplyTo == "" {
		return
	}
	s.pendingMu.Lock()
	ch, ok := s.pending[env.InReplyTo]
	if ok {
		delete(s.pending, env.InReplyTo)
	}
	s.pendingMu.Unlock()
	if ok {
		ch <- env
	}
}

func validParticipant(s *Session, env models.MessageEnvelope) bool {
	initiatorToResponder := env.SenderID == s.Record.InitiatorAgentID && env.RecipientID == s.Record.ResponderAgentID
	responderToInitiator := env.SenderID == s.Record.ResponderAgentID && env.RecipientID == s.Record.InitiatorAgentID
	return initiatorToResponder || responderToInitiator
}
