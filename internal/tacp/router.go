package tacp

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trustfabric/agentca/internal/models"
)

// Router fans a notification envelope out to whichever live connection the
// addressed participant currently holds, keyed by session id and then by
// participant agent id, grounded on internal/trace.Streamer's org-to-
// subscriber-queue map (itself grounded on the teacher's
// pkg/events.ConnectionManager), keyed one level deeper since a TACP session
// has exactly two named participants rather than an open organisation.
type Router struct {
	mu          sync.RWMutex
	connections map[string]map[string]map[string]chan models.MessageEnvelope // session id -> agent id -> connection id -> queue
	queueSize   int
}

// NewRouter builds a Router whose per-connection outbound queue holds
// queueSize envelopes before dropping.
func NewRouter(queueSize int) *Router {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Router{connections: make(map[string]map[string]map[string]chan models.MessageEnvelope), queueSize: queueSize}
}

// Connect registers a live connection for agentID on sessionID and returns
// its inbound queue and a disconnect func. The channel is closed on
// disconnect; callers range over the channel rather than polling it closed.
func (r *Router) Connect(sessionID, agentID string) (inbox <-chan models.MessageEnvelope, disconnect func()) {
	connID := uuid.NewString()
	ch := make(chan models.MessageEnvelope, r.queueSize)

	r.mu.Lock()
	bySession, ok := r.connections[sessionID]
	if !ok {
		bySession = make(map[string]map[string]chan models.MessageEnvelope)
		r.connections[sessionID] = bySession
	}
	byAgent, ok := bySession[agentID]
	if !ok {
		byAgent = make(map[string]chan models.MessageEnvelope)
		bySession[agentID] = byAgent
	}
	byAgent[connID] = ch
	r.mu.Unlock()

	var once sync.Once
	disconnect = func() {
		once.Do(func() {
			r.mu.Lock()
			if byAgent, ok := r.connections[sessionID][agentID]; ok {
				delete(byAgent, connID)
				if len(byAgent) == 0 {
					delete(r.connections[sessionID], agentID)
				}
			}
			if len(r.connections[sessionID]) == 0 {
				delete(r.connections, sessionID)
			}
			r.mu.Unlock()
			close(ch)
		})
	}
	return ch, disconnect
}

// Deliver pushes env to every live connection recipientID holds on
// sessionID and reports whether at least one connection received it. A full
// per-connection queue drops the envelope for that connection only
// (mirrors Streamer.Publish), so one slow connection can't block another.
// A false return (no connected recipient) is not an error: the recipient
// simply isn't watching a socket right now, the same as a dropped
// best-effort notification over any duplex transport.
func (r *Router) Deliver(sessionID, recipientID string, env models.MessageEnvelope) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := false
	for _, ch := range r.connections[sessionID][recipientID] {
		select {
		case ch <- env:
			delivered = true
		default:
		}
	}
	return delivered
}

// ConnectionCount reports how many live connections recipientID holds on
// sessionID, for tests.
func (r *Router) ConnectionCount(sessionID, recipientID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections[sessionID][recipientID])
}
