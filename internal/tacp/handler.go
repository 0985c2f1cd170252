package tacp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/ca"
	"github.com/trustfabric/agentca/internal/keymanager"
	"github.com/trustfabric/agentca/internal/metrics"
	"github.com/trustfabric/agentca/internal/models"
	"github.com/trustfabric/agentca/internal/store"
)

// Handler is the single entry point every inbound TACP envelope passes
// through, regardless of which participant sent it. It owns session state
// transitions, the trust handshake, capability queries, and task-delegation
// bookkeeping, mirroring TACPSession._handle_message's dispatch but
// centralised server-side rather than duplicated in each peer.
type Handler struct {
	sessions     *Manager
	challenges   *challengeStore
	certificates *ca.CA
	agents       *store.AgentStore
	keys         *keymanager.Manager
	router       *Router
}

// NewHandler builds a Handler.
func NewHandler(sessions *Manager, certificates *ca.CA, agents *store.AgentStore, keys *keymanager.Manager) *Handler {
	return &Handler{sessions: sessions, challenges: newChallengeStore(), certificates: certificates, agents: agents, keys: keys, router: NewRouter(32)}
}

// Connect registers agentID's live duplex connection for sessionID so
// task_progress/task_complete/task_failed notifications addressed to it are
// delivered to this connection instead of dropped (spec §4.5's task-
// delegation section: the initiator correlates progress frames by task_id
// over its own connection, not the responder's). Callers (internal/api's
// WebSocket handler) range over the returned channel until it closes and
// must call disconnect on teardown.
func (h *Handler) Connect(sessionID, agentID string) (notifications <-chan models.MessageEnvelope, disconnect func()) {
	return h.router.Connect(sessionID, agentID)
}

// Handle processes one inbound envelope and returns the synchronous replies
// owed to its sender (zero or one, e.g. a pong or a task_accepted). A
// task_progress/task_complete/task_failed notification owes its sender
// nothing; instead it is routed to the other participant's own connection
// via Connect/Deliver, since it's the recipient, not the sender, who is
// meant to observe it.
func (h *Handler) Handle(env models.MessageEnvelope) ([]models.MessageEnvelope, error) {
	s, err := h.sessions.Get(env.SessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isTerminal() {
		return []models.MessageEnvelope{h.errorEnvelope(s, env, "session is terminal")}, nil
	}
	if s.Record.Status != models.SessionStatusActive {
		return []models.MessageEnvelope{h.errorEnvelope(s, env, "session is not active")}, nil
	}
	if !validParticipant(s, env) {
		return []models.MessageEnvelope{h.errorEnvelope(s, env, "sender/recipient does not match session participants")}, nil
	}

	s.Record.MessageCount++
	s.lastActivity = time.Now().UTC()
	s.deliverReply(env)

	switch env.Type {
	case models.MessageTypePing:
		return []models.MessageEnvelope{h.pong(s, env)}, nil

	case models.MessageTypeTrustChallenge:
		var payload TrustChallengePayload
		if err := decodePayload(env.Payload, &payload); err != nil {
			return []models.MessageEnvelope{h.errorEnvelope(s, env, "malformed trust_challenge payload")}, nil
		}
		return []models.MessageEnvelope{h.verifyTrustLocked(s, env.MessageID, payload)}, nil

	case models.MessageTypeCapabilityQuery:
		return []models.MessageEnvelope{h.capabilityResponse(s, env)}, nil

	case models.MessageTypeTaskRequest:
		return []models.MessageEnvelope{h.handleTaskRequest(s, env)}, nil

	case models.MessageTypeTaskProgress, models.MessageTypeTaskComplete, models.MessageTypeTaskFailed:
		h.recordTaskUpdate(s, env)
		h.router.Deliver(s.Record.ID, env.RecipientID, env)
		return nil, nil

	case models.MessageTypeSessionEnd:
		now := time.Now().UTC()
		s.Record.Status = models.SessionStatusEnded
		s.Record.EndedAt = &now
		s.audit("session_end", "")
		return nil, nil

	default:
		return []models.MessageEnvelope{env}, nil
	}
}

// SendAndWait sends msg (processing it as if it had just arrived over the
// wire) and blocks until a matching in_reply_to arrives or timeout elapses
// (spec §4.5: "the handler stores a pending future keyed by outgoing
// message_id and resolves it on the first incoming envelope whose
// in_reply_to matches"). Most message types resolve synchronously within
// Handle itself; the wait path only matters for replies that arrive via a
// later, independent call to Handle (e.g. a task's eventual completion).
func (h *Handler) SendAndWait(ctx context.Context, msg models.MessageEnvelope, timeout time.Duration) (models.MessageEnvelope, error) {
	s, err := h.sessions.Get(msg.SessionID)
	if err != nil {
		return models.MessageEnvelope{}, err
	}
	wait := s.registerWait(msg.MessageID)

	replies, err := h.Handle(msg)
	if err != nil {
		s.cancelWait(msg.MessageID)
		return models.MessageEnvelope{}, err
	}
	for _, r := range replies {
		if r.InReplyTo == msg.MessageID {
			s.cancelWait(msg.MessageID)
			return r, nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-wait:
		return reply, nil
	case <-timer.C:
		s.cancelWait(msg.MessageID)
		return models.MessageEnvelope{}, apperr.New(apperr.KindTimeout, "request timeout", map[string]any{
			"session_id":   msg.SessionID,
			"message_type": string(msg.Type),
		})
	case <-ctx.Done():
		s.cancelWait(msg.MessageID)
		return models.MessageEnvelope{}, ctx.Err()
	}
}

func (h *Handler) pong(s *Session, env models.MessageEnvelope) models.MessageEnvelope {
	return models.MessageEnvelope{
		MessageID:   uuid.NewString(),
		InReplyTo:   env.MessageID,
		SessionID:   s.Record.ID,
		SenderID:    env.RecipientID,
		RecipientID: env.SenderID,
		Type:        models.MessageTypePong,
		Timestamp:   time.Now().UTC(),
	}
}

func (h *Handler) errorEnvelope(s *Session, env models.MessageEnvelope, reason string) models.MessageEnvelope {
	return models.MessageEnvelope{
		MessageID:   uuid.NewString(),
		InReplyTo:   env.MessageID,
		SessionID:   s.Record.ID,
		SenderID:    env.RecipientID,
		RecipientID: env.SenderID,
		Type:        models.MessageTypeError,
		Timestamp:   time.Now().UTC(),
		Payload:     map[string]any{"reason": reason},
	}
}

// capabilityResponse answers a capability_query about the envelope's
// recipient (spec §4.5).
func (h *Handler) capabilityResponse(s *Session, env models.MessageEnvelope) models.MessageEnvelope {
	var query CapabilityQueryPayload
	_ = decodePayload(env.Payload, &query)

	agent, err := h.agents.Get(env.RecipientID)
	if err != nil {
		return h.errorEnvelope(s, env, "unknown agent")
	}

	resp := CapabilityResponsePayload{
		AgentID:      agent.ID,
		Capabilities: intersect(agent.DeclaredCapabilities, query.Capabilities),
	}
	if query.IncludeScores {
		if cert, ok := h.certificates.ActiveCertificateForAgent(agent.ID); ok {
			resp.Scores = scoreMap(cert.Scores)
		}
	}

	return models.MessageEnvelope{
		MessageID:   uuid.NewString(),
		InReplyTo:   env.MessageID,
		SessionID:   s.Record.ID,
		SenderID:    env.RecipientID,
		RecipientID: env.SenderID,
		Type:        models.MessageTypeCapabilityResponse,
		Timestamp:   time.Now().UTC(),
		Payload:     encodePayload(resp),
	}
}

func scoreMap(breakdown models.ScoreBreakdown) map[string]float64 {
	scores := map[string]float64{"overall": breakdown.Overall}
	if breakdown.Capability != nil {
		scores["capability"] = *breakdown.Capability
	}
	if breakdown.Safety != nil {
		scores["safety"] = *breakdown.Safety
	}
	if breakdown.Reliability != nil {
		scores["reliability"] = *breakdown.Reliability
	}
	if breakdown.Communication != nil {
		scores["communication"] = *breakdown.Communication
	}
	return scores
}

// handleTaskRequest implements the task_request branch of spec §4.5's task
// delegation section: reject if the responder lacks the declared
// capability or the session is out of budget, otherwise allocate a task and
// accept it.
func (h *Handler) handleTaskRequest(s *Session, env models.MessageEnvelope) models.MessageEnvelope {
	var req TaskRequestPayload
	if err := decodePayload(env.Payload, &req); err != nil {
		return h.errorEnvelope(s, env, "malformed task_request payload")
	}

	responder, err := h.agents.Get(env.RecipientID)
	if err != nil || !responder.HasCapability(req.TaskType) {
		return h.taskRejected(s, env, "task type outside declared capabilities")
	}
	if len(s.Record.Constraints.AllowedTaskTypes) > 0 && !containsString(s.Record.Constraints.AllowedTaskTypes, req.TaskType) {
		return h.taskRejected(s, env, "task type not permitted by session constraints")
	}
	if s.Record.Constraints.MaxTasks > 0 && s.Record.TaskCount >= s.Record.Constraints.MaxTasks {
		return h.taskRejected(s, env, "session task limit reached")
	}

	s.Record.TaskCount++
	now := time.Now().UTC()
	task := &models.DelegatedTask{
		ID:        uuid.NewString(),
		SessionID: s.Record.ID,
		Type:      req.TaskType,
		Input:     req.Parameters,
		Status:    models.TaskStatusAccepted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[task.ID] = task
	s.audit("task_accepted", task.ID)
	metrics.RecordTaskDelegation("accepted")

	return models.MessageEnvelope{
		MessageID:   uuid.NewString(),
		InReplyTo:   env.MessageID,
		SessionID:   s.Record.ID,
		SenderID:    env.RecipientID,
		RecipientID: env.SenderID,
		Type:        models.MessageTypeTaskAccepted,
		Timestamp:   now,
		Payload:     map[string]any{"task_id": task.ID},
	}
}

func (h *Handler) taskRejected(s *Session, env models.MessageEnvelope, reason string) models.MessageEnvelope {
	s.audit("task_rejected", reason)
	metrics.RecordTaskDelegation("rejected")
	return models.MessageEnvelope{
		MessageID:   uuid.NewString(),
		InReplyTo:   env.MessageID,
		SessionID:   s.Record.ID,
		SenderID:    env.RecipientID,
		RecipientID: env.SenderID,
		Type:        models.MessageTypeTaskRejected,
		Timestamp:   time.Now().UTC(),
		Payload:     map[string]any{"reason": reason},
	}
}

// recordTaskUpdate folds an incoming task_progress/task_complete/task_failed
// frame into the session's delegated-task record; unrecognised task ids are
// ignored. The frame itself is still forwarded to the other participant by
// Handle via router.Deliver regardless of whether a task record matched.
func (h *Handler) recordTaskUpdate(s *Session, env models.MessageEnvelope) {
	taskID, _ := env.Payload["task_id"].(string)
	task, ok := s.tasks[taskID]
	if !ok {
		return
	}
	task.UpdatedAt = time.Now().UTC()

	switch env.Type {
	case models.MessageTypeTaskProgress:
		task.Status = models.TaskStatusRunning
		if p, ok := env.Payload["progress"].(float64); ok {
			task.Progress = p
		}
	case models.MessageTypeTaskComplete:
		task.Status = models.TaskStatusComplete
		task.Progress = 1
		if result, ok := env.Payload["result"].(map[string]any); ok {
			task.Result = result
		}
	case models.MessageTypeTaskFailed:
		task.Status = models.TaskStatusFailed
		if msg, ok := env.Payload["error"].(string); ok {
			task.ErrorMessage = msg
		}
	}
}

// SweepExpiredChallenges evicts pending trust challenges past their TTL
// without emitting a message (spec §5), for internal/worker's periodic
// sweep. Returns the count evicted.
func (h *Handler) SweepExpiredChallenges() int {
	return h.challenges.sweep()
}

// Task returns the delegated task with the given id under session s, for
// callers (tests, REST read endpoints) that need its current state.
func (h *Handler) Task(sessionID, taskID string) (*models.DelegatedTask, error) {
	s, err := h.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *task
	return &cp, nil
}
