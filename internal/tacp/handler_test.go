package tacp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/agentca/internal/ca"
	"github.com/trustfabric/agentca/internal/keymanager"
	"github.com/trustfabric/agentca/internal/models"
	"github.com/trustfabric/agentca/internal/store"
)

type fixture struct {
	handler  *Handler
	sessions *Manager
	agents   *store.AgentStore
	certs    *store.CertificateStore
	keys     *keymanager.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	keys, err := keymanager.New(t.TempDir())
	require.NoError(t, err)

	agents := store.NewAgentStore()
	certs := store.NewCertificateStore()
	authority := ca.New(keys, certs, store.NewEvaluationStore(), "agentca-root-test")
	sessions := NewManager()

	return &fixture{
		handler:  NewHandler(sessions, authority, agents, keys),
		sessions: sessions,
		agents:   agents,
		certs:    certs,
		keys:     keys,
	}
}

func (f *fixture) registerAgent(t *testing.T, id string, capabilities ...string) *models.Agent {
	t.Helper()
	_, err := f.keys.EnsureKeypair(id)
	require.NoError(t, err)
	pubHex, err := f.keys.PublicKeyHex(id)
	require.NoError(t, err)

	agent := &models.Agent{
		ID:                   id,
		OwnerOrganizationID:  "org-1",
		Name:                 id,
		DeclaredCapabilities: capabilities,
		PublicVerifyKeyHex:   pubHex,
		Status:               models.AgentStatusActive,
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}
	f.agents.Put(agent)
	return agent
}

func (f *fixture) issueActiveCertificate(t *testing.T, agentID, grade string, capabilities []string) *models.Certificate {
	t.Helper()
	now := time.Now().UTC()
	cert := &models.Certificate{
		ID:                    "cert-" + agentID,
		AgentID:               agentID,
		Version:               1,
		Grade:                 grade,
		CertifiedCapabilities: capabilities,
		Status:                models.CertificateStatusActive,
		IssuedAt:              now,
		ExpiresAt:             now.Add(365 * 24 * time.Hour),
		Issuer:                "agentca-root-test",
	}
	f.certs.Put(cert)
	return cert
}

func activeSession(t *testing.T, m *Manager, initiator, responder string) *Session {
	t.Helper()
	s := m.Create(initiator, responder, "testing", models.SessionConstraints{MaxTasks: 5, MaxDuration: time.Hour})
	_, err := m.Accept(s.Record.ID)
	require.NoError(t, err)
	return s
}

func TestSessionAcceptRejectStateMachine(t *testing.T) {
	m := NewManager()
	s := m.Create("initiator", "responder", "testing", models.SessionConstraints{})
	assert.Equal(t, models.SessionStatusPending, s.Record.Status)

	accepted, err := m.Accept(s.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, accepted.Record.Status)

	_, err = m.Accept(s.Record.ID)
	assert.Error(t, err)
}

func TestSessionRejectFromPending(t *testing.T) {
	m := NewManager()
	s := m.Create("initiator", "responder", "testing", models.SessionConstraints{})
	rejected, err := m.Reject(s.Record.ID, "not interested")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusRejected, rejected.Record.Status)
}

func TestSessionEndIsIdempotent(t *testing.T) {
	m := NewManager()
	s := activeSession(t, m, "v", "t")

	first, err := m.End(s.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusEnded, first.Record.Status)

	second, err := m.End(s.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusEnded, second.Record.Status)
}

func TestSweepIdleExpiresStaleActiveSessions(t *testing.T) {
	m := NewManager()
	s := activeSession(t, m, "v", "t")
	s.mu.Lock()
	s.lastActivity = time.Now().UTC().Add(-time.Hour)
	s.mu.Unlock()

	expired := m.SweepIdle(time.Minute)
	assert.Equal(t, 1, expired)

	got, err := m.Get(s.Record.ID)
	require.NoError(t, err)
	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, models.SessionStatusExpired, got.Record.Status)
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	f := newFixture(t)
	s := activeSession(t, f.sessions, "v", "t")

	replies, err := f.handler.Handle(models.MessageEnvelope{
		MessageID: "msg-1", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypePing, Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, models.MessageTypePong, replies[0].Type)
	assert.Equal(t, "msg-1", replies[0].InReplyTo)
}

func TestTerminalSessionRejectsFurtherMessages(t *testing.T) {
	f := newFixture(t)
	s := activeSession(t, f.sessions, "v", "t")
	_, err := f.sessions.End(s.Record.ID)
	require.NoError(t, err)

	replies, err := f.handler.Handle(models.MessageEnvelope{
		MessageID: "msg-1", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypePing, Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, models.MessageTypeError, replies[0].Type)
}

func TestWrongParticipantPairIsRejected(t *testing.T) {
	f := newFixture(t)
	s := activeSession(t, f.sessions, "v", "t")

	replies, err := f.handler.Handle(models.MessageEnvelope{
		MessageID: "msg-1", SessionID: s.Record.ID, SenderID: "stranger", RecipientID: "t",
		Type: models.MessageTypePing, Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, models.MessageTypeError, replies[0].Type)
}

func TestTrustHandshakeEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "v")
	f.registerAgent(t, "t", "code-review")
	f.issueActiveCertificate(t, "t", "A", []string{"code-review"})

	s := activeSession(t, f.sessions, "v", "t")
	replies, err := f.handler.Handle(models.MessageEnvelope{
		MessageID: "challenge-1", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypeTrustChallenge, Timestamp: time.Now().UTC(),
		Payload: encodePayload(TrustChallengePayload{
			RequiredCapabilities: []string{"code-review"},
			MinimumGrade:         "B",
		}),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, models.MessageTypeTrustVerified, replies[0].Type)

	var payload TrustVerifiedPayload
	require.NoError(t, decodePayload(replies[0].Payload, &payload))
	assert.Equal(t, "cert-t", payload.CertificateID)
	assert.Equal(t, "A", payload.Grade)
}

func TestTrustHandshakeFailsOnMissingCapability(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "v")
	f.registerAgent(t, "t", "code-review")
	f.issueActiveCertificate(t, "t", "A", []string{"code-review"})

	s := activeSession(t, f.sessions, "v", "t")
	replies, err := f.handler.Handle(models.MessageEnvelope{
		MessageID: "challenge-1", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypeTrustChallenge, Timestamp: time.Now().UTC(),
		Payload: encodePayload(TrustChallengePayload{RequiredCapabilities: []string{"speech-synthesis"}}),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, models.MessageTypeTrustFailed, replies[0].Type)

	var payload TrustFailedPayload
	require.NoError(t, decodePayload(replies[0].Payload, &payload))
	assert.Equal(t, []string{"speech-synthesis"}, payload.Missing)
}

func TestTrustHandshakeFailsOnGradeBelowMinimum(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "v")
	f.registerAgent(t, "t", "code-review")
	f.issueActiveCertificate(t, "t", "C", []string{"code-review"})

	s := activeSession(t, f.sessions, "v", "t")
	replies, err := f.handler.Handle(models.MessageEnvelope{
		MessageID: "challenge-1", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypeTrustChallenge, Timestamp: time.Now().UTC(),
		Payload: encodePayload(TrustChallengePayload{
			RequiredCapabilities: []string{"code-review"},
			MinimumGrade:         "A",
		}),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, models.MessageTypeTrustFailed, replies[0].Type)
}

func TestTrustHandshakeFailsWithNoActiveCertificate(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "v")
	f.registerAgent(t, "t")

	s := activeSession(t, f.sessions, "v", "t")
	replies, err := f.handler.Handle(models.MessageEnvelope{
		MessageID: "challenge-1", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypeTrustChallenge, Timestamp: time.Now().UTC(),
		Payload: encodePayload(TrustChallengePayload{}),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, models.MessageTypeTrustFailed, replies[0].Type)
}

func TestCapabilityQueryFiltersToIntersectionAndIncludesScoresOnRequest(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "v")
	f.registerAgent(t, "t", "code-review", "speech-synthesis")
	f.issueActiveCertificate(t, "t", "A", []string{"code-review", "speech-synthesis"})

	s := activeSession(t, f.sessions, "v", "t")
	replies, err := f.handler.Handle(models.MessageEnvelope{
		MessageID: "query-1", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypeCapabilityQuery, Timestamp: time.Now().UTC(),
		Payload: encodePayload(CapabilityQueryPayload{
			Capabilities:  []string{"code-review"},
			IncludeScores: true,
		}),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, models.MessageTypeCapabilityResponse, replies[0].Type)

	var payload CapabilityResponsePayload
	require.NoError(t, decodePayload(replies[0].Payload, &payload))
	assert.Equal(t, []string{"code-review"}, payload.Capabilities)
	require.NotNil(t, payload.Scores)
}

func TestTaskDelegationAcceptedThenProgressThenComplete(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "v")
	f.registerAgent(t, "t", "code-review")

	s := activeSession(t, f.sessions, "v", "t")

	accept, err := f.handler.Handle(models.MessageEnvelope{
		MessageID: "task-req-1", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypeTaskRequest, Timestamp: time.Now().UTC(),
		Payload: encodePayload(TaskRequestPayload{TaskType: "code-review", Description: "review PR 42"}),
	})
	require.NoError(t, err)
	require.Len(t, accept, 1)
	require.Equal(t, models.MessageTypeTaskAccepted, accept[0].Type)
	taskID, _ := accept[0].Payload["task_id"].(string)
	require.NotEmpty(t, taskID)

	for _, p := range []float64{0.25, 0.5, 0.75} {
		_, err := f.handler.Handle(models.MessageEnvelope{
			MessageID: "progress-" + taskID, SessionID: s.Record.ID, SenderID: "t", RecipientID: "v",
			Type: models.MessageTypeTaskProgress, Timestamp: time.Now().UTC(),
			Payload: map[string]any{"task_id": taskID, "progress": p},
		})
		require.NoError(t, err)
	}

	_, err = f.handler.Handle(models.MessageEnvelope{
		MessageID: "complete-" + taskID, SessionID: s.Record.ID, SenderID: "t", RecipientID: "v",
		Type: models.MessageTypeTaskComplete, Timestamp: time.Now().UTC(),
		Payload: map[string]any{"task_id": taskID, "result": map[string]any{"verdict": "approved"}},
	})
	require.NoError(t, err)

	task, err := f.handler.Task(s.Record.ID, taskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusComplete, task.Status)
	assert.Equal(t, 1.0, task.Progress)
}

func TestTaskDelegationRejectedWhenCapabilityMissing(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "v")
	f.registerAgent(t, "t")

	s := activeSession(t, f.sessions, "v", "t")
	replies, err := f.handler.Handle(models.MessageEnvelope{
		MessageID: "task-req-1", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypeTaskRequest, Timestamp: time.Now().UTC(),
		Payload: encodePayload(TaskRequestPayload{TaskType: "code-review"}),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, models.MessageTypeTaskRejected, replies[0].Type)
}

func TestTaskDelegationRejectedAtSessionTaskLimit(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "v")
	f.registerAgent(t, "t", "code-review")

	s := f.sessions.Create("v", "t", "testing", models.SessionConstraints{MaxTasks: 1})
	_, err := f.sessions.Accept(s.Record.ID)
	require.NoError(t, err)

	_, err = f.handler.Handle(models.MessageEnvelope{
		MessageID: "req-1", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypeTaskRequest, Timestamp: time.Now().UTC(),
		Payload: encodePayload(TaskRequestPayload{TaskType: "code-review"}),
	})
	require.NoError(t, err)

	replies, err := f.handler.Handle(models.MessageEnvelope{
		MessageID: "req-2", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypeTaskRequest, Timestamp: time.Now().UTC(),
		Payload: encodePayload(TaskRequestPayload{TaskType: "code-review"}),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, models.MessageTypeTaskRejected, replies[0].Type)
}

func TestSendAndWaitResolvesSynchronouslyForTrustChallenge(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "v")
	f.registerAgent(t, "t", "code-review")
	f.issueActiveCertificate(t, "t", "A", []string{"code-review"})
	s := activeSession(t, f.sessions, "v", "t")

	reply, err := f.handler.SendAndWait(context.Background(), models.MessageEnvelope{
		MessageID: "challenge-1", SessionID: s.Record.ID, SenderID: "v", RecipientID: "t",
		Type: models.MessageTypeTrustChallenge, Timestamp: time.Now().UTC(),
		Payload: encodePayload(TrustChallengePayload{RequiredCapabilities: []string{"code-review"}}),
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeTrustVerified, reply.Type)
}

func TestSendAndWaitTimesOutWhenNoReplyArrives(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "v")
	f.registerAgent(t, "t", "code-review")
	s := activeSession(t, f.sessions, "v", "t")

	_, err := f.handler.SendAndWait(context.Background(), models.MessageEnvelope{
		MessageID: "progress-unknown", SessionID: s.Record.ID, SenderID: "t", RecipientID: "v",
		Type: models.MessageTypeTaskProgress, Timestamp: time.Now().UTC(),
		Payload: map[string]any{"task_id": "unknown", "progress": 0.1},
	}, 30*time.Millisecond)
	assert.Error(t, err)
}

func TestChallengeTakeConsumesRecordOnce(t *testing.T) {
	cs := newChallengeStore()
	cs.put("c1", challengeRecord{Nonce: "abc", IssuedAt: time.Now().UTC()})

	_, ok := cs.take("c1")
	assert.True(t, ok)

	_, ok = cs.take("c1")
	assert.False(t, ok)
}

func TestChallengeSweepEvictsExpiredRecords(t *testing.T) {
	cs := newChallengeStore()
	cs.put("stale", challengeRecord{Nonce: "abc", IssuedAt: time.Now().UTC().Add(-2 * challengeTTL)})
	cs.put("fresh", challengeRecord{Nonce: "def", IssuedAt: time.Now().UTC()})

	assert.Equal(t, 1, cs.sweep())
	_, ok := cs.take("fresh")
	assert.True(t, ok)
}
