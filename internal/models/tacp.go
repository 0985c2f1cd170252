package models

import "time"

// MessageType enumerates every TACP envelope kind (spec §4.5).
type MessageType string

const (
	MessageTypeSessionRequest MessageType = "session_request"
	MessageTypeSessionAccept  MessageType = "session_accept"
	MessageTypeSessionReject  MessageType = "session_reject"
	MessageTypeSessionEnd     MessageType = "session_end"

	MessageTypeTrustChallenge MessageType = "trust_challenge"
	MessageTypeTrustProof     MessageType = "trust_proof"
	MessageTypeTrustVerified  MessageType = "trust_verified"
	MessageTypeTrustFailed    MessageType = "trust_failed"

	MessageTypeCapabilityQuery    MessageType = "capability_query"
	MessageTypeCapabilityResponse MessageType = "capability_response"

	MessageTypeTaskRequest  MessageType = "task_request"
	MessageTypeTaskAccepted MessageType = "task_accepted"
	MessageTypeTaskRejected MessageType = "task_rejected"
	MessageTypeTaskProgress MessageType = "task_progress"
	MessageTypeTaskComplete MessageType = "task_complete"
	MessageTypeTaskFailed   MessageType = "task_failed"

	MessageTypePing  MessageType = "ping"
	MessageTypePong  MessageType = "pong"
	MessageTypeError MessageType = "error"
)

// MessageEnvelope is the single stateful wrapper every TACP message travels
// in (spec §4.5). Payload is kept as raw JSON-decodable content so the
// session fabric can route on envelope fields without decoding the body.
type MessageEnvelope struct {
	MessageID   string         `json:"message_id"`
	InReplyTo   string         `json:"in_reply_to,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
	SenderID    string         `json:"sender_id"`
	RecipientID string         `json:"recipient_id"`
	Type        MessageType    `json:"type"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	SignatureHex string        `json:"signature_hex,omitempty"`
}

// SessionStatus is the TACP session state machine's current state
// (spec §4.5: pending → active → ended/rejected/expired).
type SessionStatus string

const (
	SessionStatusPending SessionStatus = "pending"
	SessionStatusActive  SessionStatus = "active"
	SessionStatusEnded   SessionStatus = "ended"
	SessionStatusRejected SessionStatus = "rejected"
	SessionStatusExpired SessionStatus = "expired"
)

// DataClassification bounds what a delegated task may touch, negotiated at
// session establishment (spec §4.5).
type DataClassification string

const (
	DataClassificationPublic       DataClassification = "public"
	DataClassificationInternal     DataClassification = "internal"
	DataClassificationConfidential DataClassification = "confidential"
)

// SessionConstraints are the limits a session was established under; every
// task delegated within the session must stay inside them.
type SessionConstraints struct {
	MaxDuration        time.Duration        `json:"max_duration"`
	MaxMessages        int                  `json:"max_messages"`
	MaxTasks           int                  `json:"max_tasks"`
	AllowedTaskTypes    []string             `json:"allowed_task_types,omitempty"`
	DataClassification DataClassification   `json:"data_classification"`
}

// TACPSession is one negotiated, trust-verified channel between two agents
// (spec §4.5).
type TACPSession struct {
	ID                   string              `json:"id"`
	InitiatorAgentID     string              `json:"initiator_agent_id"`
	ResponderAgentID     string              `json:"responder_agent_id"`
	Purpose              string              `json:"purpose"`
	Status               SessionStatus       `json:"status"`
	Constraints          SessionConstraints  `json:"constraints"`
	AgreedCapabilities   []string            `json:"agreed_capabilities,omitempty"`
	MessageCount         int                 `json:"message_count"`
	TaskCount            int                 `json:"task_count"`
	PendingChallengeNonce string             `json:"-"`
	ChallengeIssuedAt    *time.Time          `json:"-"`
	CreatedAt            time.Time           `json:"created_at"`
	ActivatedAt          *time.Time          `json:"activated_at,omitempty"`
	EndedAt              *time.Time          `json:"ended_at,omitempty"`
	AuditLog             []AuditEntry        `json:"audit_log,omitempty"`
}

// AuditEntry is one recorded event in a session's lifetime, kept for
// post-hoc review of what a delegated agent actually did.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
}

// ExpiresAt returns the wall-clock deadline implied by the session's
// MaxDuration constraint, measured from activation.
func (s *TACPSession) ExpiresAt() (time.Time, bool) {
	if s.ActivatedAt == nil {
		return time.Time{}, false
	}
	return s.ActivatedAt.Add(s.Constraints.MaxDuration), true
}

// TaskStatus is the lifecycle of one delegated task within a session.
type TaskStatus string

const (
	TaskStatusRequested TaskStatus = "requested"
	TaskStatusAccepted  TaskStatus = "accepted"
	TaskStatusRejected  TaskStatus = "rejected"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusComplete  TaskStatus = "complete"
	TaskStatusFailed    TaskStatus = "failed"
)

// DelegatedTask is one unit of work handed from one agent to another inside
// a TACP session.
type DelegatedTask struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	Type        string         `json:"type"`
	Input       map[string]any `json:"input,omitempty"`
	Status      TaskStatus     `json:"status"`
	Progress    float64        `json:"progress"`
	Result      map[string]any `json:"result,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
