package api

import "github.com/trustfabric/agentca/internal/models"

// RegisterAgentRequest is the body of POST /v1/agents.
type RegisterAgentRequest struct {
	OwnerOrganizationID  string   `json:"owner_organization_id"`
	Name                 string   `json:"name"`
	DeclaredCapabilities []string `json:"declared_capabilities"`
	PublicVerifyKeyHex   string   `json:"public_verify_key_hex"`
}

// PatchAgentRequest is the body of PATCH /v1/agents/{id}. Only non-nil
// fields are applied.
type PatchAgentRequest struct {
	Name                 *string            `json:"name"`
	DeclaredCapabilities *[]string          `json:"declared_capabilities"`
	Status               *models.AgentStatus `json:"status"`
}

// CreateEvaluationRequest is the body of POST /v1/evaluations.
type CreateEvaluationRequest struct {
	AgentID  string                   `json:"agent_id"`
	Suites   []models.Suite           `json:"suites"`
	Config   *models.EvaluationConfig `json:"config,omitempty"`
}

// IssueCertificateRequest is the body of POST /v1/certificates.
type IssueCertificateRequest struct {
	AgentID      string `json:"agent_id"`
	EvaluationID string `json:"evaluation_id"`
	ValidityDays int    `json:"validity_days,omitempty"`
}

// RevokeCertificateRequest is the body of POST /v1/certificates/{id}/revoke.
type RevokeCertificateRequest struct {
	Reason string `json:"reason"`
}

// CreateSessionRequest is the body of POST /v1/sessions.
type CreateSessionRequest struct {
	InitiatorAgentID string                     `json:"initiator_agent_id"`
	ResponderAgentID string                     `json:"responder_agent_id"`
	Purpose          string                     `json:"purpose"`
	Constraints      models.SessionConstraints `json:"constraints"`
}

// RejectSessionRequest is the body of POST /v1/sessions/{id}/reject.
type RejectSessionRequest struct {
	Reason string `json:"reason"`
}

// PostSessionMessageRequest is the body of POST /v1/sessions/{id}/messages:
// a single TACP envelope submitted over plain REST instead of the
// sessions/{id}/ws duplex channel.
type PostSessionMessageRequest struct {
	SenderID    string               `json:"sender_id"`
	RecipientID string               `json:"recipient_id"`
	Type        models.MessageType `json:"type"`
	Payload     map[string]any      `json:"payload,omitempty"`
}
