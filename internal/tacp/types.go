// Package tacp implements the Trust Agent Communication Protocol handler of
// spec §4.5: the envelope and message-type enum, the session state machine,
// the authoritative trust handshake, capability query, task delegation, and
// ping/pong keepalive, with per-session serialised message processing.
package tacp

import "encoding/json"

// TrustChallengePayload is the body of a trust_challenge message.
type TrustChallengePayload struct {
	Nonce                string   `json:"nonce,omitempty"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
	MinimumGrade         string   `json:"minimum_grade,omitempty"`
}

// TrustProofPayload is the body of a trust_proof message.
type TrustProofPayload struct {
	ChallengeID       string `json:"challenge_id"`
	CertificateID     string `json:"certificate_id"`
	NonceSignatureHex string `json:"nonce_signature"`
}

// TrustFailedPayload is the body of a trust_failed message.
type TrustFailedPayload struct {
	Reason  string   `json:"reason"`
	Missing []string `json:"missing,omitempty"`
}

// TrustVerifiedPayload is the body of a trust_verified message.
type TrustVerifiedPayload struct {
	CertificateID string   `json:"certificate_id"`
	Capabilities  []string `json:"capabilities,omitempty"`
	Grade         string   `json:"grade"`
}

// CapabilityQueryPayload is the body of a capability_query message.
type CapabilityQueryPayload struct {
	Capabilities  []string `json:"capabilities,omitempty"`
	IncludeScores bool     `json:"include_scores,omitempty"`
}

// CapabilityResponsePayload is the body of a capability_response message.
type CapabilityResponsePayload struct {
	AgentID      string             `json:"agent_id"`
	Capabilities []string           `json:"capabilities"`
	Scores       map[string]float64 `json:"scores,omitempty"`
}

// TaskRequestPayload is the body of a task_request message.
type TaskRequestPayload struct {
	TaskType       string         `json:"task_type"`
	Description    string         `json:"description"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	TimeoutSeconds int            `json:"timeout_seconds,omitempty"`
	Priority       int            `json:"priority,omitempty"`
}

// decodePayload round-trips env.Payload through JSON into a typed struct;
// envelopes carry payload as an open map so the session fabric can route on
// envelope fields without decoding the body (spec §4.5's "dynamic field bags
// on envelopes... require named typed fields for every attribute named in
// this specification").
func decodePayload(payload map[string]any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// encodePayload is decodePayload's inverse, used when building an outgoing
// envelope from a typed payload struct.
func encodePayload(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func intersect(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}
