package tacp

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/trustfabric/agentca/internal/keymanager"
	"github.com/trustfabric/agentca/internal/models"
	"github.com/trustfabric/agentca/internal/scoring"
)

// verifyTrustLocked runs the ten-step authoritative trust handshake of spec
// §4.5 end to end and returns the trust_verified or trust_failed envelope
// that concludes it. The handler mediates both participants directly
// because it, not either agent, holds every agent's signing key
// (spec §4.6's centrally managed Agent Key Manager) and the certificate
// store, matching the spec's own end-to-end scenario 3 ("Handler fetches
// cert, signs R1, replies trust_proof... V verifies signature... receives
// trust_verified") — there is no separate network hop for this handler to
// relay across. Caller must hold s.mu.
func (h *Handler) verifyTrustLocked(s *Session, challengeMsgID string, req TrustChallengePayload) models.MessageEnvelope {
	nonce := randomNonceHex()
	challengeID := uuid.NewString()
	h.challenges.put(challengeID, challengeRecord{
		Nonce:        nonce,
		Requirements: req.RequiredCapabilities,
		MinimumGrade: req.MinimumGrade,
		IssuedAt:     time.Now().UTC(),
	})

	target := s.Record.ResponderAgentID

	// Steps 3-5: fetch the target's active certificate and check it covers
	// the requested capabilities and grade.
	cert, ok := h.certificates.ActiveCertificateForAgent(target)
	if !ok {
		return h.trustFailed(s, challengeMsgID, "no active certificate", nil)
	}

	var missing []string
	for _, capability := range req.RequiredCapabilities {
		if !containsString(cert.CertifiedCapabilities, capability) {
			missing = append(missing, capability)
		}
	}
	if len(missing) > 0 {
		return h.trustFailed(s, challengeMsgID, "missing capabilities", missing)
	}
	if req.MinimumGrade != "" && !scoring.MeetsMinimumGrade(cert.Grade, req.MinimumGrade) {
		return h.trustFailed(s, challengeMsgID, "grade below minimum", nil)
	}

	// Step 6: sign the nonce with the target's own Ed25519 key.
	sig, err := h.keys.Sign(target, []byte(nonce))
	if err != nil {
		return h.trustFailed(s, challengeMsgID, "signing failed", nil)
	}

	// Steps 8-9: look up the challenge by id and verify the signature
	// against the target agent's registered public key.
	record, ok := h.challenges.take(challengeID)
	if !ok {
		return h.trustFailed(s, challengeMsgID, "challenge not found or expired", nil)
	}

	agent, err := h.agents.Get(target)
	if err != nil {
		return h.trustFailed(s, challengeMsgID, "unknown target agent", nil)
	}
	sigValid, err := keymanager.Verify(agent.PublicVerifyKeyHex, []byte(record.Nonce), sig)
	if err != nil || !sigValid {
		return h.trustFailed(s, challengeMsgID, "nonce signature invalid", nil)
	}
	if cert.Status != models.CertificateStatusActive {
		return h.trustFailed(s, challengeMsgID, "certificate not active", nil)
	}

	// Step 10: success.
	s.Record.AgreedCapabilities = cert.CertifiedCapabilities
	s.audit("trust_verified", cert.ID)

	return models.MessageEnvelope{
		MessageID:   uuid.NewString(),
		InReplyTo:   challengeMsgID,
		SessionID:   s.Record.ID,
		SenderID:    s.Record.ResponderAgentID,
		RecipientID: s.Record.InitiatorAgentID,
		Type:        models.MessageTypeTrustVerified,
		Timestamp:   time.Now().UTC(),
		Payload: encodePayload(TrustVerifiedPayload{
			CertificateID: cert.ID,
			Capabilities:  cert.CertifiedCapabilities,
			Grade:         cert.Grade,
		}),
	}
}

func (h *Handler) trustFailed(s *Session, inReplyTo, reason string, missing []string) models.MessageEnvelope {
	s.audit("trust_failed", reason)
	return models.MessageEnvelope{
		MessageID:   uuid.NewString(),
		InReplyTo:   inReplyTo,
		SessionID:   s.Record.ID,
		SenderID:    s.Record.ResponderAgentID,
		RecipientID: s.Record.InitiatorAgentID,
		Type:        models.MessageTypeTrustFailed,
		Timestamp:   time.Now().UTC(),
		Payload:     encodePayload(TrustFailedPayload{Reason: reason, Missing: missing}),
	}
}

func randomNonceHex() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
