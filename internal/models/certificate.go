package models

import "time"

// CertificateStatus is the lifecycle status of an issued certificate
// (spec §4.1).
type CertificateStatus string

const (
	CertificateStatusActive   CertificateStatus = "active"
	CertificateStatusExpired  CertificateStatus = "expired"
	CertificateStatusRevoked  CertificateStatus = "revoked"
	CertificateStatusSuspended CertificateStatus = "suspended"
)

// ScoreBreakdown carries the overall score plus each suite's score at the
// time of issuance, frozen into the certificate body.
type ScoreBreakdown struct {
	Overall       float64            `json:"overall"`
	Capability    *float64           `json:"capability,omitempty"`
	Safety        *float64           `json:"safety,omitempty"`
	Reliability   *float64           `json:"reliability,omitempty"`
	Communication *float64           `json:"communication,omitempty"`
}

// SafetyAttestation records one safety category's pass rate at issuance time,
// so a verifier can see what was actually tested without re-running an eval.
type SafetyAttestation struct {
	Category string    `json:"category"`
	PassRate float64   `json:"pass_rate"`
	TestedAt time.Time `json:"tested_at"`
}

// Certificate is a signed, Ed25519-verifiable attestation of an agent's
// evaluated trustworthiness (spec §3/§4.1).
type Certificate struct {
	ID                    string              `json:"id"`
	AgentID               string              `json:"agent_id"`
	SourceEvaluationID    string              `json:"source_evaluation_id"`
	Version               int                 `json:"version"`
	Grade                  string              `json:"grade"`
	Scores                ScoreBreakdown       `json:"scores"`
	CertifiedCapabilities []string            `json:"certified_capabilities"`
	NotCertified          []string            `json:"not_certified,omitempty"`
	SafetyAttestations    []SafetyAttestation `json:"safety_attestations,omitempty"`
	Status                CertificateStatus   `json:"status"`
	IssuedAt              time.Time           `json:"issued_at"`
	ExpiresAt             time.Time           `json:"expires_at"`
	RevokedAt             *time.Time          `json:"revoked_at,omitempty"`
	RevocationReason      string              `json:"revocation_reason,omitempty"`
	Issuer                string              `json:"issuer"`
	SignatureHex          string              `json:"signature_hex"`
}

// IsExpired reports whether now is past the certificate's expiry, regardless
// of the stored Status (verification recomputes this lazily, spec §9).
func (c *Certificate) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// RevocationEntry is one row of the certificate revocation list (spec §4.1).
type RevocationEntry struct {
	CertificateID string    `json:"certificate_id"`
	Reason        string    `json:"reason"`
	RevokedAt     time.Time `json:"revoked_at"`
	Actor         string    `json:"actor,omitempty"`
}

// VerificationResult is the structured outcome of verifying a certificate
// (spec §4.1): each check is reported independently so a caller can tell
// exactly why a certificate failed verification.
type VerificationResult struct {
	SignatureValid bool   `json:"signature_valid"`
	NotExpired     bool   `json:"not_expired"`
	NotRevoked     bool   `json:"not_revoked"`
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
}
