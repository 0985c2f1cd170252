package ca

import (
	"strconv"
	"strings"

	"github.com/trustfabric/agentca/internal/models"
)

// canonicalBody renders the signable body of a certificate as newline-joined
// key=value lines in a fixed field order (spec §4.1/§6), UTF-8, LF
// terminated. Floats are formatted with one decimal via strconv.FormatFloat
// so the representation is reproducible byte-for-byte regardless of the
// runtime or JSON library involved.
func canonicalBody(c *models.Certificate) []byte {
	var b strings.Builder

	writeLine := func(key, value string) {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
		b.WriteByte('\n')
	}

	writeLine("certificate_id", c.ID)
	writeLine("version", strconv.Itoa(c.Version))
	writeLine("agent_id", c.AgentID)
	writeLine("evaluation_id", c.SourceEvaluationID)
	writeLine("issued_at", c.IssuedAt.UTC().Format(canonicalTimeFormat))
	writeLine("expires_at", c.ExpiresAt.UTC().Format(canonicalTimeFormat))
	writeLine("grade", c.Grade)
	writeLine("overall_score", formatScore(&c.Scores.Overall))
	writeLine("capability_score", formatScore(c.Scores.Capability))
	writeLine("safety_score", formatScore(c.Scores.Safety))
	writeLine("reliability_score", formatScore(c.Scores.Reliability))
	writeLine("communication_score", formatScore(c.Scores.Communication))
	writeLine("certified_capabilities", strings.Join(c.CertifiedCapabilities, ","))
	writeLine("not_certified", strings.Join(c.NotCertified, ","))
	writeLine("safety_attestations", joinAttestations(c.SafetyAttestations))

	return []byte(b.String())
}

// canonicalTimeFormat is RFC 3339 UTC with no sub-second component, per
// spec §6's canonical signable body.
const canonicalTimeFormat = "2006-01-02T15:04:05Z"

func formatScore(v *float64) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// joinAttestations renders attestations in the order they already appear on
// the certificate; callers are responsible for building that slice in a
// deterministic order (internal/ca sorts by category when it builds a
// Certificate from a suite-result map).
func joinAttestations(attestations []models.SafetyAttestation) string {
	parts := make([]string, len(attestations))
	for i, a := range attestations {
		parts[i] = a.Category + ":" + strconv.FormatFloat(a.PassRate, 'f', 1, 64) + ":" + a.TestedAt.UTC().Format(canonicalTimeFormat)
	}
	return strings.Join(parts, ";")
}
