// Package ca implements the Certificate Authority and Certificate
// Lifecycle (spec §4.1): a single logical signing root, canonicalised
// certificate bodies, and issue/get/verify/revoke/list/get_chain/crl
// operations, grounded on the original CertificateAuthority (authority.py)
// and RevocationIndex (revocation.py).
package ca

import (
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/keymanager"
	"github.com/trustfabric/agentca/internal/metrics"
	"github.com/trustfabric/agentca/internal/models"
	"github.com/trustfabric/agentca/internal/store"
)

// issuerKeyID is the key manager id under which the CA's own root keypair
// is sealed; distinct from any per-agent id namespace.
const issuerKeyID = "agentca-root"

// CA is the single logical certificate authority. It holds one signing
// keypair (spec §2: "holds one signing keypair") and mediates every
// certificate lifecycle operation against the certificate and evaluation
// stores.
type CA struct {
	keys        *keymanager.Manager
	certs       *store.CertificateStore
	evaluations *store.EvaluationStore
	issuer      string

	mu         sync.Mutex
	crlCache   []models.RevocationEntry
	crlUpdated time.Time
}

// New builds a CA. issuer is the human-readable issuer reference recorded on
// every certificate (e.g. "agentca-root-v1").
func New(keys *keymanager.Manager, certs *store.CertificateStore, evaluations *store.EvaluationStore, issuer string) *CA {
	return &CA{keys: keys, certs: certs, evaluations: evaluations, issuer: issuer}
}

// PublicKeyHex returns the CA's own public verification key, generating its
// root keypair on first use.
func (c *CA) PublicKeyHex() (string, error) {
	return c.keys.PublicKeyHex(issuerKeyID)
}

// Issue creates a new certificate from a completed, eligible evaluation
// (spec §4.1).
func (c *CA) Issue(agentID, evaluationID string, validity time.Duration) (*models.Certificate, error) {
	eval, err := c.evaluations.Get(evaluationID)
	if err != nil {
		return nil, err
	}
	if eval.AgentID != agentID {
		return nil, apperr.ErrWrongAgent
	}
	if eval.Status != models.EvaluationStatusCompleted {
		return nil, apperr.New(apperr.KindPreconditionFailed, "evaluation is not completed", map[string]any{"status": eval.Status})
	}
	if !eval.CertificateEligible {
		return nil, apperr.ErrNotEligible
	}

	certified, notCertified := deriveCapabilities(eval)
	attestations := deriveSafetyAttestations(eval)

	now := time.Now().UTC()
	cert := &models.Certificate{
		ID:                    uuid.NewString(),
		AgentID:               agentID,
		SourceEvaluationID:    evaluationID,
		Version:               1,
		Grade:                 eval.Grade,
		Scores:                scoreBreakdownOf(eval),
		CertifiedCapabilities: certified,
		NotCertified:          notCertified,
		SafetyAttestations:    attestations,
		Status:                models.CertificateStatusActive,
		IssuedAt:              now,
		ExpiresAt:             now.Add(validity),
		Issuer:                c.issuer,
	}

	// Supersede any previously active certificate for this agent before
	// creating the new one (spec §4.1: "atomically revoke all currently-active
	// certificates of the same agent with reason `superseded`").
	if prev, ok := c.certs.ActiveForAgent(agentID); ok {
		if err := c.certs.Revoke(models.RevocationEntry{
			CertificateID: prev.ID,
			Reason:        "superseded",
			RevokedAt:     now,
		}); err != nil {
			return nil, fmt.Errorf("supersede previous certificate: %w", err)
		}
	}

	sig, err := c.keys.Sign(issuerKeyID, canonicalBody(cert))
	if err != nil {
		return nil, fmt.Errorf("sign certificate body: %w", err)
	}
	cert.SignatureHex = fmt.Sprintf("%x", sig)

	c.certs.Put(cert)
	metrics.RecordCertificateIssued(cert.Grade)
	return cert, nil
}

// Get looks up a certificate by id.
func (c *CA) Get(id string) (*models.Certificate, error) {
	return c.certs.Get(id)
}

// ActiveCertificateForAgent returns the certificate currently marked active
// for agentID, if any. Used by the trust handshake (spec §4.5 step 3) to
// resolve a target agent's current capabilities and grade.
func (c *CA) ActiveCertificateForAgent(agentID string) (*models.Certificate, bool) {
	return c.certs.ActiveForAgent(agentID)
}

// SweepExpiredCertificates transitions every active certificate whose expiry
// has passed to expired, for internal/worker's periodic sweep. Verify itself
// deliberately never mutates stored status (spec §9), so expiry only
// actually lands in storage here.
func (c *CA) SweepExpiredCertificates(now time.Time) []string {
	return c.certs.ExpireOverdue(now)
}

// Verify re-canonicalises the stored body, checks the signature against the
// CA's public key, and reports expiry/revocation independently without
// mutating stored status (spec §4.1: "do not mutate stored status within
// verify").
func (c *CA) Verify(id string) (*models.VerificationResult, error) {
	cert, err := c.certs.Get(id)
	if err != nil {
		return nil, err
	}

	pubHex, err := c.PublicKeyHex()
	if err != nil {
		return nil, err
	}

	sig, err := hex.DecodeString(cert.SignatureHex)
	if err != nil {
		return &models.VerificationResult{Reason: "malformed signature"}, nil
	}
	sigValid, err := keymanager.Verify(pubHex, canonicalBody(cert), sig)
	if err != nil {
		return &models.VerificationResult{Reason: err.Error()}, nil
	}

	notExpired := !cert.IsExpired(time.Now().UTC())
	notRevoked := cert.Status != models.CertificateStatusRevoked

	result := &models.VerificationResult{
		SignatureValid: sigValid,
		NotExpired:     notExpired,
		NotRevoked:     notRevoked,
	}
	result.Valid = sigValid && notExpired && notRevoked
	if !result.Valid {
		result.Reason = verificationFailureReason(sigValid, notExpired, notRevoked)
	}
	return result, nil
}

func verificationFailureReason(sigValid, notExpired, notRevoked bool) string {
	switch {
	case !sigValid:
		return "signature does not match canonical body"
	case !notExpired:
		return "certificate has expired"
	case !notRevoked:
		return "certificate has been revoked"
	default:
		return ""
	}
}

// Revoke flips a certificate to revoked, idempotently: revoking an
// already-revoked certificate returns the existing record unchanged
// (spec §4.1).
func (c *CA) Revoke(id, reason, actor string) (*models.Certificate, error) {
	cert, err := c.certs.Get(id)
	if err != nil {
		return nil, err
	}
	if cert.Status == models.CertificateStatusRevoked {
		return cert, nil
	}

	if err := c.certs.Revoke(models.RevocationEntry{
		CertificateID: id,
		Reason:        reason,
		RevokedAt:     time.Now().UTC(),
		Actor:         actor,
	}); err != nil {
		return nil, err
	}
	return c.certs.Get(id)
}

// ListFilter narrows a List call (spec §4.1: "by agent, by status,
// paginated").
type ListFilter struct {
	AgentID string
	Status  models.CertificateStatus
	Offset  int
	Limit   int
}

// List returns certificates matching filter, newest-issued first.
func (c *CA) List(filter ListFilter) []*models.Certificate {
	var all []*models.Certificate
	if filter.AgentID != "" {
		all = c.certs.ListByAgent(filter.AgentID)
	} else {
		all = c.certs.ListAll()
	}

	filtered := all[:0:0]
	for _, cert := range all {
		if filter.Status != "" && cert.Status != filter.Status {
			continue
		}
		filtered = append(filtered, cert)
	}

	if filter.Offset >= len(filtered) {
		return []*models.Certificate{}
	}
	end := len(filtered)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return filtered[filter.Offset:end]
}

// CertificateChain is the response to get_chain: the certificate plus
// enough of the issuer's public key material to verify it offline.
type CertificateChain struct {
	Certificate     *models.Certificate
	IssuerPublicKey string
	Issuer          string
}

// GetChain returns id's certificate alongside the CA's public key.
func (c *CA) GetChain(id string) (*CertificateChain, error) {
	cert, err := c.certs.Get(id)
	if err != nil {
		return nil, err
	}
	pubHex, err := c.PublicKeyHex()
	if err != nil {
		return nil, err
	}
	return &CertificateChain{Certificate: cert, IssuerPublicKey: pubHex, Issuer: c.issuer}, nil
}

// CRLSnapshot is the response to crl(): spec §4.1's {updated_at, entries}.
type CRLSnapshot struct {
	UpdatedAt time.Time
	Entries   []models.RevocationEntry
}

// CRL returns the full revocation list, memoizing the snapshot and only
// advancing UpdatedAt when the underlying store reports a change (spec §9:
// "an implementation may cache").
func (c *CA) CRL() CRLSnapshot {
	entries, dirty := c.certs.CRL()

	c.mu.Lock()
	defer c.mu.Unlock()
	if dirty || c.crlUpdated.IsZero() {
		c.crlCache = entries
		c.crlUpdated = time.Now().UTC()
	}
	out := make([]models.RevocationEntry, len(c.crlCache))
	copy(out, c.crlCache)
	return CRLSnapshot{UpdatedAt: c.crlUpdated, Entries: out}
}

func scoreBreakdownOf(eval *models.EvaluationRun) models.ScoreBreakdown {
	overall := 0.0
	if eval.OverallScore != nil {
		overall = *eval.OverallScore
	}
	return models.ScoreBreakdown{
		Overall:       overall,
		Capability:    eval.SuiteScores[models.SuiteCapability],
		Safety:        eval.SuiteScores[models.SuiteSafety],
		Reliability:   eval.SuiteScores[models.SuiteReliability],
		Communication: eval.SuiteScores[models.SuiteCommunication],
	}
}

// deriveCapabilities walks the capability suite's test results and splits
// task ids with a registered capability label into certified (score >= 70)
// and not-certified (score < 70) lists (spec §4.1). Categories are visited in
// sorted name order and each category's results in their recorded order, so
// the lists are deterministic; they do not follow the task bank's
// registration order across categories.
func deriveCapabilities(eval *models.EvaluationRun) (certified, notCertified []string) {
	result, ok := eval.SuiteResults[models.SuiteCapability]
	if !ok {
		return nil, nil
	}

	categoryNames := make([]string, 0, len(result.Categories))
	for name := range result.Categories {
		categoryNames = append(categoryNames, name)
	}
	sort.Strings(categoryNames)

	for _, name := range categoryNames {
		for _, test := range result.Categories[name].Results {
			label, ok := CapabilityLabelFor(test.TaskID)
			if !ok {
				continue
			}
			if test.Score >= 70 {
				certified = append(certified, label)
			} else {
				notCertified = append(notCertified, label)
			}
		}
	}
	return certified, notCertified
}

// deriveSafetyAttestations summarises each safety category's pass rate at
// issuance time, sorted by category name for deterministic canonicalisation.
func deriveSafetyAttestations(eval *models.EvaluationRun) []models.SafetyAttestation {
	result, ok := eval.SuiteResults[models.SuiteSafety]
	if !ok {
		return nil
	}

	names := make([]string, 0, len(result.Categories))
	for name := range result.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now().UTC()
	attestations := make([]models.SafetyAttestation, 0, len(names))
	for _, name := range names {
		cat := result.Categories[name]
		passed := 0
		for _, r := range cat.Results {
			if r.Passed {
				passed++
			}
		}
		rate := 0.0
		if len(cat.Results) > 0 {
			rate = float64(passed) / float64(len(cat.Results)) * 100
		}
		attestations = append(attestations, models.SafetyAttestation{
			Category: name,
			PassRate: rate,
			TestedAt: now,
		})
	}
	return attestations
}
