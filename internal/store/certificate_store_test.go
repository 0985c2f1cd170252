package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/models"
)

func TestCertificateStorePutTracksLatestActive(t *testing.T) {
	s := NewCertificateStore()

	first := &models.Certificate{ID: "cert-1", AgentID: "agent-1", Status: models.CertificateStatusActive}
	s.Put(first)

	active, ok := s.ActiveForAgent("agent-1")
	require.True(t, ok)
	assert.Equal(t, "cert-1", active.ID)

	// Put alone does not revoke the prior active certificate -- that is
	// internal/ca.Issue's job, via an explicit Revoke call with reason
	// "superseded" before Put is called for the new certificate.
	second := &models.Certificate{ID: "cert-2", AgentID: "agent-1", Status: models.CertificateStatusActive}
	s.Put(second)

	active, ok = s.ActiveForAgent("agent-1")
	require.True(t, ok)
	assert.Equal(t, "cert-2", active.ID)

	prev, err := s.Get("cert-1")
	require.NoError(t, err)
	assert.Equal(t, models.CertificateStatusActive, prev.Status)
}

func TestCertificateStoreRevokeClearsActiveAndDirtiesCRL(t *testing.T) {
	s := NewCertificateStore()
	s.Put(&models.Certificate{ID: "cert-1", AgentID: "agent-1", Status: models.CertificateStatusActive})

	_, dirty := s.CRL()
	assert.False(t, dirty, "CRL starts clean")

	err := s.Revoke(models.RevocationEntry{CertificateID: "cert-1", Reason: "compromised", RevokedAt: time.Now()})
	require.NoError(t, err)

	_, ok := s.ActiveForAgent("agent-1")
	assert.False(t, ok)

	entries, dirty := s.CRL()
	assert.True(t, dirty)
	require.Len(t, entries, 1)
	assert.Equal(t, "cert-1", entries[0].CertificateID)

	_, dirtyAgain := s.CRL()
	assert.False(t, dirtyAgain, "dirty flag resets after being read")
}

func TestCertificateStoreRevokeUnknownID(t *testing.T) {
	s := NewCertificateStore()
	err := s.Revoke(models.RevocationEntry{CertificateID: "missing"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
