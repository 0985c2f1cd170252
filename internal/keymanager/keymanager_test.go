package keymanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureKeypairIsIdempotent(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)

	pub1, err := m.EnsureKeypair("agent-1")
	require.NoError(t, err)

	pub2, err := m.EnsureKeypair("agent-1")
	require.NoError(t, err)

	assert.Equal(t, pub1, pub2, "generating twice must return the same keypair")
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)

	data := []byte("issuer=agentca\nagent_id=agent-1")
	sig, err := m.Sign("agent-1", data)
	require.NoError(t, err)

	pubHex, err := m.PublicKeyHex("agent-1")
	require.NoError(t, err)

	valid, err := Verify(pubHex, data, sig)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = Verify(pubHex, []byte("tampered"), sig)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyRejectsMalformedKey(t *testing.T) {
	_, err := Verify("not-hex", []byte("data"), []byte("sig"))
	assert.Error(t, err)
}

func TestKeypairPersistsAcrossManagers(t *testing.T) {
	dir := t.TempDir()

	m1, err := New(dir)
	require.NoError(t, err)
	pub1, err := m1.EnsureKeypair("agent-1")
	require.NoError(t, err)

	m2, err := New(dir)
	require.NoError(t, err)
	pub2, err := m2.EnsureKeypair("agent-1")
	require.NoError(t, err)

	assert.Equal(t, pub1, pub2, "keypair must be reloaded from disk, not regenerated")
}
