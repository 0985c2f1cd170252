// Package keymanager seals and loads Ed25519 key material for the
// certificate authority and for individual agents, grounded on the
// original CertificateAuthority's lazy load-or-create key handling
// (authority.py) translated into Go's crypto/ed25519.
package keymanager

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/trustfabric/agentca/internal/apperr"
)

// Manager seals and serves Ed25519 keypairs from a directory on disk,
// caching loaded private keys in memory so repeated Sign calls don't
// re-read the filesystem.
type Manager struct {
	dir string

	mu    sync.RWMutex
	cache map[string]ed25519.PrivateKey
}

// New creates a Manager rooted at dir, creating the directory if absent.
func New(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	return &Manager{dir: dir, cache: make(map[string]ed25519.PrivateKey)}, nil
}

func (m *Manager) keyPath(id string) string {
	return filepath.Join(m.dir, id+".key")
}

// EnsureKeypair loads the sealed private key for id, generating and sealing
// a fresh one on first use (mirrors the original CA's "load or create"
// behaviour, generalised from a single root key to any id).
func (m *Manager) EnsureKeypair(id string) (ed25519.PublicKey, error) {
	m.mu.RLock()
	if priv, ok := m.cache[id]; ok {
		m.mu.RUnlock()
		return priv.Public().(ed25519.PublicKey), nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if priv, ok := m.cache[id]; ok {
		return priv.Public().(ed25519.PublicKey), nil
	}

	path := m.keyPath(id)
	raw, err := os.ReadFile(path)
	if err == nil {
		priv := ed25519.PrivateKey(raw)
		if len(priv) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("sealed key at %s has wrong length", path)
		}
		m.cache[id] = priv
		return priv.Public().(ed25519.PublicKey), nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read sealed key: %w", err)
	}

	slog.Info("generating new keypair", "id", id)
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	if err := os.WriteFile(path, priv, 0o600); err != nil {
		return nil, fmt.Errorf("seal private key: %w", err)
	}
	m.cache[id] = priv
	_ = pub
	return priv.Public().(ed25519.PublicKey), nil
}

// Sign signs data with id's private key, loading/generating it first via
// EnsureKeypair if needed.
func (m *Manager) Sign(id string, data []byte) ([]byte, error) {
	if _, err := m.EnsureKeypair(id); err != nil {
		return nil, err
	}
	m.mu.RLock()
	priv := m.cache[id]
	m.mu.RUnlock()
	return ed25519.Sign(priv, data), nil
}

// PublicKeyHex returns id's public key as lowercase hex, generating the
// keypair first if it does not exist yet.
func (m *Manager) PublicKeyHex(id string) (string, error) {
	pub, err := m.EnsureKeypair(id)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(pub), nil
}

// Verify checks sig against data using the raw hex-encoded public key,
// independent of any key this Manager seals itself — used to verify
// third-party (agent) signatures against their registered public key.
func Verify(publicKeyHex string, data, sig []byte) (bool, error) {
	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false, apperr.New(apperr.KindInvalidArgument, "malformed public key hex", nil)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, apperr.New(apperr.KindInvalidArgument, "public key has wrong length", nil)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), data, sig), nil
}
