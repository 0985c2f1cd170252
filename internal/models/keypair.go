package models

import "time"

// AgentKeypair records an agent's Ed25519 identity. The private key itself
// is never held in this struct — it is sealed on disk by internal/keymanager
// and referenced here by path only, mirroring the original CA's lazy
// per-agent key generation.
type AgentKeypair struct {
	AgentID      string    `json:"agent_id"`
	PublicKeyHex string    `json:"public_key_hex"`
	SealedKeyPath string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
