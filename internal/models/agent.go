// Package models holds the domain structs of the trust infrastructure
// service (spec §3), one small file per entity in the manner of the
// teacher's pkg/models package.
package models

import "time"

// AgentStatus is the lifecycle status of a registered agent.
type AgentStatus string

const (
	AgentStatusActive    AgentStatus = "active"
	AgentStatusInactive  AgentStatus = "inactive"
	AgentStatusSuspended AgentStatus = "suspended"
)

// Agent is an autonomous software actor registered under an organisation.
// Declared capabilities are self-asserted and never implicitly trusted.
type Agent struct {
	ID                  string      `json:"id"`
	OwnerOrganizationID string      `json:"owner_organization_id"`
	Name                string      `json:"name"`
	DeclaredCapabilities []string   `json:"declared_capabilities"`
	PublicVerifyKeyHex  string      `json:"public_verify_key_hex,omitempty"`
	Status              AgentStatus `json:"status"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// HasCapability reports whether the agent self-declared the given capability.
func (a *Agent) HasCapability(capability string) bool {
	for _, c := range a.DeclaredCapabilities {
		if c == capability {
			return true
		}
	}
	return false
}
