package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Certificate holds the schema definition for the Certificate entity
// (spec §3/§4.1). At most one certificate per agent may be active at a time;
// that invariant is enforced by internal/ca, not expressible as a schema
// constraint here.
type Certificate struct {
	ent.Schema
}

// Fields of the Certificate.
func (Certificate) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("agent_id"),
		field.String("source_evaluation_id"),
		field.Int("version").Default(1),
		field.String("grade"),
		field.Float("overall_score"),
		field.Float("capability_score").Optional().Nillable(),
		field.Float("safety_score").Optional().Nillable(),
		field.Float("reliability_score").Optional().Nillable(),
		field.Float("communication_score").Optional().Nillable(),
		field.JSON("certified_capabilities", []string{}),
		field.JSON("not_certified", []string{}).Optional(),
		field.JSON("safety_attestations", []interface{}{}).Optional(),
		field.Enum("status").
			Values("active", "expired", "revoked", "suspended").
			Default("active"),
		field.Time("issued_at").
			Default(time.Now).
			Immutable(),
		field.Time("expires_at"),
		field.Time("revoked_at").
			Optional().
			Nillable(),
		field.String("revocation_reason").
			Optional().
			Nillable(),
		field.String("issuer"),
		field.String("signature_hex").
			Immutable(),
	}
}

// Edges of the Certificate.
func (Certificate) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("agent", Agent.Type).
			Ref("certificates").
			Unique().
			Required(),
		edge.From("evaluation", Evaluation.Type).
			Ref("certificate").
			Unique(),
	}
}

// Indexes of the Certificate.
func (Certificate) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "status"),
		index.Fields("status", "expires_at"),
	}
}
