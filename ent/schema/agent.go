package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Agent holds the schema definition for the Agent entity.
//
// This schema is kept as declarative documentation of the data model (spec
// §3) and is not wired to a generated ent client; internal/store implements
// the actual repository against these same fields.
type Agent struct {
	ent.Schema
}

// Fields of the Agent.
func (Agent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("owner_organization_id").
			Comment("Tenant boundary; certificates and traces are scoped under it"),
		field.String("name"),
		field.JSON("declared_capabilities", []string{}).
			Optional().
			Comment("Self-asserted, never implicitly trusted"),
		field.String("public_verify_key_hex").
			Optional().
			Nillable(),
		field.Enum("status").
			Values("active", "inactive", "suspended").
			Default("active"),
		field.Time("created_at").
			Default(time.Now),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the Agent.
func (Agent) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("traces", Trace.Type),
		edge.To("evaluations", Evaluation.Type),
		edge.To("certificates", Certificate.Type),
	}
}

// Indexes of the Agent.
func (Agent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("owner_organization_id"),
		index.Fields("status"),
	}
}
