package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Trace holds the schema definition for the Trace entity (spec §3/§4.4).
type Trace struct {
	ent.Schema
}

// Fields of the Trace.
func (Trace) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("agent_id"),
		field.String("thread_id").
			Optional().
			Nillable(),
		field.Enum("status").
			Values("open", "completed", "failed").
			Default("open"),
		field.Time("started_at").
			Default(time.Now),
		field.Time("ended_at").
			Optional().
			Nillable(),
		field.Int64("total_input_tokens").Default(0),
		field.Int64("total_output_tokens").Default(0),
		field.Int64("total_tokens").Default(0),
		field.Int("tool_call_count").Default(0),
		field.Int64("total_latency_ms").Default(0),
		field.JSON("metadata", map[string]interface{}{}).
			Optional(),
	}
}

// Edges of the Trace.
func (Trace) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("agent", Agent.Type).
			Ref("traces").
			Unique().
			Required(),
		edge.To("spans", Span.Type),
	}
}

// Indexes of the Trace.
func (Trace) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id"),
		index.Fields("thread_id"),
		index.Fields("status", "started_at"),
	}
}
