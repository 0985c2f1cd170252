package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Span holds the schema definition for the Span entity (spec §3/§4.4).
type Span struct {
	ent.Schema
}

// Fields of the Span.
func (Span) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("trace_id"),
		field.String("parent_span_id").
			Optional().
			Nillable(),
		field.Enum("kind").
			Values("LLM call", "tool call", "agent action", "decision", "file op", "API call", "custom"),
		field.String("name"),
		field.Time("started_at").
			Default(time.Now),
		field.Time("ended_at").
			Optional().
			Nillable(),
		field.Enum("status").
			Values("ok", "error", "cancelled").
			Default("ok"),
		field.JSON("attributes", map[string]interface{}{}).
			Optional(),
		field.String("model").
			Optional().
			Nillable(),
		field.String("tool_name").
			Optional().
			Nillable(),
		field.JSON("tool_input", map[string]interface{}{}).
			Optional(),
		field.JSON("tool_output", interface{}(nil)).
			Optional(),
		field.String("error_type").
			Optional().
			Nillable(),
		field.String("error_message").
			Optional().
			Nillable(),
		field.Int64("input_tokens").Default(0),
		field.Int64("output_tokens").Default(0),
		field.Int64("total_tokens").Default(0),
		field.Int64("latency_ms").Default(0),
	}
}

// Edges of the Span.
func (Span) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("trace", Trace.Type).
			Ref("spans").
			Unique().
			Required(),
	}
}

// Indexes of the Span.
func (Span) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("trace_id", "started_at"),
		index.Fields("parent_span_id"),
		index.Fields("kind"),
	}
}
