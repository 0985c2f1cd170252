package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TACPSession holds the schema definition for a Trust Agent Communication
// Protocol session (spec §4.5).
type TACPSession struct {
	ent.Schema
}

// Fields of the TACPSession.
func (TACPSession) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("initiator_agent_id"),
		field.String("responder_agent_id"),
		field.String("purpose"),
		field.Enum("status").
			Values("pending", "active", "ended", "rejected", "expired").
			Default("pending"),
		field.Int64("max_duration_ms"),
		field.Int("max_messages"),
		field.Int("max_tasks"),
		field.JSON("allowed_task_types", []string{}).
			Optional(),
		field.Enum("data_classification").
			Values("public", "internal", "confidential").
			Default("internal"),
		field.JSON("agreed_capabilities", []string{}).
			Optional(),
		field.Int("message_count").Default(0),
		field.Int("task_count").Default(0),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("activated_at").
			Optional().
			Nillable(),
		field.Time("ended_at").
			Optional().
			Nillable(),
		field.JSON("audit_log", []interface{}{}).
			Optional(),
	}
}

// Indexes of the TACPSession.
func (TACPSession) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("initiator_agent_id"),
		index.Fields("responder_agent_id"),
		index.Fields("status"),
	}
}
