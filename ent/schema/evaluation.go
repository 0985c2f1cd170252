package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Evaluation holds the schema definition for the EvaluationRun entity
// (spec §3/§4.2).
type Evaluation struct {
	ent.Schema
}

// Fields of the Evaluation.
func (Evaluation) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("agent_id"),
		field.JSON("requested_suites", []string{}),
		field.Int("trials_per_task").Default(1),
		field.Int("parallel").Default(5),
		field.Int64("timeout_ms").Default(60000),
		field.Enum("status").
			Values("pending", "running", "completed", "failed", "cancelled").
			Default("pending"),
		field.Float("overall_score").
			Optional().
			Nillable(),
		field.JSON("suite_scores", map[string]float64{}).
			Optional().
			Comment("suite name -> score, only present suites are keyed"),
		field.String("grade").
			Optional().
			Nillable(),
		field.Bool("certificate_eligible").Default(false),
		field.JSON("certified_capabilities", []string{}).
			Optional(),
		field.JSON("suite_results", map[string]interface{}{}).
			Optional().
			Comment("Suite -> SuiteResult tree, stored denormalised"),
		field.Time("created_at").
			Default(time.Now),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.String("error_message").
			Optional().
			Nillable(),
	}
}

// Edges of the Evaluation.
func (Evaluation) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("agent", Agent.Type).
			Ref("evaluations").
			Unique().
			Required(),
		edge.To("certificate", Certificate.Type).
			Unique(),
	}
}

// Indexes of the Evaluation.
func (Evaluation) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id"),
		index.Fields("status", "created_at"),
	}
}
