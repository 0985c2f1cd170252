package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// RevocationEntry holds the schema definition for one row of the
// certificate revocation list (spec §4.1), kept separate from Certificate
// so the CRL can be served as a flat, append-only list.
type RevocationEntry struct {
	ent.Schema
}

// Fields of the RevocationEntry.
func (RevocationEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("certificate_id").
			Unique().
			Immutable(),
		field.String("reason"),
		field.Time("revoked_at").
			Default(time.Now).
			Immutable(),
		field.String("actor").
			Optional().
			Nillable(),
	}
}

// Indexes of the RevocationEntry.
func (RevocationEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("revoked_at"),
	}
}
