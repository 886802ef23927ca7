// Package mixin provides reusable field sets for entity schemas.
//
// A mixin contributes its fields and indexes to every schema that lists it:
//
//	func (User) Mixin() []cypher.Mixin {
//	    return []cypher.Mixin{
//	        mixin.Time{}, // created_at, updated_at
//	    }
//	}
//
// Custom mixins embed Schema and override the methods they need.
package mixin

import (
	"time"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/schema/field"
)

// Schema is the default implementation for the cypher.Mixin interface.
// It should be embedded in all custom mixin definitions.
type Schema struct{}

// Fields of the mixin. Defaults to none.
func (Schema) Fields() []cypher.Field { return nil }

// Indexes of the mixin. Defaults to none.
func (Schema) Indexes() []cypher.Index { return nil }

// Time adds created_at and updated_at properties.
type Time struct {
	Schema
}

// Fields of the time mixin.
func (Time) Fields() []cypher.Field {
	return []cypher.Field{
		field.Time("created_at").
			Default(time.Now),
		field.Time("updated_at").
			Default(time.Now),
	}
}

// CreateTime adds only a created_at property.
type CreateTime struct {
	Schema
}

// Fields of the create-time mixin.
func (CreateTime) Fields() []cypher.Field {
	return []cypher.Field{
		field.Time("created_at").
			Default(time.Now),
	}
}
