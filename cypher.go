// Package cypher provides a declarative modeling and query-building layer
// for graph databases speaking the Cypher query language.
//
// Graph entities are declared as Go types embedding cypher.Schema (vertices)
// or cypher.Relation (relationships), queries are composed through a fluent
// chain in the query package, and the compiler package turns finished chains
// into parameterized Cypher statements executed through a dialect.Driver.
package cypher

import (
	"github.com/syssam/cypher/schema/field"
	"github.com/syssam/cypher/schema/index"
)

// Field is the interface implemented by the builders in schema/field.
// A schema's Fields method returns the properties of the entity.
type Field interface {
	Descriptor() *field.Descriptor
}

// Index is the interface implemented by the builders in schema/index.
// A schema's Indexes method declares composite uniqueness over properties.
type Index interface {
	Descriptor() *index.Descriptor
}

// Validator is an entity-level validation rule. It receives the full
// property map of an instance and reports the first constraint it finds
// violated. Validators run in declaration order after all per-property
// validators have passed.
type Validator func(values map[string]any) error

// Mixin is a reusable set of fields and indexes shared between schemas.
type Mixin interface {
	Fields() []Field
	Indexes() []Index
}

// Config holds entity-level metadata for a schema.
type Config struct {
	// Label overrides the entity label derived from the Go type name.
	Label string

	// Database names the target database for this entity. An empty value
	// means the default database.
	Database string

	// PrimaryKey names the property used as the entity's primary key.
	// The named property must be declared Unique.
	PrimaryKey string

	// Abstract schemas only contribute fields and validators to other
	// schemas that embed them; they cannot be instantiated or matched.
	Abstract bool
}

// Node is the interface implemented by all vertex schema definitions.
// Embed Schema to get default implementations for the optional methods:
//
//	type User struct {
//	    cypher.Schema
//	}
//
//	func (User) Fields() []cypher.Field {
//	    return []cypher.Field{
//	        field.String("email").Unique(),
//	        field.String("password"),
//	    }
//	}
type Node interface {
	Fields() []Field
	Mixin() []Mixin
	Indexes() []Index
	Validators() []Validator
	Config() Config

	node()
}

// Edge is the interface implemented by all relationship schema definitions.
// Embed Relation to get default implementations. Endpoints declares the
// source and target vertex schemas; a nil endpoint leaves it unconstrained.
//
//	type Knows struct {
//	    cypher.Relation
//	}
//
//	func (Knows) Endpoints() (source, target cypher.Node) {
//	    return User{}, User{}
//	}
type Edge interface {
	Fields() []Field
	Mixin() []Mixin
	Indexes() []Index
	Validators() []Validator
	Config() Config

	// Endpoints returns the source and target vertex schemas.
	Endpoints() (source, target Node)

	edge()
}

// Schema is the default implementation of the optional Node methods.
// All vertex schema definitions should embed it.
type Schema struct{}

// Fields of the schema. Defaults to none.
func (Schema) Fields() []Field { return nil }

// Mixin of the schema. Defaults to none.
func (Schema) Mixin() []Mixin { return nil }

// Indexes of the schema. Defaults to none.
func (Schema) Indexes() []Index { return nil }

// Validators of the schema. Defaults to none.
func (Schema) Validators() []Validator { return nil }

// Config of the schema. Defaults to the zero configuration.
func (Schema) Config() Config { return Config{} }

func (Schema) node() {}

// Relation is the default implementation of the optional Edge methods.
// All relationship schema definitions should embed it.
type Relation struct{}

// Fields of the relation. Defaults to none.
func (Relation) Fields() []Field { return nil }

// Mixin of the relation. Defaults to none.
func (Relation) Mixin() []Mixin { return nil }

// Indexes of the relation. Defaults to none.
func (Relation) Indexes() []Index { return nil }

// Validators of the relation. Defaults to none.
func (Relation) Validators() []Validator { return nil }

// Config of the relation. Defaults to the zero configuration.
func (Relation) Config() Config { return Config{} }

// Endpoints of the relation. Defaults to unconstrained endpoints.
func (Relation) Endpoints() (source, target Node) { return nil, nil }

func (Relation) edge() {}
