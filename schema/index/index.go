// Package index provides declarations for composite uniqueness over entity
// properties. Single-property uniqueness belongs on the field itself; this
// package covers constraints spanning several properties:
//
//	index.Fields("first_name", "last_name").
//	    Unique()
//
// Composite uniqueness is advisory at compile time only. The compiler
// validates what it can before emitting a statement, but true enforcement
// is delegated to the store's own constraints.
package index

// A Descriptor for an index over one or more properties.
type Descriptor struct {
	Fields []string // properties in declaration order
	Unique bool     // composite uniqueness constraint
}

// Builder for indexes on entity properties.
type Builder struct {
	desc *Descriptor
}

// Fields returns a new index builder over the given properties.
func Fields(fields ...string) *Builder {
	return &Builder{desc: &Descriptor{Fields: fields}}
}

// Unique marks the index as a composite uniqueness constraint.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	return b
}

// Descriptor implements the cypher.Index interface.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}
