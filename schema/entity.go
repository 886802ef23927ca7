package schema

import (
	"fmt"
	"slices"
	"sort"

	"github.com/syssam/cypher"
)

// Entity is a live, possibly-unpersisted value conforming to a Schema.
// A zero store identity means the entity is not yet known to exist in the
// store; hydration and successful creation set it.
type Entity struct {
	schema  *Schema
	values  map[string]any
	labels  []string // extra labels beyond the schema label
	storeID string
	src     *Entity // edge endpoints, nil for nodes
	dst     *Entity
}

// New instantiates a node entity with the given property values. Defaults
// are applied for properties not present in values; generator defaults are
// invoked here, once, so mutable defaults are never shared between
// instances. Unknown properties and type mismatches are rejected.
func (s *Schema) New(values map[string]any) (*Entity, error) {
	if s.Kind != KindNode {
		return nil, fmt.Errorf("schema: %s is an edge schema, use Connect", s.Label)
	}
	return s.instantiate(values)
}

// Connect instantiates an edge entity between src and dst with the given
// property values. Endpoint schemas are checked against the edge's declared
// endpoints when those are constrained.
func (s *Schema) Connect(src, dst *Entity, values map[string]any) (*Entity, error) {
	if s.Kind != KindEdge {
		return nil, fmt.Errorf("schema: %s is a node schema, use New", s.Label)
	}
	if src == nil || dst == nil {
		return nil, fmt.Errorf("schema: %s requires both endpoints", s.Label)
	}
	if s.Source != nil && src.schema.Label != s.Source.Label {
		return nil, cypher.NewSchemaMismatchError("source", s.Source.Label, src.schema.Label)
	}
	if s.Target != nil && dst.schema.Label != s.Target.Label {
		return nil, cypher.NewSchemaMismatchError("target", s.Target.Label, dst.schema.Label)
	}
	e, err := s.instantiate(values)
	if err != nil {
		return nil, err
	}
	e.src, e.dst = src, dst
	return e, nil
}

func (s *Schema) instantiate(values map[string]any) (*Entity, error) {
	if s.Abstract {
		return nil, fmt.Errorf("schema: %s is abstract and cannot be instantiated", s.Label)
	}
	e := &Entity{schema: s, values: make(map[string]any, len(s.Properties))}
	for name, v := range values {
		if err := e.Set(name, v); err != nil {
			return nil, err
		}
	}
	for _, d := range s.Properties {
		if _, ok := e.values[d.Name]; ok {
			continue
		}
		if v, ok := d.DefaultValue(); ok {
			e.values[d.Name] = v
		}
	}
	return e, nil
}

// Schema returns the resolved schema of the entity.
func (e *Entity) Schema() *Schema {
	return e.schema
}

// Get returns the value of the named property.
func (e *Entity) Get(name string) (any, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Set assigns a value to the named property. The property must be declared
// on the schema and the value must match its type; nil clears an optional
// property.
func (e *Entity) Set(name string, v any) error {
	d, ok := e.schema.Property(name)
	if !ok {
		return fmt.Errorf("schema: %s has no property %q", e.schema.Label, name)
	}
	if v == nil {
		if !d.Optional {
			return fmt.Errorf("schema: %s.%s is not nullable", e.schema.Label, name)
		}
		delete(e.values, name)
		return nil
	}
	if !d.Type.Accepts(v) {
		return fmt.Errorf("schema: cannot assign %T to %s.%s (%s)", v, e.schema.Label, name, d.Type)
	}
	e.values[name] = v
	return nil
}

// Values returns a copy of the entity's current property values.
func (e *Entity) Values() map[string]any {
	m := make(map[string]any, len(e.values))
	for k, v := range e.values {
		m[k] = v
	}
	return m
}

// StoreID returns the store identity of the entity, or the empty string if
// the entity was never persisted or hydrated.
func (e *Entity) StoreID() string {
	return e.storeID
}

// Persisted reports whether the entity carries a store identity.
func (e *Entity) Persisted() bool {
	return e.storeID != ""
}

// SetStoreID records the store identity, typically after hydration or a
// successful create.
func (e *Entity) SetStoreID(id string) {
	e.storeID = id
}

// Source returns the source endpoint of an edge entity, nil for nodes.
func (e *Entity) Source() *Entity {
	return e.src
}

// Target returns the target endpoint of an edge entity, nil for nodes.
func (e *Entity) Target() *Entity {
	return e.dst
}

// AddLabels attaches extra labels to the entity beyond its schema label.
// Labels are deduplicated; the schema label is always implied and cannot
// be removed.
func (e *Entity) AddLabels(labels ...string) error {
	for _, l := range labels {
		if l == "" {
			return fmt.Errorf("schema: empty label on %s", e.schema.Label)
		}
		if l == e.schema.Label || slices.Contains(e.labels, l) {
			continue
		}
		e.labels = append(e.labels, l)
	}
	return nil
}

// Labels returns all labels of the entity: the schema label first, then any
// extra labels in sorted order.
func (e *Entity) Labels() []string {
	extra := slices.Clone(e.labels)
	sort.Strings(extra)
	return append([]string{e.schema.Label}, extra...)
}
