// Package schema resolves declarative entity definitions into flattened,
// immutable schema values and provides the live Entity instances that
// conform to them.
//
// Resolution happens once per definition: mixin properties are folded in
// ahead of the schema's own, entity-level metadata is checked, and the
// result owns a fully flattened property mapping. No schema hierarchy is
// traversed at query time.
package schema

import (
	"fmt"
	"reflect"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/schema/field"
)

// Kind distinguishes vertex schemas from relationship schemas.
type Kind uint8

// Possible schema kinds.
const (
	KindNode Kind = iota
	KindEdge
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	if k == KindEdge {
		return "edge"
	}
	return "node"
}

// DefaultDatabase is the database entities target when their configuration
// names none.
const DefaultDatabase = "default"

// Schema is a resolved, flattened entity schema. It is immutable once
// returned by Resolve and safe for concurrent use.
type Schema struct {
	Label          string              // entity label, defaults to the Go type name
	Kind           Kind                // vertex or relationship
	Database       string              // target database name
	Abstract       bool                // abstract schemas cannot be instantiated or matched
	PrimaryKey     string              // optional primary-key property
	Properties     []*field.Descriptor // properties in declaration order, mixins first
	UniqueTogether [][]string          // composite uniqueness tuples (advisory at compile time)
	Validators     []cypher.Validator  // entity-level validators in declaration order

	// Relationship endpoints; nil leaves the endpoint unconstrained.
	Source *Schema
	Target *Schema

	props map[string]*field.Descriptor
}

// Resolve flattens a node or edge definition into a Schema. It returns an
// error for anything that cannot produce a valid schema: builder errors
// recorded on a field, duplicate property names, a primary key naming a
// non-unique or unknown property, or index fields that do not exist.
func Resolve(def any) (*Schema, error) {
	switch def := def.(type) {
	case cypher.Edge:
		return resolveEdge(def)
	case cypher.Node:
		return resolveNode(def)
	default:
		return nil, fmt.Errorf("schema: %T is neither a node nor an edge definition", def)
	}
}

// MustResolve is like Resolve but panics on error. It is intended for
// package-level schema variables.
func MustResolve(def any) *Schema {
	s, err := Resolve(def)
	if err != nil {
		panic(err)
	}
	return s
}

func resolveNode(def cypher.Node) (*Schema, error) {
	return resolve(def, KindNode, def.Fields(), def.Mixin(), def.Indexes(), def.Validators(), def.Config())
}

func resolveEdge(def cypher.Edge) (*Schema, error) {
	s, err := resolve(def, KindEdge, def.Fields(), def.Mixin(), def.Indexes(), def.Validators(), def.Config())
	if err != nil {
		return nil, err
	}
	src, dst := def.Endpoints()
	if src != nil {
		if s.Source, err = resolveNode(src); err != nil {
			return nil, fmt.Errorf("schema: %s: source: %w", s.Label, err)
		}
	}
	if dst != nil {
		if s.Target, err = resolveNode(dst); err != nil {
			return nil, fmt.Errorf("schema: %s: target: %w", s.Label, err)
		}
	}
	return s, nil
}

func resolve(def any, kind Kind, fields []cypher.Field, mixin []cypher.Mixin, indexes []cypher.Index, validators []cypher.Validator, cfg cypher.Config) (*Schema, error) {
	label := cfg.Label
	if label == "" {
		t := reflect.TypeOf(def)
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		label = t.Name()
	}
	if label == "" {
		return nil, fmt.Errorf("schema: unnamed %s definition of type %T", kind, def)
	}
	db := cfg.Database
	if db == "" {
		db = DefaultDatabase
	}
	s := &Schema{
		Label:      label,
		Kind:       kind,
		Database:   db,
		Abstract:   cfg.Abstract,
		PrimaryKey: cfg.PrimaryKey,
		Validators: validators,
		props:      make(map[string]*field.Descriptor),
	}
	// Mixin properties and indexes come first, matching declaration order
	// semantics for flattened schemas.
	for _, m := range mixin {
		for _, f := range m.Fields() {
			if err := s.addProperty(f.Descriptor()); err != nil {
				return nil, err
			}
		}
		for _, ix := range m.Indexes() {
			if err := s.addIndex(ix.Descriptor().Fields, ix.Descriptor().Unique); err != nil {
				return nil, err
			}
		}
	}
	for _, f := range fields {
		if err := s.addProperty(f.Descriptor()); err != nil {
			return nil, err
		}
	}
	for _, ix := range indexes {
		if err := s.addIndex(ix.Descriptor().Fields, ix.Descriptor().Unique); err != nil {
			return nil, err
		}
	}
	if pk := s.PrimaryKey; pk != "" {
		d, ok := s.props[pk]
		if !ok {
			return nil, fmt.Errorf("schema: %s: primary key names unknown property %q", label, pk)
		}
		if !d.Unique {
			return nil, fmt.Errorf("schema: %s: primary key property %q must be unique", label, pk)
		}
	}
	return s, nil
}

func (s *Schema) addProperty(d *field.Descriptor) error {
	if d.Err != nil {
		return fmt.Errorf("schema: %s: %w", s.Label, d.Err)
	}
	if !d.Type.Valid() {
		return fmt.Errorf("schema: %s: field %q has an invalid type", s.Label, d.Name)
	}
	if _, ok := s.props[d.Name]; ok {
		return fmt.Errorf("schema: %s: duplicate property %q", s.Label, d.Name)
	}
	s.props[d.Name] = d
	s.Properties = append(s.Properties, d)
	return nil
}

func (s *Schema) addIndex(fields []string, unique bool) error {
	if len(fields) == 0 {
		return fmt.Errorf("schema: %s: index without fields", s.Label)
	}
	for _, name := range fields {
		if _, ok := s.props[name]; !ok {
			return fmt.Errorf("schema: %s: index references unknown property %q", s.Label, name)
		}
	}
	if unique {
		s.UniqueTogether = append(s.UniqueTogether, fields)
	}
	return nil
}

// Property returns the descriptor of the named property.
func (s *Schema) Property(name string) (*field.Descriptor, bool) {
	d, ok := s.props[name]
	return d, ok
}
