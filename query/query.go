// Package query builds graph queries through a fluent, chainable API.
//
// A chain starts from New and moves through pattern-building and write
// calls whose legal order is enforced by an internal state machine:
//
//	spec, err := query.New().
//	    Match(User{}).As("u").
//	    Where(query.EQ("email", "a@x.com")).
//	    ConnectedThrough(Knows{}).Hops(1, 2).
//	    To(User{}).
//	    Result("u")
//
// No compilation happens until a terminal call (Result, Discard or Delete);
// the terminal call returns the finished Spec together with the first error
// recorded anywhere on the chain, so a malformed query is always reported
// before any statement can be emitted.
package query

import (
	"fmt"
	"strings"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/schema"
)

// state is the phase of a chain.
type state uint8

const (
	stateEmpty state = iota
	stateMatching
	stateTraversing
	stateWriting
	stateTerminated
)

var stateNames = [...]string{
	stateEmpty:      "empty",
	stateMatching:   "matching",
	stateTraversing: "traversing",
	stateWriting:    "writing",
	stateTerminated: "terminated",
}

// legal lists the state-transitioning calls allowed in each phase, used to
// build SequenceError messages. Modifiers (As, Hops, Distinct) are not
// listed; they keep the phase unchanged.
var legal = map[state][]string{
	stateEmpty:      {"Match", "Create", "Update"},
	stateMatching:   {"Match", "Where", "ConnectedThrough", "Create", "Update", "Delete", "Result", "Discard"},
	stateTraversing: {"To", "By", "With"},
	stateWriting:    {"Create", "Update", "Delete", "Result", "Discard"},
	stateTerminated: nil,
}

// Builder accumulates one query chain. It is not safe for concurrent use;
// a chain is owned by the caller building it.
type Builder struct {
	spec      Spec
	state     state
	err       error
	aliases   map[string]bool // caller-given aliases
	last      Elem            // most recently introduced element
	component int             // current connected component
	pending   int             // edge awaiting its far endpoint, -1 otherwise
}

// New returns an empty query chain.
func New() *Builder {
	return &Builder{aliases: make(map[string]bool), pending: -1}
}

// fail records the first error on the chain and poisons it: subsequent
// calls become no-ops and the terminal call reports the error.
func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// check enforces the chain grammar for op against the allowed phases.
func (b *Builder) check(op string, allowed ...state) bool {
	if b.err != nil {
		return false
	}
	for _, s := range allowed {
		if b.state == s {
			return true
		}
	}
	b.fail(cypher.NewSequenceError(op, stateNames[b.state], legal[b.state]))
	return false
}

// unit resolves a Match/To/By/With argument into a schema and an optional
// anchor instance. Accepted: nil (any vertex), a node definition, a
// resolved schema, or an entity instance.
func (b *Builder) unit(op string, m any, kind schema.Kind) (*schema.Schema, *schema.Entity) {
	switch m := m.(type) {
	case nil:
		return nil, nil
	case *schema.Entity:
		if m.Schema().Kind != kind {
			b.fail(fmt.Errorf("cypher: %s requires a %s, got %s %s", op, kind, m.Schema().Kind, m.Schema().Label))
			return nil, nil
		}
		// Anchoring addresses the instance by identity, so the instance
		// must already be persisted.
		if !m.Persisted() {
			b.fail(cypher.NewNotPersistedError("match", m.Schema().Label))
			return nil, nil
		}
		return m.Schema(), m
	case *schema.Schema:
		return b.checkKind(op, m, kind), nil
	default:
		s, err := schema.Resolve(m)
		if err != nil {
			b.fail(err)
			return nil, nil
		}
		return b.checkKind(op, s, kind), nil
	}
}

func (b *Builder) checkKind(op string, s *schema.Schema, kind schema.Kind) *schema.Schema {
	if s.Kind != kind {
		b.fail(fmt.Errorf("cypher: %s requires a %s, got %s %s", op, kind, s.Kind, s.Label))
		return nil
	}
	if s.Abstract {
		b.fail(fmt.Errorf("cypher: %s is abstract and cannot be matched", s.Label))
		return nil
	}
	return s
}

// Match introduces a pattern node, starting a new disjoint pattern
// component. The argument is a node definition, a resolved schema, an
// entity instance (anchoring the node by identity), or nil to match any
// vertex. Predicates apply to the introduced node.
func (b *Builder) Match(m any, preds ...Predicate) *Builder {
	if !b.check("Match", stateEmpty, stateMatching) {
		return b
	}
	s, anchor := b.unit("Match", m, schema.KindNode)
	if b.err != nil {
		return b
	}
	b.component++
	b.spec.Nodes = append(b.spec.Nodes, &PatternNode{Schema: s, Anchor: anchor, Component: b.component})
	b.last = Elem{Index: len(b.spec.Nodes) - 1}
	b.where(preds)
	b.state = stateMatching
	return b
}

// Where attaches predicates to the most recently introduced pattern
// element. All predicates collected across one chain combine by AND.
func (b *Builder) Where(preds ...Predicate) *Builder {
	if !b.check("Where", stateMatching) {
		return b
	}
	b.where(preds)
	return b
}

func (b *Builder) where(preds []Predicate) {
	for _, p := range preds {
		if ref, ok := p.Value.(Ref); ok && !b.aliases[ref.Alias] {
			b.fail(cypher.NewUnknownAliasError("Where", ref.Alias))
			return
		}
		b.spec.Conds = append(b.spec.Conds, Condition{Target: b.last, Pred: p})
	}
}

// ConnectedThrough starts a traversal from the most recently matched node
// over the given relationship schema (or nil for any relationship). The
// traversal's far endpoint must follow with To, By or With. Predicates
// apply to the relationship; on a variable-length traversal they are
// compiled as a universally-quantified check over the relationship list.
func (b *Builder) ConnectedThrough(m any, preds ...Predicate) *Builder {
	if !b.check("ConnectedThrough", stateMatching) {
		return b
	}
	s, anchor := b.unit("ConnectedThrough", m, schema.KindEdge)
	if b.err != nil {
		return b
	}
	b.spec.Edges = append(b.spec.Edges, &PatternEdge{
		Schema:    s,
		Anchor:    anchor,
		From:      b.last.Index,
		To:        -1,
		MinHops:   1,
		MaxHops:   1,
		Component: b.component,
	})
	b.pending = len(b.spec.Edges) - 1
	b.last = Elem{EdgeElem: true, Index: b.pending}
	b.where(preds)
	b.state = stateTraversing
	return b
}

// Hops bounds the pending traversal to a variable-length relationship
// range. A max of -1 leaves the range unbounded above.
func (b *Builder) Hops(min, max int) *Builder {
	if !b.check("Hops", stateTraversing) {
		return b
	}
	if min < 0 || (max != -1 && max < min) {
		return b.fail(fmt.Errorf("cypher: invalid hop range %d..%d", min, max))
	}
	e := b.spec.Edges[b.pending]
	e.MinHops, e.MaxHops = min, max
	return b
}

// To binds the traversal's far endpoint with the relationship directed
// towards it.
func (b *Builder) To(m any, preds ...Predicate) *Builder {
	return b.endpoint("To", DirectionOut, m, preds)
}

// By binds the traversal's far endpoint with the relationship directed
// from it back to the previously matched node.
func (b *Builder) By(m any, preds ...Predicate) *Builder {
	return b.endpoint("By", DirectionIn, m, preds)
}

// With binds the traversal's far endpoint leaving the relationship
// undirected.
func (b *Builder) With(m any, preds ...Predicate) *Builder {
	return b.endpoint("With", DirectionNone, m, preds)
}

func (b *Builder) endpoint(op string, dir Direction, m any, preds []Predicate) *Builder {
	if !b.check(op, stateTraversing) {
		return b
	}
	s, anchor := b.unit(op, m, schema.KindNode)
	if b.err != nil {
		return b
	}
	b.spec.Nodes = append(b.spec.Nodes, &PatternNode{Schema: s, Anchor: anchor, Component: b.component})
	e := b.spec.Edges[b.pending]
	e.To = len(b.spec.Nodes) - 1
	e.Direction = dir
	b.pending = -1
	b.last = Elem{Index: len(b.spec.Nodes) - 1}
	b.where(preds)
	b.state = stateMatching
	return b
}

// As names the most recently introduced pattern element or write target.
// Aliases must be unique within one chain.
func (b *Builder) As(alias string) *Builder {
	if !b.check("As", stateMatching, stateTraversing, stateWriting) {
		return b
	}
	if alias == "" {
		return b.fail(fmt.Errorf("cypher: empty alias"))
	}
	if b.aliases[alias] {
		return b.fail(cypher.NewDuplicateAliasError(alias))
	}
	b.aliases[alias] = true
	switch {
	case b.state == stateWriting:
		w := &b.spec.Writes[len(b.spec.Writes)-1]
		w.Alias = alias
	case b.last.EdgeElem:
		e := b.spec.Edges[b.last.Index]
		e.Alias, e.UserAlias = alias, true
	default:
		n := b.spec.Nodes[b.last.Index]
		n.Alias, n.UserAlias = alias, true
	}
	return b
}

// Create appends entities to the pending write set. Entities that already
// carry a store identity are referenced, never re-created; unpersisted
// endpoints of a created edge are created with it.
func (b *Builder) Create(entities ...*schema.Entity) *Builder {
	if !b.check("Create", stateEmpty, stateMatching, stateWriting) {
		return b
	}
	if len(entities) == 0 {
		return b.fail(fmt.Errorf("cypher: Create without entities"))
	}
	for _, e := range entities {
		if e == nil {
			return b.fail(fmt.Errorf("cypher: Create with nil entity"))
		}
		b.spec.Writes = append(b.spec.Writes, Write{Op: WriteCreate, Entity: e})
	}
	b.state = stateWriting
	return b
}

// Update appends an identity-addressed write of the entity's current
// values. If props are given, only those properties are written; otherwise
// every property with a value is. The entity must be persisted, which is
// enforced at compile time.
func (b *Builder) Update(e *schema.Entity, props ...string) *Builder {
	if !b.check("Update", stateEmpty, stateMatching, stateWriting) {
		return b
	}
	if e == nil {
		return b.fail(fmt.Errorf("cypher: Update with nil entity"))
	}
	for _, p := range props {
		if _, ok := e.Schema().Property(p); !ok {
			return b.fail(fmt.Errorf("cypher: %s has no property %q", e.Schema().Label, p))
		}
	}
	b.spec.Writes = append(b.spec.Writes, Write{Op: WriteUpdate, Entity: e, Props: props})
	b.state = stateWriting
	return b
}

// Delete terminates the chain, deleting the given targets: aliases of
// matched elements, entity instances addressed by identity, or, with no
// arguments, every matched pattern node. Deleting a vertex always removes
// its incident relationships with it.
func (b *Builder) Delete(targets ...any) (*Spec, error) {
	if !b.check("Delete", stateMatching, stateWriting) {
		return nil, b.terminate()
	}
	if len(targets) == 0 {
		for i := range b.spec.Nodes {
			b.spec.Deletes = append(b.spec.Deletes, Elem{Index: i})
		}
		if len(b.spec.Deletes) == 0 {
			b.fail(cypher.ErrEmptyPattern)
		}
		return b.finish()
	}
	for _, t := range targets {
		switch t := t.(type) {
		case string:
			elem, ok := b.lookupElem(t)
			if !ok {
				b.fail(cypher.NewUnknownAliasError("Delete", t))
				return b.finish()
			}
			b.spec.Deletes = append(b.spec.Deletes, elem)
		case *schema.Entity:
			b.spec.DeleteEnts = append(b.spec.DeleteEnts, t)
		default:
			b.fail(fmt.Errorf("cypher: Delete target must be an alias or an entity, got %T", t))
			return b.finish()
		}
	}
	return b.finish()
}

// Result terminates the chain and declares its result shape. With no
// arguments every pattern element and write target is returned in
// introduction order. Arguments are aliases or scalar projections such as
// "u.email". Returning nothing at all is spelled Discard.
func (b *Builder) Result(items ...string) (*Spec, error) {
	if !b.check("Result", stateMatching, stateWriting) {
		return nil, b.terminate()
	}
	if len(items) == 0 {
		b.spec.ReturnAll = true
		return b.finish()
	}
	for _, item := range items {
		alias, fieldName := item, ""
		if i := strings.IndexByte(item, '.'); i >= 0 {
			alias, fieldName = item[:i], item[i+1:]
		}
		s, ok := b.lookupSchema(alias)
		if !ok {
			b.fail(cypher.NewUnknownAliasError("Result", alias))
			return b.finish()
		}
		if fieldName != "" && s != nil {
			if _, ok := s.Property(fieldName); !ok {
				b.fail(fmt.Errorf("cypher: %s has no property %q", s.Label, fieldName))
				return b.finish()
			}
		}
		b.spec.Returns = append(b.spec.Returns, Return{Alias: alias, Field: fieldName})
	}
	return b.finish()
}

// Discard terminates the chain returning nothing; the query executes for
// its side effects only.
func (b *Builder) Discard() (*Spec, error) {
	if !b.check("Discard", stateMatching, stateWriting) {
		return nil, b.terminate()
	}
	return b.finish()
}

// Distinct marks the result shape as duplicate-free.
func (b *Builder) Distinct() *Builder {
	if !b.check("Distinct", stateMatching, stateWriting) {
		return b
	}
	b.spec.Distinct = true
	return b
}

// Err returns the first error recorded on the chain, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) finish() (*Spec, error) {
	if err := b.terminate(); err != nil {
		return nil, err
	}
	if len(b.spec.Nodes) == 0 && len(b.spec.Writes) == 0 && len(b.spec.DeleteEnts) == 0 {
		return nil, cypher.ErrEmptyPattern
	}
	return &b.spec, nil
}

func (b *Builder) terminate() error {
	b.state = stateTerminated
	return b.err
}

// lookupElem finds the pattern element bound to a caller-given alias.
func (b *Builder) lookupElem(alias string) (Elem, bool) {
	for i, n := range b.spec.Nodes {
		if n.UserAlias && n.Alias == alias {
			return Elem{Index: i}, true
		}
	}
	for i, e := range b.spec.Edges {
		if e.UserAlias && e.Alias == alias {
			return Elem{EdgeElem: true, Index: i}, true
		}
	}
	return Elem{}, false
}

// lookupSchema resolves a caller-given alias to its schema, covering both
// pattern elements and write targets. A nil schema with ok=true means the
// alias matches any vertex or relationship.
func (b *Builder) lookupSchema(alias string) (*schema.Schema, bool) {
	if elem, ok := b.lookupElem(alias); ok {
		if elem.EdgeElem {
			return b.spec.Edges[elem.Index].Schema, true
		}
		return b.spec.Nodes[elem.Index].Schema, true
	}
	for i := range b.spec.Writes {
		if b.spec.Writes[i].Alias == alias {
			return b.spec.Writes[i].Entity.Schema(), true
		}
	}
	return nil, false
}
