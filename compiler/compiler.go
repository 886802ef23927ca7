// Package compiler turns finished query chains into parameterized
// statements.
//
// Compilation is a pure, synchronous transformation: it walks the pattern
// graph and pending writes of a query.Spec, assigns collision-free aliases,
// emits one statement per target database, and never touches shared state.
// Every literal comparison value becomes a bound parameter; no value is
// interpolated into statement text.
package compiler

import (
	"fmt"
	"strings"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/dialect"
	"github.com/syssam/cypher/query"
	"github.com/syssam/cypher/schema"
)

// Plan is the immutable result of one compilation: the statements to
// execute, grouped per target database in first-use order, plus the
// metadata the hydration step needs to map result rows back to entities.
type Plan struct {
	// Statements to execute, one per target database.
	Statements []dialect.Statement

	// Bindings maps each whole-entity return alias to its schema. Aliases
	// absent from the map (scalar projections, schemaless matches) hydrate
	// as raw values.
	Bindings map[string]*schema.Schema

	// Created maps the alias of each created entity to the live instance
	// that should receive the store identity after execution.
	Created map[string]*schema.Entity
}

// Compile walks the finished pattern graph and pending write set and
// produces a Plan. Validators of every written entity run first; no
// statement is emitted if any of them fails.
func Compile(spec *query.Spec) (*Plan, error) {
	if spec == nil {
		return nil, cypher.ErrEmptyPattern
	}
	c := &compiler{
		spec:        spec,
		taken:       make(map[string]bool),
		plan:        &Plan{Bindings: make(map[string]*schema.Schema), Created: make(map[string]*schema.Entity)},
		entRefs:     make(map[*schema.Entity]string),
		aliasDB:     make(map[string]string),
		aliasSchema: make(map[string]*schema.Schema),
		quantifiers: make(map[string]string),
	}
	// Aliases assigned by an earlier compilation of the same spec count as
	// taken too, so compiling twice yields identical statements.
	for _, n := range spec.Nodes {
		if n.Alias != "" {
			c.taken[n.Alias] = true
		}
	}
	for _, e := range spec.Edges {
		if e.Alias != "" {
			c.taken[e.Alias] = true
		}
	}
	for i := range spec.Writes {
		if a := spec.Writes[i].Alias; a != "" {
			c.taken[a] = true
		}
	}
	c.gen = query.NewAliasGenerator(c.taken)
	if err := c.validateWrites(); err != nil {
		return nil, err
	}
	if err := c.assignAliases(); err != nil {
		return nil, err
	}
	if err := c.checkEndpoints(); err != nil {
		return nil, err
	}
	if err := c.emit(); err != nil {
		return nil, err
	}
	if len(c.plan.Statements) == 0 {
		return nil, cypher.ErrEmptyPattern
	}
	return c.plan, nil
}

type compiler struct {
	spec  *query.Spec
	gen   *query.AliasGenerator
	taken map[string]bool
	plan  *Plan

	// entRefs deduplicates entities across the write set: an entity is
	// created or identity-matched once no matter how often it appears.
	entRefs map[*schema.Entity]string

	// aliasDB and aliasSchema record, for every bound alias, its target
	// database and schema (when known).
	aliasDB     map[string]string
	aliasSchema map[string]*schema.Schema

	// quantifiers holds the iteration variable reserved for each
	// variable-length edge alias.
	quantifiers map[string]string

	// order holds the pattern elements in introduction order.
	order []query.Elem
}

// validateWrites runs the full validation pipeline over every written
// entity before any emission, so a failing validator can never leave
// partial side effects.
func (c *compiler) validateWrites() error {
	for i := range c.spec.Writes {
		w := &c.spec.Writes[i]
		ent, sch := w.Entity, w.Entity.Schema()
		switch w.Op {
		case query.WriteUpdate:
			if !ent.Persisted() {
				return cypher.NewNotPersistedError("update", sch.Label)
			}
			if err := sch.Validate(ent); err != nil {
				return err
			}
		case query.WriteCreate:
			if err := sch.Validate(ent); err != nil {
				return err
			}
			if sch.Kind == schema.KindEdge {
				for _, ep := range []*schema.Entity{ent.Source(), ent.Target()} {
					if ep.Persisted() {
						continue
					}
					if err := ep.Schema().Validate(ep); err != nil {
						return err
					}
				}
			}
		}
	}
	for _, ent := range c.spec.DeleteEnts {
		if !ent.Persisted() {
			return cypher.NewNotPersistedError("delete", ent.Schema().Label)
		}
	}
	return nil
}

// assignAliases gives every pattern element without a caller-given alias a
// generated one, following introduction order: each edge was introduced
// immediately before its far endpoint node.
func (c *compiler) assignAliases() error {
	byTo := make(map[int]*query.PatternEdge, len(c.spec.Edges))
	edgeIdx := make(map[*query.PatternEdge]int, len(c.spec.Edges))
	for i, e := range c.spec.Edges {
		byTo[e.To] = e
		edgeIdx[e] = i
	}
	for i, n := range c.spec.Nodes {
		if e, ok := byTo[i]; ok {
			if e.Alias == "" {
				e.Alias = c.gen.Next()
			}
			c.order = append(c.order, query.Elem{EdgeElem: true, Index: edgeIdx[e]})
		}
		if n.Alias == "" {
			n.Alias = c.gen.Next()
		}
		c.order = append(c.order, query.Elem{Index: i})
	}
	return nil
}

// checkEndpoints verifies directed traversals against the relationship
// schema's declared endpoints.
func (c *compiler) checkEndpoints() error {
	for _, e := range c.spec.Edges {
		if e.Schema == nil || e.Direction == query.DirectionNone {
			continue
		}
		src, dst := c.spec.Nodes[e.From], c.spec.Nodes[e.To]
		if e.Direction == query.DirectionIn {
			src, dst = dst, src
		}
		if want := e.Schema.Source; want != nil && src.Schema != nil && src.Schema.Label != want.Label {
			return cypher.NewSchemaMismatchError(src.Alias, want.Label, src.Schema.Label)
		}
		if want := e.Schema.Target; want != nil && dst.Schema != nil && dst.Schema.Label != want.Label {
			return cypher.NewSchemaMismatchError(dst.Alias, want.Label, dst.Schema.Label)
		}
	}
	return nil
}

// emit produces one statement per target database, in first-use order.
func (c *compiler) emit() error {
	dbs, order, err := c.groupDatabases()
	if err != nil {
		return err
	}
	for _, db := range order {
		stmt, err := c.emitDatabase(db, dbs[db])
		if err != nil {
			return err
		}
		c.plan.Statements = append(c.plan.Statements, stmt)
	}
	return nil
}

// dbGroup collects everything one statement must cover.
type dbGroup struct {
	components []int
	writes     []int
	deletes    []query.Elem
	deleteEnts []*schema.Entity
}

// groupDatabases splits the pattern components and writes by target
// database. A connected component cannot span databases.
func (c *compiler) groupDatabases() (map[string]*dbGroup, []string, error) {
	groups := make(map[string]*dbGroup)
	var order []string
	group := func(db string) *dbGroup {
		g, ok := groups[db]
		if !ok {
			g = &dbGroup{}
			groups[db] = g
			order = append(order, db)
		}
		return g
	}
	compDB := make(map[int]string)
	for _, elem := range c.order {
		comp, db := c.elemComponent(elem), c.elemDatabase(elem)
		if db == "" {
			continue
		}
		if have, ok := compDB[comp]; ok && have != db {
			return nil, nil, fmt.Errorf("cypher: pattern component spans databases %q and %q", have, db)
		}
		compDB[comp] = db
	}
	for _, elem := range c.order {
		comp := c.elemComponent(elem)
		db, ok := compDB[comp]
		if !ok {
			db = schema.DefaultDatabase
			compDB[comp] = db
		}
		g := group(db)
		if !containsInt(g.components, comp) {
			g.components = append(g.components, comp)
		}
		c.aliasDB[c.elemAlias(elem)] = db
		if s := c.elemSchema(elem); s != nil {
			c.aliasSchema[c.elemAlias(elem)] = s
		}
	}
	for i := range c.spec.Writes {
		w := &c.spec.Writes[i]
		db := w.Entity.Schema().Database
		if w.Entity.Schema().Kind == schema.KindEdge {
			for _, ep := range []*schema.Entity{w.Entity.Source(), w.Entity.Target()} {
				if ep != nil && ep.Schema().Database != db {
					return nil, nil, fmt.Errorf("cypher: relationship %s spans databases %q and %q",
						w.Entity.Schema().Label, db, ep.Schema().Database)
				}
			}
		}
		g := group(db)
		g.writes = append(g.writes, i)
	}
	for _, elem := range c.spec.Deletes {
		db := compDB[c.elemComponent(elem)]
		g := group(db)
		g.deletes = append(g.deletes, elem)
	}
	for _, ent := range c.spec.DeleteEnts {
		g := group(ent.Schema().Database)
		g.deleteEnts = append(g.deleteEnts, ent)
	}
	return groups, order, nil
}

func (c *compiler) elemComponent(e query.Elem) int {
	if e.EdgeElem {
		return c.spec.Edges[e.Index].Component
	}
	return c.spec.Nodes[e.Index].Component
}

func (c *compiler) elemDatabase(e query.Elem) string {
	var s *schema.Schema
	if e.EdgeElem {
		s = c.spec.Edges[e.Index].Schema
	} else {
		s = c.spec.Nodes[e.Index].Schema
	}
	if s == nil {
		return ""
	}
	return s.Database
}

func (c *compiler) elemAlias(e query.Elem) string {
	if e.EdgeElem {
		return c.spec.Edges[e.Index].Alias
	}
	return c.spec.Nodes[e.Index].Alias
}

func (c *compiler) elemSchema(e query.Elem) *schema.Schema {
	if e.EdgeElem {
		return c.spec.Edges[e.Index].Schema
	}
	return c.spec.Nodes[e.Index].Schema
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// params tracks bound parameters for one statement, deduplicating names.
type params struct {
	values map[string]any
}

func newParams() *params {
	return &params{values: make(map[string]any)}
}

// bind stores a value under a readable, collision-free parameter name
// derived from the alias and property it belongs to.
func (p *params) bind(alias, field string, v any) string {
	base := strings.TrimPrefix(alias, "_") + "_" + field
	name := base
	for i := 2; ; i++ {
		if _, ok := p.values[name]; !ok {
			break
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
	p.values[name] = v
	return name
}
