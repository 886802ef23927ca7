package compiler

import (
	"fmt"
	"strings"

	"github.com/syssam/cypher/dialect"
	"github.com/syssam/cypher/query"
	"github.com/syssam/cypher/schema"
)

// stmt accumulates the clauses of one statement while a database group is
// walked. Clause slices keep emission order deterministic; the final text
// is assembled once at the end.
type stmt struct {
	db        string
	p         *params
	matches   []string // pattern MATCH clauses
	wheres    []string // conjunction attached to the pattern
	idMatches []string // identity MATCH clauses for addressed instances
	creates   []string
	sets      []string
	deletes   []string // aliases fed to DETACH DELETE
	returns   []string
	returned  map[string]bool
}

func (s *stmt) addReturn(item string) {
	if s.returned[item] {
		return
	}
	s.returned[item] = true
	s.returns = append(s.returns, item)
}

// emitDatabase compiles everything routed to one database into a single
// statement: pattern matches, identity matches, creates, sets, deletes and
// the return clause, in that order.
func (c *compiler) emitDatabase(db string, g *dbGroup) (dialect.Statement, error) {
	s := &stmt{db: db, p: newParams(), returned: make(map[string]bool)}

	for _, comp := range g.components {
		s.matches = append(s.matches, "MATCH "+c.renderComponent(comp))
	}
	for _, elem := range c.order {
		if !containsInt(g.components, c.elemComponent(elem)) {
			continue
		}
		if anchor := c.elemAnchor(elem); anchor != nil {
			alias := c.elemAlias(elem)
			s.wheres = append(s.wheres,
				fmt.Sprintf("elementId(%s) = $%s", alias, s.p.bind(alias, "id", anchor.StoreID())))
		}
	}
	for _, cond := range c.spec.Conds {
		if !containsInt(g.components, c.elemComponent(cond.Target)) {
			continue
		}
		expr, err := c.renderCondition(s, cond)
		if err != nil {
			return dialect.Statement{}, err
		}
		s.wheres = append(s.wheres, expr)
	}

	for _, wi := range g.writes {
		w := &c.spec.Writes[wi]
		switch w.Op {
		case query.WriteCreate:
			if _, err := c.resolveCreate(s, w.Entity, w.Alias); err != nil {
				return dialect.Statement{}, err
			}
		case query.WriteUpdate:
			c.resolveUpdate(s, w)
		}
	}
	for _, elem := range g.deletes {
		s.deletes = append(s.deletes, c.elemAlias(elem))
	}
	for _, ent := range g.deleteEnts {
		s.deletes = append(s.deletes, c.matchByID(s, ent, ""))
	}

	c.assembleReturns(s, g)

	var lines []string
	lines = append(lines, s.matches...)
	if len(s.wheres) > 0 {
		lines = append(lines, "WHERE "+strings.Join(s.wheres, " AND "))
	}
	lines = append(lines, s.idMatches...)
	lines = append(lines, s.creates...)
	if len(s.sets) > 0 {
		lines = append(lines, "SET "+strings.Join(s.sets, ", "))
	}
	if len(s.deletes) > 0 {
		lines = append(lines, "DETACH DELETE "+strings.Join(s.deletes, ", "))
	}
	if len(s.returns) > 0 {
		ret := "RETURN "
		if c.spec.Distinct {
			ret += "DISTINCT "
		}
		lines = append(lines, ret+strings.Join(s.returns, ", "))
	}

	mode := dialect.ModeRead
	if len(s.creates) > 0 || len(s.sets) > 0 || len(s.deletes) > 0 {
		mode = dialect.ModeWrite
	}
	return dialect.Statement{
		Text:          strings.Join(lines, "\n"),
		Params:        s.p.values,
		ReturnAliases: s.returns,
		Mode:          mode,
		Database:      db,
	}, nil
}

// renderComponent renders one connected component of the pattern as a
// single path expression, walking its elements in introduction order.
func (c *compiler) renderComponent(comp int) string {
	var b strings.Builder
	var pending *query.PatternEdge
	for _, elem := range c.order {
		if c.elemComponent(elem) != comp {
			continue
		}
		if elem.EdgeElem {
			pending = c.spec.Edges[elem.Index]
			continue
		}
		if pending != nil {
			b.WriteString(renderEdge(pending))
			pending = nil
		}
		b.WriteString(renderNode(c.spec.Nodes[elem.Index]))
	}
	return b.String()
}

// renderNode renders a pattern vertex. Anchored vertices are addressed by
// identity in the WHERE clause, so they carry no label here.
func renderNode(n *query.PatternNode) string {
	if n.Anchor != nil || n.Schema == nil {
		return "(" + n.Alias + ")"
	}
	return "(" + n.Alias + ":" + n.Schema.Label + ")"
}

// renderEdge renders a pattern relationship including its direction and,
// for variable-length traversals, its hop bounds. The alias of a
// variable-length edge binds to the materialized relationship list.
func renderEdge(e *query.PatternEdge) string {
	var b strings.Builder
	b.WriteString(e.Alias)
	if e.Anchor == nil && e.Schema != nil {
		b.WriteString(":" + e.Schema.Label)
	}
	if e.Variable() {
		if e.MaxHops < 0 {
			fmt.Fprintf(&b, "*%d..", e.MinHops)
		} else {
			fmt.Fprintf(&b, "*%d..%d", e.MinHops, e.MaxHops)
		}
	}
	spec := "[" + b.String() + "]"
	switch e.Direction {
	case query.DirectionOut:
		return "-" + spec + "->"
	case query.DirectionIn:
		return "<-" + spec + "-"
	default:
		return "-" + spec + "-"
	}
}

// renderCondition renders one predicate. Predicates on a variable-length
// relationship quantify over every relationship in the bound list.
func (c *compiler) renderCondition(s *stmt, cond query.Condition) (string, error) {
	alias := c.elemAlias(cond.Target)
	subject := alias
	varLen := cond.Target.EdgeElem && c.spec.Edges[cond.Target.Index].Variable()
	if varLen {
		subject = c.quantifier(alias)
	}
	expr, err := c.renderExpr(s, subject, alias, cond.Pred)
	if err != nil {
		return "", err
	}
	if varLen {
		expr = fmt.Sprintf("all(%s IN %s WHERE %s)", subject, alias, expr)
	}
	return expr, nil
}

// quantifier returns the iteration variable for a variable-length edge
// alias, reserving it against the taken-alias set so a caller-given alias
// can never shadow it.
func (c *compiler) quantifier(alias string) string {
	if q, ok := c.quantifiers[alias]; ok {
		return q
	}
	name := alias + "_r"
	for i := 2; c.taken[name]; i++ {
		name = fmt.Sprintf("%s_r%d", alias, i)
	}
	c.taken[name] = true
	c.quantifiers[alias] = name
	return name
}

func (c *compiler) renderExpr(s *stmt, subject, alias string, pred query.Predicate) (string, error) {
	lhs := subject + "." + pred.Field
	if pred.Op.Unary() {
		return lhs + " " + pred.Op.String(), nil
	}
	var rhs string
	if ref, ok := pred.Value.(query.Ref); ok {
		if c.aliasDB[ref.Alias] != s.db {
			return "", fmt.Errorf("cypher: predicate on %s references %s in another database", alias, ref.Alias)
		}
		rhs = ref.Alias + "." + ref.Field
	} else {
		rhs = "$" + s.p.bind(alias, pred.Field, pred.Value)
	}
	if pred.Op == query.OpNotIn {
		return fmt.Sprintf("NOT %s IN %s", lhs, rhs), nil
	}
	return fmt.Sprintf("%s %s %s", lhs, pred.Op.String(), rhs), nil
}

// resolveCreate binds an entity of the create set to an alias, emitting at
// most one CREATE (or identity MATCH, for already-persisted instances) per
// entity no matter how often it appears. Unpersisted endpoints of a created
// relationship are created implicitly.
func (c *compiler) resolveCreate(s *stmt, ent *schema.Entity, alias string) (string, error) {
	if a, ok := c.entRefs[ent]; ok {
		return a, nil
	}
	if ent.Persisted() {
		return c.matchByID(s, ent, alias), nil
	}
	if alias == "" {
		alias = c.gen.Next()
	}
	c.entRefs[ent] = alias
	c.aliasDB[alias] = s.db
	c.aliasSchema[alias] = ent.Schema()
	sch := ent.Schema()
	if sch.Kind == schema.KindNode {
		s.creates = append(s.creates,
			fmt.Sprintf("CREATE (%s:%s%s)", alias, strings.Join(ent.Labels(), ":"), renderProps(s.p, alias, ent)))
	} else {
		src, err := c.resolveCreate(s, ent.Source(), "")
		if err != nil {
			return "", err
		}
		dst, err := c.resolveCreate(s, ent.Target(), "")
		if err != nil {
			return "", err
		}
		s.creates = append(s.creates,
			fmt.Sprintf("CREATE (%s)-[%s:%s%s]->(%s)", src, alias, sch.Label, renderProps(s.p, alias, ent), dst))
	}
	// Created instances are always returned so their store identity can be
	// written back after execution; whether they surface in the caller's
	// result set is decided by the bindings, not here.
	c.plan.Created[alias] = ent
	s.addReturn(alias)
	return alias, nil
}

// resolveUpdate emits SET assignments for an identity-addressed instance.
// The full current value of each touched property is written.
func (c *compiler) resolveUpdate(s *stmt, w *query.Write) {
	alias := c.matchByID(s, w.Entity, w.Alias)
	props := w.Props
	if len(props) == 0 {
		for _, d := range w.Entity.Schema().Properties {
			if _, ok := w.Entity.Get(d.Name); ok {
				props = append(props, d.Name)
			}
		}
	}
	for _, name := range props {
		v, _ := w.Entity.Get(name)
		s.sets = append(s.sets, fmt.Sprintf("%s.%s = $%s", alias, name, s.p.bind(alias, name, v)))
	}
}

// matchByID emits an identity MATCH for a persisted instance, once per
// instance per plan.
func (c *compiler) matchByID(s *stmt, ent *schema.Entity, alias string) string {
	if a, ok := c.entRefs[ent]; ok {
		return a
	}
	if alias == "" {
		alias = c.gen.Next()
	}
	c.entRefs[ent] = alias
	c.aliasDB[alias] = s.db
	c.aliasSchema[alias] = ent.Schema()
	pattern := "(" + alias + ")"
	if ent.Schema().Kind == schema.KindEdge {
		pattern = "()-[" + alias + "]-()"
	}
	s.idMatches = append(s.idMatches,
		fmt.Sprintf("MATCH %s WHERE elementId(%s) = $%s", pattern, alias, s.p.bind(alias, "id", ent.StoreID())))
	return alias
}

// assembleReturns builds the return clause for one database group and
// records the alias-to-schema bindings hydration needs.
func (c *compiler) assembleReturns(s *stmt, g *dbGroup) {
	deleted := make(map[string]bool, len(s.deletes))
	for _, a := range s.deletes {
		deleted[a] = true
	}
	if c.spec.ReturnAll {
		for _, elem := range c.order {
			if !containsInt(g.components, c.elemComponent(elem)) {
				continue
			}
			alias := c.elemAlias(elem)
			if deleted[alias] {
				continue
			}
			s.addReturn(alias)
			if sch := c.elemSchema(elem); sch != nil {
				c.plan.Bindings[alias] = sch
			}
		}
		for _, wi := range g.writes {
			w := &c.spec.Writes[wi]
			alias := c.entRefs[w.Entity]
			s.addReturn(alias)
			c.plan.Bindings[alias] = w.Entity.Schema()
		}
		return
	}
	for _, r := range c.spec.Returns {
		if c.aliasDB[r.Alias] != s.db || deleted[r.Alias] {
			continue
		}
		if r.Field == "" {
			s.addReturn(r.Alias)
			if sch := c.aliasSchema[r.Alias]; sch != nil {
				c.plan.Bindings[r.Alias] = sch
			}
			continue
		}
		s.addReturn(r.Alias + "." + r.Field)
	}
}

func (c *compiler) elemAnchor(e query.Elem) *schema.Entity {
	if e.EdgeElem {
		return c.spec.Edges[e.Index].Anchor
	}
	return c.spec.Nodes[e.Index].Anchor
}

// renderProps renders an inline property map for a created entity, binding
// every value as a parameter. Properties follow schema declaration order so
// compilation is deterministic.
func renderProps(p *params, alias string, ent *schema.Entity) string {
	var parts []string
	for _, d := range ent.Schema().Properties {
		v, ok := ent.Get(d.Name)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: $%s", d.Name, p.bind(alias, d.Name, v)))
	}
	if len(parts) == 0 {
		return ""
	}
	return " {" + strings.Join(parts, ", ") + "}"
}
