package query

import (
	"strings"

	"github.com/syssam/cypher/schema"
)

// Direction of a relationship in a pattern.
type Direction uint8

// Relationship directions. DirectionOut points from the previously matched
// node towards the traversal's far endpoint (To); DirectionIn points back
// (By); DirectionNone leaves the hop undirected (With).
const (
	DirectionNone Direction = iota
	DirectionOut
	DirectionIn
)

// A PatternNode is an aliased placeholder for a vertex in the pattern.
type PatternNode struct {
	Alias     string         // user alias, or "" until the compiler assigns one
	UserAlias bool           // whether Alias was caller-given
	Schema    *schema.Schema // nil matches any vertex
	Anchor    *schema.Entity // persisted instance seeding this node by identity
	Component int            // connected-component index within the chain
}

// A PatternEdge is an aliased placeholder for a relationship in the
// pattern. From and To index into the chain's pattern nodes.
type PatternEdge struct {
	Alias     string
	UserAlias bool
	Schema    *schema.Schema
	Anchor    *schema.Entity
	From      int
	To        int
	Direction Direction
	MinHops   int // (1,1) is a plain single hop
	MaxHops   int // -1 means unbounded
	Component int
}

// Variable reports whether the edge is a variable-length traversal. A
// variable-length alias binds to the materialized relationship list, not a
// single relationship.
func (e *PatternEdge) Variable() bool {
	return e.MinHops != 1 || e.MaxHops != 1
}

// Elem references one pattern element: a node or an edge.
type Elem struct {
	EdgeElem bool
	Index    int
}

// A Condition is a predicate bound to a pattern element.
type Condition struct {
	Target Elem
	Pred   Predicate
}

// WriteOp is the kind of a pending write.
type WriteOp uint8

// Pending write kinds.
const (
	WriteCreate WriteOp = iota
	WriteUpdate
	WriteDelete
)

// String returns the lower-case name of the write kind.
func (op WriteOp) String() string {
	switch op {
	case WriteCreate:
		return "create"
	case WriteUpdate:
		return "update"
	default:
		return "delete"
	}
}

// A Write is a pending create, update or delete.
type Write struct {
	Op     WriteOp
	Entity *schema.Entity // create/update target, or delete-by-instance
	Props  []string       // update: properties to write; empty writes all
	Alias  string         // caller-given alias, "" until assigned
}

// A Return is one requested result item: a whole alias or a scalar
// projection of one of its properties.
type Return struct {
	Alias string
	Field string // "" returns the whole element
}

// Spec is the finished pattern graph a terminal chain call produces. It is
// the compiler's input. Aliases the compiler assigns to unnamed pattern
// elements persist on the spec, so a later compilation reuses them and
// yields identical statements; nothing else is mutated after the terminal
// call.
type Spec struct {
	Nodes      []*PatternNode
	Edges      []*PatternEdge
	Conds      []Condition
	Writes     []Write
	Deletes    []Elem          // pattern elements addressed by a terminal Delete
	DeleteEnts []*schema.Entity // instances addressed by a terminal Delete
	Returns    []Return
	ReturnAll  bool // Result() with no arguments
	Distinct   bool
}

// An AliasGenerator yields collision-free variable names: "_a", "_b", ...,
// "_z", "_aa", "_ab", ... Generated names never begin with "_p" and names
// already taken by the caller are skipped.
type AliasGenerator struct {
	n     int
	taken map[string]bool
}

// NewAliasGenerator returns a generator that never yields a name in taken.
// The taken set is shared: names the generator yields are added to it.
func NewAliasGenerator(taken map[string]bool) *AliasGenerator {
	if taken == nil {
		taken = make(map[string]bool)
	}
	return &AliasGenerator{taken: taken}
}

// Next returns the next free variable name.
func (g *AliasGenerator) Next() string {
	for {
		g.n++
		name := "_" + letters(g.n)
		if strings.HasPrefix(name, "_p") || g.taken[name] {
			continue
		}
		g.taken[name] = true
		return name
	}
}

// letters converts a 1-based counter to a base-26 letter sequence:
// 1 => "a", 26 => "z", 27 => "aa".
func letters(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('a' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
