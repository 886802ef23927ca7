package query

// An Op is a comparison operator in an atomic predicate.
type Op uint8

// List of comparison operators.
const (
	OpEQ Op = iota
	OpNEQ
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpIn
	OpNotIn
	OpContains
	OpHasPrefix
	OpHasSuffix
	OpIsNull
	OpNotNull
)

var opText = [...]string{
	OpEQ:        "=",
	OpNEQ:       "<>",
	OpGT:        ">",
	OpGTE:       ">=",
	OpLT:        "<",
	OpLTE:       "<=",
	OpIn:        "IN",
	OpNotIn:     "IN", // negated at emission
	OpContains:  "CONTAINS",
	OpHasPrefix: "STARTS WITH",
	OpHasSuffix: "ENDS WITH",
	OpIsNull:    "IS NULL",
	OpNotNull:   "IS NOT NULL",
}

// String returns the operator as it appears in query text.
func (o Op) String() string {
	if int(o) < len(opText) {
		return opText[o]
	}
	return "="
}

// Unary reports whether the operator takes no operand.
func (o Op) Unary() bool {
	return o == OpIsNull || o == OpNotNull
}

// A Predicate is an atomic comparison on a property of the pattern element
// it is attached to. Predicates attached to the same element combine by
// logical AND.
type Predicate struct {
	Field string // property name on the attached element
	Op    Op
	Value any // bound as a parameter; a Ref compares against another alias
}

// A Ref compares against a property of another aliased pattern element
// instead of a bound value:
//
//	query.GT("since", query.Ref{Alias: "b", Field: "since"})
type Ref struct {
	Alias string
	Field string
}

// EQ returns a field = value predicate.
func EQ(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpEQ, Value: v}
}

// NEQ returns a field <> value predicate.
func NEQ(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpNEQ, Value: v}
}

// GT returns a field > value predicate.
func GT(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpGT, Value: v}
}

// GTE returns a field >= value predicate.
func GTE(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpGTE, Value: v}
}

// LT returns a field < value predicate.
func LT(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpLT, Value: v}
}

// LTE returns a field <= value predicate.
func LTE(field string, v any) Predicate {
	return Predicate{Field: field, Op: OpLTE, Value: v}
}

// In returns a predicate checking membership in the given values.
func In(field string, vs ...any) Predicate {
	return Predicate{Field: field, Op: OpIn, Value: vs}
}

// NotIn returns a predicate checking absence from the given values.
func NotIn(field string, vs ...any) Predicate {
	return Predicate{Field: field, Op: OpNotIn, Value: vs}
}

// Contains returns a substring-containment predicate.
func Contains(field, v string) Predicate {
	return Predicate{Field: field, Op: OpContains, Value: v}
}

// HasPrefix returns a prefix predicate.
func HasPrefix(field, v string) Predicate {
	return Predicate{Field: field, Op: OpHasPrefix, Value: v}
}

// HasSuffix returns a suffix predicate.
func HasSuffix(field, v string) Predicate {
	return Predicate{Field: field, Op: OpHasSuffix, Value: v}
}

// IsNull returns a null-check predicate.
func IsNull(field string) Predicate {
	return Predicate{Field: field, Op: OpIsNull}
}

// NotNull returns a non-null-check predicate.
func NotNull(field string) Predicate {
	return Predicate{Field: field, Op: OpNotNull}
}
