// Package dialect defines the execution contracts between compiled
// statements and graph database drivers.
//
// The compiler produces immutable Statement values; a Driver executes them
// and hands back rows as Record values. Drivers are external collaborators:
// nothing in this module constructs transport connections beyond the
// implementations under this package.
package dialect

import "context"

// Mode describes whether a statement reads or writes, so drivers can route
// it appropriately (for example to a follower for reads).
type Mode uint8

// Statement modes.
const (
	ModeRead Mode = iota
	ModeWrite
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	if m == ModeWrite {
		return "write"
	}
	return "read"
}

// Statement is a compiled query: parameterized text, bound parameters, the
// expected result shape and the target database. Statements are immutable
// once produced; all literal comparison values travel in Params, never in
// Text.
type Statement struct {
	// Text is the generated query text. It contains parameter placeholders
	// only, never interpolated values.
	Text string

	// Params maps parameter names (without the $ prefix) to their bound
	// values.
	Params map[string]any

	// ReturnAliases lists the aliases the statement returns, in order.
	ReturnAliases []string

	// Mode reports whether the statement reads or writes.
	Mode Mode

	// Database names the target database.
	Database string
}

// Record is one result row: a mapping from return alias (or projection
// expression) to the raw value the store handed back.
type Record struct {
	// Values maps each return alias to its raw value. Entity values are
	// Value structs; projections are plain scalars.
	Values map[string]any
}

// Value is the raw representation of a graph entity in a result row.
type Value struct {
	// ElementID is the store identity of the entity.
	ElementID string

	// Labels of a vertex; nil for relationships.
	Labels []string

	// Type of a relationship; empty for vertices.
	Type string

	// Props holds the entity's properties.
	Props map[string]any
}

// ExecQuerier is the minimal execution surface shared by drivers and
// transactions.
type ExecQuerier interface {
	// Exec executes a statement and returns the result rows. Implementations
	// must not retain or mutate the statement.
	Exec(ctx context.Context, stmt Statement) ([]Record, error)
}

// Driver is the interface graph database drivers implement.
type Driver interface {
	ExecQuerier

	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)

	// Dialect returns the name of the dialect (for example "bolt").
	Dialect() string

	// Close releases the driver's resources.
	Close(ctx context.Context) error
}

// Tx wraps statement execution inside a store transaction.
type Tx interface {
	ExecQuerier

	// Commit commits the transaction.
	Commit(ctx context.Context) error

	// Rollback discards the transaction.
	Rollback(ctx context.Context) error
}
