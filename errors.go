package cypher

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrEmptyPattern is returned when a chain is terminated without any
	// matched or created content.
	ErrEmptyPattern = errors.New("cypher: empty pattern")

	// ErrScopeClosed is returned when a transaction scope is used after it
	// was committed or rolled back.
	ErrScopeClosed = errors.New("cypher: transaction scope already closed")
)

// SequenceError reports an illegal call order on a query chain. It names
// the offending call, the phase the chain was in, and the calls that would
// have been legal instead.
type SequenceError struct {
	Op    string   // Offending call (e.g. "To")
	State string   // Chain phase at the time of the call
	Legal []string // Calls that were legal in that phase
}

// Error returns the error string.
func (e *SequenceError) Error() string {
	if len(e.Legal) == 0 {
		return fmt.Sprintf("cypher: %s is not legal in %s phase", e.Op, e.State)
	}
	return fmt.Sprintf("cypher: %s is not legal in %s phase (legal: %s)",
		e.Op, e.State, strings.Join(e.Legal, ", "))
}

// NewSequenceError returns a new SequenceError.
func NewSequenceError(op, state string, legal []string) *SequenceError {
	return &SequenceError{Op: op, State: state, Legal: legal}
}

// IsSequenceError returns true if the error is a SequenceError.
func IsSequenceError(err error) bool {
	if err == nil {
		return false
	}
	var e *SequenceError
	return errors.As(err, &e)
}

// UnknownAliasError reports a reference to an alias that was never
// introduced by a prior chain call.
type UnknownAliasError struct {
	Alias string // The unknown alias
	Op    string // Where it was referenced (e.g. "Result", "Where")
}

// Error returns the error string.
func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("cypher: %s references unknown alias %q", e.Op, e.Alias)
}

// NewUnknownAliasError returns a new UnknownAliasError.
func NewUnknownAliasError(op, alias string) *UnknownAliasError {
	return &UnknownAliasError{Alias: alias, Op: op}
}

// IsUnknownAlias returns true if the error is an UnknownAliasError.
func IsUnknownAlias(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownAliasError
	return errors.As(err, &e)
}

// DuplicateAliasError reports an alias introduced twice in one chain.
type DuplicateAliasError struct {
	Alias string
}

// Error returns the error string.
func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("cypher: alias %q already introduced in this chain", e.Alias)
}

// NewDuplicateAliasError returns a new DuplicateAliasError.
func NewDuplicateAliasError(alias string) *DuplicateAliasError {
	return &DuplicateAliasError{Alias: alias}
}

// IsDuplicateAlias returns true if the error is a DuplicateAliasError.
func IsDuplicateAlias(err error) bool {
	if err == nil {
		return false
	}
	var e *DuplicateAliasError
	return errors.As(err, &e)
}

// SchemaMismatchError reports an entity whose schema does not match the
// schema declared for the alias it is bound to.
type SchemaMismatchError struct {
	Alias string // Alias the entity was bound to
	Want  string // Schema declared for the alias
	Got   string // Schema of the entity
}

// Error returns the error string.
func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("cypher: alias %q is declared as %s but got %s", e.Alias, e.Want, e.Got)
}

// NewSchemaMismatchError returns a new SchemaMismatchError.
func NewSchemaMismatchError(alias, want, got string) *SchemaMismatchError {
	return &SchemaMismatchError{Alias: alias, Want: want, Got: got}
}

// IsSchemaMismatch returns true if the error is a SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaMismatchError
	return errors.As(err, &e)
}

// ValidationError reports an entity value that does not satisfy its
// declared constraints. It names the entity label and the failing rule.
type ValidationError struct {
	Label string // Entity label (e.g. "User")
	Name  string // Property name ("" for entity-level validators)
	Err   error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("cypher: validator failed for %s: %s", e.Label, e.Err)
	}
	return fmt.Sprintf("cypher: validator failed for %s.%s: %s", e.Label, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given property.
func NewValidationError(label, name string, err error) *ValidationError {
	return &ValidationError{Label: label, Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// NotPersistedError reports an operation that requires a store identity on
// an entity that was never persisted or hydrated.
type NotPersistedError struct {
	Label string // Entity label
	Op    string // Operation that required the identity (e.g. "update")
}

// Error returns the error string.
func (e *NotPersistedError) Error() string {
	return fmt.Sprintf("cypher: cannot %s %s without a store identity", e.Op, e.Label)
}

// NewNotPersistedError returns a new NotPersistedError.
func NewNotPersistedError(op, label string) *NotPersistedError {
	return &NotPersistedError{Label: label, Op: op}
}

// IsNotPersisted returns true if the error is a NotPersistedError.
func IsNotPersisted(err error) bool {
	if err == nil {
		return false
	}
	var e *NotPersistedError
	return errors.As(err, &e)
}

// ConstraintError represents a store constraint violation, typically a
// uniqueness constraint rejected by the database.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("cypher: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e *ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) *ConstraintError {
	return &ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConstraintError
	return errors.As(err, &e)
}

// StoreError wraps an opaque failure reported by the external store. It is
// propagated unchanged and never retried by this package; retry policy
// belongs to the transport layer.
type StoreError struct {
	Database string // Named database the statement targeted
	Err      error  // Error reported by the store
}

// Error returns the error string.
func (e *StoreError) Error() string {
	if e.Database != "" {
		return fmt.Sprintf("cypher: store %q: %v", e.Database, e.Err)
	}
	return fmt.Sprintf("cypher: store: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError returns a new StoreError for the given database.
func NewStoreError(database string, err error) *StoreError {
	return &StoreError{Database: database, Err: err}
}

// IsStoreError returns true if the error is a StoreError.
func IsStoreError(err error) bool {
	if err == nil {
		return false
	}
	var e *StoreError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred while rolling back a
// transaction scope, keeping the error that triggered the rollback.
type RollbackError struct {
	Err error // Rollback failure
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("cypher: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// NewRollbackError returns a new RollbackError.
func NewRollbackError(err error) *RollbackError {
	return &RollbackError{Err: err}
}

// IsRollbackError returns true if the error is a RollbackError.
func IsRollbackError(err error) bool {
	if err == nil {
		return false
	}
	var e *RollbackError
	return errors.As(err, &e)
}
