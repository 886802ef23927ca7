// Package txn coordinates statement execution across one or more named
// databases inside per-database transactions.
//
// A Coordinator holds one driver per database name. A Scope opened from it
// lazily starts at most one transaction per database and routes every
// statement to the transaction of its target database, so a chain touching
// several databases runs each database's statements atomically within that
// database. Atomicity across databases is best-effort: commits happen
// sequentially and there is no two-phase protocol between heterogeneous
// stores, so a commit failing midway can leave earlier databases committed.
package txn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/dialect"
)

// Coordinator routes statements to the drivers of their target databases.
// It is safe for concurrent use; each Scope it opens is not.
type Coordinator struct {
	drivers map[string]dialect.Driver
}

// NewCoordinator returns a coordinator over the given drivers, keyed by
// database name.
func NewCoordinator(drivers map[string]dialect.Driver) *Coordinator {
	m := make(map[string]dialect.Driver, len(drivers))
	for name, drv := range drivers {
		m[name] = drv
	}
	return &Coordinator{drivers: m}
}

// Driver returns the driver registered for the named database.
func (c *Coordinator) Driver(database string) (dialect.Driver, bool) {
	drv, ok := c.drivers[database]
	return drv, ok
}

// Close closes every registered driver, returning the first error.
func (c *Coordinator) Close(ctx context.Context) error {
	var first error
	for name, drv := range c.drivers {
		if err := drv.Close(ctx); err != nil && first == nil {
			first = cypher.NewStoreError(name, err)
		}
	}
	return first
}

// Scope opens a new transaction scope. The scope owns at most one open
// transaction per database for its lifetime; the caller must finish it with
// Commit or Rollback (Run does both).
func (c *Coordinator) Scope() *Scope {
	return &Scope{coord: c, txs: make(map[string]dialect.Tx)}
}

// Run opens a scope, calls fn with it, and commits if fn returns nil or
// rolls back otherwise. A rollback failure is joined onto fn's error.
func (c *Coordinator) Run(ctx context.Context, fn func(*Scope) error) error {
	scope := c.Scope()
	if err := fn(scope); err != nil {
		if rerr := scope.Rollback(ctx); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return scope.Commit(ctx)
}

// Scope is one unit of coordinated work. Statements executed through it
// share a transaction per database. A scope is single-owner: it must not be
// used from multiple goroutines.
type Scope struct {
	coord *Coordinator

	mu     sync.Mutex
	txs    map[string]dialect.Tx
	order  []string // databases in first-use order
	closed bool
}

var _ dialect.ExecQuerier = (*Scope)(nil)

// Exec routes the statement to its database's transaction, opening the
// transaction on first use. Execution failures are wrapped with the
// database name; the scope stays open so the caller decides whether to
// roll back.
func (s *Scope) Exec(ctx context.Context, stmt dialect.Statement) ([]dialect.Record, error) {
	tx, err := s.tx(ctx, stmt.Database)
	if err != nil {
		return nil, err
	}
	recs, err := tx.Exec(ctx, stmt)
	if err != nil {
		return nil, cypher.NewStoreError(stmt.Database, err)
	}
	return recs, nil
}

func (s *Scope) tx(ctx context.Context, database string) (dialect.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, cypher.ErrScopeClosed
	}
	if tx, ok := s.txs[database]; ok {
		return tx, nil
	}
	drv, ok := s.coord.drivers[database]
	if !ok {
		return nil, fmt.Errorf("cypher: no driver registered for database %q", database)
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return nil, cypher.NewStoreError(database, err)
	}
	s.txs[database] = tx
	s.order = append(s.order, database)
	return tx, nil
}

// Commit commits every open transaction in first-use order and closes the
// scope. If a commit fails midway, the remaining open transactions are
// rolled back; databases committed before the failure stay committed.
func (s *Scope) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return cypher.ErrScopeClosed
	}
	s.closed = true
	for i, db := range s.order {
		if err := s.txs[db].Commit(ctx); err != nil {
			err = cypher.NewStoreError(db, err)
			if rerr := s.rollbackAll(ctx, s.order[i+1:]); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
	}
	return nil
}

// Rollback rolls back every open transaction and closes the scope.
// Rollbacks fan out concurrently; all are attempted regardless of
// individual failures.
func (s *Scope) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return cypher.ErrScopeClosed
	}
	s.closed = true
	return s.rollbackAll(ctx, s.order)
}

func (s *Scope) rollbackAll(ctx context.Context, dbs []string) error {
	var g errgroup.Group
	for _, db := range dbs {
		tx := s.txs[db]
		g.Go(func() error {
			return tx.Rollback(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		return cypher.NewRollbackError(err)
	}
	return nil
}
