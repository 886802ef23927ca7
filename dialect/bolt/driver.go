// Package bolt implements the dialect.Driver contract on top of the
// official Neo4j Go driver, speaking the Bolt protocol.
package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/syssam/cypher/dialect"
)

// Driver executes compiled statements against one configured database.
type Driver struct {
	drv      neo4j.DriverWithContext
	database string
}

var _ dialect.Driver = (*Driver)(nil)

// Open connects to the configured database and verifies connectivity.
func Open(ctx context.Context, cfg DatabaseConfig) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	drv, err := neo4j.NewDriverWithContext(cfg.URL(), auth, func(c *neo4j.Config) {
		if cfg.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		}
		if cfg.ConnectionTimeout > 0 {
			c.ConnectionAcquisitionTimeout = time.Duration(cfg.ConnectionTimeout)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: opening %s: %w", cfg.URL(), err)
	}
	if err := drv.VerifyConnectivity(ctx); err != nil {
		_ = drv.Close(ctx)
		return nil, fmt.Errorf("bolt: verifying %s: %w", cfg.URL(), err)
	}
	return &Driver{drv: drv, database: cfg.Database}, nil
}

// OpenAll opens a driver per configured database, keyed by its configured
// name. On failure every already-opened driver is closed.
func OpenAll(ctx context.Context, cfg *Config) (map[string]dialect.Driver, error) {
	drivers := make(map[string]dialect.Driver, len(cfg.Databases))
	for name, db := range cfg.Databases {
		drv, err := Open(ctx, db)
		if err != nil {
			for _, open := range drivers {
				_ = open.Close(ctx)
			}
			return nil, fmt.Errorf("bolt: database %q: %w", name, err)
		}
		drivers[name] = drv
	}
	return drivers, nil
}

// Dialect returns "bolt".
func (d *Driver) Dialect() string {
	return "bolt"
}

// Close releases the underlying connection pool.
func (d *Driver) Close(ctx context.Context) error {
	return d.drv.Close(ctx)
}

// Exec runs one statement in an auto-committed managed transaction, routed
// by the statement's mode so reads can go to followers.
func (d *Driver) Exec(ctx context.Context, stmt dialect.Statement) ([]dialect.Record, error) {
	session := d.drv.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: d.database,
		AccessMode:   accessMode(stmt.Mode),
	})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, stmt.Text, stmt.Params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return convertRecords(records), nil
	}
	var out any
	var err error
	if stmt.Mode == dialect.ModeWrite {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		return nil, err
	}
	return out.([]dialect.Record), nil
}

// Tx begins an explicit transaction on a write session. The transaction
// owns its session; Commit and Rollback release it.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	session := d.drv.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: d.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		_ = session.Close(ctx)
		return nil, err
	}
	return &boltTx{session: session, tx: tx}, nil
}

type boltTx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
}

func (t *boltTx) Exec(ctx context.Context, stmt dialect.Statement) ([]dialect.Record, error) {
	result, err := t.tx.Run(ctx, stmt.Text, stmt.Params)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	return convertRecords(records), nil
}

func (t *boltTx) Commit(ctx context.Context) error {
	defer t.session.Close(ctx)
	return t.tx.Commit(ctx)
}

func (t *boltTx) Rollback(ctx context.Context) error {
	defer t.session.Close(ctx)
	return t.tx.Rollback(ctx)
}

func accessMode(m dialect.Mode) neo4j.AccessMode {
	if m == dialect.ModeWrite {
		return neo4j.AccessModeWrite
	}
	return neo4j.AccessModeRead
}

func convertRecords(records []*neo4j.Record) []dialect.Record {
	out := make([]dialect.Record, 0, len(records))
	for _, rec := range records {
		values := make(map[string]any, len(rec.Keys))
		for i, key := range rec.Keys {
			values[key] = convertValue(rec.Values[i])
		}
		out = append(out, dialect.Record{Values: values})
	}
	return out
}

// convertValue maps driver entity types onto the dialect's neutral Value.
// A list of relationships (a variable-length traversal binding) converts
// element-wise; everything else passes through untouched.
func convertValue(v any) any {
	switch v := v.(type) {
	case dbtype.Node:
		return dialect.Value{ElementID: v.ElementId, Labels: v.Labels, Props: v.Props}
	case dbtype.Relationship:
		return dialect.Value{ElementID: v.ElementId, Type: v.Type, Props: v.Props}
	case []any:
		rels := make([]dialect.Value, 0, len(v))
		for _, el := range v {
			r, ok := el.(dbtype.Relationship)
			if !ok {
				return v
			}
			rels = append(rels, dialect.Value{ElementID: r.ElementId, Type: r.Type, Props: r.Props})
		}
		return rels
	default:
		return v
	}
}
