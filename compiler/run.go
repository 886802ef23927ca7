package compiler

import (
	"context"

	"github.com/syssam/cypher/dialect"
	"github.com/syssam/cypher/schema"
)

// Row is one hydrated result row: return aliases map to live entities,
// scalar projections to their raw values.
type Row map[string]any

// Run executes the plan's statements against ex and assembles the result
// rows. Store identities are written back into every created entity before
// rows are built, so a created instance is persisted from the caller's
// point of view as soon as Run returns. Statements targeting different
// databases contribute their rows independently.
//
// The executor is typically a *txn.Scope, which routes each statement to
// its database's transaction.
func (p *Plan) Run(ctx context.Context, ex dialect.ExecQuerier) ([]Row, error) {
	var rows []Row
	for _, stmt := range p.Statements {
		recs, err := ex.Exec(ctx, stmt)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			row, err := p.hydrate(rec)
			if err != nil {
				return nil, err
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

// hydrate turns one raw record into a row. Entity values bound to a schema
// become *schema.Entity instances; values returned only for identity
// back-fill stay out of the row.
func (p *Plan) hydrate(rec dialect.Record) (Row, error) {
	row := make(Row, len(rec.Values))
	for alias, raw := range rec.Values {
		// A variable-length traversal binds its alias to the relationship
		// list.
		if list, ok := raw.([]dialect.Value); ok {
			if sch, bound := p.Bindings[alias]; bound {
				ents := make([]*schema.Entity, 0, len(list))
				for _, lv := range list {
					ent, err := p.hydrateEntity(sch, lv)
					if err != nil {
						return nil, err
					}
					ents = append(ents, ent)
				}
				row[alias] = ents
			} else {
				row[alias] = list
			}
			continue
		}
		v, ok := raw.(dialect.Value)
		if !ok {
			row[alias] = raw
			continue
		}
		if ent, created := p.Created[alias]; created {
			if !ent.Persisted() {
				ent.SetStoreID(v.ElementID)
			}
			if _, bound := p.Bindings[alias]; bound {
				row[alias] = ent
			}
			continue
		}
		if sch, bound := p.Bindings[alias]; bound {
			ent, err := p.hydrateEntity(sch, v)
			if err != nil {
				return nil, err
			}
			row[alias] = ent
			continue
		}
		row[alias] = v
	}
	return row, nil
}

func (p *Plan) hydrateEntity(sch *schema.Schema, v dialect.Value) (*schema.Entity, error) {
	ent, err := sch.Hydrate(v.ElementID, v.Props)
	if err != nil {
		return nil, err
	}
	return ent, nil
}
