package schema

import (
	"errors"

	"github.com/syssam/cypher"
)

// Validate checks an entity against its schema ahead of persistence.
// The order is fixed: missing required values first, then per-property
// validators in declaration order (first failure short-circuits), then
// entity-level validators. Composite uniqueness is advisory at this stage;
// its enforcement is delegated to the store, which is the only place it can
// be checked without races.
func (s *Schema) Validate(e *Entity) error {
	if e.schema.Label != s.Label {
		return cypher.NewSchemaMismatchError("entity", s.Label, e.schema.Label)
	}
	for _, d := range s.Properties {
		v, ok := e.values[d.Name]
		if !ok {
			if !d.Optional {
				return cypher.NewValidationError(s.Label, d.Name, errors.New("missing required value"))
			}
			continue
		}
		for _, fn := range d.Validators {
			if err := fn(v); err != nil {
				return cypher.NewValidationError(s.Label, d.Name, err)
			}
		}
	}
	for _, fn := range s.Validators {
		if err := fn(e.Values()); err != nil {
			return cypher.NewValidationError(s.Label, "", err)
		}
	}
	return nil
}
