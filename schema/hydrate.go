package schema

import (
	"fmt"

	"github.com/syssam/cypher/schema/field"
)

// Hydrate builds an entity from a result row: the store identity and the
// raw property values the store handed back. Defaults are not applied;
// hydration reflects the store's view. Stores return all integers as int64
// and these are accepted for int properties as-is.
func (s *Schema) Hydrate(storeID string, values map[string]any) (*Entity, error) {
	if s.Abstract {
		return nil, fmt.Errorf("schema: %s is abstract and cannot be hydrated", s.Label)
	}
	if storeID == "" {
		return nil, fmt.Errorf("schema: hydrating %s without a store identity", s.Label)
	}
	e := &Entity{schema: s, values: make(map[string]any, len(values)), storeID: storeID}
	for name, v := range values {
		d, ok := s.Property(name)
		if !ok {
			// Properties unknown to the schema may exist in the store;
			// they are ignored rather than rejected.
			continue
		}
		if v == nil {
			continue
		}
		if !d.Type.Accepts(v) {
			return nil, fmt.Errorf("schema: store returned %T for %s.%s (%s)", v, s.Label, name, d.Type)
		}
		e.values[name] = v
	}
	return e, nil
}

// HydrateValue maps a raw scalar projection (for example "a.name") through
// the property descriptor so callers get a consistently typed value.
func HydrateValue(d *field.Descriptor, v any) any {
	if d == nil {
		return v
	}
	if d.Type == field.TypeInt {
		if i, ok := v.(int64); ok {
			return int(i)
		}
	}
	return v
}
