// Package field provides fluent builders for defining entity properties.
//
// Each builder produces a Descriptor consumed at schema resolution:
//
//	field.String("email").
//	    Unique().
//	    NotEmpty()
//
//	field.Int("age").
//	    Optional().
//	    Positive()
//
//	field.Time("created_at").
//	    Default(time.Now)
//
// Defaults declared with DefaultFunc (or the generator-only Default of Time,
// UUID and JSON fields) are invoked once per instantiation, so mutable
// defaults are never shared between instances. Validators run in declaration
// order and the first failure short-circuits the rest.
package field
