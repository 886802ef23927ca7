package field

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// A Descriptor for a property field. It is the flattened result of one
// field builder and is consumed by schema resolution; application code
// rarely touches it directly.
type Descriptor struct {
	Name       string            // property name
	Type       Type              // property type
	Default    any               // default value or a func() T generator
	Optional   bool              // nullable property
	Unique     bool              // unique index constraint
	Indexed    bool              // non-unique index hint
	Validators []func(any) error // validators in declaration order
	Comment    string            // builder comment
	Err        error             // first builder error, checked at resolution
}

// DefaultValue returns the default value for the property, invoking a
// generator default once per call. The second result reports whether a
// default was declared at all.
func (d *Descriptor) DefaultValue() (any, bool) {
	switch f := d.Default.(type) {
	case nil:
		return nil, false
	case func() bool:
		return f(), true
	case func() int:
		return f(), true
	case func() int64:
		return f(), true
	case func() float64:
		return f(), true
	case func() string:
		return f(), true
	case func() time.Time:
		return f(), true
	case func() uuid.UUID:
		return f(), true
	case func() map[string]any:
		return f(), true
	default:
		return d.Default, true
	}
}

func (d *Descriptor) err(format string, args ...any) {
	if d.Err == nil {
		d.Err = fmt.Errorf("field %q: %s", d.Name, fmt.Sprintf(format, args...))
	}
}

// Bool returns a new bool field builder.
func Bool(name string) *BoolBuilder {
	return &BoolBuilder{&Descriptor{Name: name, Type: TypeBool}}
}

// Int returns a new int field builder.
func Int(name string) *IntBuilder {
	return &IntBuilder{&Descriptor{Name: name, Type: TypeInt}}
}

// Int64 returns a new int64 field builder.
func Int64(name string) *IntBuilder {
	return &IntBuilder{&Descriptor{Name: name, Type: TypeInt64}}
}

// Float returns a new float64 field builder.
func Float(name string) *FloatBuilder {
	return &FloatBuilder{&Descriptor{Name: name, Type: TypeFloat64}}
}

// String returns a new string field builder.
func String(name string) *StringBuilder {
	return &StringBuilder{&Descriptor{Name: name, Type: TypeString}}
}

// Time returns a new time.Time field builder.
func Time(name string) *TimeBuilder {
	return &TimeBuilder{&Descriptor{Name: name, Type: TypeTime}}
}

// UUID returns a new UUID field builder.
func UUID(name string) *UUIDBuilder {
	return &UUIDBuilder{&Descriptor{Name: name, Type: TypeUUID}}
}

// JSON returns a new field builder for free-form mapping values. Defaults
// for JSON fields must be declared with DefaultFunc so each instance gets a
// freshly constructed, independently mutable value.
func JSON(name string) *JSONBuilder {
	return &JSONBuilder{&Descriptor{Name: name, Type: TypeJSON}}
}

// BoolBuilder is the builder for bool fields.
type BoolBuilder struct {
	desc *Descriptor
}

// Default sets the default value of the field.
func (b *BoolBuilder) Default(v bool) *BoolBuilder {
	b.desc.Default = v
	return b
}

// Optional marks the field as nullable.
func (b *BoolBuilder) Optional() *BoolBuilder {
	b.desc.Optional = true
	return b
}

// Comment sets the comment of the field.
func (b *BoolBuilder) Comment(c string) *BoolBuilder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the cypher.Field interface.
func (b *BoolBuilder) Descriptor() *Descriptor {
	return b.desc
}

// IntBuilder is the builder for integer fields.
type IntBuilder struct {
	desc *Descriptor
}

// Default sets the default value of the field.
func (b *IntBuilder) Default(v int64) *IntBuilder {
	b.desc.Default = v
	return b
}

// DefaultFunc sets a generator invoked once per instantiation.
func (b *IntBuilder) DefaultFunc(fn func() int64) *IntBuilder {
	b.desc.Default = fn
	return b
}

// Min adds a minimum-value validator.
func (b *IntBuilder) Min(v int64) *IntBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		if asInt64(val) < v {
			return fmt.Errorf("value out of range, minimum %d", v)
		}
		return nil
	})
	return b
}

// Max adds a maximum-value validator.
func (b *IntBuilder) Max(v int64) *IntBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		if asInt64(val) > v {
			return fmt.Errorf("value out of range, maximum %d", v)
		}
		return nil
	})
	return b
}

// Range adds minimum and maximum validators.
func (b *IntBuilder) Range(min, max int64) *IntBuilder {
	return b.Min(min).Max(max)
}

// Positive adds a strictly-positive validator.
func (b *IntBuilder) Positive() *IntBuilder {
	return b.Min(1)
}

// NonNegative adds a non-negative validator.
func (b *IntBuilder) NonNegative() *IntBuilder {
	return b.Min(0)
}

// Unique marks the field as a unique property.
func (b *IntBuilder) Unique() *IntBuilder {
	b.desc.Unique = true
	return b
}

// Indexed marks the field for a non-unique index.
func (b *IntBuilder) Indexed() *IntBuilder {
	b.desc.Indexed = true
	return b
}

// Optional marks the field as nullable.
func (b *IntBuilder) Optional() *IntBuilder {
	b.desc.Optional = true
	return b
}

// Validate adds a validator to the field. Validators run in declaration
// order and the first failure short-circuits.
func (b *IntBuilder) Validate(fn func(int64) error) *IntBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		return fn(asInt64(val))
	})
	return b
}

// Comment sets the comment of the field.
func (b *IntBuilder) Comment(c string) *IntBuilder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the cypher.Field interface.
func (b *IntBuilder) Descriptor() *Descriptor {
	return b.desc
}

// FloatBuilder is the builder for float64 fields.
type FloatBuilder struct {
	desc *Descriptor
}

// Default sets the default value of the field.
func (b *FloatBuilder) Default(v float64) *FloatBuilder {
	b.desc.Default = v
	return b
}

// DefaultFunc sets a generator invoked once per instantiation.
func (b *FloatBuilder) DefaultFunc(fn func() float64) *FloatBuilder {
	b.desc.Default = fn
	return b
}

// Min adds a minimum-value validator.
func (b *FloatBuilder) Min(v float64) *FloatBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		if f, _ := val.(float64); f < v {
			return fmt.Errorf("value out of range, minimum %v", v)
		}
		return nil
	})
	return b
}

// Max adds a maximum-value validator.
func (b *FloatBuilder) Max(v float64) *FloatBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		if f, _ := val.(float64); f > v {
			return fmt.Errorf("value out of range, maximum %v", v)
		}
		return nil
	})
	return b
}

// Positive adds a strictly-positive validator.
func (b *FloatBuilder) Positive() *FloatBuilder {
	return b.Min(math.SmallestNonzeroFloat64)
}

// Optional marks the field as nullable.
func (b *FloatBuilder) Optional() *FloatBuilder {
	b.desc.Optional = true
	return b
}

// Validate adds a validator to the field.
func (b *FloatBuilder) Validate(fn func(float64) error) *FloatBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		f, _ := val.(float64)
		return fn(f)
	})
	return b
}

// Comment sets the comment of the field.
func (b *FloatBuilder) Comment(c string) *FloatBuilder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the cypher.Field interface.
func (b *FloatBuilder) Descriptor() *Descriptor {
	return b.desc
}

// StringBuilder is the builder for string fields.
type StringBuilder struct {
	desc *Descriptor
}

// Default sets the default value of the field.
func (b *StringBuilder) Default(v string) *StringBuilder {
	b.desc.Default = v
	return b
}

// DefaultFunc sets a generator invoked once per instantiation.
func (b *StringBuilder) DefaultFunc(fn func() string) *StringBuilder {
	b.desc.Default = fn
	return b
}

// MinLen adds a minimum-length validator.
func (b *StringBuilder) MinLen(i int) *StringBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		s, _ := val.(string)
		if len(s) < i {
			return errors.New("value is less than the required length")
		}
		return nil
	})
	return b
}

// MaxLen adds a maximum-length validator.
func (b *StringBuilder) MaxLen(i int) *StringBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		s, _ := val.(string)
		if len(s) > i {
			return errors.New("value is greater than the required length")
		}
		return nil
	})
	return b
}

// NotEmpty adds a non-empty validator.
func (b *StringBuilder) NotEmpty() *StringBuilder {
	return b.MinLen(1)
}

// Match adds a regexp validator.
func (b *StringBuilder) Match(re *regexp.Regexp) *StringBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		s, _ := val.(string)
		if !re.MatchString(s) {
			return fmt.Errorf("value does not match validation %q", re)
		}
		return nil
	})
	return b
}

// Unique marks the field as a unique property.
func (b *StringBuilder) Unique() *StringBuilder {
	b.desc.Unique = true
	return b
}

// Indexed marks the field for a non-unique index.
func (b *StringBuilder) Indexed() *StringBuilder {
	b.desc.Indexed = true
	return b
}

// Optional marks the field as nullable.
func (b *StringBuilder) Optional() *StringBuilder {
	b.desc.Optional = true
	return b
}

// Validate adds a validator to the field.
func (b *StringBuilder) Validate(fn func(string) error) *StringBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		s, _ := val.(string)
		return fn(s)
	})
	return b
}

// Comment sets the comment of the field.
func (b *StringBuilder) Comment(c string) *StringBuilder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the cypher.Field interface.
func (b *StringBuilder) Descriptor() *Descriptor {
	return b.desc
}

// TimeBuilder is the builder for time.Time fields.
type TimeBuilder struct {
	desc *Descriptor
}

// Default sets a generator invoked once per instantiation, typically
// time.Now.
func (b *TimeBuilder) Default(fn func() time.Time) *TimeBuilder {
	b.desc.Default = fn
	return b
}

// Unique marks the field as a unique property.
func (b *TimeBuilder) Unique() *TimeBuilder {
	b.desc.Unique = true
	return b
}

// Indexed marks the field for a non-unique index.
func (b *TimeBuilder) Indexed() *TimeBuilder {
	b.desc.Indexed = true
	return b
}

// Optional marks the field as nullable.
func (b *TimeBuilder) Optional() *TimeBuilder {
	b.desc.Optional = true
	return b
}

// Validate adds a validator to the field.
func (b *TimeBuilder) Validate(fn func(time.Time) error) *TimeBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		t, _ := val.(time.Time)
		return fn(t)
	})
	return b
}

// Comment sets the comment of the field.
func (b *TimeBuilder) Comment(c string) *TimeBuilder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the cypher.Field interface.
func (b *TimeBuilder) Descriptor() *Descriptor {
	return b.desc
}

// UUIDBuilder is the builder for UUID fields.
type UUIDBuilder struct {
	desc *Descriptor
}

// Default sets a generator invoked once per instantiation, typically
// uuid.New.
func (b *UUIDBuilder) Default(fn func() uuid.UUID) *UUIDBuilder {
	b.desc.Default = fn
	return b
}

// Unique marks the field as a unique property.
func (b *UUIDBuilder) Unique() *UUIDBuilder {
	b.desc.Unique = true
	return b
}

// Indexed marks the field for a non-unique index.
func (b *UUIDBuilder) Indexed() *UUIDBuilder {
	b.desc.Indexed = true
	return b
}

// Optional marks the field as nullable.
func (b *UUIDBuilder) Optional() *UUIDBuilder {
	b.desc.Optional = true
	return b
}

// Comment sets the comment of the field.
func (b *UUIDBuilder) Comment(c string) *UUIDBuilder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the cypher.Field interface.
func (b *UUIDBuilder) Descriptor() *Descriptor {
	return b.desc
}

// JSONBuilder is the builder for free-form mapping fields.
type JSONBuilder struct {
	desc *Descriptor
}

// Default records a builder error: JSON defaults must be generators.
func (b *JSONBuilder) Default(v map[string]any) *JSONBuilder {
	b.desc.err("JSON defaults must use DefaultFunc so values are not shared between instances")
	return b
}

// DefaultFunc sets a generator invoked once per instantiation. Each
// instance receives an independently mutable value.
func (b *JSONBuilder) DefaultFunc(fn func() map[string]any) *JSONBuilder {
	b.desc.Default = fn
	return b
}

// Optional marks the field as nullable.
func (b *JSONBuilder) Optional() *JSONBuilder {
	b.desc.Optional = true
	return b
}

// Validate adds a validator to the field.
func (b *JSONBuilder) Validate(fn func(map[string]any) error) *JSONBuilder {
	b.desc.Validators = append(b.desc.Validators, func(val any) error {
		m, _ := val.(map[string]any)
		return fn(m)
	})
	return b
}

// Comment sets the comment of the field.
func (b *JSONBuilder) Comment(c string) *JSONBuilder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the cypher.Field interface.
func (b *JSONBuilder) Descriptor() *Descriptor {
	return b.desc
}

// asInt64 widens int values so integer validators work across both
// declared integer types and int64 values handed back by the store.
func asInt64(v any) int64 {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}
