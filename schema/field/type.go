package field

import (
	"time"

	"github.com/google/uuid"
)

// A Type represents the property type of a field.
type Type uint8

// List of all property types supported by graph entities.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt
	TypeInt64
	TypeFloat64
	TypeString
	TypeTime
	TypeUUID
	TypeJSON
	endTypes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt:     "int",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeTime:    "time.Time",
	TypeUUID:    "uuid",
	TypeJSON:    "json",
}

// String returns the string representation of the type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the given type is a known property type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Numeric reports if the type is a numeric type.
func (t Type) Numeric() bool {
	switch t {
	case TypeInt, TypeInt64, TypeFloat64:
		return true
	}
	return false
}

// Accepts reports whether a Go value can be assigned to a property of this
// type. Integer types accept each other since stores hand integers back as
// int64.
func (t Type) Accepts(v any) bool {
	switch t {
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeInt, TypeInt64:
		switch v.(type) {
		case int, int64:
			return true
		}
		return false
	case TypeFloat64:
		_, ok := v.(float64)
		return ok
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeTime:
		_, ok := v.(time.Time)
		return ok
	case TypeUUID:
		switch v := v.(type) {
		case uuid.UUID:
			return true
		case string:
			_, err := uuid.Parse(v)
			return err == nil
		}
		return false
	case TypeJSON:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}
