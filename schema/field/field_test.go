package field_test

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/cypher/schema/field"
)

func TestInt(t *testing.T) {
	fd := field.Int("age").
		Positive().
		Comment("comment").
		Descriptor()
	assert.Equal(t, "age", fd.Name)
	assert.Equal(t, field.TypeInt, fd.Type)
	assert.Len(t, fd.Validators, 1)
	assert.Equal(t, "comment", fd.Comment)

	fd = field.Int("age").
		Default(10).
		Min(10).
		Max(20).
		Descriptor()
	assert.NotNil(t, fd.Default)
	v, ok := fd.DefaultValue()
	assert.True(t, ok)
	assert.Equal(t, int64(10), v)
	assert.Len(t, fd.Validators, 2)

	fd = field.Int("age").
		Range(20, 40).
		Optional().
		Descriptor()
	assert.True(t, fd.Optional)
	assert.Len(t, fd.Validators, 2)
	assert.NoError(t, fd.Validators[0](25))
	assert.Error(t, fd.Validators[0](19))
	assert.Error(t, fd.Validators[1](41))

	fd = field.Int64("counter").Descriptor()
	assert.Equal(t, field.TypeInt64, fd.Type)
}

func TestIntValidate(t *testing.T) {
	fd := field.Int("age").
		Validate(func(v int64) error {
			if v%2 != 0 {
				return errors.New("odd")
			}
			return nil
		}).
		Descriptor()
	require.Len(t, fd.Validators, 1)
	assert.NoError(t, fd.Validators[0](2))
	assert.EqualError(t, fd.Validators[0](3), "odd")
}

func TestFloat(t *testing.T) {
	fd := field.Float("score").
		Positive().
		Descriptor()
	assert.Equal(t, field.TypeFloat64, fd.Type)
	require.Len(t, fd.Validators, 1)
	assert.NoError(t, fd.Validators[0](0.5))
	assert.Error(t, fd.Validators[0](-1.0))

	fd = field.Float("score").Min(1).Max(10).Descriptor()
	assert.NoError(t, fd.Validators[0](1.0))
	assert.Error(t, fd.Validators[1](10.5))
}

func TestString(t *testing.T) {
	fd := field.String("name").
		NotEmpty().
		MaxLen(10).
		Descriptor()
	assert.Equal(t, field.TypeString, fd.Type)
	require.Len(t, fd.Validators, 2)
	assert.Error(t, fd.Validators[0](""))
	assert.NoError(t, fd.Validators[0]("a"))
	assert.Error(t, fd.Validators[1]("0123456789x"))

	fd = field.String("email").
		Match(regexp.MustCompile("^[^@]+@[^@]+$")).
		Unique().
		Descriptor()
	assert.True(t, fd.Unique)
	assert.NoError(t, fd.Validators[0]("a@b"))
	assert.Error(t, fd.Validators[0]("nope"))

	fd = field.String("slug").
		DefaultFunc(func() string { return "generated" }).
		Descriptor()
	v, ok := fd.DefaultValue()
	assert.True(t, ok)
	assert.Equal(t, "generated", v)
}

func TestTime(t *testing.T) {
	now := time.Now()
	fd := field.Time("created_at").
		Default(func() time.Time { return now }).
		Descriptor()
	assert.Equal(t, field.TypeTime, fd.Type)
	v, ok := fd.DefaultValue()
	assert.True(t, ok)
	assert.Equal(t, now, v)
}

func TestUUID(t *testing.T) {
	fd := field.UUID("id").
		Default(uuid.New).
		Unique().
		Descriptor()
	assert.Equal(t, field.TypeUUID, fd.Type)
	assert.True(t, fd.Unique)

	v1, ok := fd.DefaultValue()
	require.True(t, ok)
	v2, _ := fd.DefaultValue()
	assert.NotEqual(t, v1, v2, "generator defaults are invoked per call")
}

func TestJSON(t *testing.T) {
	fd := field.JSON("meta").
		DefaultFunc(func() map[string]any { return map[string]any{"a": 1} }).
		Optional().
		Descriptor()
	assert.Equal(t, field.TypeJSON, fd.Type)
	assert.True(t, fd.Optional)
	assert.NoError(t, fd.Err)

	// Two instantiations must never share the same mutable value.
	v1, _ := fd.DefaultValue()
	v2, _ := fd.DefaultValue()
	v1.(map[string]any)["a"] = 99
	assert.Equal(t, 1, v2.(map[string]any)["a"])
}

func TestJSONLiteralDefault(t *testing.T) {
	fd := field.JSON("meta").
		Default(map[string]any{"shared": true}).
		Descriptor()
	require.Error(t, fd.Err)
	assert.Contains(t, fd.Err.Error(), "DefaultFunc")
}

func TestBool(t *testing.T) {
	fd := field.Bool("active").
		Default(true).
		Descriptor()
	assert.Equal(t, field.TypeBool, fd.Type)
	v, ok := fd.DefaultValue()
	assert.True(t, ok)
	assert.Equal(t, true, v)

	fd = field.Bool("active").Descriptor()
	_, ok = fd.DefaultValue()
	assert.False(t, ok)
}

func TestTypeAccepts(t *testing.T) {
	tests := []struct {
		typ    field.Type
		value  any
		expect bool
	}{
		{field.TypeInt, 7, true},
		{field.TypeInt, int64(7), true},
		{field.TypeInt, "7", false},
		{field.TypeInt64, int64(7), true},
		{field.TypeFloat64, 1.5, true},
		{field.TypeFloat64, 1, false},
		{field.TypeString, "x", true},
		{field.TypeBool, true, true},
		{field.TypeTime, time.Now(), true},
		{field.TypeUUID, uuid.New(), true},
		{field.TypeUUID, uuid.NewString(), true},
		{field.TypeUUID, "not-a-uuid", false},
		{field.TypeJSON, map[string]any{}, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%T", tt.typ, tt.value), func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.typ.Accepts(tt.value))
		})
	}
}
