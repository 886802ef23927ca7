package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/schema"
	"github.com/syssam/cypher/schema/field"
)

func TestValidate(t *testing.T) {
	s := schema.MustResolve(User{})

	t.Run("OK", func(t *testing.T) {
		e, err := s.New(map[string]any{"name": "Ada", "email": "ada@example.com"})
		require.NoError(t, err)
		assert.NoError(t, s.Validate(e))
	})

	t.Run("MissingRequired", func(t *testing.T) {
		e, err := s.New(map[string]any{"name": "Ada"})
		require.NoError(t, err)
		err = s.Validate(e)
		require.Error(t, err)
		assert.True(t, cypher.IsValidationError(err))
		assert.ErrorContains(t, err, "User.email")
		assert.ErrorContains(t, err, "missing required value")
	})

	t.Run("PropertyValidator", func(t *testing.T) {
		e, err := s.New(map[string]any{"name": "Ada", "email": "ada@example.com", "age": -1})
		require.NoError(t, err)
		err = s.Validate(e)
		require.Error(t, err)
		assert.ErrorContains(t, err, "User.age")
	})

	t.Run("EntityValidator", func(t *testing.T) {
		e, err := s.New(map[string]any{"name": "root", "email": "root@example.com"})
		require.NoError(t, err)
		err = s.Validate(e)
		require.Error(t, err)
		assert.True(t, cypher.IsValidationError(err))
		assert.ErrorContains(t, err, `name "root" is reserved`)
	})

	t.Run("SchemaMismatch", func(t *testing.T) {
		p := schema.MustResolve(Post{})
		e, err := p.New(map[string]any{"slug": "x", "title": "X"})
		require.NoError(t, err)
		err = s.Validate(e)
		require.Error(t, err)
		assert.True(t, cypher.IsSchemaMismatch(err))
	})
}

// counting is a definition whose validators record their invocation order,
// so short-circuiting is observable.
type counting struct {
	cypher.Schema
}

var calls []string

func (counting) Fields() []cypher.Field {
	return []cypher.Field{
		field.String("a").
			Validate(func(string) error { calls = append(calls, "a1"); return errors.New("a1 failed") }).
			Validate(func(string) error { calls = append(calls, "a2"); return nil }),
		field.String("b").
			Validate(func(string) error { calls = append(calls, "b1"); return nil }),
	}
}

func (counting) Validators() []cypher.Validator {
	return []cypher.Validator{
		func(map[string]any) error { calls = append(calls, "entity"); return nil },
	}
}

func TestValidateShortCircuit(t *testing.T) {
	s := schema.MustResolve(counting{})
	e, err := s.New(map[string]any{"a": "x", "b": "y"})
	require.NoError(t, err)

	calls = nil
	err = s.Validate(e)
	require.Error(t, err)
	assert.ErrorContains(t, err, "a1 failed")
	// The first failing validator stops the pipeline: neither the second
	// validator of "a", nor "b", nor the entity validator runs.
	assert.Equal(t, []string{"a1"}, calls)
}
