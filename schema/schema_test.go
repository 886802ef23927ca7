package schema_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/schema"
	"github.com/syssam/cypher/schema/field"
	"github.com/syssam/cypher/schema/index"
	"github.com/syssam/cypher/schema/mixin"
)

// User is the vertex definition shared by the package tests.
type User struct {
	cypher.Schema
}

func (User) Mixin() []cypher.Mixin {
	return []cypher.Mixin{mixin.Time{}}
}

func (User) Fields() []cypher.Field {
	return []cypher.Field{
		field.String("name").NotEmpty(),
		field.String("email").Unique().NotEmpty(),
		field.Int("age").Optional().Positive(),
	}
}

func (User) Indexes() []cypher.Index {
	return []cypher.Index{
		index.Fields("name", "email").Unique(),
	}
}

func (User) Validators() []cypher.Validator {
	return []cypher.Validator{
		func(values map[string]any) error {
			if name, _ := values["name"].(string); name == "root" {
				return fmt.Errorf("name %q is reserved", name)
			}
			return nil
		},
	}
}

// Post lives in a separate database and has a primary key.
type Post struct {
	cypher.Schema
}

func (Post) Fields() []cypher.Field {
	return []cypher.Field{
		field.String("slug").Unique(),
		field.String("title"),
		field.JSON("meta").Optional().DefaultFunc(func() map[string]any {
			return map[string]any{"draft": true}
		}),
	}
}

func (Post) Config() cypher.Config {
	return cypher.Config{Database: "content", PrimaryKey: "slug"}
}

// Knows is the relationship definition between two users.
type Knows struct {
	cypher.Relation
}

func (Knows) Fields() []cypher.Field {
	return []cypher.Field{
		field.Int("since").Positive(),
	}
}

func (Knows) Endpoints() (source, target cypher.Node) {
	return User{}, User{}
}

func (Knows) Config() cypher.Config {
	return cypher.Config{Label: "KNOWS"}
}

// Base is an abstract definition contributing common fields.
type Base struct {
	cypher.Schema
}

func (Base) Fields() []cypher.Field {
	return []cypher.Field{field.String("tenant")}
}

func (Base) Config() cypher.Config {
	return cypher.Config{Abstract: true}
}

func TestResolve(t *testing.T) {
	s, err := schema.Resolve(User{})
	require.NoError(t, err)
	assert.Equal(t, "User", s.Label)
	assert.Equal(t, schema.KindNode, s.Kind)
	assert.Equal(t, schema.DefaultDatabase, s.Database)

	// Mixin properties come first, then the schema's own in declaration
	// order.
	names := make([]string, 0, len(s.Properties))
	for _, d := range s.Properties {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"created_at", "updated_at", "name", "email", "age"}, names)

	d, ok := s.Property("email")
	require.True(t, ok)
	assert.True(t, d.Unique)

	require.Len(t, s.UniqueTogether, 1)
	assert.Equal(t, []string{"name", "email"}, s.UniqueTogether[0])
	assert.Len(t, s.Validators, 1)
}

func TestResolveEdge(t *testing.T) {
	s, err := schema.Resolve(Knows{})
	require.NoError(t, err)
	assert.Equal(t, "KNOWS", s.Label)
	assert.Equal(t, schema.KindEdge, s.Kind)
	require.NotNil(t, s.Source)
	require.NotNil(t, s.Target)
	assert.Equal(t, "User", s.Source.Label)
	assert.Equal(t, "User", s.Target.Label)
}

func TestResolveConfig(t *testing.T) {
	s, err := schema.Resolve(Post{})
	require.NoError(t, err)
	assert.Equal(t, "content", s.Database)
	assert.Equal(t, "slug", s.PrimaryKey)
}

func TestResolveErrors(t *testing.T) {
	t.Run("NotADefinition", func(t *testing.T) {
		_, err := schema.Resolve(42)
		assert.ErrorContains(t, err, "neither a node nor an edge")
	})

	t.Run("DuplicateProperty", func(t *testing.T) {
		_, err := schema.Resolve(duplicated{})
		assert.ErrorContains(t, err, `duplicate property "name"`)
	})

	t.Run("BuilderError", func(t *testing.T) {
		_, err := schema.Resolve(brokenJSON{})
		assert.ErrorContains(t, err, "DefaultFunc")
	})

	t.Run("PrimaryKeyUnknown", func(t *testing.T) {
		_, err := schema.Resolve(badPK{})
		assert.ErrorContains(t, err, `primary key names unknown property "id"`)
	})

	t.Run("PrimaryKeyNotUnique", func(t *testing.T) {
		_, err := schema.Resolve(nonUniquePK{})
		assert.ErrorContains(t, err, `must be unique`)
	})

	t.Run("IndexUnknownField", func(t *testing.T) {
		_, err := schema.Resolve(badIndex{})
		assert.ErrorContains(t, err, `index references unknown property "nope"`)
	})
}

func TestMustResolve(t *testing.T) {
	assert.NotPanics(t, func() { schema.MustResolve(User{}) })
	assert.Panics(t, func() { schema.MustResolve(badPK{}) })
}

func TestHydrate(t *testing.T) {
	s := schema.MustResolve(User{})

	t.Run("OK", func(t *testing.T) {
		e, err := s.Hydrate("4:abc:1", map[string]any{
			"name":  "Ada",
			"email": "ada@example.com",
			"age":   int64(36), // stores hand integers back as int64
		})
		require.NoError(t, err)
		assert.True(t, e.Persisted())
		assert.Equal(t, "4:abc:1", e.StoreID())
		v, _ := e.Get("age")
		assert.Equal(t, int64(36), v)
	})

	t.Run("UnknownPropertyIgnored", func(t *testing.T) {
		e, err := s.Hydrate("4:abc:2", map[string]any{"name": "Ada", "legacy": 1})
		require.NoError(t, err)
		_, ok := e.Get("legacy")
		assert.False(t, ok)
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		_, err := s.Hydrate("4:abc:3", map[string]any{"name": 7})
		assert.ErrorContains(t, err, "store returned int")
	})

	t.Run("NoIdentity", func(t *testing.T) {
		_, err := s.Hydrate("", nil)
		assert.ErrorContains(t, err, "without a store identity")
	})

	t.Run("NoDefaultsApplied", func(t *testing.T) {
		e, err := s.Hydrate("4:abc:4", map[string]any{"name": "Ada"})
		require.NoError(t, err)
		_, ok := e.Get("created_at")
		assert.False(t, ok, "hydration reflects the store's view")
	})
}

func TestHydrateValue(t *testing.T) {
	d := field.Int("age").Descriptor()
	assert.Equal(t, 36, schema.HydrateValue(d, int64(36)))
	assert.Equal(t, "x", schema.HydrateValue(field.String("s").Descriptor(), "x"))
	assert.Equal(t, time.Time{}, schema.HydrateValue(nil, time.Time{}))
}

type duplicated struct {
	cypher.Schema
}

func (duplicated) Fields() []cypher.Field {
	return []cypher.Field{
		field.String("name"),
		field.Int("name"),
	}
}

type brokenJSON struct {
	cypher.Schema
}

func (brokenJSON) Fields() []cypher.Field {
	return []cypher.Field{
		field.JSON("meta").Default(map[string]any{"shared": true}),
	}
}

type badPK struct {
	cypher.Schema
}

func (badPK) Fields() []cypher.Field {
	return []cypher.Field{field.String("name")}
}

func (badPK) Config() cypher.Config {
	return cypher.Config{PrimaryKey: "id"}
}

type nonUniquePK struct {
	cypher.Schema
}

func (nonUniquePK) Fields() []cypher.Field {
	return []cypher.Field{field.String("name")}
}

func (nonUniquePK) Config() cypher.Config {
	return cypher.Config{PrimaryKey: "name"}
}

type badIndex struct {
	cypher.Schema
}

func (badIndex) Fields() []cypher.Field {
	return []cypher.Field{field.String("name")}
}

func (badIndex) Indexes() []cypher.Index {
	return []cypher.Index{index.Fields("nope")}
}
