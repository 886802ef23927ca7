package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/compiler"
	"github.com/syssam/cypher/dialect"
	"github.com/syssam/cypher/query"
	"github.com/syssam/cypher/schema"
	"github.com/syssam/cypher/schema/field"
)

type User struct {
	cypher.Schema
}

func (User) Fields() []cypher.Field {
	return []cypher.Field{
		field.String("name").NotEmpty(),
		field.String("email").Unique().NotEmpty(),
		field.Int("age").Optional().Positive(),
	}
}

type Knows struct {
	cypher.Relation
}

func (Knows) Fields() []cypher.Field {
	return []cypher.Field{field.Int("since").Positive()}
}

func (Knows) Endpoints() (source, target cypher.Node) {
	return User{}, User{}
}

func (Knows) Config() cypher.Config {
	return cypher.Config{Label: "KNOWS"}
}

type Article struct {
	cypher.Schema
}

func (Article) Fields() []cypher.Field {
	return []cypher.Field{
		field.String("title").NotEmpty(),
	}
}

func (Article) Config() cypher.Config {
	return cypher.Config{Database: "content"}
}

var (
	userSchema    = schema.MustResolve(User{})
	knowsSchema   = schema.MustResolve(Knows{})
	articleSchema = schema.MustResolve(Article{})
)

func newUser(t *testing.T, name, email string) *schema.Entity {
	t.Helper()
	e, err := userSchema.New(map[string]any{"name": name, "email": email})
	require.NoError(t, err)
	return e
}

func TestCompileMatch(t *testing.T) {
	spec, err := query.New().
		Match(User{}).As("u").
		Where(query.EQ("email", "ada@example.com")).
		Result("u")
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	require.Len(t, plan.Statements, 1)

	stmt := plan.Statements[0]
	assert.Equal(t, "MATCH (u:User)\nWHERE u.email = $u_email\nRETURN u", stmt.Text)
	assert.Equal(t, map[string]any{"u_email": "ada@example.com"}, stmt.Params)
	assert.Equal(t, []string{"u"}, stmt.ReturnAliases)
	assert.Equal(t, dialect.ModeRead, stmt.Mode)
	assert.Equal(t, "default", stmt.Database)
	require.Contains(t, plan.Bindings, "u")
	assert.Equal(t, "User", plan.Bindings["u"].Label)
}

func TestCompileGeneratedAliases(t *testing.T) {
	spec, err := query.New().
		Match(User{}).
		ConnectedThrough(Knows{}).
		To(User{}).
		Result()
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	// Aliases are assigned in introduction order: first node, then the
	// relationship, then the far endpoint.
	assert.Equal(t, "MATCH (_a:User)-[_b:KNOWS]->(_c:User)\nRETURN _a, _b, _c", stmt.Text)
}

func TestCompileOperators(t *testing.T) {
	tests := []struct {
		name string
		pred query.Predicate
		want string
	}{
		{"NEQ", query.NEQ("name", "x"), "u.name <> $u_name"},
		{"In", query.In("name", "a", "b"), "u.name IN $u_name"},
		{"NotIn", query.NotIn("name", "a"), "NOT u.name IN $u_name"},
		{"Contains", query.Contains("name", "da"), "u.name CONTAINS $u_name"},
		{"HasPrefix", query.HasPrefix("name", "A"), "u.name STARTS WITH $u_name"},
		{"HasSuffix", query.HasSuffix("name", "a"), "u.name ENDS WITH $u_name"},
		{"IsNull", query.IsNull("age"), "u.age IS NULL"},
		{"NotNull", query.NotNull("age"), "u.age IS NOT NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := query.New().Match(User{}).As("u").Where(tt.pred).Result("u")
			require.NoError(t, err)
			plan, err := compiler.Compile(spec)
			require.NoError(t, err)
			assert.Contains(t, plan.Statements[0].Text, "WHERE "+tt.want)
		})
	}
}

func TestCompileRefPredicate(t *testing.T) {
	spec, err := query.New().
		Match(User{}).As("a").
		Match(User{}).As("b").
		Where(query.GT("age", query.Ref{Alias: "a", Field: "age"})).
		Result()
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	assert.Equal(t, "MATCH (a:User)\nMATCH (b:User)\nWHERE b.age > a.age\nRETURN a, b", stmt.Text)
	assert.Empty(t, stmt.Params)
}

func TestCompileVariableLength(t *testing.T) {
	spec, err := query.New().
		Match(User{}).As("a").
		Where(query.EQ("email", "ada@example.com")).
		ConnectedThrough(Knows{}, query.GT("since", 2010)).Hops(1, 2).
		To(User{}).As("b").
		Result("b")
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	assert.Equal(t,
		"MATCH (a:User)-[_a:KNOWS*1..2]->(b:User)\n"+
			"WHERE a.email = $a_email AND all(_a_r IN _a WHERE _a_r.since > $a_since)\n"+
			"RETURN b",
		stmt.Text)
	assert.Equal(t, map[string]any{"a_email": "ada@example.com", "a_since": 2010}, stmt.Params)
}

func TestCompileQuantifierShadowing(t *testing.T) {
	// A caller-given alias equal to the derived iteration name must not
	// shadow the quantifier of a variable-length predicate.
	spec, err := query.New().
		Match(User{}).As("k_r").
		ConnectedThrough(Knows{}, query.GT("since", 2000)).As("k").Hops(1, 2).
		To(User{}).As("b").
		Result("b")
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	assert.Equal(t,
		"MATCH (k_r:User)-[k:KNOWS*1..2]->(b:User)\n"+
			"WHERE all(k_r2 IN k WHERE k_r2.since > $k_since)\n"+
			"RETURN b",
		stmt.Text)
}

func TestCompileUnboundedHops(t *testing.T) {
	spec, err := query.New().
		Match(User{}).
		ConnectedThrough(Knows{}).Hops(2, -1).
		With(User{}).
		Result()
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	assert.Contains(t, plan.Statements[0].Text, "-[_b:KNOWS*2..]-(")
}

func TestCompileAnchoredMatch(t *testing.T) {
	ada := newUser(t, "Ada", "ada@example.com")
	ada.SetStoreID("4:abc:1")

	spec, err := query.New().Match(ada).As("u").Result("u")
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	// Anchored vertices are addressed by identity, never by label.
	assert.Equal(t, "MATCH (u)\nWHERE elementId(u) = $u_id\nRETURN u", stmt.Text)
	assert.Equal(t, map[string]any{"u_id": "4:abc:1"}, stmt.Params)
}

func TestCompileCreate(t *testing.T) {
	ada := newUser(t, "Ada", "ada@example.com")

	spec, err := query.New().Create(ada).As("u").Result("u")
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	assert.Equal(t, "CREATE (u:User {name: $u_name, email: $u_email})\nRETURN u", stmt.Text)
	assert.Equal(t, map[string]any{"u_name": "Ada", "u_email": "ada@example.com"}, stmt.Params)
	assert.Equal(t, dialect.ModeWrite, stmt.Mode)
	assert.Same(t, ada, plan.Created["u"])
}

func TestCompileCreateRelationship(t *testing.T) {
	ada := newUser(t, "Ada", "ada@example.com")
	bob := newUser(t, "Bob", "bob@example.com")
	knows, err := knowsSchema.Connect(ada, bob, map[string]any{"since": 2020})
	require.NoError(t, err)

	spec, err := query.New().Create(knows).As("k").Result("k")
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	// Unpersisted endpoints are created implicitly, ahead of the
	// relationship, and returned for identity back-fill only.
	assert.Equal(t,
		"CREATE (_a:User {name: $a_name, email: $a_email})\n"+
			"CREATE (_b:User {name: $b_name, email: $b_email})\n"+
			"CREATE (_a)-[k:KNOWS {since: $k_since}]->(_b)\n"+
			"RETURN _a, _b, k",
		stmt.Text)
	assert.Same(t, ada, plan.Created["_a"])
	assert.Same(t, bob, plan.Created["_b"])
	assert.Same(t, knows, plan.Created["k"])
	// Implicit endpoints are not part of the caller's result shape.
	assert.Contains(t, plan.Bindings, "k")
	assert.NotContains(t, plan.Bindings, "_a")
	assert.NotContains(t, plan.Bindings, "_b")
}

func TestCompileCreateIdempotence(t *testing.T) {
	ada := newUser(t, "Ada", "ada@example.com")
	bob := newUser(t, "Bob", "bob@example.com")
	knows, err := knowsSchema.Connect(ada, bob, map[string]any{"since": 2020})
	require.NoError(t, err)

	// Listing the endpoints and the relationship creates each entity once.
	spec, err := query.New().Create(ada, bob, knows).Discard()
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	assert.Equal(t,
		"CREATE (_a:User {name: $a_name, email: $a_email})\n"+
			"CREATE (_b:User {name: $b_name, email: $b_email})\n"+
			"CREATE (_a)-[_c:KNOWS {since: $c_since}]->(_b)\n"+
			"RETURN _a, _b, _c",
		stmt.Text)
	assert.Len(t, plan.Created, 3)
}

func TestCompileCreateWithPersistedEndpoint(t *testing.T) {
	ada := newUser(t, "Ada", "ada@example.com")
	ada.SetStoreID("4:abc:1")
	bob := newUser(t, "Bob", "bob@example.com")
	knows, err := knowsSchema.Connect(ada, bob, map[string]any{"since": 2020})
	require.NoError(t, err)

	spec, err := query.New().Create(knows).As("k").Discard()
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	// The persisted endpoint is matched by identity, never re-created.
	assert.Equal(t,
		"MATCH (_a) WHERE elementId(_a) = $a_id\n"+
			"CREATE (_b:User {name: $b_name, email: $b_email})\n"+
			"CREATE (_a)-[k:KNOWS {since: $k_since}]->(_b)\n"+
			"RETURN _b, k",
		stmt.Text)
	assert.Equal(t, "4:abc:1", stmt.Params["a_id"])
	assert.NotContains(t, plan.Created, "_a")
}

func TestCompileCreateValidation(t *testing.T) {
	e, err := userSchema.New(map[string]any{"name": "Ada"})
	require.NoError(t, err)

	spec, err := query.New().Create(e).Discard()
	require.NoError(t, err)

	_, err = compiler.Compile(spec)
	require.Error(t, err)
	assert.True(t, cypher.IsValidationError(err))
	assert.ErrorContains(t, err, "User.email")
}

func TestCompileUpdate(t *testing.T) {
	ada := newUser(t, "Ada", "ada@example.com")
	ada.SetStoreID("4:abc:1")
	require.NoError(t, ada.Set("name", "Ada L."))

	spec, err := query.New().Update(ada, "name").Discard()
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	assert.Equal(t,
		"MATCH (_a) WHERE elementId(_a) = $a_id\nSET _a.name = $a_name",
		stmt.Text)
	assert.Equal(t, map[string]any{"a_id": "4:abc:1", "a_name": "Ada L."}, stmt.Params)
	assert.Equal(t, dialect.ModeWrite, stmt.Mode)
	assert.Empty(t, stmt.ReturnAliases)
}

func TestCompileUpdateUnpersisted(t *testing.T) {
	ada := newUser(t, "Ada", "ada@example.com")

	spec, err := query.New().Update(ada).Discard()
	require.NoError(t, err)

	_, err = compiler.Compile(spec)
	require.Error(t, err)
	assert.True(t, cypher.IsNotPersisted(err))
}

func TestCompileDelete(t *testing.T) {
	t.Run("PatternCascade", func(t *testing.T) {
		spec, err := query.New().
			Match(User{}).As("u").
			Where(query.EQ("email", "ada@example.com")).
			Delete("u")
		require.NoError(t, err)

		plan, err := compiler.Compile(spec)
		require.NoError(t, err)
		stmt := plan.Statements[0]
		// Vertex deletion always cascades over incident relationships.
		assert.Equal(t,
			"MATCH (u:User)\nWHERE u.email = $u_email\nDETACH DELETE u",
			stmt.Text)
		assert.Equal(t, dialect.ModeWrite, stmt.Mode)
	})

	t.Run("ByInstance", func(t *testing.T) {
		ada := newUser(t, "Ada", "ada@example.com")
		ada.SetStoreID("4:abc:9")
		spec, err := query.New().Match(User{}).Delete(ada)
		require.NoError(t, err)

		plan, err := compiler.Compile(spec)
		require.NoError(t, err)
		stmt := plan.Statements[0]
		assert.Contains(t, stmt.Text, "MATCH (_b) WHERE elementId(_b) = $b_id")
		assert.Contains(t, stmt.Text, "DETACH DELETE _b")
	})

	t.Run("UnpersistedInstance", func(t *testing.T) {
		ada := newUser(t, "Ada", "ada@example.com")
		spec, err := query.New().Match(User{}).Delete(ada)
		require.NoError(t, err)
		_, err = compiler.Compile(spec)
		require.Error(t, err)
		assert.True(t, cypher.IsNotPersisted(err))
	})
}

func TestCompileMultiDatabase(t *testing.T) {
	spec, err := query.New().
		Match(User{}).As("u").
		Match(Article{}).As("art").
		Result()
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	require.Len(t, plan.Statements, 2)
	assert.Equal(t, "default", plan.Statements[0].Database)
	assert.Equal(t, "MATCH (u:User)\nRETURN u", plan.Statements[0].Text)
	assert.Equal(t, "content", plan.Statements[1].Database)
	assert.Equal(t, "MATCH (art:Article)\nRETURN art", plan.Statements[1].Text)
}

func TestCompileDistinctProjection(t *testing.T) {
	spec, err := query.New().
		Match(User{}).As("u").
		Distinct().
		Result("u.name", "u.email")
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	assert.Equal(t, "MATCH (u:User)\nRETURN DISTINCT u.name, u.email", stmt.Text)
	assert.Equal(t, []string{"u.name", "u.email"}, stmt.ReturnAliases)
	assert.Empty(t, plan.Bindings)
}

func TestCompileParamNameCollision(t *testing.T) {
	spec, err := query.New().
		Match(User{}).As("u").
		Where(query.GT("age", 18), query.LT("age", 65)).
		Result("u")
	require.NoError(t, err)

	plan, err := compiler.Compile(spec)
	require.NoError(t, err)
	stmt := plan.Statements[0]
	assert.Equal(t, "MATCH (u:User)\nWHERE u.age > $u_age AND u.age < $u_age_2\nRETURN u", stmt.Text)
	assert.Equal(t, map[string]any{"u_age": 18, "u_age_2": 65}, stmt.Params)
}

func TestCompileDeterminism(t *testing.T) {
	ada := newUser(t, "Ada", "ada@example.com")

	spec, err := query.New().
		Match(User{}).As("a").
		ConnectedThrough(Knows{}).
		To(User{}).
		Create(ada).
		Result()
	require.NoError(t, err)

	first, err := compiler.Compile(spec)
	require.NoError(t, err)
	second, err := compiler.Compile(spec)
	require.NoError(t, err)

	require.Len(t, second.Statements, len(first.Statements))
	for i := range first.Statements {
		assert.Equal(t, first.Statements[i].Text, second.Statements[i].Text)
		assert.Equal(t, first.Statements[i].Params, second.Statements[i].Params)
	}
}

func TestCompileNilSpec(t *testing.T) {
	_, err := compiler.Compile(nil)
	assert.ErrorIs(t, err, cypher.ErrEmptyPattern)
}
