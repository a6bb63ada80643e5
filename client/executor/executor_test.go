package executor_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/infiotinc/rxgqlgenc/client/cache"
	"github.com/infiotinc/rxgqlgenc/client/executor"
	"github.com/infiotinc/rxgqlgenc/internal/starwars"
)

func operation(t *testing.T, document string) *ast.OperationDefinition {
	t.Helper()

	_, op, err := executor.ParseOperation(starwars.Schema(), document, "")
	require.NoError(t, err)

	return op
}

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &data))

	return data
}

func loader(rs cache.RecordSet) cache.Loader {
	return func(key string) (cache.Fields, error) {
		return rs[key], nil
	}
}

func byID(obj map[string]interface{}) string {
	typename, _ := obj["__typename"].(string)
	id, _ := obj["id"].(string)
	if typename == "" || id == "" {
		return ""
	}

	return typename + ":" + id
}

const heroAndFriends = `{
  "hero": {
    "__typename": "Droid",
    "name": "R2-D2",
    "friends": [
      {"__typename": "Human", "name": "Luke Skywalker"},
      {"__typename": "Human", "name": "Han Solo"},
      {"__typename": "Human", "name": "Leia Organa"}
    ]
  }
}`

func TestNormalizeByPath(t *testing.T) {
	op := operation(t, starwars.HeroAndFriendsNamesQuery)

	records, err := executor.Normalize(starwars.Schema(), op, nil, cache.QueryRoot, decode(t, heroAndFriends), nil)
	require.NoError(t, err)

	assert.Equal(t, starwars.HeroAndFriendsRecords(), records)
}

func TestNormalizeWithCacheKey(t *testing.T) {
	op := operation(t, starwars.HeroDetailsQuery)

	data := decode(t, `{"hero": {"__typename": "Human", "id": "1000", "name": "Luke Skywalker", "height": 1.72}}`)

	records, err := executor.Normalize(starwars.Schema(), op, map[string]interface{}{"episode": "EMPIRE"}, cache.QueryRoot, data, byID)
	require.NoError(t, err)

	assert.Equal(t, cache.RecordSet{
		cache.QueryRoot: {`hero(episode:"EMPIRE")`: cache.Reference{Key: "Human:1000"}},
		"Human:1000": {
			"__typename": "Human",
			"id":         "1000",
			"name":       "Luke Skywalker",
			"height":     1.72,
		},
	}, records)
}

func TestNormalizeMissingNonNullField(t *testing.T) {
	op := operation(t, starwars.HeroNameQuery)

	_, err := executor.Normalize(starwars.Schema(), op, nil, cache.QueryRoot, decode(t, `{"hero": {"__typename": "Droid"}}`), nil)

	var rerr *executor.GraphQLResultError
	require.True(t, errors.As(err, &rerr), "got %v", err)
	assert.Equal(t, "hero.name", rerr.Path.String())
	assert.True(t, errors.Is(err, executor.ErrMissingValue))
}

func TestNormalizeNullNonNullField(t *testing.T) {
	op := operation(t, starwars.CreateAwesomeReviewMutation)

	_, err := executor.Normalize(starwars.Schema(), op, nil, cache.MutationRoot, decode(t, `{"createReview": {"__typename": "Review", "stars": null, "commentary": "This is awesome!"}}`), nil)

	var rerr *executor.GraphQLResultError
	require.True(t, errors.As(err, &rerr), "got %v", err)
	assert.Equal(t, "createReview.stars", rerr.Path.String())
	assert.True(t, errors.Is(err, executor.ErrNullValue))
}

func TestNormalizeNullableFields(t *testing.T) {
	op := operation(t, starwars.HeroNameQuery)

	records, err := executor.Normalize(starwars.Schema(), op, nil, cache.QueryRoot, decode(t, `{"hero": null}`), nil)
	require.NoError(t, err)

	assert.Equal(t, cache.RecordSet{cache.QueryRoot: {"hero": nil}}, records)
}

func TestNormalizeWrongKind(t *testing.T) {
	op := operation(t, starwars.HeroAndFriendsNamesQuery)

	_, err := executor.Normalize(starwars.Schema(), op, nil, cache.QueryRoot, decode(t, `{"hero": {"__typename": "Droid", "name": "R2-D2", "friends": "nobody"}}`), nil)

	var rerr *executor.GraphQLResultError
	require.True(t, errors.As(err, &rerr), "got %v", err)
	assert.Equal(t, "hero.friends", rerr.Path.String())
}

func TestNormalizeNilData(t *testing.T) {
	op := operation(t, starwars.HeroNameQuery)

	_, err := executor.Normalize(starwars.Schema(), op, nil, cache.QueryRoot, nil, nil)

	var rerr *executor.GraphQLResultError
	assert.True(t, errors.As(err, &rerr))
}

func TestReadByPath(t *testing.T) {
	op := operation(t, starwars.HeroAndFriendsNamesQuery)

	data, deps, err := executor.Read(starwars.Schema(), op, nil, cache.QueryRoot, loader(starwars.HeroAndFriendsRecords()))
	require.NoError(t, err)

	assert.Equal(t, decode(t, heroAndFriends), data)
	assert.True(t, deps.Has("QUERY_ROOT.hero"))
	assert.True(t, deps.Has("QUERY_ROOT.hero.name"))
	assert.True(t, deps.Has("QUERY_ROOT.hero.friends"))
	assert.True(t, deps.Has("QUERY_ROOT.hero.friends.2.name"))
	assert.Len(t, deps, 10)
}

func TestReadFragments(t *testing.T) {
	op := operation(t, starwars.HeroDetailsQuery)

	rs := cache.RecordSet{
		cache.QueryRoot: {
			`hero(episode:"EMPIRE")`: cache.Reference{Key: "Human:1000"},
			`hero(episode:"JEDI")`:   cache.Reference{Key: "Droid:2001"},
		},
		"Human:1000": {"__typename": "Human", "id": "1000", "name": "Luke Skywalker", "height": 1.72},
		"Droid:2001": {"__typename": "Droid", "id": "2001", "name": "R2-D2", "primaryFunction": "Astromech"},
	}

	data, _, err := executor.Read(starwars.Schema(), op, map[string]interface{}{"episode": "EMPIRE"}, cache.QueryRoot, loader(rs))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"hero": map[string]interface{}{
			"__typename": "Human",
			"id":         "1000",
			"name":       "Luke Skywalker",
			"height":     1.72,
		},
	}, data)

	data, _, err = executor.Read(starwars.Schema(), op, map[string]interface{}{"episode": "JEDI"}, cache.QueryRoot, loader(rs))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"hero": map[string]interface{}{
			"__typename":      "Droid",
			"id":              "2001",
			"name":            "R2-D2",
			"primaryFunction": "Astromech",
		},
	}, data)
}

func TestReadCacheMiss(t *testing.T) {
	op := operation(t, starwars.HeroAndFriendsNamesQuery)

	rs := starwars.HeroAndFriendsRecords()
	delete(rs["QUERY_ROOT.hero.friends.1"], "name")

	_, _, err := executor.Read(starwars.Schema(), op, nil, cache.QueryRoot, loader(rs))
	assert.True(t, errors.Is(err, executor.ErrCacheMiss), "got %v", err)
	assert.Contains(t, err.Error(), "hero.friends[1].name")

	_, _, err = executor.Read(starwars.Schema(), op, nil, cache.QueryRoot, loader(cache.RecordSet{}))
	assert.True(t, errors.Is(err, executor.ErrCacheMiss), "got %v", err)
}

func TestReadSynthesizesTypename(t *testing.T) {
	op := operation(t, `query { human(id: "1000") { __typename name } }`)

	rs := cache.RecordSet{
		cache.QueryRoot: {`human(id:"1000")`: cache.Reference{Key: "Human:1000"}},
		"Human:1000":    {"name": "Luke Skywalker"},
	}

	data, _, err := executor.Read(starwars.Schema(), op, nil, cache.QueryRoot, loader(rs))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"human": map[string]interface{}{"__typename": "Human", "name": "Luke Skywalker"},
	}, data)
}

func TestSkipInclude(t *testing.T) {
	op := operation(t, `query Hero($withFriends: Boolean!, $skipName: Boolean!) {
  hero {
    __typename
    name @skip(if: $skipName)
    friends @include(if: $withFriends) {
      name
    }
  }
}`)

	data := decode(t, `{"hero": {"__typename": "Droid"}}`)
	vars := map[string]interface{}{"withFriends": false, "skipName": true}

	records, err := executor.Normalize(starwars.Schema(), op, vars, cache.QueryRoot, data, nil)
	require.NoError(t, err)
	assert.Equal(t, cache.Fields{"__typename": "Droid"}, records["QUERY_ROOT.hero"])

	out, _, err := executor.Read(starwars.Schema(), op, vars, cache.QueryRoot, loader(records))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestAliases(t *testing.T) {
	op := operation(t, `query {
  luke: hero(episode: EMPIRE) { __typename name }
  r2: hero { __typename name }
}`)

	data := decode(t, `{"luke": {"__typename": "Human", "name": "Luke Skywalker"}, "r2": {"__typename": "Droid", "name": "R2-D2"}}`)

	records, err := executor.Normalize(starwars.Schema(), op, nil, cache.QueryRoot, data, nil)
	require.NoError(t, err)
	assert.Equal(t, cache.Fields{
		`hero(episode:"EMPIRE")`: cache.Reference{Key: `QUERY_ROOT.hero(episode:"EMPIRE")`},
		"hero":                   cache.Reference{Key: "QUERY_ROOT.hero"},
	}, records[cache.QueryRoot])

	out, _, err := executor.Read(starwars.Schema(), op, nil, cache.QueryRoot, loader(records))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestStorageKey(t *testing.T) {
	op := operation(t, `mutation Create($episode: Episode) {
  createReview(review: {stars: 5, commentary: "ok"}, episode: $episode) { stars }
}`)
	f := op.SelectionSet[0].(*ast.Field)

	key, err := executor.StorageKey(f, map[string]interface{}{"episode": "JEDI"})
	require.NoError(t, err)
	assert.Equal(t, `createReview(episode:"JEDI",review:{"commentary":"ok","stars":5})`, key)

	key, err = executor.StorageKey(f, nil)
	require.NoError(t, err)
	assert.Equal(t, `createReview(review:{"commentary":"ok","stars":5})`, key)
}

func TestParseOperation(t *testing.T) {
	_, _, err := executor.ParseOperation(starwars.Schema(), `query { nope }`, "")
	var errs gqlerror.List
	assert.True(t, errors.As(err, &errs), "got %v", err)

	_, _, err = executor.ParseOperation(starwars.Schema(), starwars.HeroNameQuery+"\n"+starwars.ReviewsQuery, "")
	assert.Error(t, err)

	_, op, err := executor.ParseOperation(starwars.Schema(), starwars.HeroNameQuery+"\n"+starwars.ReviewsQuery, "Reviews")
	require.NoError(t, err)
	assert.Equal(t, ast.Query, op.Operation)
	assert.Equal(t, "Reviews", op.Name)
}
