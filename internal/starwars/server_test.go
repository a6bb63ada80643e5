package starwars

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Data   json.RawMessage   `json:"data"`
	Errors []json.RawMessage `json:"errors"`
}

func post(t *testing.T, h http.Handler, query string, vars map[string]interface{}) response {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{"query": query, "variables": vars})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var res response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())

	return res
}

func TestHeroQueries(t *testing.T) {
	h := NewHandler(NewData())

	res := post(t, h, HeroNameQuery, nil)
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"hero": {"__typename": "Droid", "name": "R2-D2"}}`, string(res.Data))

	res = post(t, h, HeroAndFriendsNamesQuery, map[string]interface{}{"episode": "EMPIRE"})
	require.Empty(t, res.Errors)

	var v HeroAndFriendsNames
	require.NoError(t, json.Unmarshal(res.Data, &v))
	assert.Equal(t, "Luke Skywalker", v.Hero.Name)
	assert.Equal(t, []string{"Han Solo", "Leia Organa", "C-3PO", "R2-D2"}, FriendNames(v.Hero))

	res = post(t, h, HeroDetailsQuery, map[string]interface{}{"episode": "EMPIRE"})
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"hero": {"__typename": "Human", "id": "1000", "name": "Luke Skywalker", "height": 1.72}}`, string(res.Data))
}

func TestCreateReview(t *testing.T) {
	h := NewHandler(NewData())

	res := post(t, h, CreateReviewMutation, map[string]interface{}{
		"episode": "NEWHOPE",
		"review":  map[string]interface{}{"stars": 4},
	})
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"createReview": {"__typename": "Review", "stars": 4, "commentary": null}}`, string(res.Data))

	res = post(t, h, CreateAwesomeReviewMutation, nil)
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"createReview": {"__typename": "Review", "stars": 10, "commentary": "This is awesome!"}}`, string(res.Data))

	res = post(t, h, ReviewsQuery, map[string]interface{}{"episode": "NEWHOPE"})
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"reviews": [{"__typename": "Review", "stars": 4, "commentary": null}]}`, string(res.Data))

	res = post(t, h, ReviewsQuery, map[string]interface{}{"episode": "EMPIRE"})
	require.Empty(t, res.Errors)
	assert.JSONEq(t, `{"reviews": []}`, string(res.Data))
}

func TestInvalidQuery(t *testing.T) {
	res := post(t, NewHandler(NewData()), `query { nope }`, nil)

	assert.NotEmpty(t, res.Errors)
}

func TestWatchReviews(t *testing.T) {
	d := NewData()

	_, err := d.AddReview("JEDI", 5, nil)
	require.NoError(t, err)

	ch, unsubscribe := d.watchReviews()
	defer unsubscribe()

	key, err := d.AddReview(nil, 3, "meh")
	require.NoError(t, err)
	assert.Equal(t, "Review:2", key)

	assert.Equal(t, "Review:1", (<-ch).key)
	assert.Equal(t, "Review:2", (<-ch).key)
}
