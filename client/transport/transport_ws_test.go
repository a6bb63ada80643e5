package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infiotinc/rxgqlgenc/internal/starwars"
)

func wstr(t *testing.T, ctx context.Context, u string) *Ws {
	tr := &Ws{
		URL: "ws" + strings.TrimPrefix(u, "http"),
	}

	errCh := tr.Start(ctx)
	go func() {
		for err := range errCh {
			t.Log("ws transport error: ", err)
		}
	}()

	require.True(t, tr.WaitFor(StatusReady, 5*time.Second), "ws transport not ready")

	return tr
}

func wsserver(t *testing.T) (*starwars.Data, *Ws, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	data := starwars.NewData()
	ts := httptest.NewServer(starwars.NewHandler(data))
	tr := wstr(t, ctx, ts.URL)

	return data, tr, func() {
		_ = tr.Close()
		cancel()
		ts.Close()
	}
}

func TestWsQuery(t *testing.T) {
	_, tr, teardown := wsserver(t)
	defer teardown()

	res := tr.Request(Request{
		Context:   context.Background(),
		Operation: Query,
		Query:     starwars.HeroNameQuery,
	})
	defer res.Close()

	require.True(t, res.Next(), "%v", res.Err())

	var data starwars.HeroName
	require.NoError(t, res.Get().UnmarshalData(&data))
	assert.Equal(t, "R2-D2", data.Hero.Name)

	assert.False(t, res.Next())
	assert.NoError(t, res.Err())
}

func TestWsSubscription(t *testing.T) {
	data, tr, teardown := wsserver(t)
	defer teardown()

	_, err := data.AddReview("JEDI", 5, "great")
	require.NoError(t, err)

	res := tr.Request(Request{
		Context:   context.Background(),
		Operation: Subscription,
		Query:     starwars.ReviewAddedSubscription,
	})
	defer res.Close()

	go func() {
		_, _ = data.AddReview("EMPIRE", 4, nil)
	}()

	stars := make([]int, 0)
	for len(stars) < 2 && res.Next() {
		var v starwars.ReviewAdded
		require.NoError(t, res.Get().UnmarshalData(&v))
		stars = append(stars, v.ReviewAdded.Stars)
	}

	assert.Equal(t, []int{5, 4}, stars)
}

func TestWsCancelRequest(t *testing.T) {
	_, tr, teardown := wsserver(t)
	defer teardown()

	ctx, cancel := context.WithCancel(context.Background())

	res := tr.Request(Request{
		Context:   ctx,
		Operation: Subscription,
		Query:     starwars.ReviewAddedSubscription,
	})

	cancel()

	select {
	case <-res.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("response not closed after cancel")
	}

	assert.False(t, res.Next())
}

func TestWsClose(t *testing.T) {
	_, tr, teardown := wsserver(t)
	defer teardown()

	res := tr.Request(Request{
		Context:   context.Background(),
		Operation: Subscription,
		Query:     starwars.ReviewAddedSubscription,
	})

	require.NoError(t, tr.Close())
	assert.Equal(t, StatusClosed, tr.Status())

	select {
	case <-res.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("response not closed with the transport")
	}
}
