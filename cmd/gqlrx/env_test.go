package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infiotinc/rxgqlgenc/client/transport"
	"github.com/infiotinc/rxgqlgenc/config"
	"github.com/infiotinc/rxgqlgenc/internal/starwars"
)

func TestHttpTransportTimeout(t *testing.T) {
	headers := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("Authorization")

		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer ts.Close()

	tr := httpTransport(config.Endpoint{
		URL:     ts.URL,
		Timeout: 50 * time.Millisecond,
		Headers: map[string]string{"Authorization": "Bearer token"},
	})

	start := time.Now()
	res := tr.Request(transport.Request{
		Context:   context.Background(),
		Operation: transport.Query,
		Query:     starwars.HeroNameQuery,
	})
	defer res.Close()

	require.False(t, res.Next())
	assert.Error(t, res.Err())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, "Bearer token", <-headers)
}

func TestHttpTransportNoTimeout(t *testing.T) {
	tr := httpTransport(config.Endpoint{URL: "http://localhost"})

	require.NotNil(t, tr.Client)
	assert.Zero(t, tr.Client.Timeout)
}
