package client

import (
	"encoding/json"
	"errors"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/infiotinc/rxgqlgenc/client/cache"
	"github.com/infiotinc/rxgqlgenc/client/executor"
)

// GraphQLResultError is returned when a response does not satisfy the shape
// of the operation that requested it
type GraphQLResultError = executor.GraphQLResultError

var (
	// ErrCacheMiss is returned by ReturnCacheDataDontFetch when the cache
	// can't satisfy the query
	ErrCacheMiss = executor.ErrCacheMiss
	// ErrComplete is handed to subscription handlers when the server ends
	// the subscription
	ErrComplete = errors.New("subscription complete")
	// ErrNoResponse is returned when the transport ends without a response
	ErrNoResponse = errors.New("no response")
)

type ResultSource int

const (
	SourceServer ResultSource = iota
	SourceCache
)

func (s ResultSource) String() string {
	if s == SourceCache {
		return "cache"
	}

	return "server"
}

type Result struct {
	Data       map[string]interface{}
	Errors     gqlerror.List
	Extensions map[string]json.RawMessage
	Source     ResultSource
	// DependentKeys are the cache keys the data was read from or written to
	DependentKeys cache.KeySet
}

func (r *Result) UnmarshalData(t interface{}) error {
	if r.Data == nil {
		return nil
	}

	b, err := json.Marshal(r.Data)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, t)
}

// ResultHandler receives either a result or an error
type ResultHandler func(result *Result, err error)

type Cancellable interface {
	Cancel()
}

type CancelFunc func()

func (f CancelFunc) Cancel() {
	f()
}
