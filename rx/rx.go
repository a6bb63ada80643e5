// Package rx exposes client operations as observable streams.
//
// An Observable emits values to next until it completes, returning nil, or
// fails, returning the error. Cancelling the context passed to Observe
// disposes the stream and releases whatever it registered with the client.
package rx

import (
	"context"

	"github.com/pkg/errors"

	"github.com/infiotinc/rxgqlgenc/client"
)

type Observable[T any] interface {
	Observe(ctx context.Context, next func(T) error) error
}

type FuncObservable[T any] func(ctx context.Context, next func(T) error) error

func (f FuncObservable[T]) Observe(ctx context.Context, next func(T) error) error {
	return f(ctx, next)
}

// Client is the callback API the streams are built on, implemented by *client.Client
type Client interface {
	Fetch(ctx context.Context, op client.Operation, policy client.CachePolicy, handler client.ResultHandler) client.Cancellable
	Watch(ctx context.Context, op client.Operation, policy client.CachePolicy, handler client.ResultHandler) *client.Watcher
	Perform(ctx context.Context, op client.Operation, handler client.ResultHandler) client.Cancellable
	Subscribe(ctx context.Context, op client.Operation, handler client.ResultHandler) client.Cancellable
}

var (
	// ErrMissingData is returned for a result carrying neither data nor errors
	ErrMissingData = errors.New("result has no data")
	ErrEmpty       = errors.New("observable completed without emitting")
	ErrNotSingle   = errors.New("observable emitted more than one value")
)

// decode turns a client result into T. Server errors take precedence over
// data, and data that can't be decoded is a *client.GraphQLResultError.
func decode[T any](res *client.Result) (T, error) {
	var v T

	if res == nil {
		return v, ErrMissingData
	}

	if len(res.Errors) > 0 {
		return v, res.Errors
	}

	if res.Data == nil {
		return v, ErrMissingData
	}

	if err := res.UnmarshalData(&v); err != nil {
		return v, &client.GraphQLResultError{Err: err}
	}

	return v, nil
}

type outcome struct {
	res *client.Result
	err error
}
