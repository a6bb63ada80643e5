package rx

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Subscription is a running observation started by Start
type Subscription struct {
	cancel context.CancelFunc
	closed atomic.Bool
	done   chan struct{}
	err    error
}

// Start observes src on a new goroutine
func Start[T any](ctx context.Context, src Observable[T], next func(T) error) *Subscription {
	ctx, cancel := context.WithCancel(ctx)

	s := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer cancel()

		err := src.Observe(ctx, next)
		if s.closed.Load() && errors.Is(err, context.Canceled) {
			err = nil
		}

		s.err = err
	}()

	return s
}

// Close disposes the observation. Use Done to wait for it to stop.
func (s *Subscription) Close() {
	s.closed.Store(true)
	s.cancel()
}

// Done is closed once the observation has stopped
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err is the error the observation ended with, nil when it completed or was
// closed. It is only meaningful once Done is closed.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the observation stops and returns Err
func (s *Subscription) Wait() error {
	<-s.done

	return s.err
}
