package rx

import (
	"context"

	"github.com/pkg/errors"

	"github.com/infiotinc/rxgqlgenc/client"
)

// Fetch emits the result of a query once and completes
func Fetch[T any](c Client, op client.Operation, policy client.CachePolicy) Observable[T] {
	return oneShot[T](func(ctx context.Context, h client.ResultHandler) client.Cancellable {
		return c.Fetch(ctx, op, policy, h)
	})
}

// Perform emits the result of a mutation once and completes
func Perform[T any](c Client, op client.Operation) Observable[T] {
	return oneShot[T](func(ctx context.Context, h client.ResultHandler) client.Cancellable {
		return c.Perform(ctx, op, h)
	})
}

// oneShot runs the client operation once per Observe. The first callback
// settles the stream, later ones are dropped. The operation is only
// cancelled when the stream is disposed or fails, so a completed fetch can
// still write the server response to the store.
func oneShot[T any](start func(ctx context.Context, h client.ResultHandler) client.Cancellable) Observable[T] {
	return FuncObservable[T](func(ctx context.Context, next func(T) error) error {
		ch := make(chan outcome, 1)

		op := start(context.WithoutCancel(ctx), func(res *client.Result, err error) {
			select {
			case ch <- outcome{res: res, err: err}:
			default:
			}
		})

		select {
		case o := <-ch:
			if o.err != nil {
				op.Cancel()
				return o.err
			}

			v, err := decode[T](o.res)
			if err != nil {
				op.Cancel()
				return err
			}

			return next(v)
		case <-ctx.Done():
			op.Cancel()
			return ctx.Err()
		}
	})
}

// Watch emits the result of a query and then every update the store makes
// to it. It never completes on its own.
func Watch[T any](c Client, op client.Operation, policy client.CachePolicy) Observable[T] {
	return FuncObservable[T](func(ctx context.Context, next func(T) error) error {
		ch := make(chan outcome)
		done := make(chan struct{})
		defer close(done)

		w := c.Watch(context.WithoutCancel(ctx), op, policy, func(res *client.Result, err error) {
			select {
			case ch <- outcome{res: res, err: err}:
			case <-done:
			}
		})
		defer w.Cancel()

		return drain[T](ctx, ch, next, false)
	})
}

// Subscribe emits every payload of a GraphQL subscription and completes
// when the server ends it
func Subscribe[T any](c Client, op client.Operation) Observable[T] {
	return FuncObservable[T](func(ctx context.Context, next func(T) error) error {
		ch := make(chan outcome)
		done := make(chan struct{})
		defer close(done)

		sub := c.Subscribe(context.WithoutCancel(ctx), op, func(res *client.Result, err error) {
			select {
			case ch <- outcome{res: res, err: err}:
			case <-done:
			}
		})
		defer sub.Cancel()

		return drain[T](ctx, ch, next, true)
	})
}

func drain[T any](ctx context.Context, ch <-chan outcome, next func(T) error, completes bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case o := <-ch:
			if o.err != nil {
				if completes && errors.Is(o.err, client.ErrComplete) {
					return nil
				}

				return o.err
			}

			v, err := decode[T](o.res)
			if err != nil {
				return err
			}

			if err := next(v); err != nil {
				return err
			}
		}
	}
}
