package rx

import (
	"context"
)

func Map[T, U any](src Observable[T], fn func(T) (U, error)) Observable[U] {
	return FuncObservable[U](func(ctx context.Context, next func(U) error) error {
		return src.Observe(ctx, func(v T) error {
			u, err := fn(v)
			if err != nil {
				return err
			}

			return next(u)
		})
	})
}

type stop struct{}

func (*stop) Error() string {
	return "stop"
}

// Take emits the first n values of src and completes, disposing src
func Take[T any](src Observable[T], n int) Observable[T] {
	return FuncObservable[T](func(ctx context.Context, next func(T) error) error {
		if n <= 0 {
			return nil
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		done := &stop{}
		count := 0

		err := src.Observe(ctx, func(v T) error {
			if err := next(v); err != nil {
				return err
			}

			count++
			if count >= n {
				return done
			}

			return nil
		})
		if err == done {
			return nil
		}

		return err
	})
}

// First returns the first value of src, or ErrEmpty
func First[T any](ctx context.Context, src Observable[T]) (T, error) {
	var out T
	found := false

	err := Take(src, 1).Observe(ctx, func(v T) error {
		out, found = v, true
		return nil
	})
	if err != nil {
		return out, err
	}

	if !found {
		return out, ErrEmpty
	}

	return out, nil
}

// Single returns the only value of src. It fails with ErrEmpty or
// ErrNotSingle when src doesn't emit exactly one value before completing.
func Single[T any](ctx context.Context, src Observable[T]) (T, error) {
	var out T
	count := 0

	err := src.Observe(ctx, func(v T) error {
		count++
		if count > 1 {
			return ErrNotSingle
		}

		out = v

		return nil
	})
	if err != nil {
		return out, err
	}

	if count == 0 {
		return out, ErrEmpty
	}

	return out, nil
}

// ToSlice collects every value of src until it completes
func ToSlice[T any](ctx context.Context, src Observable[T]) ([]T, error) {
	var out []T

	err := src.Observe(ctx, func(v T) error {
		out = append(out, v)
		return nil
	})

	return out, err
}
