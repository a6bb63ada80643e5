package rx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func of[T any](values ...T) Observable[T] {
	return FuncObservable[T](func(ctx context.Context, next func(T) error) error {
		for _, v := range values {
			if err := next(v); err != nil {
				return err
			}
		}

		return nil
	})
}

func never[T any]() Observable[T] {
	return FuncObservable[T](func(ctx context.Context, next func(T) error) error {
		<-ctx.Done()
		return ctx.Err()
	})
}

func TestMap(t *testing.T) {
	out, err := ToSlice(context.Background(), Map(of(1, 2, 3), func(v int) (int, error) {
		return v * 2, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, out)

	boom := errors.New("boom")
	_, err = ToSlice(context.Background(), Map(of(1, 2, 3), func(v int) (int, error) {
		return 0, boom
	}))
	assert.Equal(t, boom, err)
}

func TestTake(t *testing.T) {
	out, err := ToSlice(context.Background(), Take(of(1, 2, 3), 2))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, out)

	out, err = ToSlice(context.Background(), Take(of(1, 2, 3), 0))
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = ToSlice(context.Background(), Take(Take(of(1, 2, 3), 2), 1))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, out)
}

func TestFirstSingle(t *testing.T) {
	v, err := First(context.Background(), of(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = First(context.Background(), of[int]())
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Single(context.Background(), of(1, 2))
	assert.ErrorIs(t, err, ErrNotSingle)

	_, err = Single(context.Background(), of[int]())
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestReplay(t *testing.T) {
	src := make(chan int)
	obs := FuncObservable[int](func(ctx context.Context, next func(int) error) error {
		for v := range src {
			if err := next(v); err != nil {
				return err
			}
		}

		return nil
	})

	r := Replay[int](obs, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stop := r.Connect(ctx)
	defer stop()
	assert.NotNil(t, r.Connect(ctx))

	for i := 1; i <= 4; i++ {
		src <- i
	}
	close(src)

	late, err := ToSlice(ctx, Observable[int](r))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, late)

	v, err := First(ctx, Observable[int](r))
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestReplayAll(t *testing.T) {
	r := Replay(of(1, 2, 3), 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	waiting := make(chan []int, 1)
	go func() {
		out, _ := ToSlice(ctx, Observable[int](r))
		waiting <- out
	}()

	r.Connect(ctx)

	assert.Equal(t, []int{1, 2, 3}, <-waiting)

	out, err := ToSlice(ctx, Observable[int](r))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
}

func TestReplayError(t *testing.T) {
	boom := errors.New("boom")
	r := Replay[int](FuncObservable[int](func(ctx context.Context, next func(int) error) error {
		_ = next(1)
		return boom
	}), 0)
	r.Connect(context.Background())

	out, err := ToSlice(context.Background(), Observable[int](r))
	assert.Equal(t, []int{1}, out)
	assert.Equal(t, boom, err)
}

func TestStart(t *testing.T) {
	sub := Start(context.Background(), never[int](), func(int) error { return nil })
	assert.NoError(t, sub.Err())

	sub.Close()
	assert.NoError(t, sub.Wait())

	boom := errors.New("boom")
	sub = Start(context.Background(), of(1), func(int) error { return boom })
	assert.Equal(t, boom, sub.Wait())

	ctx, cancel := context.WithCancel(context.Background())
	sub = Start(ctx, never[int](), func(int) error { return nil })
	cancel()
	assert.ErrorIs(t, sub.Wait(), context.Canceled)
}
