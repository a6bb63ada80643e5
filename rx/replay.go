package rx

import (
	"context"
	"sync"
)

// Replayable records the values of its source once connected and replays
// them to every observer, whenever it attaches, followed by live values and
// the source's completion or error
type Replayable[T any] struct {
	src  Observable[T]
	size int

	m        sync.Mutex
	values   []T
	offset   int
	finished bool
	err      error
	changed  chan struct{}
	stop     context.CancelFunc
}

// Replay keeps the last size values of src for late observers, all of them
// when size <= 0. Nothing is observed from src until Connect.
func Replay[T any](src Observable[T], size int) *Replayable[T] {
	return &Replayable[T]{
		src:     src,
		size:    size,
		changed: make(chan struct{}),
	}
}

// Connect starts observing the source. It is a no-op when already connected.
// The returned func disconnects.
func (r *Replayable[T]) Connect(ctx context.Context) context.CancelFunc {
	r.m.Lock()
	defer r.m.Unlock()

	if r.stop != nil {
		return r.stop
	}

	ctx, cancel := context.WithCancel(ctx)
	r.stop = cancel

	go func() {
		err := r.src.Observe(ctx, func(v T) error {
			r.m.Lock()
			r.values = append(r.values, v)
			if r.size > 0 && len(r.values) > r.size {
				drop := len(r.values) - r.size
				r.values = append([]T(nil), r.values[drop:]...)
				r.offset += drop
			}
			r.broadcast()
			r.m.Unlock()

			return nil
		})

		r.m.Lock()
		r.finished = true
		r.err = err
		r.broadcast()
		r.m.Unlock()
	}()

	return cancel
}

// broadcast must be called with r.m held
func (r *Replayable[T]) broadcast() {
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *Replayable[T]) Observe(ctx context.Context, next func(T) error) error {
	i := 0

	for {
		r.m.Lock()
		values, offset := r.values, r.offset
		finished, err := r.finished, r.err
		changed := r.changed
		r.m.Unlock()

		if i < offset {
			i = offset
		}

		for ; i < offset+len(values); i++ {
			if err := next(values[i-offset]); err != nil {
				return err
			}
		}

		if finished {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

type shared[T any] struct {
	src  Observable[T]
	size int

	m       sync.Mutex
	refs    int
	current *Replayable[T]
	stop    context.CancelFunc
}

// ShareReplay connects a Replay of src when the first observer attaches and
// disconnects it when the last one leaves
func ShareReplay[T any](src Observable[T], size int) Observable[T] {
	return &shared[T]{src: src, size: size}
}

func (s *shared[T]) Observe(ctx context.Context, next func(T) error) error {
	s.m.Lock()
	if s.refs == 0 {
		s.current = Replay(s.src, s.size)
		s.stop = s.current.Connect(context.WithoutCancel(ctx))
	}
	s.refs++
	r := s.current
	s.m.Unlock()

	defer func() {
		s.m.Lock()
		defer s.m.Unlock()

		s.refs--
		if s.refs == 0 {
			s.stop()
			s.current, s.stop = nil, nil
		}
	}()

	return r.Observe(ctx, next)
}
