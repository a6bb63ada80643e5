package client

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"

	"github.com/infiotinc/rxgqlgenc/client/cache"
)

type delivery struct {
	res *Result
	err error
}

// Watcher keeps a query result up to date with the store. Results reach the
// handler in the order they were produced, on the watcher's own goroutine.
type Watcher struct {
	client  *Client
	op      Operation
	handler ResultHandler
	id      uuid.UUID

	ctx    context.Context
	cancel context.CancelFunc

	// reads serializes cache reads with their place in the queue
	reads sync.Mutex

	m      sync.Mutex
	deps   cache.KeySet
	queue  []delivery
	signal chan struct{}

	unsubscribe func()
	cancelOnce  sync.Once
}

// Watch fetches op with policy and then calls handler again each time a
// change published by someone else touches the data it depends on
func (c *Client) Watch(ctx context.Context, op Operation, policy CachePolicy, handler ResultHandler) *Watcher {
	c.init()

	ctx, cancel := context.WithCancel(ctx)

	w := &Watcher{
		client:  c,
		op:      op,
		handler: handler,
		id:      uuid.New(),
		ctx:     ctx,
		cancel:  cancel,
		deps:    cache.NewKeySet(),
		signal:  make(chan struct{}, 1),
	}

	w.unsubscribe = c.Store.Subscribe(w.storeChanged)
	c.Metrics.watcherAdded(1)

	c.Log.Debug("watch", zap.Stringer("id", w.id), zap.String("operation", op.OperationName))

	go w.run()
	w.fetch(policy)

	return w
}

func (w *Watcher) ID() uuid.UUID {
	return w.id
}

// Refetch fetches from the server again, ignoring cached data
func (w *Watcher) Refetch() {
	w.fetch(FetchIgnoringCacheData)
}

func (w *Watcher) fetch(policy CachePolicy) {
	c := w.client

	c.start(w.ctx, w.fetched, func(ctx context.Context, deliver ResultHandler) {
		p, err := c.parseAs(w.op, ast.Query)
		if err != nil {
			deliver(nil, err)
			return
		}

		c.fetch(ctx, p, w.op, policy, w.id, deliver)
	})
}

// Cancel unregisters the watcher from the store and cancels in-flight fetches
func (w *Watcher) Cancel() {
	w.cancelOnce.Do(func() {
		w.cancel()
		w.unsubscribe()
		w.client.Metrics.watcherAdded(-1)
		w.client.Log.Debug("watch cancelled", zap.Stringer("id", w.id))
	})
}

// DependentKeys returns the keys the last result depends on
func (w *Watcher) DependentKeys() cache.KeySet {
	w.m.Lock()
	defer w.m.Unlock()

	out := cache.NewKeySet()
	out.Union(w.deps)

	return out
}

// fetched queues a result of the watcher's own fetch. Its data is read back
// from the store so that a write landing after the fetch published is never
// followed by the older payload.
func (w *Watcher) fetched(res *Result, err error) {
	if err != nil || res == nil || res.Data == nil {
		w.enqueue(res, err)
		return
	}

	p, err := w.client.parse(w.op)
	if err != nil {
		w.enqueue(nil, err)
		return
	}

	w.reads.Lock()
	defer w.reads.Unlock()

	out := *res
	if cached, err := w.client.readCache(p, w.op.Variables); err == nil {
		out.Data = cached.Data
		out.DependentKeys = cached.DependentKeys
	}

	w.enqueue(&out, nil)
}

func (w *Watcher) storeChanged(changed cache.KeySet, contextID uuid.UUID) {
	if contextID == w.id || w.ctx.Err() != nil {
		return
	}

	w.m.Lock()
	affected := w.deps.Intersects(changed)
	w.m.Unlock()

	if !affected {
		return
	}

	p, err := w.client.parse(w.op)
	if err != nil {
		w.enqueue(nil, err)
		return
	}

	w.reads.Lock()
	defer w.reads.Unlock()

	w.enqueue(w.client.readCache(p, w.op.Variables))
}

func (w *Watcher) enqueue(res *Result, err error) {
	if w.ctx.Err() != nil {
		return
	}

	w.m.Lock()
	if res != nil && res.DependentKeys != nil {
		w.deps = res.DependentKeys
	}
	w.queue = append(w.queue, delivery{res: res, err: err})
	w.m.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *Watcher) next() (delivery, bool) {
	w.m.Lock()
	defer w.m.Unlock()

	if len(w.queue) == 0 {
		return delivery{}, false
	}

	d := w.queue[0]
	w.queue = w.queue[1:]

	return d, true
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.ctx.Done():
			w.Cancel()
			return
		case <-w.signal:
		}

		for {
			d, ok := w.next()
			if !ok {
				break
			}

			if w.ctx.Err() != nil {
				w.Cancel()
				return
			}

			if w.handler != nil {
				w.handler(d.res, d.err)
			}
		}
	}
}
