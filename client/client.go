package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"

	"github.com/infiotinc/rxgqlgenc/client/cache"
	"github.com/infiotinc/rxgqlgenc/client/executor"
	"github.com/infiotinc/rxgqlgenc/client/transport"
)

type Client struct {
	Transport transport.Transport
	Schema    *ast.Schema
	// Store holds the normalized records, a fresh in-memory store is used when nil
	Store *cache.Store
	// CacheKeyForObject gives objects a stable record key, by default
	// objects are keyed by their response path
	CacheKeyForObject executor.CacheKeyFunc
	Log               *zap.Logger
	Metrics           *Metrics

	documents sync.Map
	initOnce  sync.Once
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		if c.Store == nil {
			c.Store = cache.NewStore(nil)
		}

		if c.Log == nil {
			c.Log = zap.NewNop()
		}
	})
}

// Fetch runs a query according to policy. handler may be called twice with
// ReturnCacheDataAndFetch, and is never called once the operation is cancelled.
func (c *Client) Fetch(ctx context.Context, op Operation, policy CachePolicy, handler ResultHandler) Cancellable {
	c.init()

	return c.start(ctx, handler, func(ctx context.Context, deliver ResultHandler) {
		p, err := c.parseAs(op, ast.Query)
		if err != nil {
			deliver(nil, err)
			return
		}

		c.fetch(ctx, p, op, policy, uuid.Nil, deliver)
	})
}

// Perform runs a mutation and writes its result to the store
func (c *Client) Perform(ctx context.Context, op Operation, handler ResultHandler) Cancellable {
	c.init()

	return c.start(ctx, handler, func(ctx context.Context, deliver ResultHandler) {
		p, err := c.parseAs(op, ast.Mutation)
		if err != nil {
			deliver(nil, err)
			return
		}

		deliver(c.send(ctx, p, op, uuid.Nil))
	})
}

// Query runs a query and decodes its data into t
// operationName is optional
func (c *Client) Query(ctx context.Context, operationName string, query string, variables map[string]interface{}, t interface{}) error {
	return c.wait(ctx, t, func(ctx context.Context, h ResultHandler) Cancellable {
		return c.Fetch(ctx, Operation{Document: query, OperationName: operationName, Variables: variables}, FetchIgnoringCacheData, h)
	})
}

// Mutation runs a mutation and decodes its data into t
// operationName is optional
func (c *Client) Mutation(ctx context.Context, operationName string, query string, variables map[string]interface{}, t interface{}) error {
	return c.wait(ctx, t, func(ctx context.Context, h ResultHandler) Cancellable {
		return c.Perform(ctx, Operation{Document: query, OperationName: operationName, Variables: variables}, h)
	})
}

func (c *Client) wait(ctx context.Context, t interface{}, run func(ctx context.Context, h ResultHandler) Cancellable) error {
	type outcome struct {
		res *Result
		err error
	}

	ch := make(chan outcome, 1)
	op := run(ctx, func(res *Result, err error) {
		ch <- outcome{res, err}
	})
	defer op.Cancel()

	select {
	case o := <-ch:
		if o.err != nil {
			return o.err
		}

		if err := o.res.UnmarshalData(t); err != nil {
			return err
		}

		if len(o.res.Errors) > 0 {
			return o.res.Errors
		}

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// start runs fn on its own goroutine. deliver drops results once ctx is done.
func (c *Client) start(ctx context.Context, handler ResultHandler, fn func(ctx context.Context, deliver ResultHandler)) Cancellable {
	ctx, cancel := context.WithCancel(ctx)

	deliver := func(res *Result, err error) {
		if ctx.Err() != nil {
			return
		}

		c.Metrics.observe(res, err)
		if err != nil {
			c.Log.Debug("operation failed", zap.Error(err))
		}

		if handler != nil {
			handler(res, err)
		}
	}

	go func() {
		defer cancel()

		fn(ctx, deliver)
	}()

	return CancelFunc(cancel)
}

func (c *Client) fetch(ctx context.Context, p *parsedOperation, op Operation, policy CachePolicy, contextID uuid.UUID, deliver ResultHandler) {
	c.Log.Debug("fetch",
		zap.String("operation", p.op.Name),
		zap.Stringer("policy", policy),
	)

	if policy != FetchIgnoringCacheData {
		res, err := c.readCache(p, op.Variables)
		switch {
		case err == nil:
			deliver(res, nil)
			if policy != ReturnCacheDataAndFetch {
				return
			}
		case !errors.Is(err, ErrCacheMiss), policy == ReturnCacheDataDontFetch:
			deliver(nil, err)
			return
		}
	}

	deliver(c.send(ctx, p, op, contextID))
}

func (c *Client) readCache(p *parsedOperation, vars map[string]interface{}) (*Result, error) {
	var res *Result

	err := c.Store.Read(func(load cache.Loader) error {
		data, deps, err := executor.Read(c.Schema, p.op, vars, p.rootKey(), load)
		if err != nil {
			return err
		}

		res = &Result{Data: data, Source: SourceCache, DependentKeys: deps}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) request(ctx context.Context, p *parsedOperation, op Operation) transport.Response {
	name := op.OperationName
	if name == "" {
		name = p.op.Name
	}

	res := c.Transport.Request(transport.Request{
		Context:       ctx,
		Operation:     transport.OperationFor(p.op.Operation),
		Query:         op.Document,
		OperationName: name,
		Variables:     op.Variables,
	})

	go func() {
		select {
		case <-ctx.Done():
			res.Close()
		case <-res.Done():
		}
	}()

	return res
}

// send runs a single request and publishes its result to the store under contextID
func (c *Client) send(ctx context.Context, p *parsedOperation, op Operation, contextID uuid.UUID) (*Result, error) {
	res := c.request(ctx, p, op)
	defer res.Close()

	if !res.Next() {
		if err := res.Err(); err != nil {
			return nil, err
		}

		return nil, ErrNoResponse
	}

	return c.process(p, op.Variables, res.Get(), contextID)
}

func (c *Client) process(p *parsedOperation, vars map[string]interface{}, opres transport.OperationResponse, contextID uuid.UUID) (*Result, error) {
	result := &Result{
		Errors:     opres.Errors,
		Extensions: opres.Extensions,
		Source:     SourceServer,
	}

	if !opres.HasData() {
		if len(opres.Errors) > 0 {
			return nil, opres.Errors
		}

		return result, nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal(opres.Data, &data); err != nil {
		return nil, err
	}

	records, err := executor.Normalize(c.Schema, p.op, vars, p.rootKey(), data, c.CacheKeyForObject)
	if err != nil {
		// a field nulled by a server error is reported as that error
		if len(opres.Errors) > 0 {
			return nil, opres.Errors
		}

		return nil, err
	}

	if _, err := c.Store.Publish(records, contextID); err != nil {
		return nil, err
	}
	c.Metrics.published()

	deps := cache.NewKeySet()
	for key, fields := range records {
		for f := range fields {
			deps.Add(key + "." + f)
		}
	}

	result.Data = data
	result.DependentKeys = deps

	return result, nil
}
