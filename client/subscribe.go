package client

import (
	"context"

	"github.com/google/uuid"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"
)

// Subscribe starts a GraphQL subscription. Every payload is written to the
// store and handed to handler, ErrComplete follows the last one.
func (c *Client) Subscribe(ctx context.Context, op Operation, handler ResultHandler) Cancellable {
	c.init()

	return c.start(ctx, handler, func(ctx context.Context, deliver ResultHandler) {
		p, err := c.parseAs(op, ast.Subscription)
		if err != nil {
			deliver(nil, err)
			return
		}

		c.Log.Debug("subscribe", zap.String("operation", p.op.Name))

		res := c.request(ctx, p, op)
		defer res.Close()

		for res.Next() {
			result, err := c.process(p, op.Variables, res.Get(), uuid.Nil)
			deliver(result, err)
			if err != nil {
				return
			}
		}

		if err := res.Err(); err != nil {
			deliver(nil, err)
			return
		}

		deliver(nil, ErrComplete)
	})
}
