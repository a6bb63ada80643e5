package client

import (
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/infiotinc/rxgqlgenc/client/executor"
)

// Operation describes a GraphQL request: a document, the operation to run
// in it (optional when it holds a single one) and its variables
type Operation struct {
	Document      string
	OperationName string
	Variables     map[string]interface{}
}

type parsedOperation struct {
	doc *ast.QueryDocument
	op  *ast.OperationDefinition
}

func (p *parsedOperation) rootKey() string {
	return executor.RootKey(p.op.Operation)
}

func (c *Client) parse(op Operation) (*parsedOperation, error) {
	if c.Schema == nil {
		return nil, errors.New("client has no schema")
	}

	key := op.OperationName + "\x00" + op.Document
	if p, ok := c.documents.Load(key); ok {
		return p.(*parsedOperation), nil
	}

	doc, def, err := executor.ParseOperation(c.Schema, op.Document, op.OperationName)
	if err != nil {
		return nil, err
	}

	p := &parsedOperation{doc: doc, op: def}
	c.documents.Store(key, p)

	return p, nil
}

func (c *Client) parseAs(op Operation, typ ast.Operation) (*parsedOperation, error) {
	p, err := c.parse(op)
	if err != nil {
		return nil, err
	}

	if p.op.Operation != typ {
		return nil, errors.Errorf("operation %q is a %v, expected a %v", p.op.Name, p.op.Operation, typ)
	}

	return p, nil
}
