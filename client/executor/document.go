package executor

import (
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/infiotinc/rxgqlgenc/client/cache"
)

// LoadSchema parses and validates SDL sources, prelude included
func LoadSchema(sources ...*ast.Source) (*ast.Schema, error) {
	schema, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, err
	}

	return schema, nil
}

// ParseOperation parses document against schema and picks the operation
// named name, or the only one when name is empty
func ParseOperation(schema *ast.Schema, document, name string) (*ast.QueryDocument, *ast.OperationDefinition, error) {
	doc, errs := gqlparser.LoadQuery(schema, document)
	if len(errs) > 0 {
		return nil, nil, errs
	}

	if name == "" {
		if len(doc.Operations) != 1 {
			return nil, nil, errors.Errorf("document has %v operations, an operation name is required", len(doc.Operations))
		}

		return doc, doc.Operations[0], nil
	}

	op := doc.Operations.ForName(name)
	if op == nil {
		return nil, nil, errors.Errorf("operation %q not found in document", name)
	}

	return doc, op, nil
}

// RootKey is the record key operation results hang off
func RootKey(op ast.Operation) string {
	switch op {
	case ast.Mutation:
		return cache.MutationRoot
	case ast.Subscription:
		return cache.SubscriptionRoot
	default:
		return cache.QueryRoot
	}
}

func rootType(schema *ast.Schema, op ast.Operation) (string, error) {
	var def *ast.Definition
	switch op {
	case ast.Mutation:
		def = schema.Mutation
	case ast.Subscription:
		def = schema.Subscription
	default:
		def = schema.Query
	}

	if def == nil {
		return "", errors.Errorf("schema does not support %v operations", op)
	}

	return def.Name, nil
}
