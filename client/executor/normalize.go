package executor

import (
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/infiotinc/rxgqlgenc/client/cache"
)

// CacheKeyFunc returns a stable record key for an object, or "" to key it
// by its response path
type CacheKeyFunc func(object map[string]interface{}) string

type normalizer struct {
	walker
	cacheKey CacheKeyFunc
	records  cache.RecordSet
}

// Normalize splits the response data of op into records hanging off rootKey.
// It fails with a *GraphQLResultError when data does not satisfy the
// selection set: a non-null field missing or null, or a value of the wrong
// kind.
func Normalize(schema *ast.Schema, op *ast.OperationDefinition, vars map[string]interface{}, rootKey string, data map[string]interface{}, cacheKey CacheKeyFunc) (cache.RecordSet, error) {
	typ, err := rootType(schema, op.Operation)
	if err != nil {
		return nil, err
	}

	n := &normalizer{
		walker:   walker{schema: schema, vars: vars},
		cacheKey: cacheKey,
		records:  cache.RecordSet{},
	}

	if data == nil {
		return nil, resultError(nil, ErrMissingValue)
	}

	if err := n.object(rootKey, typ, op.SelectionSet, data, nil); err != nil {
		return nil, err
	}

	return n.records, nil
}

func (n *normalizer) object(key, staticType string, set ast.SelectionSet, obj map[string]interface{}, path ast.Path) error {
	typename, _ := obj["__typename"].(string)

	groups, err := n.collect(set, typename, staticType)
	if err != nil {
		return err
	}

	fields, ok := n.records[key]
	if !ok {
		fields = cache.Fields{}
		n.records[key] = fields
	}

	for _, g := range groups {
		f := g.field()
		fpath := childPath(path, ast.PathName(g.key))

		value, present := obj[g.key]
		if !present && f.Definition.Type.NonNull {
			return resultError(fpath, ErrMissingValue)
		}

		skey, err := n.storageKey(f)
		if err != nil {
			return err
		}

		v, err := n.value(key+"."+skey, f.Definition.Type, g.selections(), value, fpath)
		if err != nil {
			return err
		}

		fields[skey] = v
	}

	return nil
}

func (n *normalizer) value(key string, typ *ast.Type, set ast.SelectionSet, value interface{}, path ast.Path) (interface{}, error) {
	if value == nil {
		if typ.NonNull {
			return nil, resultError(path, ErrNullValue)
		}

		return nil, nil
	}

	if typ.Elem != nil {
		list, ok := value.([]interface{})
		if !ok {
			return nil, resultError(path, fmt.Errorf("expected a list, got %T", value))
		}

		out := make([]interface{}, len(list))
		for i, item := range list {
			v, err := n.value(key+"."+strconv.Itoa(i), typ.Elem, set, item, childPath(path, ast.PathIndex(i)))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}

		return out, nil
	}

	if len(set) == 0 {
		return value, nil
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, resultError(path, fmt.Errorf("expected an object, got %T", value))
	}

	if n.cacheKey != nil {
		if k := n.cacheKey(obj); k != "" {
			key = k
		}
	}

	if err := n.object(key, typ.NamedType, set, obj, path); err != nil {
		return nil, err
	}

	return cache.Reference{Key: key}, nil
}
