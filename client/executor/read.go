package executor

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/infiotinc/rxgqlgenc/client/cache"
)

type reader struct {
	walker
	load cache.Loader
	deps cache.KeySet
}

// Read resolves op against the records reachable from rootKey. It returns
// the response data and the "record.field" keys it depends on. Incomplete
// data fails with ErrCacheMiss.
func Read(schema *ast.Schema, op *ast.OperationDefinition, vars map[string]interface{}, rootKey string, load cache.Loader) (map[string]interface{}, cache.KeySet, error) {
	typ, err := rootType(schema, op.Operation)
	if err != nil {
		return nil, nil, err
	}

	r := &reader{
		walker: walker{schema: schema, vars: vars},
		load:   load,
		deps:   cache.KeySet{},
	}

	data, err := r.object(rootKey, typ, op.SelectionSet, nil)
	if err != nil {
		return nil, nil, err
	}

	return data, r.deps, nil
}

func (r *reader) object(key, staticType string, set ast.SelectionSet, path ast.Path) (map[string]interface{}, error) {
	fields, err := r.load(key)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, cacheMiss(path, "no record %v", key)
	}

	typename, _ := fields["__typename"].(string)

	groups, err := r.collect(set, typename, staticType)
	if err != nil {
		return nil, err
	}

	out := make(map[string]interface{}, len(groups))
	for _, g := range groups {
		f := g.field()
		fpath := childPath(path, ast.PathName(g.key))

		skey, err := r.storageKey(f)
		if err != nil {
			return nil, err
		}

		r.deps.Add(key + "." + skey)

		raw, ok := fields[skey]
		if !ok {
			if f.Name == "__typename" && typename == "" {
				if def := r.schema.Types[staticType]; def != nil && def.Kind == ast.Object {
					out[g.key] = staticType
					continue
				}
			}

			return nil, cacheMiss(fpath, "no field %v on %v", skey, key)
		}

		v, err := r.value(f.Definition.Type, g.selections(), raw, fpath)
		if err != nil {
			return nil, err
		}

		out[g.key] = v
	}

	return out, nil
}

func (r *reader) value(typ *ast.Type, set ast.SelectionSet, raw interface{}, path ast.Path) (interface{}, error) {
	if raw == nil {
		if typ.NonNull {
			return nil, cacheMiss(path, "null value for non-null field")
		}

		return nil, nil
	}

	if typ.Elem != nil {
		list, ok := raw.([]interface{})
		if !ok {
			return nil, cacheMiss(path, "expected a list, got %T", raw)
		}

		out := make([]interface{}, len(list))
		for i, item := range list {
			v, err := r.value(typ.Elem, set, item, childPath(path, ast.PathIndex(i)))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}

		return out, nil
	}

	if len(set) == 0 {
		return raw, nil
	}

	ref, ok := raw.(cache.Reference)
	if !ok {
		return nil, cacheMiss(path, "expected a reference, got %T", raw)
	}

	return r.object(ref.Key, typ.NamedType, set, path)
}
