package executor

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
)

type walker struct {
	schema *ast.Schema
	vars   map[string]interface{}
}

// fieldGroup holds the fields sharing a response key
type fieldGroup struct {
	key    string
	fields []*ast.Field
}

func (g *fieldGroup) field() *ast.Field {
	return g.fields[0]
}

func (g *fieldGroup) selections() ast.SelectionSet {
	if len(g.fields) == 1 {
		return g.fields[0].SelectionSet
	}

	var set ast.SelectionSet
	for _, f := range g.fields {
		set = append(set, f.SelectionSet...)
	}

	return set
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}

	return f.Name
}

// collect flattens set into field groups for an object of the given
// runtime typename, falling back to staticType when it is unknown
func (w *walker) collect(set ast.SelectionSet, typename, staticType string) ([]*fieldGroup, error) {
	var groups []*fieldGroup
	index := map[string]*fieldGroup{}

	var visit func(set ast.SelectionSet) error
	visit = func(set ast.SelectionSet) error {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *ast.Field:
				ok, err := w.shouldInclude(sel.Directives)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}

				if sel.Definition == nil {
					return errors.Errorf("field %q has no definition", sel.Name)
				}

				key := responseKey(sel)
				g, ok := index[key]
				if !ok {
					g = &fieldGroup{key: key}
					index[key] = g
					groups = append(groups, g)
				}
				g.fields = append(g.fields, sel)
			case *ast.InlineFragment:
				ok, err := w.shouldInclude(sel.Directives)
				if err != nil {
					return err
				}
				if !ok || !w.applies(sel.TypeCondition, typename, staticType) {
					continue
				}

				if err := visit(sel.SelectionSet); err != nil {
					return err
				}
			case *ast.FragmentSpread:
				ok, err := w.shouldInclude(sel.Directives)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}

				def := sel.Definition
				if def == nil {
					return errors.Errorf("fragment %q is not defined", sel.Name)
				}
				if !w.applies(def.TypeCondition, typename, staticType) {
					continue
				}

				if err := visit(def.SelectionSet); err != nil {
					return err
				}
			}
		}

		return nil
	}

	if err := visit(set); err != nil {
		return nil, err
	}

	return groups, nil
}

func (w *walker) applies(condition, typename, staticType string) bool {
	if condition == "" {
		return true
	}

	if typename == "" {
		typename = staticType
	}

	if condition == typename {
		return true
	}

	def := w.schema.Types[condition]
	if def == nil || !def.IsAbstractType() {
		return false
	}

	for _, pt := range w.schema.GetPossibleTypes(def) {
		if pt.Name == typename {
			return true
		}
	}

	return false
}

func (w *walker) shouldInclude(directives ast.DirectiveList) (bool, error) {
	if d := directives.ForName("skip"); d != nil {
		v, err := w.directiveIf(d)
		if err != nil || v {
			return false, err
		}
	}

	if d := directives.ForName("include"); d != nil {
		v, err := w.directiveIf(d)
		if err != nil || !v {
			return false, err
		}
	}

	return true, nil
}

func (w *walker) directiveIf(d *ast.Directive) (bool, error) {
	arg := d.Arguments.ForName("if")
	if arg == nil || arg.Value == nil {
		return false, errors.Errorf("@%v requires an if argument", d.Name)
	}

	v, err := arg.Value.Value(w.vars)
	if err != nil {
		return false, err
	}

	b, _ := v.(bool)

	return b, nil
}

// storageKey is the cache field name: the schema field name, followed by
// its non-null arguments sorted by name
func (w *walker) storageKey(f *ast.Field) (string, error) {
	if len(f.Arguments) == 0 {
		return f.Name, nil
	}

	args := map[string]interface{}{}
	for _, a := range f.Arguments {
		v, err := a.Value.Value(w.vars)
		if err != nil {
			return "", err
		}

		if v == nil {
			continue
		}

		args[a.Name] = v
	}

	if len(args) == 0 {
		return f.Name, nil
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		b, err := json.Marshal(args[name])
		if err != nil {
			return "", err
		}

		parts = append(parts, name+":"+string(b))
	}

	return f.Name + "(" + strings.Join(parts, ",") + ")", nil
}

func childPath(path ast.Path, el ast.PathElement) ast.Path {
	out := make(ast.Path, len(path), len(path)+1)
	copy(out, path)

	return append(out, el)
}

// StorageKey returns the cache field name of f for the given variables
func StorageKey(f *ast.Field, vars map[string]interface{}) (string, error) {
	w := walker{vars: vars}

	return w.storageKey(f)
}
