package executor

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
)

var (
	// ErrCacheMiss is returned when the cache can't satisfy a selection
	ErrCacheMiss = errors.New("cache miss")

	ErrMissingValue = errors.New("missing value")
	ErrNullValue    = errors.New("null value for non-null field")
)

// GraphQLResultError is returned when a response does not satisfy the shape
// of the operation that requested it
type GraphQLResultError struct {
	Path ast.Path
	Err  error
}

func (e *GraphQLResultError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("GraphQL result error: %v", e.Err)
	}

	return fmt.Sprintf("GraphQL result error at %v: %v", e.Path.String(), e.Err)
}

func (e *GraphQLResultError) Unwrap() error {
	return e.Err
}

func resultError(path ast.Path, err error) error {
	return &GraphQLResultError{Path: path, Err: err}
}

func cacheMiss(path ast.Path, format string, args ...interface{}) error {
	return errors.Wrapf(ErrCacheMiss, "%v: %v", path.String(), fmt.Sprintf(format, args...))
}
