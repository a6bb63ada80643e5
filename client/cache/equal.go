package cache

import "github.com/google/go-cmp/cmp"

// Equal compares two stored field values
func Equal(a, b interface{}) bool {
	return cmp.Equal(a, b)
}
