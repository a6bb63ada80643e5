package cache

import (
	"sort"
	"strings"
)

const (
	QueryRoot        = "QUERY_ROOT"
	MutationRoot     = "MUTATION_ROOT"
	SubscriptionRoot = "SUBSCRIPTION_ROOT"
)

// Reference points at another record in the cache
type Reference struct {
	Key string
}

// Fields maps a field storage key to its value: a scalar, a Reference,
// or a []interface{} of those
type Fields map[string]interface{}

// RecordSet maps record keys to their fields
type RecordSet map[string]Fields

// Merge copies other into rs and returns the keys whose value changed
func (rs RecordSet) Merge(other RecordSet) KeySet {
	changed := KeySet{}

	for key, fields := range other {
		existing, ok := rs[key]
		if !ok {
			existing = Fields{}
			rs[key] = existing
		}

		for name, value := range fields {
			if old, ok := existing[name]; ok && Equal(old, value) {
				continue
			}

			existing[name] = value
			changed.Add(key + "." + name)
		}
	}

	return changed
}

// KeySet holds "recordKey.fieldKey" entries
type KeySet map[string]struct{}

func NewKeySet(keys ...string) KeySet {
	ks := make(KeySet, len(keys))
	for _, k := range keys {
		ks.Add(k)
	}

	return ks
}

func (ks KeySet) Add(key string) {
	ks[key] = struct{}{}
}

func (ks KeySet) Has(key string) bool {
	_, ok := ks[key]
	return ok
}

func (ks KeySet) Union(other KeySet) {
	for k := range other {
		ks.Add(k)
	}
}

func (ks KeySet) Intersects(other KeySet) bool {
	small, large := ks, other
	if len(small) > len(large) {
		small, large = large, small
	}

	for k := range small {
		if large.Has(k) {
			return true
		}
	}

	return false
}

func (ks KeySet) Sorted() []string {
	keys := make([]string, 0, len(ks))
	for k := range ks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func (ks KeySet) String() string {
	return "[" + strings.Join(ks.Sorted(), " ") + "]"
}
