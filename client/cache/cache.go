package cache

import (
	"sync"
)

// NormalizedCache stores records by key. Implementations must be safe for
// concurrent use.
type NormalizedCache interface {
	// LoadRecords returns the records for keys, in order; missing records are nil
	LoadRecords(keys []string) ([]Fields, error)
	// Merge writes records and returns the keys that changed
	Merge(records RecordSet) (KeySet, error)
	Clear() error
}

type InMemoryNormalizedCache struct {
	records RecordSet
	m       sync.RWMutex
}

func NewInMemoryNormalizedCache(records RecordSet) *InMemoryNormalizedCache {
	c := &InMemoryNormalizedCache{records: RecordSet{}}
	if records != nil {
		c.records.Merge(records)
	}

	return c
}

func (c *InMemoryNormalizedCache) LoadRecords(keys []string) ([]Fields, error) {
	c.m.RLock()
	defer c.m.RUnlock()

	out := make([]Fields, len(keys))
	for i, key := range keys {
		fields, ok := c.records[key]
		if !ok {
			continue
		}

		cp := make(Fields, len(fields))
		for k, v := range fields {
			cp[k] = v
		}
		out[i] = cp
	}

	return out, nil
}

func (c *InMemoryNormalizedCache) Merge(records RecordSet) (KeySet, error) {
	c.m.Lock()
	defer c.m.Unlock()

	return c.records.Merge(records), nil
}

func (c *InMemoryNormalizedCache) Clear() error {
	c.m.Lock()
	defer c.m.Unlock()

	c.records = RecordSet{}

	return nil
}
