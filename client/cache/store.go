package cache

import (
	"sync"

	"github.com/google/uuid"
)

// ChangeHandler is told about every publish that changed something.
// contextID identifies who published, uuid.Nil when anonymous.
type ChangeHandler func(changed KeySet, contextID uuid.UUID)

// Loader returns the record stored under key, or nil
type Loader func(key string) (Fields, error)

// Store guards a NormalizedCache: reads see a consistent snapshot and
// subscribers are notified after each publish that changed records
type Store struct {
	cache NormalizedCache
	m     sync.RWMutex

	subs  map[uuid.UUID]ChangeHandler
	subsm sync.Mutex
}

func NewStore(c NormalizedCache) *Store {
	if c == nil {
		c = NewInMemoryNormalizedCache(nil)
	}

	return &Store{
		cache: c,
		subs:  map[uuid.UUID]ChangeHandler{},
	}
}

// Read runs fn inside a read transaction
func (s *Store) Read(fn func(load Loader) error) error {
	s.m.RLock()
	defer s.m.RUnlock()

	return fn(func(key string) (Fields, error) {
		records, err := s.cache.LoadRecords([]string{key})
		if err != nil {
			return nil, err
		}

		return records[0], nil
	})
}

// Publish merges records into the cache and notifies subscribers of the
// changed keys. Subscribers run on the caller's goroutine, outside the lock.
func (s *Store) Publish(records RecordSet, contextID uuid.UUID) (KeySet, error) {
	s.m.Lock()
	changed, err := s.cache.Merge(records)
	s.m.Unlock()
	if err != nil {
		return nil, err
	}

	if len(changed) == 0 {
		return changed, nil
	}

	s.subsm.Lock()
	handlers := make([]ChangeHandler, 0, len(s.subs))
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	s.subsm.Unlock()

	for _, h := range handlers {
		h(changed, contextID)
	}

	return changed, nil
}

func (s *Store) Subscribe(h ChangeHandler) (unsubscribe func()) {
	id := uuid.New()

	s.subsm.Lock()
	s.subs[id] = h
	s.subsm.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsm.Lock()
			delete(s.subs, id)
			s.subsm.Unlock()
		})
	}
}

// Subscribers returns the number of registered change handlers
func (s *Store) Subscribers() int {
	s.subsm.Lock()
	defer s.subsm.Unlock()

	return len(s.subs)
}

func (s *Store) Clear() error {
	s.m.Lock()
	defer s.m.Unlock()

	return s.cache.Clear()
}
