// File path: internal/cache/cache.go
package cache

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts time for tests.
type Clock func() time.Time

type entry struct {
	value     interface{}
	createdAt time.Time
	expiresAt time.Time
}

// Store is a TTL-bounded, capacity-bounded in-memory cache. When the store
// grows past its capacity the oldest entries are evicted in bulk; approximate
// recency is enough, no per-key LRU ordering is maintained.
type Store struct {
	mu       sync.RWMutex
	data     map[string]entry
	ttl      time.Duration
	capacity int
	clock    Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects a clock, used by tests to control expiry.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a Store with the given TTL and capacity bound.
func New(ttl time.Duration, capacity int, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if capacity <= 0 {
		capacity = 512
	}
	s := &Store{
		data:     make(map[string]entry),
		ttl:      ttl,
		capacity: capacity,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Get returns the cached value for key if present and unexpired.
func (s *Store) Get(key string) (interface{}, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	ent, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.clock().After(ent.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return nil, false
	}
	return ent.value, true
}

// Set stores a value under key, evicting the oldest quarter of entries when
// the capacity bound is exceeded.
func (s *Store) Set(key string, value interface{}) {
	if s == nil {
		return
	}
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: value, createdAt: now, expiresAt: now.Add(s.ttl)}
	if len(s.data) <= s.capacity {
		return
	}
	type aged struct {
		key       string
		createdAt time.Time
	}
	entries := make([]aged, 0, len(s.data))
	for k, ent := range s.data {
		entries = append(entries, aged{key: k, createdAt: ent.createdAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].createdAt.Equal(entries[j].createdAt) {
			return entries[i].key < entries[j].key
		}
		return entries[i].createdAt.Before(entries[j].createdAt)
	})
	evict := len(s.data) - s.capacity + s.capacity/4
	if evict > len(entries) {
		evict = len(entries)
	}
	for _, victim := range entries[:evict] {
		delete(s.data, victim.key)
	}
}

// Len reports the number of stored entries, expired or not.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Purge empties the store.
func (s *Store) Purge() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.data = make(map[string]entry)
	s.mu.Unlock()
}
