package cmap

import (
	"encoding/binary"
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the shard count used by New.
const DefaultShardCount = 16

// Hasher maps a key onto a shard.
type Hasher[K comparable] func(K) uint64

// HashUint32 hashes 32 bit integer keys.
func HashUint32[K ~uint32](key K) uint64 {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(key))
	return murmur3.Sum64(b[:])
}

// HashString hashes string keys.
func HashString[K ~string](key K) uint64 {
	return murmur3.Sum64([]byte(key))
}

// Option configures a Map.
type Option func(*options)

type options struct {
	shards int
}

// WithShardCount sets the shard count. Values that are not a positive
// power of two fall back to DefaultShardCount.
func WithShardCount(n int) Option {
	return func(o *options) { o.shards = n }
}

// Map is a concurrent-safe sharded map.
type Map[K comparable, V any] struct {
	shards []*shard[K, V]
	mask   uint64
	hash   Hasher[K]
}

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates an empty map sharded by hash.
func New[K comparable, V any](hash Hasher[K], opts ...Option) *Map[K, V] {
	o := options{shards: DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}
	if o.shards <= 0 || o.shards&(o.shards-1) != 0 {
		o.shards = DefaultShardCount
	}

	m := &Map[K, V]{
		shards: make([]*shard[K, V], o.shards),
		mask:   uint64(o.shards - 1),
		hash:   hash,
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[m.hash(key)&m.mask]
}

// Get retrieves a value by key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores a value.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// GetOrSet returns the value stored under key, or stores value if there is
// none. loaded reports whether the returned value was already present.
func (m *Map[K, V]) GetOrSet(key K, value V) (actual V, loaded bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[key]; ok {
		return existing, true
	}
	s.items[key] = value
	return value, false
}

// Upsert stores fn(existing, exists) under key and returns it. fn runs
// under the shard lock; when the key is absent it receives value.
func (m *Map[K, V]) Upsert(key K, value V, fn func(existing V, exists bool) V) V {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[key]; ok {
		value = fn(existing, true)
	} else {
		value = fn(value, false)
	}
	s.items[key] = value
	return value
}

// Pop removes key and returns the value it held.
func (m *Map[K, V]) Pop(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Range calls fn for every entry until fn returns false. fn must not
// modify the map.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Values returns every value in unspecified order.
func (m *Map[K, V]) Values() []V {
	out := make([]V, 0, m.Len())
	m.Range(func(_ K, v V) bool {
		out = append(out, v)
		return true
	})
	return out
}
