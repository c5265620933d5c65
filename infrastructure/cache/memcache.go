package cache

import (
	"sync"
	"time"
)

// MemCache holds values of one type for a fixed TTL. Expired entries are
// dropped on read and, when sweepEvery > 0, by a background sweeper.
type MemCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type entry[V any] struct {
	value   V
	expires time.Time // zero when ttl is zero
}

func (e entry[V]) expiredAt(t time.Time) bool {
	return !e.expires.IsZero() && t.After(e.expires)
}

func NewMemCache[V any](ttl, sweepEvery time.Duration) *MemCache[V] {
	m := &MemCache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if sweepEvery <= 0 {
		close(m.done)
		return m
	}

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-m.stop:
				return
			}
		}
	}()
	return m
}

func (m *MemCache[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || e.expiredAt(m.now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (m *MemCache[V]) Set(key string, value V) {
	e := entry[V]{value: value}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
}

// GetOrLoad returns the cached value for key or stores what load returns.
// Load errors are returned as is and nothing is stored.
func (m *MemCache[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	m.Set(key, v)
	return v, nil
}

func (m *MemCache[V]) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Len counts stored entries, including expired ones not yet swept.
func (m *MemCache[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the sweeper. Safe to call more than once.
func (m *MemCache[V]) Close() {
	m.once.Do(func() { close(m.stop) })
	<-m.done
}

func (m *MemCache[V]) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.entries {
		if e.expiredAt(now) {
			delete(m.entries, key)
		}
	}
}
