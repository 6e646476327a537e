package serenity

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is a keyed store of live SDK values, typically conversations or
// real-time sessions addressed by an application-level identifier. All
// methods are safe for concurrent use.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]T)}
}

// CreateOrUpdate returns the entry under key, building it with build when
// absent. An empty key allocates a fresh one. When the entry already exists
// and update is non-nil, update runs on it before it is returned. The
// effective key is always returned alongside the entry.
func (r *Registry[T]) CreateOrUpdate(key string, build func() T, update func(T)) (string, T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key == "" {
		key = uuid.NewString()
	}
	entry, ok := r.entries[key]
	if !ok {
		entry = build()
		r.entries[key] = entry
		return key, entry
	}
	if update != nil {
		update(entry)
	}
	return key, entry
}

// Get returns the entry under key, if present.
func (r *Registry[T]) Get(key string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[key]
	return entry, ok
}

// Destroy removes the entry under key, reporting whether one existed. The
// caller owns any teardown of the removed value.
func (r *Registry[T]) Destroy(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	delete(r.entries, key)
	return ok
}

// Len reports the number of live entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
