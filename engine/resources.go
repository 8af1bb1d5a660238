package engine

import (
	"reflect"
	"sync"
)

// ResourceStore holds world-wide singletons keyed by their Go type
// Time, FixedTime, GameTick, the spatial grid and the collision tracker live here
// Register pointer types so systems mutate the shared value
type ResourceStore struct {
	mu        sync.RWMutex
	resources map[reflect.Type]any
}

// NewResourceStore creates a new empty resource store
func NewResourceStore() *ResourceStore {
	return &ResourceStore{
		resources: make(map[reflect.Type]any),
	}
}

// AddResource registers or replaces the resource of type T
func AddResource[T any](rs *ResourceStore, resource T) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.resources[reflect.TypeFor[T]()] = resource
}

// GetResource retrieves the resource of type T
// Returns the zero value of T and false if not found
func GetResource[T any](rs *ResourceStore) (T, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	val, ok := rs.resources[reflect.TypeFor[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// MustGetResource retrieves a resource or panics if missing
// For resources a plugin inserts at build time and its own systems rely on
func MustGetResource[T any](rs *ResourceStore) T {
	res, ok := GetResource[T](rs)
	if !ok {
		panic("required resource not found: " + reflect.TypeFor[T]().String())
	}
	return res
}

// HasResource reports whether a resource of type T is present
func HasResource[T any](rs *ResourceStore) bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	_, ok := rs.resources[reflect.TypeFor[T]()]
	return ok
}

// RemoveResource deletes the resource of type T
func RemoveResource[T any](rs *ResourceStore) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	t := reflect.TypeFor[T]()
	_, ok := rs.resources[t]
	delete(rs.resources, t)
	return ok
}

// Len returns the number of resources
func (rs *ResourceStore) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.resources)
}
