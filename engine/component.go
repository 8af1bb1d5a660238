package engine

import (
	"reflect"

	"github.com/lixenwraith/tickforge/core"
)

// StoreOf returns the store for component type T, creating it on first use
// Plugins should touch their stores at build time so creation never races a parallel stage
func StoreOf[T any](w *World) *Store[T] {
	return w.storeFor(reflect.TypeFor[T](), func() AnyStore { return NewStore[T]() }).(*Store[T])
}

// Insert attaches a component to a live entity, replacing any previous value
// Returns false for dead handles
func Insert[T any](w *World, e core.Entity, val T) bool {
	if !w.Alive(e) {
		return false
	}
	StoreOf[T](w).Set(e, val)
	return true
}

// Get returns a copy of the entity's T component
func Get[T any](w *World, e core.Entity) (T, bool) {
	return StoreOf[T](w).Get(e)
}

// GetMut returns a pointer to the entity's T component, nil when absent
func GetMut[T any](w *World, e core.Entity) *T {
	return StoreOf[T](w).Ptr(e)
}

// Has reports whether the entity holds a T component
func Has[T any](w *World, e core.Entity) bool {
	return StoreOf[T](w).Has(e)
}

// Remove detaches the entity's T component
func Remove[T any](w *World, e core.Entity) bool {
	return StoreOf[T](w).Remove(e)
}
