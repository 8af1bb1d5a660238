package engine

import (
	"reflect"

	"github.com/lixenwraith/tickforge/core"
)

// AnyStore is the type-erased view of a Store used by queries and despawn
type AnyStore interface {
	Has(e core.Entity) bool
	All() []core.Entity
	Count() int
	Remove(e core.Entity) bool
	Clear()
	Type() reflect.Type
}

// Store is a sparse set holding components of type T
// Values are packed densely; index maps an entity to its dense slot
// Stores do not lock: the scheduler guarantees a writer never overlaps a reader of the same type
type Store[T any] struct {
	index    map[core.Entity]int
	entities []core.Entity
	values   []T
}

// NewStore creates a new component store for type T
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		index:    make(map[core.Entity]int),
		entities: make([]core.Entity, 0, 64),
		values:   make([]T, 0, 64),
	}
}

// Set inserts or replaces the component for an entity
func (s *Store[T]) Set(e core.Entity, val T) {
	if i, ok := s.index[e]; ok {
		s.values[i] = val
		return
	}
	s.index[e] = len(s.entities)
	s.entities = append(s.entities, e)
	s.values = append(s.values, val)
}

// Get returns a copy of the component for an entity
func (s *Store[T]) Get(e core.Entity) (T, bool) {
	if i, ok := s.index[e]; ok {
		return s.values[i], true
	}
	var zero T
	return zero, false
}

// Ptr returns a pointer into dense storage, nil when absent
// The pointer is invalidated by the next insert of a new entity or any Remove on this store
func (s *Store[T]) Ptr(e core.Entity) *T {
	if i, ok := s.index[e]; ok {
		return &s.values[i]
	}
	return nil
}

// Has checks if entity has this component
func (s *Store[T]) Has(e core.Entity) bool {
	_, ok := s.index[e]
	return ok
}

// Remove deletes the component with a swap-remove, reporting whether it existed
func (s *Store[T]) Remove(e core.Entity) bool {
	i, ok := s.index[e]
	if !ok {
		return false
	}
	last := len(s.entities) - 1
	if i != last {
		moved := s.entities[last]
		s.entities[i] = moved
		s.values[i] = s.values[last]
		s.index[moved] = i
	}
	var zero T
	s.values[last] = zero
	s.entities = s.entities[:last]
	s.values = s.values[:last]
	delete(s.index, e)
	return true
}

// All returns a copy of the entities holding this component
func (s *Store[T]) All() []core.Entity {
	out := make([]core.Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// Count returns number of entities with this component
func (s *Store[T]) Count() int {
	return len(s.entities)
}

// Clear removes every component
func (s *Store[T]) Clear() {
	s.index = make(map[core.Entity]int)
	s.entities = s.entities[:0]
	clear(s.values)
	s.values = s.values[:0]
}

// Each visits every component in dense order
// fn must not insert into or remove from this store
func (s *Store[T]) Each(fn func(e core.Entity, val *T)) {
	for i := range s.entities {
		fn(s.entities[i], &s.values[i])
	}
}

// Type returns the component type held by the store
func (s *Store[T]) Type() reflect.Type {
	return reflect.TypeFor[T]()
}
