package engine

import (
	"slices"
	"sort"

	"github.com/lixenwraith/tickforge/core"
)

// QueryBuilder finds entities present in every With store and absent from every Without store
// Intersection starts from the smallest With store and filters through the larger ones
// Results are ordered by entity handle so iteration is reproducible across runs
type QueryBuilder struct {
	world    *World
	with     []AnyStore
	without  []AnyStore
	executed bool
	results  []core.Entity
}

// Query creates a new QueryBuilder
//
// Example:
//
//	entities := world.Query().
//	    With(engine.StoreOf[Transform](world), engine.StoreOf[Velocity](world)).
//	    Without(engine.StoreOf[Parent](world)).
//	    Execute()
func (w *World) Query() *QueryBuilder {
	return &QueryBuilder{
		world: w,
		with:  make([]AnyStore, 0, 4),
	}
}

// With requires entities to hold a component in each store
// Panics if called after Execute()
func (qb *QueryBuilder) With(stores ...AnyStore) *QueryBuilder {
	if qb.executed {
		panic("query already executed - cannot modify after Execute()")
	}
	qb.with = append(qb.with, stores...)
	return qb
}

// Without excludes entities holding a component in any of the stores
// Panics if called after Execute()
func (qb *QueryBuilder) Without(stores ...AnyStore) *QueryBuilder {
	if qb.executed {
		panic("query already executed - cannot modify after Execute()")
	}
	qb.without = append(qb.without, stores...)
	return qb
}

// Execute runs the query; repeated calls return the cached result
// An empty With list matches nothing
func (qb *QueryBuilder) Execute() []core.Entity {
	if qb.executed {
		return qb.results
	}
	qb.executed = true

	if len(qb.with) == 0 {
		qb.results = make([]core.Entity, 0)
		return qb.results
	}

	sort.Slice(qb.with, func(i, j int) bool {
		return qb.with[i].Count() < qb.with[j].Count()
	})

	candidates := qb.with[0].All()
	for _, store := range qb.with[1:] {
		filtered := candidates[:0]
		for _, e := range candidates {
			if store.Has(e) {
				filtered = append(filtered, e)
			}
		}
		candidates = filtered
		if len(candidates) == 0 {
			break
		}
	}

	if len(qb.without) > 0 && len(candidates) > 0 {
		filtered := candidates[:0]
	outer:
		for _, e := range candidates {
			for _, store := range qb.without {
				if store.Has(e) {
					continue outer
				}
			}
			filtered = append(filtered, e)
		}
		candidates = filtered
	}

	slices.SortFunc(candidates, func(a, b core.Entity) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})

	qb.results = candidates
	return qb.results
}

// Each1 visits every entity holding A and none of the without stores
// The callback may mutate through the pointer but must not add or remove A components
func Each1[A any](w *World, fn func(e core.Entity, a *A), without ...AnyStore) {
	sa := StoreOf[A](w)
	for _, e := range w.Query().With(sa).Without(without...).Execute() {
		fn(e, sa.Ptr(e))
	}
}

// Each2 visits every entity holding both A and B
// A and B must be distinct types; the two pointers are disjoint mutable borrows
func Each2[A, B any](w *World, fn func(e core.Entity, a *A, b *B), without ...AnyStore) {
	sa, sb := StoreOf[A](w), StoreOf[B](w)
	for _, e := range w.Query().With(sa, sb).Without(without...).Execute() {
		fn(e, sa.Ptr(e), sb.Ptr(e))
	}
}

// Each3 visits every entity holding A, B and C
func Each3[A, B, C any](w *World, fn func(e core.Entity, a *A, b *B, c *C), without ...AnyStore) {
	sa, sb, sc := StoreOf[A](w), StoreOf[B](w), StoreOf[C](w)
	for _, e := range w.Query().With(sa, sb, sc).Without(without...).Execute() {
		fn(e, sa.Ptr(e), sb.Ptr(e), sc.Ptr(e))
	}
}
