package engine

import (
	"reflect"
	"sync"

	"github.com/lixenwraith/tickforge/core"
)

// DespawnHook runs before an entity's components are removed
type DespawnHook func(w *World, e core.Entity)

type slot struct {
	generation uint32
	alive      bool
}

// World owns every entity, component store and resource
// It is passed by reference into every system; nothing in the engine is global
type World struct {
	slots []slot
	free  []uint32
	alive int

	storesMu  sync.RWMutex
	stores    map[reflect.Type]AnyStore
	storeList []AnyStore

	despawnHooks []DespawnHook

	Resources *ResourceStore
	commands  *Commands
}

// NewWorld creates an empty world
func NewWorld() *World {
	return &World{
		slots:     make([]slot, 0, 256),
		stores:    make(map[reflect.Type]AnyStore),
		Resources: NewResourceStore(),
		commands:  &Commands{},
	}
}

// Spawn allocates a new entity handle, reusing freed slots
func (w *World) Spawn() core.Entity {
	w.alive++
	if n := len(w.free); n > 0 {
		idx := w.free[n-1]
		w.free = w.free[:n-1]
		w.slots[idx].alive = true
		return core.NewEntity(idx, w.slots[idx].generation)
	}
	w.slots = append(w.slots, slot{generation: 1, alive: true})
	return core.NewEntity(uint32(len(w.slots)-1), 1)
}

// Alive reports whether e refers to a live entity of the current slot generation
func (w *World) Alive(e core.Entity) bool {
	idx := e.Index()
	if e.IsNil() || int(idx) >= len(w.slots) {
		return false
	}
	s := w.slots[idx]
	return s.alive && s.generation == e.Generation()
}

// Despawn runs despawn hooks, removes every component and retires the handle
// Stale or dead handles are ignored
func (w *World) Despawn(e core.Entity) bool {
	if !w.Alive(e) {
		return false
	}
	for _, hook := range w.despawnHooks {
		hook(w, e)
	}

	w.storesMu.RLock()
	for _, s := range w.storeList {
		s.Remove(e)
	}
	w.storesMu.RUnlock()

	idx := e.Index()
	w.slots[idx].alive = false
	w.slots[idx].generation++
	if w.slots[idx].generation == 0 {
		w.slots[idx].generation = 1
	}
	w.free = append(w.free, idx)
	w.alive--
	return true
}

// EntityCount returns the number of live entities
func (w *World) EntityCount() int {
	return w.alive
}

// Entities returns all live handles in slot order
func (w *World) Entities() []core.Entity {
	out := make([]core.Entity, 0, w.alive)
	for i, s := range w.slots {
		if s.alive {
			out = append(out, core.NewEntity(uint32(i), s.generation))
		}
	}
	return out
}

// OnDespawn registers a hook run for every despawned entity, in registration order
func (w *World) OnDespawn(hook DespawnHook) {
	w.despawnHooks = append(w.despawnHooks, hook)
}

// Commands returns the deferred command queue, applied at the end of each stage
func (w *World) Commands() *Commands {
	return w.commands
}

// ApplyCommands drains the deferred command queue and returns how many ran
func (w *World) ApplyCommands() int {
	return w.commands.apply(w)
}

// storeFor returns the store registered for t, creating it with mk on first use
func (w *World) storeFor(t reflect.Type, mk func() AnyStore) AnyStore {
	w.storesMu.RLock()
	s, ok := w.stores[t]
	w.storesMu.RUnlock()
	if ok {
		return s
	}

	w.storesMu.Lock()
	defer w.storesMu.Unlock()
	if s, ok := w.stores[t]; ok {
		return s
	}
	s = mk()
	w.stores[t] = s
	w.storeList = append(w.storeList, s)
	return s
}

// StoreCount returns the number of registered component types
func (w *World) StoreCount() int {
	w.storesMu.RLock()
	defer w.storesMu.RUnlock()
	return len(w.storeList)
}
