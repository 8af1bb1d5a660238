package replication

import (
	"sync"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
)

// NetworkID names an entity across processes; 0 is never issued
type NetworkID uint64

// Replicate marks entities included in snapshots
type Replicate struct{}

// NetworkIDMap maps network ids to local handles
// Inserted as a resource; the hub never touches it, so the lock only guards parallel readers
type NetworkIDMap struct {
	mu   sync.RWMutex
	byID map[NetworkID]core.Entity
	next NetworkID
}

// NewNetworkIDMap creates an empty map issuing ids from 1
func NewNetworkIDMap() *NetworkIDMap {
	return &NetworkIDMap{
		byID: make(map[NetworkID]core.Entity),
		next: 1,
	}
}

// Register issues the next id for e
func (m *NetworkIDMap) Register(e core.Entity) NetworkID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.byID[id] = e
	return id
}

// RegisterWithID binds a server-issued id on a mirroring client
// Later Register calls skip past it
func (m *NetworkIDMap) RegisterWithID(e core.Entity, id NetworkID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id] = e
	if id >= m.next {
		m.next = id + 1
	}
}

// Entity looks up the handle for id
func (m *NetworkIDMap) Entity(id NetworkID) (core.Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	return e, ok
}

// Remove forgets id; ids are not reissued
func (m *NetworkIDMap) Remove(id NetworkID) {
	m.mu.Lock()
	delete(m.byID, id)
	m.mu.Unlock()
}

// Len returns the number of bound ids
func (m *NetworkIDMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Replicated registers e, tags it with its id and the Replicate marker
func Replicated(w *engine.World, e core.Entity) NetworkID {
	ids := engine.MustGetResource[*NetworkIDMap](w.Resources)
	id := ids.Register(e)
	engine.Insert(w, e, id)
	engine.Insert(w, e, Replicate{})
	return id
}

// installHooks drops the id binding of despawned entities
func installHooks(w *engine.World, ids *NetworkIDMap) {
	w.OnDespawn(func(w *engine.World, e core.Entity) {
		if id, ok := engine.Get[NetworkID](w, e); ok {
			if bound, ok := ids.Entity(id); ok && bound == e {
				ids.Remove(id)
			}
		}
	})
}
