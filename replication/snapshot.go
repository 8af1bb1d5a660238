package replication

import (
	"sort"

	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
	"github.com/lixenwraith/tickforge/transform"
	"github.com/lixenwraith/tickforge/vmath"
)

// EntitySnapshot is the replicated world pose of one entity
type EntitySnapshot struct {
	NetworkID NetworkID   `msgpack:"id"`
	Position  vmath.Vec3  `msgpack:"p"`
	Rotation  vmath.Quat  `msgpack:"r"`
	Velocity  *vmath.Vec3 `msgpack:"v,omitempty"`
	// Owner is the controlling client id, 0 for server-owned entities
	Owner uint64 `msgpack:"o,omitempty"`
}

// TickSnapshot is every replicated entity at one game tick, ordered by NetworkID
type TickSnapshot struct {
	Tick     uint64           `msgpack:"t"`
	Entities []EntitySnapshot `msgpack:"e"`
}

// Find returns the entry for id
func (s *TickSnapshot) Find(id NetworkID) (EntitySnapshot, bool) {
	i := sort.Search(len(s.Entities), func(i int) bool { return s.Entities[i].NetworkID >= id })
	if i < len(s.Entities) && s.Entities[i].NetworkID == id {
		return s.Entities[i], true
	}
	return EntitySnapshot{}, false
}

// CaptureSnapshot reads the world pose of every replicated entity
// Must run after transform finalization; children use GlobalTransform, roots their local Transform
func CaptureSnapshot(w *engine.World, tick uint64) TickSnapshot {
	ids := engine.StoreOf[NetworkID](w)
	markers := engine.StoreOf[Replicate](w)
	locals := engine.StoreOf[transform.Transform](w)
	globals := engine.StoreOf[transform.GlobalTransform](w)
	velocities := engine.StoreOf[physics.Velocity](w)
	owners := engine.StoreOf[PlayerControlled](w)

	entities := w.Query().With(ids, markers, locals).Execute()
	snap := TickSnapshot{Tick: tick, Entities: make([]EntitySnapshot, 0, len(entities))}
	for _, e := range entities {
		es := EntitySnapshot{NetworkID: *ids.Ptr(e)}
		if g := globals.Ptr(e); g != nil {
			es.Position = g.Position()
			es.Rotation = g.Rotation()
		} else {
			t := locals.Ptr(e)
			es.Position = t.Position
			es.Rotation = t.Rotation
		}
		if v := velocities.Ptr(e); v != nil {
			lin := v.Linear
			es.Velocity = &lin
		}
		if pc := owners.Ptr(e); pc != nil {
			es.Owner = pc.ClientID
		}
		snap.Entities = append(snap.Entities, es)
	}
	sort.Slice(snap.Entities, func(i, j int) bool {
		return snap.Entities[i].NetworkID < snap.Entities[j].NetworkID
	})
	return snap
}

// CaptureStep records one snapshot per new game tick into the SnapshotHistory resource
// Frames that ran no fixed step leave the history untouched
func CaptureStep(w *engine.World) {
	tick := engine.MustGetResource[*engine.GameTick](w.Resources).Get()
	history := engine.MustGetResource[*SnapshotHistory](w.Resources)
	if latest, ok := history.Latest(); ok && latest.Tick == tick {
		return
	}
	if _, ok := history.Latest(); !ok && tick == 0 {
		return
	}
	history.Push(CaptureSnapshot(w, tick))
	engine.MustGetResource[*engine.Engine](w.Resources).Status().Counter("replication.snapshots").Add(1)
}

// ApplySnapshot writes a received snapshot onto a mirroring world
// Unknown ids spawn a new root entity bound to that id; returns the number of entities written
func ApplySnapshot(w *engine.World, snap TickSnapshot) int {
	ids := engine.MustGetResource[*NetworkIDMap](w.Resources)
	n := 0
	for _, es := range snap.Entities {
		e, ok := ids.Entity(es.NetworkID)
		if !ok || !w.Alive(e) {
			e = transform.Spawn(w, transform.Identity())
			ids.RegisterWithID(e, es.NetworkID)
			engine.Insert(w, e, es.NetworkID)
		}
		t := engine.GetMut[transform.Transform](w, e)
		if t == nil {
			transform.Attach(w, e, transform.Identity())
			t = engine.GetMut[transform.Transform](w, e)
		}
		t.Position = es.Position
		t.Rotation = es.Rotation
		if es.Velocity != nil {
			if v := engine.GetMut[physics.Velocity](w, e); v != nil {
				v.Linear = *es.Velocity
			} else {
				engine.Insert(w, e, physics.Velocity{Linear: *es.Velocity})
			}
		}
		n++
	}
	return n
}
