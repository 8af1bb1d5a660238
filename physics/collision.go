package physics

import (
	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/status"
	"github.com/lixenwraith/tickforge/transform"
)

// RebuildGridStep clears the broad phase and inserts every collider at its world pose
func RebuildGridStep(w *engine.World) {
	grid := engine.MustGetResource[*SpatialHashGrid](w.Resources)
	grid.Clear()
	engine.Each2(w, func(e core.Entity, c *Collider, g *transform.GlobalTransform) {
		grid.Insert(e, ComputeAABB(*c, g.Position()))
	})

	if reg, ok := engine.GetResource[*status.Registry](w.Resources); ok {
		s := grid.Stats()
		reg.Gauge("physics.grid_cells").Set(float64(s.Cells))
		reg.Gauge("physics.grid_entities").Set(float64(s.Entities))
	}
}

// DetectCollisionsStep runs broad phase, layer gate and narrow phase, then advances the pair state machine
// Each pair is tested once, from its lower handle
func DetectCollisionsStep(w *engine.World) {
	grid := engine.MustGetResource[*SpatialHashGrid](w.Resources)
	tracker := engine.MustGetResource[*CollisionTracker](w.Resources)
	colliders := engine.StoreOf[Collider](w)
	globals := engine.StoreOf[transform.GlobalTransform](w)
	triggers := engine.StoreOf[Trigger](w)
	zones := engine.StoreOf[TriggerZone](w)

	tracker.BeginPass()
	for _, a := range w.Query().With(colliders, globals).Execute() {
		box, ok := grid.Bounds(a)
		if !ok {
			continue
		}
		ca := colliders.Ptr(a)
		pa := globals.Ptr(a).Position()
		for _, b := range grid.Query(box) {
			if !a.Less(b) {
				continue
			}
			cb := colliders.Ptr(b)
			gb := globals.Ptr(b)
			if cb == nil || gb == nil {
				continue
			}
			contact, hit := OverlapColliders(*ca, pa, *cb, gb.Position())
			if !hit {
				continue
			}
			switch {
			case triggers.Has(a):
				zone, _ := zones.Get(a)
				tracker.RegisterTrigger(a, b, zone)
			case triggers.Has(b):
				zone, _ := zones.Get(b)
				tracker.RegisterTrigger(b, a, zone)
			default:
				tracker.Register(a, b, contact)
			}
		}
	}
	tracker.Process()

	if ev, ok := engine.GetResource[*engine.Events[CollisionEvent]](w.Resources); ok {
		ev.SendBatch(tracker.CollisionEvents())
	}
	if ev, ok := engine.GetResource[*engine.Events[TriggerEvent]](w.Resources); ok {
		ev.SendBatch(tracker.TriggerEvents())
	}
	if reg, ok := engine.GetResource[*status.Registry](w.Resources); ok {
		started := 0
		for _, ev := range tracker.CollisionEvents() {
			if ev.Kind == CollisionStarted {
				started++
			}
		}
		entered := 0
		for _, ev := range tracker.TriggerEvents() {
			if ev.Kind == TriggerEnter {
				entered++
			}
		}
		reg.Counter("physics.collisions").Add(int64(started))
		reg.Counter("physics.triggers").Add(int64(entered))
		reg.Gauge("physics.active_pairs").Set(float64(tracker.ActivePairs()))
	}
}

// ResolveCollisionsStep pushes overlapping solids apart along each contact normal
// Dynamic bodies share the correction by inverse mass; static, kinematic and zero-mass bodies do not move
// Velocity into the contact is removed, and corrected subtrees are re-propagated so world poses stay final
func ResolveCollisionsStep(w *engine.World) {
	tracker := engine.MustGetResource[*CollisionTracker](w.Resources)
	for _, m := range tracker.Manifolds() {
		resolvePair(w, m)
	}
}

func resolvePair(w *engine.World, m Manifold) {
	invA, invB := inverseMass(w, m.A), inverseMass(w, m.B)
	sum := invA + invB
	if sum == 0 || m.Contact.Depth <= 0 {
		return
	}
	n := m.Contact.Normal
	if invA > 0 {
		translateWorld(w, m.A, n.Mul(-m.Contact.Depth*invA/sum))
		if v := engine.GetMut[Velocity](w, m.A); v != nil {
			if vn := v.Linear.Dot(n); vn > 0 {
				v.Linear = v.Linear.Sub(n.Mul(vn))
			}
		}
		transform.PropagateFrom(w, m.A)
	}
	if invB > 0 {
		translateWorld(w, m.B, n.Mul(m.Contact.Depth*invB/sum))
		if v := engine.GetMut[Velocity](w, m.B); v != nil {
			if vn := v.Linear.Dot(n); vn < 0 {
				v.Linear = v.Linear.Sub(n.Mul(vn))
			}
		}
		transform.PropagateFrom(w, m.B)
	}
}

// UpdateCollisionStatesStep mirrors the tracker's live contacts into CollisionState components
func UpdateCollisionStatesStep(w *engine.World) {
	tracker := engine.MustGetResource[*CollisionTracker](w.Resources)
	engine.Each1(w, func(e core.Entity, s *CollisionState) {
		s.Contacts = tracker.Contacts(e)
	})
}
