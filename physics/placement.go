package physics

import (
	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/transform"
	"github.com/lixenwraith/tickforge/vmath"
)

// WorldPosition is the freshest world-space position of e
// Roots read their local Transform, which integration updates in place
// Children read GlobalTransform, valid as of the last propagation
func WorldPosition(w *engine.World, e core.Entity) (vmath.Vec3, bool) {
	if !engine.Has[transform.Parent](w, e) {
		if t := engine.GetMut[transform.Transform](w, e); t != nil {
			return t.Position, true
		}
	}
	if g, ok := engine.Get[transform.GlobalTransform](w, e); ok {
		return g.Position(), true
	}
	return vmath.Vec3{}, false
}

// translateWorld moves e by a world-space offset, converting it into the parent frame for children
func translateWorld(w *engine.World, e core.Entity, delta vmath.Vec3) bool {
	t := engine.GetMut[transform.Transform](w, e)
	if t == nil {
		return false
	}
	if p, ok := engine.Get[transform.Parent](w, e); ok {
		if g, ok := engine.Get[transform.GlobalTransform](w, p.Entity); ok {
			delta = vmath.TransformVector(g.Matrix().Inv(), delta)
		}
	}
	t.Position = t.Position.Add(delta)
	return true
}

// bodyType reads the body type, treating entities without a RigidBody as static
func bodyType(w *engine.World, e core.Entity) BodyType {
	if rb, ok := engine.Get[RigidBody](w, e); ok {
		return rb.Type
	}
	return Static
}

// inverseMass is zero for anything that is not a dynamic body
func inverseMass(w *engine.World, e core.Entity) float64 {
	if bodyType(w, e) != Dynamic {
		return 0
	}
	if m, ok := engine.Get[Mass](w, e); ok {
		return m.Inverse()
	}
	return DefaultMass.Inverse()
}
