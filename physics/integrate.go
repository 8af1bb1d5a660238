package physics

import (
	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/transform"
	"github.com/lixenwraith/tickforge/vmath"
)

// IntegrateVelocity is the semi-implicit Euler velocity update v + a*dt
func IntegrateVelocity(v, a vmath.Vec3, dt float64) vmath.Vec3 {
	return v.Add(a.Mul(dt))
}

// IntegratePosition advances p by the already-updated velocity
func IntegratePosition(p, v vmath.Vec3, dt float64) vmath.Vec3 {
	return p.Add(v.Mul(dt))
}

// ApplyDamping scales v by 1/(1+d*dt); negative coefficients are treated as zero
func ApplyDamping(v vmath.Vec3, damping, dt float64) vmath.Vec3 {
	if damping <= 0 {
		return v
	}
	return v.Mul(1 / (1 + damping*dt))
}

// IntegrateRotation spins q about the angular velocity axis by |w|*dt
func IntegrateRotation(q vmath.Quat, angular vmath.Vec3, dt float64) vmath.Quat {
	speed := angular.Len()
	if speed < vmath.Epsilon {
		return q
	}
	return vmath.QuatAxisAngle(angular.Mul(1/speed), speed*dt).Mul(q).Normalize()
}

// AddForce accumulates f/m into the body's acceleration for the current step
// Bodies with zero mass ignore forces
func AddForce(w *engine.World, e core.Entity, f vmath.Vec3) bool {
	acc := engine.GetMut[Acceleration](w, e)
	if acc == nil {
		return false
	}
	inv := DefaultMass.Inverse()
	if m, ok := engine.Get[Mass](w, e); ok {
		inv = m.Inverse()
	}
	acc.Linear = acc.Linear.Add(f.Mul(inv))
	return true
}

// integrable bodies are dynamic or kinematic; callers exclude character controllers
func integrable(rb *RigidBody) bool {
	return rb.Type != Static
}

// ApplyGravityStep adds gravity to every dynamic ApplyGravity body that is not a character
// Gravity is an acceleration, so it applies regardless of mass
func ApplyGravityStep(w *engine.World) {
	g := engine.MustGetResource[*Gravity](w.Resources).Vector
	engine.Each3(w, func(_ core.Entity, rb *RigidBody, acc *Acceleration, _ *ApplyGravity) {
		if rb.Type == Dynamic {
			acc.Linear = acc.Linear.Add(g)
		}
	}, engine.StoreOf[CharacterController](w))
}

// IntegrateVelocityStep applies v += a*dt
func IntegrateVelocityStep(w *engine.World) {
	dt := fixedDelta(w)
	engine.Each3(w, func(_ core.Entity, rb *RigidBody, v *Velocity, a *Acceleration) {
		if !integrable(rb) {
			return
		}
		v.Linear = IntegrateVelocity(v.Linear, a.Linear, dt)
		v.Angular = IntegrateVelocity(v.Angular, a.Angular, dt)
	}, engine.StoreOf[CharacterController](w))
}

// DampingStep applies v *= 1/(1+d*dt)
func DampingStep(w *engine.World) {
	dt := fixedDelta(w)
	engine.Each3(w, func(_ core.Entity, rb *RigidBody, v *Velocity, d *Damping) {
		if !integrable(rb) {
			return
		}
		v.Linear = ApplyDamping(v.Linear, d.Linear, dt)
		v.Angular = ApplyDamping(v.Angular, d.Angular, dt)
	}, engine.StoreOf[CharacterController](w))
}

// IntegratePositionStep applies p += v*dt and spins rotation by angular velocity
func IntegratePositionStep(w *engine.World) {
	dt := fixedDelta(w)
	engine.Each3(w, func(_ core.Entity, rb *RigidBody, v *Velocity, t *transform.Transform) {
		if !integrable(rb) {
			return
		}
		t.Position = IntegratePosition(t.Position, v.Linear, dt)
		t.Rotation = IntegrateRotation(t.Rotation, v.Angular, dt)
	}, engine.StoreOf[CharacterController](w))
}

// ResetAccelerationStep zeroes every accumulator; forces last one step
func ResetAccelerationStep(w *engine.World) {
	engine.Each1(w, func(_ core.Entity, a *Acceleration) {
		*a = Acceleration{}
	})
}

func fixedDelta(w *engine.World) float64 {
	return engine.MustGetResource[*engine.FixedTime](w.Resources).TimestepSeconds()
}
