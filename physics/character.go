package physics

import (
	"math"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/transform"
	"github.com/lixenwraith/tickforge/vmath"
)

// skinWidth shrinks the character box vertically so resting on a floor is not an overlap
const skinWidth = 0.02

// sweepIterations bounds the bisection used to find how far a blocked axis move can go
const sweepIterations = 8

// CharacterController describes a kinematic character volume
// The entity's Transform.Position is the volume center; controlled entities are expected to be hierarchy roots
type CharacterController struct {
	Radius          float64
	HalfHeight      float64
	StepHeight      float64
	GroundTolerance float64
	AirControl      float64
	Layer           CollisionLayer
	Mask            CollisionMask
}

// NewCharacterController returns a roughly human sized controller
func NewCharacterController() CharacterController {
	return CharacterController{
		Radius:          0.3,
		HalfHeight:      0.9,
		StepHeight:      0.3,
		GroundTolerance: 0.1,
		AirControl:      0.3,
		Layer:           LayerPlayer,
		Mask:            MaskAll,
	}
}

func (c CharacterController) bounds(pos vmath.Vec3) AABB {
	return AABBFromCenter(pos, vmath.V3(c.Radius, math.Max(c.HalfHeight-skinWidth, 0), c.Radius))
}

// CharacterState is the locomotion state machine
type CharacterState uint8

const (
	// Grounded: ground below within tolerance and not moving up
	Grounded CharacterState = iota
	// InAir: no ground contact and rising
	InAir
	// Falling: no ground contact and not rising
	Falling
)

func (s CharacterState) String() string {
	switch s {
	case Grounded:
		return "grounded"
	case InAir:
		return "in_air"
	case Falling:
		return "falling"
	}
	return "unknown"
}

// NextCharacterState computes the transition from ground detection and vertical velocity
func NextCharacterState(grounded bool, verticalVelocity float64) CharacterState {
	switch {
	case grounded && verticalVelocity <= 0:
		return Grounded
	case verticalVelocity > 0:
		return InAir
	default:
		return Falling
	}
}

// GroundInfo is the result of the last ground probe
// Distance is the gap between the feet and the surface; negative when sunk into it
type GroundInfo struct {
	Grounded bool
	Distance float64
	Normal   vmath.Vec3
	Entity   core.Entity
}

// CharacterMovement is the per-step input for a character
type CharacterMovement struct {
	Direction    vmath.Vec3
	Speed        float64
	Jump         bool
	JumpVelocity float64
}

// NewCharacterMovement returns idle input with default speed and jump velocity
func NewCharacterMovement() CharacterMovement {
	return CharacterMovement{Speed: 5, JumpVelocity: 5}
}

// WithDirection sets a normalized direction, zero for degenerate input
func (m CharacterMovement) WithDirection(d vmath.Vec3) CharacterMovement {
	m.Direction = vmath.SafeNormalize(d)
	return m
}

// horizontal returns the XZ part of Direction, normalized
func (m CharacterMovement) horizontal() vmath.Vec3 {
	return vmath.SafeNormalize(vmath.V3(m.Direction.X(), 0, m.Direction.Z()))
}

// Character bundles the components a controlled character needs
func Character(w *engine.World, e core.Entity, cc CharacterController) {
	engine.Insert(w, e, cc)
	engine.Insert(w, e, NewCharacterMovement())
	engine.Insert(w, e, Velocity{})
	engine.Insert(w, e, GroundInfo{Normal: vmath.UnitY})
	engine.Insert(w, e, Falling)
}

type obstacle struct {
	entity   core.Entity
	collider Collider
	position vmath.Vec3
	box      AABB
}

// solidObstacles collects non-trigger colliders that are not characters
func solidObstacles(w *engine.World) []obstacle {
	colliders := engine.StoreOf[Collider](w)
	ents := w.Query().
		With(colliders).
		Without(engine.StoreOf[Trigger](w), engine.StoreOf[CharacterController](w)).
		Execute()
	out := make([]obstacle, 0, len(ents))
	for _, e := range ents {
		pos, ok := WorldPosition(w, e)
		if !ok {
			continue
		}
		c := *colliders.Ptr(e)
		out = append(out, obstacle{entity: e, collider: c, position: pos, box: ComputeAABB(c, pos)})
	}
	return out
}

func (cc CharacterController) blocked(pos vmath.Vec3, obstacles []obstacle) bool {
	box := cc.bounds(pos)
	for i := range obstacles {
		o := &obstacles[i]
		if !Interacts(cc.Layer, cc.Mask, o.collider.Layer, o.collider.Mask) {
			continue
		}
		if box.Intersects(o.box) {
			return true
		}
	}
	return false
}

// probeGround casts from step height above the feet down to tolerance below them
func (cc CharacterController) probeGround(pos vmath.Vec3, obstacles []obstacle) GroundInfo {
	origin := vmath.V3(pos.X(), pos.Y()-cc.HalfHeight+cc.StepHeight, pos.Z())
	ray := NewRay(origin, vmath.V3(0, -1, 0), cc.StepHeight+cc.GroundTolerance)

	info := GroundInfo{Normal: vmath.UnitY, Distance: math.Inf(1)}
	best := math.Inf(1)
	for i := range obstacles {
		o := &obstacles[i]
		if !Interacts(cc.Layer, cc.Mask, o.collider.Layer, o.collider.Mask) {
			continue
		}
		t, n, ok := RaycastShape(ray, o.collider.Shape, o.position)
		if !ok || t >= best {
			continue
		}
		best = t
		info = GroundInfo{Grounded: true, Distance: t - cc.StepHeight, Normal: n, Entity: o.entity}
	}
	return info
}

// moveAxis advances along one axis, bisecting toward the furthest free point when the full move is blocked
func (cc CharacterController) moveAxis(pos vmath.Vec3, axis int, d float64, obstacles []obstacle) (vmath.Vec3, bool) {
	if d == 0 {
		return pos, false
	}
	step := func(f float64) vmath.Vec3 {
		p := pos
		p[axis] += d * f
		return p
	}
	if full := step(1); !cc.blocked(full, obstacles) {
		return full, false
	}
	if cc.blocked(pos, obstacles) {
		return pos, true
	}
	lo, hi := 0.0, 1.0
	for range sweepIterations {
		mid := (lo + hi) / 2
		if cc.blocked(step(mid), obstacles) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return step(lo), true
}

// slide moves X, then Z, then Y independently; grounded characters may step over small ledges
func (cc CharacterController) slide(pos, delta vmath.Vec3, grounded bool, obstacles []obstacle) (vmath.Vec3, [3]bool) {
	var hit [3]bool
	for _, axis := range [3]int{0, 2, 1} {
		next, blocked := cc.moveAxis(pos, axis, delta[axis], obstacles)
		if blocked && axis != 1 && grounded && cc.StepHeight > 0 {
			up := pos.Add(vmath.V3(0, cc.StepHeight, 0))
			if !cc.blocked(up, obstacles) {
				if raised, stillBlocked := cc.moveAxis(up, axis, delta[axis], obstacles); !stillBlocked {
					next, blocked = raised, false
				}
			}
		}
		pos, hit[axis] = next, blocked
	}
	return pos, hit
}

// DetectGroundStep refreshes GroundInfo for every character
func DetectGroundStep(w *engine.World) {
	obstacles := solidObstacles(w)
	engine.Each3(w, func(_ core.Entity, cc *CharacterController, t *transform.Transform, g *GroundInfo) {
		*g = cc.probeGround(t.Position, obstacles)
	})
}

// CharacterStateStep applies the Grounded/InAir/Falling transition
func CharacterStateStep(w *engine.World) {
	engine.Each3(w, func(_ core.Entity, g *GroundInfo, v *Velocity, s *CharacterState) {
		*s = NextCharacterState(g.Grounded, v.Linear.Y())
	})
}

// CharacterMovementStep turns movement input into a target velocity and slides the character
// Grounded characters snap down onto the probed surface; airborne ones integrate gravity themselves
func CharacterMovementStep(w *engine.World) {
	dt := fixedDelta(w)
	gravity := engine.MustGetResource[*Gravity](w.Resources).Vector
	obstacles := solidObstacles(w)

	controllers := engine.StoreOf[CharacterController](w)
	transforms := engine.StoreOf[transform.Transform](w)
	moves := engine.StoreOf[CharacterMovement](w)
	velocities := engine.StoreOf[Velocity](w)
	grounds := engine.StoreOf[GroundInfo](w)
	states := engine.StoreOf[CharacterState](w)

	for _, e := range w.Query().With(controllers, transforms, moves, velocities, grounds, states).Execute() {
		cc, t, m := controllers.Ptr(e), transforms.Ptr(e), moves.Ptr(e)
		v, g, s := velocities.Ptr(e), grounds.Ptr(e), states.Ptr(e)
		dir := m.horizontal()

		if *s == Grounded {
			jumped := false
			if m.Jump {
				v.Linear[1] = m.JumpVelocity
				m.Jump = false
				jumped = true
			} else if v.Linear.Y() < 0 {
				v.Linear[1] = 0
			}
			v.Linear[0] = dir.X() * m.Speed
			v.Linear[2] = dir.Z() * m.Speed

			delta := v.Linear.Mul(dt)
			if !jumped && g.Grounded && g.Distance > 0 {
				delta[1] -= g.Distance
			}
			t.Position, _ = cc.slide(t.Position, delta, true, obstacles)
			continue
		}

		m.Jump = false
		v.Linear[0] += dir.X() * m.Speed * cc.AirControl * dt
		v.Linear[2] += dir.Z() * m.Speed * cc.AirControl * dt
		v.Linear = v.Linear.Add(gravity.Mul(dt))

		var hit [3]bool
		t.Position, hit = cc.slide(t.Position, v.Linear.Mul(dt), false, obstacles)
		for axis, blocked := range hit {
			if blocked {
				v.Linear[axis] = 0
			}
		}
	}
}
