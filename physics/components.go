package physics

import (
	"math"

	"github.com/lixenwraith/tickforge/vmath"
)

// BodyType selects how a rigid body takes part in integration and collision response
type BodyType uint8

const (
	// Dynamic bodies integrate forces and receive collision correction
	Dynamic BodyType = iota
	// Kinematic bodies move only by assigned velocity and never receive correction
	Kinematic
	// Static bodies never move
	Static
)

func (b BodyType) String() string {
	switch b {
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	case Static:
		return "static"
	}
	return "unknown"
}

// RigidBody marks an entity as simulated
type RigidBody struct {
	Type BodyType
}

// Velocity in world units per second; angular is an axis scaled by radians per second
type Velocity struct {
	Linear  vmath.Vec3
	Angular vmath.Vec3
}

// LinearVelocity builds a Velocity with no spin
func LinearVelocity(v vmath.Vec3) Velocity {
	return Velocity{Linear: v}
}

// Acceleration accumulates for one fixed step and is zeroed after integration
type Acceleration struct {
	Linear  vmath.Vec3
	Angular vmath.Vec3
}

// Mass in kilograms; zero means immovable by forces and collision response
type Mass float64

// DefaultMass is used for bodies without a Mass component
const DefaultMass Mass = 1

// NewMass clamps negative and non-finite values to zero
func NewMass(m float64) Mass {
	if m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return 0
	}
	return Mass(m)
}

// Inverse returns 1/m, or 0 for a zero mass
func (m Mass) Inverse() float64 {
	if m > 0 {
		return 1 / float64(m)
	}
	return 0
}

// ApplyGravity opts a dynamic body into the gravity step
type ApplyGravity struct{}

// Damping coefficients for the 1/(1+d*dt) velocity decay
type Damping struct {
	Linear  float64
	Angular float64
}

// DefaultDamping returns the light drag used by the demo scene
func DefaultDamping() Damping {
	return Damping{Linear: 0.01, Angular: 0.01}
}

// Trigger marks a collider as a sensor: it reports overlaps and never pushes
type Trigger struct{}

// TriggerZone is an optional payload copied into trigger events
type TriggerZone struct {
	Name    string
	Data    uint32
	HasData bool
}

// NewTriggerZone names a zone with no payload
func NewTriggerZone(name string) TriggerZone {
	return TriggerZone{Name: name}
}

// WithData attaches a numeric payload
func (z TriggerZone) WithData(d uint32) TriggerZone {
	z.Data = d
	z.HasData = true
	return z
}

// Gravity is the world acceleration resource
type Gravity struct {
	Vector vmath.Vec3
}

// DefaultGravity is earth gravity along -Y
func DefaultGravity() Gravity {
	return Gravity{Vector: vmath.V3(0, -9.81, 0)}
}
