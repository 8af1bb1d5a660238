package physics

import (
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/transform"
	"github.com/lixenwraith/tickforge/vmath"
)

const PluginName = "physics"

// System names, in execution order within their stage
const (
	GroundSystem            = "physics.ground"
	CharacterStateSystem    = "physics.character_state"
	CharacterMovementSystem = "physics.character_movement"
	GravitySystem           = "physics.gravity"
	IntegrateVelocitySystem = "physics.integrate_velocity"
	DampingSystem           = "physics.damping"
	IntegratePositionSystem = "physics.integrate_position"
	ResetAccelerationSystem = "physics.reset_acceleration"

	GridSystem           = "physics.grid"
	DetectSystem         = "physics.detect"
	ResolveSystem        = "physics.resolve"
	CollisionStateSystem = "physics.collision_state"
)

// SetNetworkInput is the PreUpdate set of systems writing remote CharacterMovement input;
// local input runs after it
const SetNetworkInput = "physics.network_input"

// Plugin installs the fixed-step simulation and PostUpdate collision pipeline
// A nil Gravity selects DefaultGravity; CellSize <= 0 selects DefaultCellSize
type Plugin struct {
	Gravity  *vmath.Vec3
	CellSize float64
}

func (Plugin) Name() string { return PluginName }

func (Plugin) Dependencies() []string { return []string{transform.PluginName} }

func (p Plugin) Build(e *engine.Engine) error {
	w := e.World
	gravity := DefaultGravity()
	if p.Gravity != nil {
		gravity.Vector = *p.Gravity
	}
	grid := NewSpatialHashGrid(p.CellSize)
	engine.AddResource(w.Resources, &gravity)
	engine.AddResource(w.Resources, grid)
	engine.AddResource(w.Resources, NewCollisionTracker())
	engine.RegisterEvents[CollisionEvent](e)
	engine.RegisterEvents[TriggerEvent](e)

	engine.StoreOf[RigidBody](w)
	engine.StoreOf[Velocity](w)
	engine.StoreOf[Acceleration](w)
	engine.StoreOf[Mass](w)
	engine.StoreOf[ApplyGravity](w)
	engine.StoreOf[Damping](w)
	engine.StoreOf[Collider](w)
	engine.StoreOf[Trigger](w)
	engine.StoreOf[TriggerZone](w)
	engine.StoreOf[CollisionState](w)
	engine.StoreOf[CharacterController](w)
	engine.StoreOf[CharacterMovement](w)
	engine.StoreOf[CharacterState](w)
	engine.StoreOf[GroundInfo](w)

	if err := e.ConfigureSet(engine.PreUpdate, SetNetworkInput); err != nil {
		return err
	}

	fixed := engine.Chain(
		engine.NewSystem(GroundSystem, DetectGroundStep).Access(
			engine.Read[CharacterController](), engine.Read[transform.Transform](),
			engine.Read[Collider](), engine.Write[GroundInfo](),
		),
		engine.NewSystem(CharacterStateSystem, CharacterStateStep).Access(
			engine.Read[GroundInfo](), engine.Read[Velocity](), engine.Write[CharacterState](),
		),
		engine.NewSystem(CharacterMovementSystem, CharacterMovementStep).Access(
			engine.Read[CharacterController](), engine.Read[CharacterState](), engine.Read[GroundInfo](),
			engine.Write[CharacterMovement](), engine.Write[Velocity](), engine.Write[transform.Transform](),
			engine.Read[Collider](), engine.Read[*Gravity](),
		),
		engine.NewSystem(GravitySystem, ApplyGravityStep).Access(
			engine.Read[*Gravity](), engine.Read[RigidBody](), engine.Write[Acceleration](),
		),
		engine.NewSystem(IntegrateVelocitySystem, IntegrateVelocityStep).Access(
			engine.Read[RigidBody](), engine.Read[Acceleration](), engine.Write[Velocity](),
		),
		engine.NewSystem(DampingSystem, DampingStep).Access(
			engine.Read[RigidBody](), engine.Read[Damping](), engine.Write[Velocity](),
		),
		engine.NewSystem(IntegratePositionSystem, IntegratePositionStep).Access(
			engine.Read[RigidBody](), engine.Read[Velocity](), engine.Write[transform.Transform](),
		),
		engine.NewSystem(ResetAccelerationSystem, ResetAccelerationStep).Access(
			engine.Write[Acceleration](),
		),
	)
	if err := e.AddSystems(engine.FixedUpdate, fixed...); err != nil {
		return err
	}

	post := engine.Chain(
		engine.NewSystem(GridSystem, RebuildGridStep).Access(
			engine.Read[Collider](), engine.Read[transform.GlobalTransform](), engine.Write[*SpatialHashGrid](),
		).After(transform.SetPropagate),
		engine.NewSystem(DetectSystem, DetectCollisionsStep).Access(
			engine.Read[*SpatialHashGrid](), engine.Read[Collider](), engine.Read[transform.GlobalTransform](),
			engine.Read[Trigger](), engine.Read[TriggerZone](), engine.Write[*CollisionTracker](),
		),
		engine.NewSystem(ResolveSystem, ResolveCollisionsStep).Access(
			engine.Read[*CollisionTracker](), engine.Read[RigidBody](), engine.Read[Mass](),
			engine.Write[transform.Transform](), engine.Write[transform.GlobalTransform](), engine.Write[Velocity](),
		).InSet(transform.SetFinalize),
		engine.NewSystem(CollisionStateSystem, UpdateCollisionStatesStep).Access(
			engine.Read[*CollisionTracker](), engine.Write[CollisionState](),
		),
	)
	if err := e.AddSystems(engine.PostUpdate, post...); err != nil {
		return err
	}

	e.Logger().Printf("physics: gravity %v, grid cell size %.2f", gravity.Vector, grid.CellSize())
	return nil
}
