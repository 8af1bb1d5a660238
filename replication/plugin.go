package replication

import (
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
	"github.com/lixenwraith/tickforge/transform"
)

const PluginName = "replication"

// System names
const (
	ConnectionSystem = "replication.connections"
	InputSystem      = "replication.inputs"
	AuthoritySystem  = "replication.authority"
	CaptureSystem    = "replication.capture"
	BroadcastSystem  = "replication.broadcast"
)

// Plugin captures snapshots after transform finalization and, when Listen is set,
// serves them to websocket clients and applies their input
type Plugin struct {
	// History is the snapshot ring size; < 2 selects DefaultHistory
	History int
	// Listen enables the websocket hub on this address
	Listen     string
	MaxClients int
	QueueSize  int
}

func (Plugin) Name() string { return PluginName }

func (Plugin) Dependencies() []string {
	return []string{transform.PluginName, physics.PluginName}
}

func (p Plugin) Build(e *engine.Engine) error {
	w := e.World
	ids := NewNetworkIDMap()
	history := NewSnapshotHistory(p.History)
	queue := NewInputQueue(p.QueueSize)
	engine.AddResource(w.Resources, ids)
	engine.AddResource(w.Resources, history)
	engine.AddResource(w.Resources, queue)
	engine.RegisterEvents[ConnectionEvent](e)
	installHooks(w, ids)

	engine.StoreOf[NetworkID](w)
	engine.StoreOf[Replicate](w)
	engine.StoreOf[ServerAuthority](w)
	engine.StoreOf[PlayerControlled](w)

	pre := engine.Chain(
		engine.NewSystem(ConnectionSystem, ConnectionStep).Access(
			engine.Write[*InputQueue](), engine.Write[*engine.Events[ConnectionEvent]](),
		),
		engine.NewSystem(InputSystem, ApplyInputsStep).Access(
			engine.Write[*InputQueue](), engine.Read[*NetworkIDMap](),
			engine.Write[PlayerControlled](), engine.Write[physics.CharacterMovement](),
		).InSet(physics.SetNetworkInput),
	)
	if err := e.AddSystems(engine.PreUpdate, pre...); err != nil {
		return err
	}

	post := engine.Chain(
		engine.NewSystem(AuthoritySystem, AuthorityStep).Access(
			engine.Read[*engine.GameTick](), engine.Read[*engine.FixedTime](),
			engine.Write[ServerAuthority](), engine.Read[physics.CharacterMovement](),
			engine.Write[transform.Transform](), engine.Write[transform.GlobalTransform](),
			engine.Write[physics.Velocity](),
		).After(transform.SetFinalize),
		engine.NewSystem(CaptureSystem, CaptureStep).Access(
			engine.Read[*engine.GameTick](), engine.Write[*SnapshotHistory](),
			engine.Read[NetworkID](), engine.Read[Replicate](), engine.Read[PlayerControlled](),
			engine.Read[transform.Transform](), engine.Read[transform.GlobalTransform](),
			engine.Read[physics.Velocity](),
		),
	)
	if err := e.AddSystems(engine.PostUpdate, post...); err != nil {
		return err
	}

	if p.Listen == "" {
		e.Logger().Printf("replication: snapshot history %d, no network endpoint", history.Capacity())
		return nil
	}

	hub := NewHub(HubConfig{Listen: p.Listen, MaxClients: p.MaxClients}, queue)
	engine.AddResource(w.Resources, hub)
	if err := e.AddService(hub); err != nil {
		return err
	}
	if err := e.AddSystems(engine.Last,
		engine.NewSystem(BroadcastSystem, BroadcastStep).Access(
			engine.Read[*SnapshotHistory](), engine.Write[*Hub](),
		),
	); err != nil {
		return err
	}
	e.Logger().Printf("replication: snapshot history %d, hub on %s", history.Capacity(), p.Listen)
	return nil
}
