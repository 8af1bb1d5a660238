package transform

import "github.com/lixenwraith/tickforge/engine"

const (
	PluginName = "transform"

	SyncSystem      = "transform.sync_simple"
	PropagateSystem = "transform.propagate"

	// SetPropagate groups the two propagation systems
	SetPropagate = "transform.propagation"
	// SetFinalize holds every PostUpdate system that leaves GlobalTransform final
	// Systems that snapshot world poses order themselves After it
	SetFinalize = "transform.finalize"
)

// Plugin registers hierarchy stores, the despawn hook and the PostUpdate propagation chain
type Plugin struct{}

func (Plugin) Name() string { return PluginName }

func (Plugin) Build(e *engine.Engine) error {
	w := e.World
	engine.StoreOf[Transform](w)
	engine.StoreOf[GlobalTransform](w)
	engine.StoreOf[Parent](w)
	engine.StoreOf[Children](w)
	InstallHooks(w)

	orphans := e.Status().Gauge("transform.orphans")
	visited := e.Status().Gauge("transform.propagated")

	if err := e.ConfigureSet(engine.PostUpdate, SetPropagate, SetFinalize); err != nil {
		return err
	}

	access := []engine.AccessItem{
		engine.Read[Transform](),
		engine.Read[Parent](),
		engine.Read[Children](),
		engine.Write[GlobalTransform](),
	}
	return e.AddSystems(engine.PostUpdate, engine.Chain(
		engine.NewSystem(SyncSystem, func(w *engine.World) {
			visited.Set(float64(SyncSimpleTransforms(w)))
		}).Access(access...).InSet(SetPropagate),
		engine.NewSystem(PropagateSystem, func(w *engine.World) {
			visited.Add(float64(PropagateTransforms(w)))
			orphans.Set(float64(CountOrphans(w)))
		}).Access(access...).InSet(SetPropagate, SetFinalize),
	)...)
}
