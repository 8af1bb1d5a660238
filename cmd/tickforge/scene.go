package main

import (
	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
	"github.com/lixenwraith/tickforge/render"
	"github.com/lixenwraith/tickforge/replication"
	"github.com/lixenwraith/tickforge/transform"
	"github.com/lixenwraith/tickforge/vmath"
)

const (
	ScenePluginName   = "scene"
	SceneSetupSystem  = "scene.setup"
	ScenePlayerSystem = "scene.players"

	arenaHalf = 20.0
)

// ScenePlugin builds the demo arena: floor, walls, a few crates, a trigger pad
// Client mode adds a local player; server mode gives each connection its own character
type ScenePlugin struct {
	LocalPlayer bool
}

func (ScenePlugin) Name() string { return ScenePluginName }

func (ScenePlugin) Dependencies() []string {
	return []string{transform.PluginName, physics.PluginName, replication.PluginName}
}

func (p ScenePlugin) Build(e *engine.Engine) error {
	engine.AddResource(e.World.Resources, &Players{byClient: make(map[uint64]core.Entity)})
	local := p.LocalPlayer
	if err := e.AddSystems(engine.Startup,
		engine.NewSystem(SceneSetupSystem, func(w *engine.World) { SpawnArena(w, local) }).Exclusive(),
	); err != nil {
		return err
	}
	return e.AddSystems(engine.Update,
		engine.NewSystem(ScenePlayerSystem, PlayerLifecycleStep).Exclusive(),
	)
}

// Players tracks the character owned by each connected client
type Players struct {
	byClient map[uint64]core.Entity
}

// Entity returns the character of client id
func (p *Players) Entity(id uint64) (core.Entity, bool) {
	e, ok := p.byClient[id]
	return e, ok
}

// Len returns the number of connected players
func (p *Players) Len() int {
	return len(p.byClient)
}

func body(w *engine.World, pos vmath.Vec3, kind physics.BodyType, c physics.Collider) core.Entity {
	e := transform.Spawn(w, transform.FromPosition(pos))
	engine.Insert(w, e, physics.RigidBody{Type: kind})
	engine.Insert(w, e, c)
	if kind != physics.Static {
		engine.Insert(w, e, physics.Velocity{})
		engine.Insert(w, e, physics.Acceleration{})
		engine.Insert(w, e, physics.DefaultDamping())
	}
	return e
}

// SpawnArena creates the static level and replicated crates; returns the local player or a zero handle
func SpawnArena(w *engine.World, withPlayer bool) core.Entity {
	terrain := physics.BoxCollider(vmath.V3(arenaHalf, 0.5, arenaHalf)).WithLayer(physics.LayerTerrain)
	body(w, vmath.V3(0, -0.5, 0), physics.Static, terrain)

	wall := func(pos, half vmath.Vec3) {
		body(w, pos, physics.Static, physics.BoxCollider(half).WithLayer(physics.LayerEnvironment))
	}
	wall(vmath.V3(0, 1, -arenaHalf), vmath.V3(arenaHalf, 1, 0.5))
	wall(vmath.V3(0, 1, arenaHalf), vmath.V3(arenaHalf, 1, 0.5))
	wall(vmath.V3(-arenaHalf, 1, 0), vmath.V3(0.5, 1, arenaHalf))
	wall(vmath.V3(arenaHalf, 1, 0), vmath.V3(0.5, 1, arenaHalf))

	for i, x := range []float64{-6, -3, 3, 6} {
		crate := body(w, vmath.V3(x, 0.5+float64(i), -5), physics.Dynamic, physics.BoxCollider(vmath.V3(0.5, 0.5, 0.5)))
		engine.Insert(w, crate, physics.ApplyGravity{})
		replication.Replicated(w, crate)
	}

	// spinning kinematic post
	post := body(w, vmath.V3(-10, 1, 8), physics.Kinematic, physics.BoxCollider(vmath.V3(0.5, 1, 0.5)))
	engine.GetMut[physics.Velocity](w, post).Angular = vmath.V3(0, 1, 0)
	replication.Replicated(w, post)

	pad := body(w, vmath.V3(0, 0.5, 10), physics.Static,
		physics.BoxCollider(vmath.V3(2, 0.5, 2)).WithLayer(physics.LayerTrigger))
	engine.Insert(w, pad, physics.Trigger{})
	engine.Insert(w, pad, physics.NewTriggerZone("pad"))

	if !withPlayer {
		return core.Entity{}
	}
	player := spawnCharacter(w)
	engine.Insert(w, player, render.LocalPlayer{})
	return player
}

func spawnCharacter(w *engine.World) core.Entity {
	cc := physics.NewCharacterController()
	e := transform.Spawn(w, transform.FromXYZ(0, cc.HalfHeight+0.05, 0))
	physics.Character(w, e, cc)
	engine.Insert(w, e, physics.CapsuleCollider(cc.HalfHeight, cc.Radius).WithLayer(physics.LayerPlayer))
	return e
}

// PlayerLifecycleStep spawns a server-authoritative character per connected client and despawns it on disconnect
func PlayerLifecycleStep(w *engine.World) {
	events, ok := engine.GetResource[*engine.Events[replication.ConnectionEvent]](w.Resources)
	if !ok {
		return
	}
	players := engine.MustGetResource[*Players](w.Resources)
	for _, ev := range events.Current() {
		switch ev.Kind {
		case replication.Connected:
			if _, dup := players.byClient[ev.ClientID]; dup {
				continue
			}
			e := spawnCharacter(w)
			engine.Insert(w, e, replication.PlayerControlled{ClientID: ev.ClientID})
			engine.Insert(w, e, replication.ServerAuthority{})
			replication.Replicated(w, e)
			players.byClient[ev.ClientID] = e
		case replication.Disconnected:
			if e, ok := players.byClient[ev.ClientID]; ok {
				transform.DespawnRecursive(w, e)
				delete(players.byClient, ev.ClientID)
			}
		}
	}
}
