package render

import (
	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
	"github.com/lixenwraith/tickforge/transform"
)

const (
	PluginName        = "render"
	ScreenServiceName = "render.screen"

	InputSystem = "render.input"
	DrawSystem  = "render.draw"
)

// Plugin installs the terminal view; client mode only
// A nil Screen opens the real terminal when the screen service initializes
type Plugin struct {
	Screen tcell.Screen
	Scale  float64
}

func (Plugin) Name() string { return PluginName }

func (Plugin) Dependencies() []string {
	return []string{transform.PluginName, physics.PluginName}
}

func (Plugin) SupportsMode(m engine.Mode) bool { return m == engine.ModeClient }

func (p Plugin) Build(e *engine.Engine) error {
	w := e.World
	state := NewInputState()
	engine.AddResource(w.Resources, state)
	engine.StoreOf[LocalPlayer](w)

	if err := e.AddService(&ScreenService{screen: p.Screen, scale: p.Scale, input: state}); err != nil {
		return err
	}
	if err := e.AddSystems(engine.PreUpdate,
		engine.NewSystem(InputSystem, InputStep).Access(
			engine.Write[*InputState](), engine.Write[*engine.Time](),
			engine.Read[LocalPlayer](), engine.Write[physics.CharacterMovement](),
		).After(physics.SetNetworkInput),
	); err != nil {
		return err
	}
	return e.AddSystems(engine.Render,
		engine.NewSystem(DrawSystem, DrawStep).Access(
			engine.Write[*View](), engine.Read[transform.GlobalTransform](), engine.Read[LocalPlayer](),
			engine.Read[physics.CharacterController](), engine.Read[physics.Trigger](),
			engine.Read[physics.RigidBody](), engine.Read[physics.Collider](),
		),
	)
}

// ScreenService owns the tcell screen and its event poll goroutine
type ScreenService struct {
	screen tcell.Screen
	scale  float64
	input  *InputState
}

func (s *ScreenService) Name() string { return ScreenServiceName }

func (s *ScreenService) Dependencies() []string { return nil }

// Init opens the screen and publishes the View resource
func (s *ScreenService) Init(e *engine.Engine) error {
	if s.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		s.screen = screen
	}
	if err := s.screen.Init(); err != nil {
		return err
	}
	s.screen.HideCursor()
	core.SetCrashHook(s.screen.Fini)
	engine.AddResource(e.World.Resources, NewView(s.screen, s.scale))
	return nil
}

// Start forwards terminal events to the InputState until the screen is finalized
func (s *ScreenService) Start() error {
	screen, input := s.screen, s.input
	core.Go(func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			input.Post(ev)
		}
	})
	return nil
}

// Stop restores the terminal
func (s *ScreenService) Stop() error {
	core.SetCrashHook(nil)
	s.screen.Fini()
	return nil
}
