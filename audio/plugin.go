package audio

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
)

const (
	PluginName         = "audio"
	SpeakerServiceName = "audio.speaker"
	CueSystem          = "audio.cues"
)

// Plugin plays cues for physics contacts; client mode only
// With Output false cues are still mixed but never reach a device
type Plugin struct {
	Volume      float64
	MaxPerFrame int
	Output      bool
}

func (Plugin) Name() string { return PluginName }

func (Plugin) Dependencies() []string { return []string{physics.PluginName} }

func (Plugin) SupportsMode(m engine.Mode) bool { return m == engine.ModeClient }

func (p Plugin) Build(e *engine.Engine) error {
	player := NewCuePlayer(DefaultSampleRate, p.Volume, p.MaxPerFrame)
	engine.AddResource(e.World.Resources, player)

	if p.Output {
		if err := e.AddService(&SpeakerService{player: player}); err != nil {
			return err
		}
	}
	return e.AddSystems(engine.Last,
		engine.NewSystem(CueSystem, CueStep).Access(
			engine.Write[*CuePlayer](),
			engine.Read[*engine.Events[physics.CollisionEvent]](),
			engine.Read[*engine.Events[physics.TriggerEvent]](),
		),
	)
}

// CueStep plays one cue per collision start and trigger transition raised this frame
func CueStep(w *engine.World) {
	player := engine.MustGetResource[*CuePlayer](w.Resources)
	e := engine.MustGetResource[*engine.Engine](w.Resources)
	played, capped := e.Status().Counter("audio.cues"), e.Status().Counter("audio.cues_capped")

	player.BeginFrame()
	play := func(k CueKind) {
		if player.Play(k) {
			played.Add(1)
		} else if !player.IsMuted() {
			capped.Add(1)
		}
	}

	if ev, ok := engine.GetResource[*engine.Events[physics.CollisionEvent]](w.Resources); ok {
		for _, c := range ev.Current() {
			if c.Kind == physics.CollisionStarted {
				play(CueCollision)
			}
		}
	}
	if ev, ok := engine.GetResource[*engine.Events[physics.TriggerEvent]](w.Resources); ok {
		for _, t := range ev.Current() {
			switch t.Kind {
			case physics.TriggerEnter:
				play(CueTriggerEnter)
			case physics.TriggerExit:
				play(CueTriggerExit)
			}
		}
	}
}

// SpeakerService opens the audio device and feeds it the CuePlayer
// A missing device disables output without failing startup
type SpeakerService struct {
	player   *CuePlayer
	logger   *log.Logger
	disabled atomic.Bool
	started  bool
}

func (s *SpeakerService) Name() string { return SpeakerServiceName }

func (s *SpeakerService) Dependencies() []string { return nil }

func (s *SpeakerService) Init(e *engine.Engine) error {
	s.logger = e.Logger()
	rate := s.player.SampleRate()
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		s.disabled.Store(true)
		s.logger.Printf("audio: no output device, cues muted: %v", err)
	}
	return nil
}

func (s *SpeakerService) Start() error {
	if s.disabled.Load() {
		s.player.SetMuted(true)
		return nil
	}
	speaker.Play(s.player)
	s.started = true
	return nil
}

func (s *SpeakerService) Stop() error {
	if s.started {
		speaker.Clear()
		speaker.Close()
		s.started = false
	}
	return nil
}

// IsDisabled reports whether the device failed to open
func (s *SpeakerService) IsDisabled() bool {
	return s.disabled.Load()
}
