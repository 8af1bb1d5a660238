package audio

import (
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
	"github.com/lixenwraith/tickforge/transform"
	"github.com/lixenwraith/tickforge/vmath"
)

// drain streams s to exhaustion and returns the sample count and peak amplitude
func drain(t *testing.T, s beep.Streamer) (int, float64) {
	t.Helper()
	buf := make([][2]float64, 512)
	total, peak := 0, 0.0
	for i := 0; i < 1000; i++ {
		n, ok := s.Stream(buf)
		for _, smp := range buf[:n] {
			if math.IsNaN(smp[0]) || math.IsInf(smp[0], 0) {
				t.Fatalf("Expected finite samples, got %v", smp)
			}
			peak = math.Max(peak, math.Abs(smp[0]))
		}
		total += n
		if !ok {
			return total, peak
		}
	}
	t.Fatal("Expected cue to end")
	return 0, 0
}

func TestCuesAreFinite(t *testing.T) {
	rate := DefaultSampleRate
	tests := []struct {
		kind CueKind
		want int
	}{
		{CueCollision, rate.N(collisionDuration)},
		{CueTriggerEnter, 2 * rate.N(enterNoteDuration)},
		{CueTriggerExit, rate.N(exitDuration)},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			n, peak := drain(t, NewCue(tt.kind, 1, rate))
			if n != tt.want {
				t.Errorf("Expected %d samples, got %d", tt.want, n)
			}
			if peak == 0 || peak > 1.5 {
				t.Errorf("Expected audible bounded peak, got %v", peak)
			}
		})
	}
	if NewCue(cueCount, 1, rate) != nil {
		t.Error("Expected nil streamer for unknown cue")
	}
}

func TestZeroVolumeIsSilent(t *testing.T) {
	_, peak := drain(t, NewCue(CueCollision, 0, DefaultSampleRate))
	if peak != 0 {
		t.Errorf("Expected silence at volume 0, got peak %v", peak)
	}
}

func TestEnvelopeRamps(t *testing.T) {
	rate := beep.SampleRate(1000)
	osc := newOscillator(0, time.Second, waveSquare, rate) // phase stays 0: constant +1
	env := newEnvelope(osc, 100*time.Millisecond, 10*time.Millisecond, 20*time.Millisecond, rate)

	buf := make([][2]float64, 200)
	n, _ := env.Stream(buf)
	if n != 100 {
		t.Fatalf("Expected envelope to cut at 100 samples, got %d", n)
	}
	if buf[0][0] != 0 {
		t.Errorf("Expected attack to start silent, got %v", buf[0][0])
	}
	if buf[50][0] != 1 {
		t.Errorf("Expected full sustain, got %v", buf[50][0])
	}
	if math.Abs(buf[90][0]-0.5) > 1e-9 {
		t.Errorf("Expected half gain mid release, got %v", buf[90][0])
	}
}

func TestCuePlayerFrameCap(t *testing.T) {
	p := NewCuePlayer(DefaultSampleRate, 0.5, 2)
	if !p.Play(CueCollision) || !p.Play(CueTriggerEnter) {
		t.Fatal("Expected first two cues accepted")
	}
	if p.Play(CueTriggerExit) {
		t.Error("Expected third cue capped")
	}
	if p.Active() != 2 {
		t.Errorf("Expected 2 active cues, got %d", p.Active())
	}

	p.BeginFrame()
	if !p.Play(CueTriggerExit) {
		t.Error("Expected cap reset on new frame")
	}

	p.SetMuted(true)
	if p.Active() != 0 || p.Play(CueCollision) {
		t.Error("Expected mute to clear and reject cues")
	}
}

func TestCuePlayerStreamsSilenceWhenIdle(t *testing.T) {
	p := NewCuePlayer(DefaultSampleRate, 1, 0)
	buf := make([][2]float64, 64)
	buf[3] = [2]float64{1, 1}
	n, ok := p.Stream(buf)
	if n != 64 || !ok {
		t.Errorf("Expected full idle buffer, got %d %v", n, ok)
	}
	if buf[3] != ([2]float64{}) {
		t.Errorf("Expected silence, got %v", buf[3])
	}

	p.Play(CueCollision)
	n, peak := 0, 0.0
	for i := 0; i < 100; i++ {
		m, _ := p.Stream(buf)
		n += m
		for _, s := range buf[:m] {
			peak = math.Max(peak, math.Abs(s[0]))
		}
	}
	if peak == 0 {
		t.Error("Expected cue audible through the player")
	}
	if p.Active() != 0 {
		t.Errorf("Expected finished cue removed from mixer, got %d", p.Active())
	}
}

func newClientEngine(t *testing.T, mode engine.Mode) *engine.Engine {
	t.Helper()
	clock := engine.NewMockTimeProvider(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	e, err := engine.New(engine.WithTimeProvider(clock), engine.WithWorkers(1), engine.WithMode(mode))
	if err != nil {
		t.Fatal(err)
	}
	zero := vmath.Vec3{}
	if err := e.AddPlugins(transform.Plugin{}, physics.Plugin{Gravity: &zero}, Plugin{Volume: 1, MaxPerFrame: 2}); err != nil {
		t.Fatal(err)
	}
	if err := e.Startup(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Shutdown)
	return e
}

func TestCueStepMapsEvents(t *testing.T) {
	e := newClientEngine(t, engine.ModeClient)
	w := e.World
	a, b := core.NewEntity(1, 1), core.NewEntity(2, 1)

	collisions := engine.MustGetResource[*engine.Events[physics.CollisionEvent]](w.Resources)
	triggers := engine.MustGetResource[*engine.Events[physics.TriggerEvent]](w.Resources)
	collisions.Send(physics.CollisionEvent{Kind: physics.CollisionStarted, A: a, B: b})
	collisions.Send(physics.CollisionEvent{Kind: physics.CollisionEnded, A: a, B: b})
	triggers.Send(physics.TriggerEvent{Kind: physics.TriggerStay, Trigger: a, Other: b})
	triggers.Send(physics.TriggerEvent{Kind: physics.TriggerEnter, Trigger: a, Other: b})
	triggers.Send(physics.TriggerEvent{Kind: physics.TriggerExit, Trigger: a, Other: b})

	CueStep(w)

	if n := e.Status().Counter("audio.cues").Load(); n != 2 {
		t.Errorf("Expected 2 cues under the frame cap, got %d", n)
	}
	if n := e.Status().Counter("audio.cues_capped").Load(); n != 1 {
		t.Errorf("Expected 1 capped cue, got %d", n)
	}
}

func TestCollisionPlaysCue(t *testing.T) {
	e := newClientEngine(t, engine.ModeClient)
	w := e.World
	for _, x := range []float64{0, 0.5} {
		ent := transform.Spawn(w, transform.FromXYZ(x, 0, 0))
		engine.Insert(w, ent, physics.RigidBody{Type: physics.Dynamic})
		engine.Insert(w, ent, physics.SphereCollider(0.5))
	}
	if err := e.Update(); err != nil {
		t.Fatal(err)
	}
	if n := e.Status().Counter("audio.cues").Load(); n != 1 {
		t.Errorf("Expected collision cue, got %d", n)
	}
	if p := engine.MustGetResource[*CuePlayer](w.Resources); p.Active() != 1 {
		t.Errorf("Expected one active cue, got %d", p.Active())
	}
}

func TestPluginSkippedInServerMode(t *testing.T) {
	e := newClientEngine(t, engine.ModeServer)
	if _, ok := engine.GetResource[*CuePlayer](e.World.Resources); ok {
		t.Error("Expected no cue player on server")
	}
}
