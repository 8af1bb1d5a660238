package engine

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *MockTimeProvider) {
	t.Helper()
	clock := NewMockTimeProvider(testEpoch)
	opts = append([]Option{WithTimeProvider(clock), WithWorkers(1)}, opts...)
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e, clock
}

func TestEngineRejectsZeroTickRate(t *testing.T) {
	if _, err := New(WithTickRate(0)); !errors.Is(err, ErrInvalidTimestep) {
		t.Errorf("Expected ErrInvalidTimestep, got %v", err)
	}
}

func TestEngineCoreResources(t *testing.T) {
	e, _ := newTestEngine(t)
	res := e.World.Resources
	if _, ok := GetResource[*Time](res); !ok {
		t.Error("Expected Time resource")
	}
	if _, ok := GetResource[*FixedTime](res); !ok {
		t.Error("Expected FixedTime resource")
	}
	if _, ok := GetResource[*GameTick](res); !ok {
		t.Error("Expected GameTick resource")
	}
	if got := MustGetResource[*Engine](res); got != e {
		t.Error("Expected engine resource to be the engine itself")
	}
}

func TestEngineStageOrder(t *testing.T) {
	e, clock := newTestEngine(t)
	var mu sync.Mutex
	var got []string

	for _, s := range Stages() {
		name := s.String()
		if err := e.AddSystems(s, NewSystem(name, recorder(&got, &mu, name))); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Startup(); err != nil {
		t.Fatal(err)
	}

	clock.Advance(2*e.FixedTime().Timestep() + time.Millisecond)
	if err := e.Update(); err != nil {
		t.Fatal(err)
	}

	want := []string{"Startup", "PreUpdate", "Update", "FixedUpdate", "FixedUpdate", "PostUpdate", "Render", "Last"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if e.Tick().Get() != 2 {
		t.Errorf("Expected tick 2, got %d", e.Tick().Get())
	}

	got = got[:0]
	if err := e.Update(); err != nil {
		t.Fatal(err)
	}
	want = []string{"PreUpdate", "Update", "PostUpdate", "Render", "Last"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected no fixed steps without elapsed time, got %v", got)
	}
}

func TestEngineTickVisibleInFixedUpdate(t *testing.T) {
	e, clock := newTestEngine(t)
	var seen []uint64
	e.AddSystems(FixedUpdate, NewSystem("observe", func(w *World) {
		seen = append(seen, MustGetResource[*GameTick](w.Resources).Get())
	}).Access(Read[*GameTick]()))

	clock.Advance(3 * e.FixedTime().Timestep())
	if err := RunFrames(e, 1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seen, []uint64{1, 2, 3}) {
		t.Errorf("Expected ticks [1 2 3], got %v", seen)
	}
}

func TestEngineServerSkipsRender(t *testing.T) {
	e, _ := newTestEngine(t, WithMode(ModeServer))
	rendered := false
	e.AddSystems(Render, NewSystem("draw", func(w *World) { rendered = true }))
	if err := RunFrames(e, 3); err != nil {
		t.Fatal(err)
	}
	if rendered {
		t.Error("Expected Render stage skipped in server mode")
	}
}

func TestEnginePauseStopsFixedSteps(t *testing.T) {
	e, clock := newTestEngine(t)
	steps := 0
	e.AddSystems(FixedUpdate, NewSystem("count", func(w *World) { steps++ }))
	e.Startup()

	e.Time().Pause()
	for i := 0; i < 5; i++ {
		clock.Advance(50 * time.Millisecond)
		e.Update()
	}
	if steps != 0 {
		t.Errorf("Expected no fixed steps while paused, got %d", steps)
	}

	e.Time().Resume()
	clock.Advance(e.FixedTime().Timestep())
	e.Update()
	if steps != 1 {
		t.Errorf("Expected one step after resume without catch-up, got %d", steps)
	}
}

func TestEngineOverloadDropsExcess(t *testing.T) {
	e, clock := newTestEngine(t)
	steps := 0
	e.AddSystems(FixedUpdate, NewSystem("count", func(w *World) { steps++ }))
	e.Startup()

	clock.Advance(5 * time.Second)
	e.Update()
	if steps != 10 {
		t.Errorf("Expected capped catch-up of 10 steps, got %d", steps)
	}
	if e.Status().Counter("time.dropped_ns").Load() <= 0 {
		t.Error("Expected dropped time to be counted")
	}
}

func TestEngineInfiniteTimeScaleHitsCap(t *testing.T) {
	for _, scale := range []float64{1e12, math.Inf(1)} {
		e, clock := newTestEngine(t)
		steps := 0
		e.AddSystems(FixedUpdate, NewSystem("count", func(w *World) { steps++ }))
		e.Startup()

		e.Time().SetTimeScale(scale)
		clock.Advance(16 * time.Millisecond)
		e.Update()
		if steps != 10 {
			t.Errorf("Expected 10 steps at scale %g, got %d", scale, steps)
		}
		if d := e.Time().ScaledDelta(); d <= 0 {
			t.Errorf("Expected saturated scaled delta at scale %g, got %v", scale, d)
		}
	}
}

func TestEngineWorkersDefault(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, runtime.GOMAXPROCS(0)},
		{-2, runtime.GOMAXPROCS(0)},
		{1, 1},
		{3, 3},
	}
	for _, tt := range tests {
		e, err := New(WithWorkers(tt.n))
		if err != nil {
			t.Fatal(err)
		}
		if e.workers != tt.want {
			t.Errorf("Expected %d workers for WithWorkers(%d), got %d", tt.want, tt.n, e.workers)
		}
		if got := e.schedules[Update].workers; got != tt.want {
			t.Errorf("Expected Update schedule with %d workers, got %d", tt.want, got)
		}
	}
}

func TestEngineStartupFailsOnCycle(t *testing.T) {
	e, _ := newTestEngine(t)
	e.AddSystems(Update,
		NewSystem("a", noop).After("b"),
		NewSystem("b", noop).After("a"),
	)
	if err := e.Startup(); !errors.Is(err, ErrCyclicOrdering) {
		t.Errorf("Expected ErrCyclicOrdering, got %v", err)
	}
	if e.Started() {
		t.Error("Expected engine not started")
	}
}

func TestEngineInvalidStage(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.AddSystems(Stage(42), NewSystem("x", noop)); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("Expected ErrInvalidStage, got %v", err)
	}
	e.Startup()
	if err := e.AddSystems(Startup, NewSystem("late", noop)); !errors.Is(err, ErrStartupComplete) {
		t.Errorf("Expected ErrStartupComplete, got %v", err)
	}
}

func TestEngineRebuildsAfterRuntimeAdd(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Startup()
	ran := false
	e.AddSystems(Update, NewSystem("late", func(w *World) { ran = true }))
	if err := e.Update(); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("Expected system added after startup to run")
	}

	e.AddSystems(Update, NewSystem("bad", noop).After("nowhere"))
	if err := e.Update(); !errors.Is(err, ErrUnknownSystem) {
		t.Errorf("Expected rebuild error surfaced, got %v", err)
	}
}

func TestEngineEventsRotatePerFrame(t *testing.T) {
	e, _ := newTestEngine(t)
	ev := RegisterEvents[string](e)
	if RegisterEvents[string](e) != ev {
		t.Fatal("Expected repeated registration to return the same buffer")
	}

	var readCounts []int
	e.AddSystems(Update, NewSystem("send", func(w *World) {
		if MustGetResource[*Time](w.Resources).Frame() == 1 {
			ev.Send("hello")
		}
	}))
	e.AddSystems(Last, NewSystem("read", func(w *World) {
		readCounts = append(readCounts, ev.Len())
	}))
	RunFrames(e, 3)
	if !reflect.DeepEqual(readCounts, []int{1, 1, 0}) {
		t.Errorf("Expected event visible for two frames, got %v", readCounts)
	}
}

// Plugins

type testPlugin struct {
	name   string
	deps   []string
	modes  []Mode
	err    error
	builds int
}

func (p *testPlugin) Name() string           { return p.name }
func (p *testPlugin) Dependencies() []string { return p.deps }
func (p *testPlugin) Build(e *Engine) error {
	p.builds++
	return p.err
}

type modalPlugin struct {
	testPlugin
}

func (p *modalPlugin) SupportsMode(m Mode) bool {
	for _, mm := range p.modes {
		if mm == m {
			return true
		}
	}
	return false
}

func TestPluginDependencies(t *testing.T) {
	e, _ := newTestEngine(t)
	physics := &testPlugin{name: "physics", deps: []string{"transform"}}
	if err := e.AddPlugin(physics); !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("Expected ErrMissingDependency, got %v", err)
	}
	if physics.builds != 0 {
		t.Error("Expected no build when dependency is missing")
	}

	if err := e.AddPlugins(&testPlugin{name: "transform"}, physics); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if st, _ := e.PluginState("physics"); st != PluginBuilt {
		t.Errorf("Expected built, got %v", st)
	}
}

func TestPluginDuplicateIsNoop(t *testing.T) {
	var buf bytes.Buffer
	e, _ := newTestEngine(t, WithLogger(log.New(&buf, "", 0)))
	p := &testPlugin{name: "transform"}
	e.AddPlugin(p)
	if err := e.AddPlugin(&testPlugin{name: "transform"}); err != nil {
		t.Errorf("Expected duplicate registration to succeed silently, got %v", err)
	}
	if p.builds != 1 {
		t.Errorf("Expected one build, got %d", p.builds)
	}
	if !strings.Contains(buf.String(), "already registered") {
		t.Errorf("Expected warning logged, got %q", buf.String())
	}
}

func TestPluginModeFilterAndFailure(t *testing.T) {
	e, _ := newTestEngine(t, WithMode(ModeServer))
	render := &modalPlugin{testPlugin{name: "render", modes: []Mode{ModeClient}}}
	if err := e.AddPlugin(render); err != nil {
		t.Fatal(err)
	}
	if render.builds != 0 {
		t.Error("Expected client plugin not built in server mode")
	}
	if st, _ := e.PluginState("render"); st != PluginSkipped {
		t.Errorf("Expected skipped, got %v", st)
	}
	if err := e.AddPlugin(&testPlugin{name: "hud", deps: []string{"render"}}); err != nil {
		t.Errorf("Expected skipped plugin to satisfy dependency, got %v", err)
	}

	broken := &testPlugin{name: "broken", err: errors.New("no device")}
	if err := e.AddPlugin(broken); err == nil {
		t.Error("Expected build error")
	}
	if st, _ := e.PluginState("broken"); st != PluginFailed {
		t.Errorf("Expected failed, got %v", st)
	}
	if err := e.AddPlugin(&testPlugin{name: "dependent", deps: []string{"broken"}}); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("Expected failed plugin not to satisfy dependency, got %v", err)
	}
}

// Services

type testService struct {
	name  string
	deps  []string
	trace *[]string
}

func (s *testService) Name() string           { return s.name }
func (s *testService) Dependencies() []string { return s.deps }
func (s *testService) Init(e *Engine) error {
	*s.trace = append(*s.trace, "init:"+s.name)
	return nil
}
func (s *testService) Start() error {
	*s.trace = append(*s.trace, "start:"+s.name)
	return nil
}
func (s *testService) Stop() error {
	*s.trace = append(*s.trace, "stop:"+s.name)
	return nil
}

func TestServicesLifecycleOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	var trace []string
	e.AddService(&testService{name: "hub", deps: []string{"codec"}, trace: &trace})
	e.AddService(&testService{name: "codec", trace: &trace})
	e.AddSystems(Startup, NewSystem("scene", func(w *World) { trace = append(trace, "startup") }))

	if err := e.Startup(); err != nil {
		t.Fatal(err)
	}
	e.Shutdown()

	want := []string{"startup", "init:codec", "init:hub", "start:codec", "start:hub", "stop:hub", "stop:codec"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("Expected %v, got %v", want, trace)
	}
}

func TestServicesCycle(t *testing.T) {
	e, _ := newTestEngine(t)
	var trace []string
	e.AddService(&testService{name: "a", deps: []string{"b"}, trace: &trace})
	e.AddService(&testService{name: "b", deps: []string{"a"}, trace: &trace})
	if err := e.Startup(); !errors.Is(err, ErrCyclicServices) {
		t.Errorf("Expected ErrCyclicServices, got %v", err)
	}
}

// Runner

func TestRunMaxFrames(t *testing.T) {
	e, _ := newTestEngine(t)
	frames := 0
	e.AddSystems(Last, NewSystem("count", func(w *World) { frames++ }))
	if err := Run(context.Background(), e, RunConfig{MaxFrames: 7}); err != nil {
		t.Fatal(err)
	}
	if frames != 7 {
		t.Errorf("Expected 7 frames, got %d", frames)
	}
}

func TestRunStopsOnEngineStop(t *testing.T) {
	e, _ := newTestEngine(t)
	frames := 0
	e.AddSystems(Update, NewSystem("stopper", func(w *World) {
		frames++
		if frames == 3 {
			MustGetResource[*Engine](w.Resources).Stop()
		}
	}))
	if err := Run(context.Background(), e, RunConfig{TargetFPS: 1000}); err != nil {
		t.Fatal(err)
	}
	if frames != 3 {
		t.Errorf("Expected 3 frames before stop, got %d", frames)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, e, RunConfig{TargetFPS: 200}) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected runner to exit on context cancel")
	}
}
