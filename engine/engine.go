package engine

import (
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"sync/atomic"

	"github.com/lixenwraith/tickforge/status"
)

// Mode selects which plugins and stages are active
type Mode uint8

const (
	// ModeClient runs the full pipeline including Render
	ModeClient Mode = iota
	// ModeServer skips Render
	ModeServer
)

func (m Mode) String() string {
	switch m {
	case ModeClient:
		return "client"
	case ModeServer:
		return "server"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode maps "client"/"server" to a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "client", "":
		return ModeClient, nil
	case "server":
		return ModeServer, nil
	}
	return 0, fmt.Errorf("unknown engine mode %q", s)
}

// DefaultTickRate is the fixed simulation rate in Hz
const DefaultTickRate = 60

// Engine is the world/context aggregate: it owns the World, one schedule per stage,
// the plugin and service registries, and drives the frame pipeline
type Engine struct {
	World *World

	mode     Mode
	logger   *log.Logger
	workers  int
	tickRate uint32
	provider TimeProvider

	schedules   [stageCount]*Schedule
	plugins     []*pluginEntry
	pluginIndex map[string]*pluginEntry
	services    *ServiceHub
	eventSwap   []func()

	started bool
	stopped atomic.Bool

	time   *Time
	fixed  *FixedTime
	tick   *GameTick
	status *status.Registry

	statFrames   *atomic.Int64
	statFixed    *atomic.Int64
	statDropped  *atomic.Int64
	statEntities *status.Float
	statPaused   *atomic.Bool
}

// Option configures an Engine
type Option func(*Engine)

// WithMode sets client or server mode
func WithMode(m Mode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithLogger sets the engine logger; the default discards output
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWorkers bounds the per-stage worker pool; 1 runs every stage on the frame goroutine,
// n <= 0 keeps the GOMAXPROCS default
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTickRate sets the fixed-step rate in Hz; 0 fails construction
func WithTickRate(hz uint32) Option {
	return func(e *Engine) { e.tickRate = hz }
}

// WithTimeProvider replaces the wall clock
func WithTimeProvider(p TimeProvider) Option {
	return func(e *Engine) {
		if p != nil {
			e.provider = p
		}
	}
}

// New creates an Engine with Time, FixedTime, GameTick and the status registry inserted as resources
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		World:       NewWorld(),
		mode:        ModeClient,
		logger:      log.New(io.Discard, "", 0),
		workers:     runtime.GOMAXPROCS(0),
		tickRate:    DefaultTickRate,
		provider:    NewMonotonicTimeProvider(),
		pluginIndex: make(map[string]*pluginEntry),
		services:    NewServiceHub(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}

	fixed, err := NewFixedTime(e.tickRate)
	if err != nil {
		return nil, err
	}
	e.fixed = fixed
	e.time = NewTime(e.provider)
	e.tick = NewGameTick(0)
	e.status = status.NewRegistry()

	for _, s := range Stages() {
		e.schedules[s] = NewSchedule(s, e.workers)
	}

	res := e.World.Resources
	AddResource(res, e.time)
	AddResource(res, e.fixed)
	AddResource(res, e.tick)
	AddResource(res, e.status)
	AddResource(res, e)

	e.statFrames = e.status.Counter("engine.frames")
	e.statFixed = e.status.Counter("engine.fixed_steps")
	e.statDropped = e.status.Counter("time.dropped_ns")
	e.statEntities = e.status.Gauge("engine.entities")
	e.statPaused = e.status.Flag("engine.paused")

	return e, nil
}

// Mode returns the engine mode
func (e *Engine) Mode() Mode {
	return e.mode
}

// Logger returns the engine logger
func (e *Engine) Logger() *log.Logger {
	return e.logger
}

// Time returns the frame time resource
func (e *Engine) Time() *Time {
	return e.time
}

// FixedTime returns the accumulator resource
func (e *Engine) FixedTime() *FixedTime {
	return e.fixed
}

// Tick returns the game tick resource
func (e *Engine) Tick() *GameTick {
	return e.tick
}

// Status returns the metric registry
func (e *Engine) Status() *status.Registry {
	return e.status
}

// Services returns the service hub
func (e *Engine) Services() *ServiceHub {
	return e.services
}

// Schedule returns the schedule for a stage, nil for an invalid stage
func (e *Engine) Schedule(s Stage) *Schedule {
	if !s.Valid() {
		return nil
	}
	return e.schedules[s]
}

// AddSystems appends systems to a stage
func (e *Engine) AddSystems(stage Stage, systems ...*System) error {
	if !stage.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidStage, stage)
	}
	if stage == Startup && e.started {
		return fmt.Errorf("%w: cannot add startup systems", ErrStartupComplete)
	}
	return e.schedules[stage].Add(systems...)
}

// ConfigureSet declares named sets in a stage
func (e *Engine) ConfigureSet(stage Stage, names ...string) error {
	if !stage.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidStage, stage)
	}
	e.schedules[stage].ConfigureSet(names...)
	return nil
}

// AddService registers a service started after Startup
func (e *Engine) AddService(svc Service) error {
	return e.services.Register(svc)
}

// RegisterEvents inserts an Events[T] resource rotated at the start of every frame
// Repeated calls return the existing buffer
func RegisterEvents[T any](e *Engine) *Events[T] {
	if ev, ok := GetResource[*Events[T]](e.World.Resources); ok {
		return ev
	}
	ev := NewEvents[T]()
	AddResource(e.World.Resources, ev)
	e.eventSwap = append(e.eventSwap, ev.Update)
	return ev
}

// Build solves every stage schedule, returning the first configuration error
func (e *Engine) Build() error {
	var errs []error
	for _, s := range e.schedules {
		if s.Built() {
			continue
		}
		if err := s.Build(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Startup validates every schedule, runs Startup systems once, then inits and starts services
// Any error here is fatal configuration and leaves the engine unstarted
func (e *Engine) Startup() error {
	if e.started {
		return nil
	}
	if err := e.Build(); err != nil {
		return fmt.Errorf("schedule build failed: %w", err)
	}

	e.schedules[Startup].Run(e.World)

	if err := e.services.InitAll(e); err != nil {
		return err
	}
	if err := e.services.StartAll(); err != nil {
		return err
	}

	e.started = true
	e.logger.Printf("engine: started in %s mode, %d Hz, %d workers, plugins %v",
		e.mode, e.tickRate, e.workers, e.PluginNames())
	return nil
}

// Update runs one frame:
// PreUpdate, Update, then FixedUpdate once per drained timestep (GameTick incremented before each),
// then PostUpdate, Render (client mode only) and Last
func (e *Engine) Update() error {
	if !e.started {
		if err := e.Startup(); err != nil {
			return err
		}
	}
	if err := e.Build(); err != nil {
		return fmt.Errorf("schedule rebuild failed: %w", err)
	}

	w := e.World
	for _, swap := range e.eventSwap {
		swap()
	}

	e.time.Update()
	e.statPaused.Store(e.time.IsPaused())

	e.schedules[PreUpdate].Run(w)
	e.schedules[Update].Run(w)

	if dropped := e.fixed.Accumulate(e.time.ScaledDelta()); dropped > 0 {
		e.statDropped.Add(int64(dropped))
	}
	for e.fixed.ShouldUpdate() {
		e.tick.Increment()
		e.schedules[FixedUpdate].Run(w)
		e.fixed.ConsumeStep()
		e.statFixed.Add(1)
	}

	e.schedules[PostUpdate].Run(w)
	if e.mode == ModeClient {
		e.schedules[Render].Run(w)
	}
	e.schedules[Last].Run(w)

	e.statFrames.Add(1)
	e.statEntities.Set(float64(w.EntityCount()))
	return nil
}

// Stop asks the runner to exit after the current frame
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

// Stopped reports whether Stop was called
func (e *Engine) Stopped() bool {
	return e.stopped.Load()
}

// Started reports whether Startup completed
func (e *Engine) Started() bool {
	return e.started
}

// Shutdown stops services in reverse start order
func (e *Engine) Shutdown() {
	for _, err := range e.services.StopAll() {
		e.logger.Printf("engine: %v", err)
	}
}
