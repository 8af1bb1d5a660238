package engine

import (
	"fmt"
	"math"
	"time"
)

// Time tracks variable frame delta, pause state and time scale
type Time struct {
	provider   TimeProvider
	startup    time.Time
	lastUpdate time.Time
	delta      time.Duration
	scale      float64
	paused     bool
	frame      uint64
}

// NewTime creates a Time resource reading from provider
func NewTime(provider TimeProvider) *Time {
	now := provider.Now()
	return &Time{
		provider:   provider,
		startup:    now,
		lastUpdate: now,
		scale:      1,
	}
}

// Update advances the frame delta
// While paused the delta stays zero but lastUpdate still moves, so resuming never sees a jump
func (t *Time) Update() {
	now := t.provider.Now()
	if t.paused {
		t.delta = 0
	} else {
		t.delta = now.Sub(t.lastUpdate)
		if t.delta < 0 {
			t.delta = 0
		}
	}
	t.lastUpdate = now
	t.frame++
}

// Delta returns the raw, unscaled frame delta (zero while paused)
func (t *Time) Delta() time.Duration {
	return t.delta
}

// DeltaSeconds returns the scaled delta in seconds, zero while paused
func (t *Time) DeltaSeconds() float64 {
	if t.paused {
		return 0
	}
	return t.delta.Seconds() * t.scale
}

// ScaledDelta returns the scaled delta as a duration; this is what feeds the fixed-step accumulator
func (t *Time) ScaledDelta() time.Duration {
	if t.paused {
		return 0
	}
	scaled := float64(t.delta) * t.scale
	if scaled >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(scaled)
}

// Elapsed returns wall time since the resource was created
func (t *Time) Elapsed() time.Duration {
	return t.lastUpdate.Sub(t.startup)
}

// Frame returns how many times Update has run
func (t *Time) Frame() uint64 {
	return t.frame
}

// SetTimeScale sets the delta multiplier, clamped to >= 0
func (t *Time) SetTimeScale(s float64) {
	if s < 0 || math.IsNaN(s) {
		s = 0
	}
	if math.IsInf(s, 1) {
		s = math.MaxFloat32
	}
	t.scale = s
}

// TimeScale returns the delta multiplier
func (t *Time) TimeScale() float64 {
	return t.scale
}

// Pause stops delta accumulation
func (t *Time) Pause() {
	t.paused = true
}

// Resume restarts delta accumulation from now
func (t *Time) Resume() {
	if !t.paused {
		return
	}
	t.paused = false
	t.lastUpdate = t.provider.Now()
}

// TogglePause flips the pause state
func (t *Time) TogglePause() {
	if t.paused {
		t.Resume()
	} else {
		t.Pause()
	}
}

// IsPaused reports the pause state
func (t *Time) IsPaused() bool {
	return t.paused
}

// maxAccumulatorSteps caps banked time at this many timesteps
const maxAccumulatorSteps = 10

// FixedTime is the fixed-step accumulator
// The accumulator always stays within [0, 10 x timestep]; excess is dropped, so under severe
// overload the simulation falls behind the wall clock instead of running unbounded catch-up steps
type FixedTime struct {
	timestep       time.Duration
	accumulator    time.Duration
	maxAccumulator time.Duration
}

// NewFixedTime creates an accumulator stepping at rateHz
func NewFixedTime(rateHz uint32) (*FixedTime, error) {
	if rateHz == 0 {
		return nil, fmt.Errorf("%w: tick rate 0", ErrInvalidTimestep)
	}
	return NewFixedTimestep(time.Second / time.Duration(rateHz))
}

// NewFixedTimestep creates an accumulator with an explicit step
func NewFixedTimestep(step time.Duration) (*FixedTime, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimestep, step)
	}
	return &FixedTime{
		timestep:       step,
		maxAccumulator: step * maxAccumulatorSteps,
	}, nil
}

// Accumulate banks delta, clamped to the cap, and returns the dropped excess
// Negative deltas are ignored
func (f *FixedTime) Accumulate(delta time.Duration) (dropped time.Duration) {
	if delta <= 0 {
		return 0
	}
	f.accumulator += delta
	if f.accumulator > f.maxAccumulator || f.accumulator < 0 {
		dropped = f.accumulator - f.maxAccumulator
		if f.accumulator < 0 {
			dropped = delta
		}
		f.accumulator = f.maxAccumulator
	}
	return dropped
}

// ShouldUpdate reports whether a whole timestep is banked
func (f *FixedTime) ShouldUpdate() bool {
	return f.accumulator >= f.timestep
}

// ConsumeStep removes one timestep, saturating at zero
func (f *FixedTime) ConsumeStep() {
	f.accumulator -= f.timestep
	if f.accumulator < 0 {
		f.accumulator = 0
	}
}

// Timestep returns the fixed step
func (f *FixedTime) Timestep() time.Duration {
	return f.timestep
}

// TimestepSeconds returns the fixed step in seconds; integration always uses this dt
func (f *FixedTime) TimestepSeconds() float64 {
	return f.timestep.Seconds()
}

// Accumulator returns banked time
func (f *FixedTime) Accumulator() time.Duration {
	return f.accumulator
}

// MaxAccumulator returns the cap on banked time
func (f *FixedTime) MaxAccumulator() time.Duration {
	return f.maxAccumulator
}

// Alpha returns the fraction of a step left banked, for render interpolation
func (f *FixedTime) Alpha() float64 {
	return float64(f.accumulator) / float64(f.timestep)
}

// Reset drops all banked time
func (f *FixedTime) Reset() {
	f.accumulator = 0
}

// GameTick counts fixed steps; it wraps to zero on overflow
type GameTick struct {
	value uint64
}

// NewGameTick creates a counter starting at v
func NewGameTick(v uint64) *GameTick {
	return &GameTick{value: v}
}

// Get returns the current tick
func (g *GameTick) Get() uint64 {
	return g.value
}

// Increment advances the tick by one with wraparound and returns the new value
func (g *GameTick) Increment() uint64 {
	g.value++
	return g.value
}

// Reset sets the tick back to zero
func (g *GameTick) Reset() {
	g.value = 0
}
