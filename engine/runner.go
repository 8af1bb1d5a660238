package engine

import (
	"context"
	"time"
)

// RunConfig controls the frame loop
type RunConfig struct {
	// TargetFPS paces frames with a timer; 0 runs frames back to back
	TargetFPS int
	// MaxFrames stops the loop after this many frames; 0 runs until stopped
	MaxFrames uint64
	// StatusInterval logs the metric registry this often; 0 disables
	StatusInterval time.Duration
}

// Run drives the engine: Startup once, then frames until ctx is done, Stop is called
// or MaxFrames is reached. Services are shut down on return
// Pacing follows a deadline schedule; falling more than two frames behind resets the
// deadline instead of bursting to catch up
func Run(ctx context.Context, e *Engine, cfg RunConfig) error {
	if err := e.Startup(); err != nil {
		return err
	}
	defer e.Shutdown()

	var frameInterval time.Duration
	if cfg.TargetFPS > 0 {
		frameInterval = time.Second / time.Duration(cfg.TargetFPS)
	}

	fps := e.status.Gauge("engine.fps")
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var frames uint64
	windowFrames := 0
	windowStart := time.Now()
	lastStatus := windowStart
	nextDeadline := windowStart.Add(frameInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if e.Stopped() || (cfg.MaxFrames > 0 && frames >= cfg.MaxFrames) {
			return nil
		}

		if err := e.Update(); err != nil {
			return err
		}
		frames++
		windowFrames++

		now := time.Now()
		if elapsed := now.Sub(windowStart); elapsed >= time.Second {
			fps.Set(float64(windowFrames) / elapsed.Seconds())
			windowFrames = 0
			windowStart = now
		}
		if cfg.StatusInterval > 0 && now.Sub(lastStatus) >= cfg.StatusInterval {
			e.logger.Printf("status: %s", e.status)
			lastStatus = now
		}

		if frameInterval == 0 {
			continue
		}

		wait := nextDeadline.Sub(now)
		nextDeadline = nextDeadline.Add(frameInterval)
		if now.Sub(nextDeadline) > frameInterval*2 {
			nextDeadline = now.Add(frameInterval)
		}
		if wait <= 0 {
			continue
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// RunFrames runs n frames back to back without pacing, for tests and tools
func RunFrames(e *Engine, n int) error {
	if err := e.Startup(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := e.Update(); err != nil {
			return err
		}
	}
	return nil
}
