package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"

	"github.com/lixenwraith/tickforge/audio"
	"github.com/lixenwraith/tickforge/config"
	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
	"github.com/lixenwraith/tickforge/render"
	"github.com/lixenwraith/tickforge/replication"
	"github.com/lixenwraith/tickforge/transform"
)

var (
	configFlag   = flag.String("config", "", "TOML config file; built-in defaults when empty")
	modeFlag     = flag.String("mode", "", "Engine mode: client, server (overrides config)")
	listenFlag   = flag.String("listen", "", "Snapshot hub address, e.g. :7777 (overrides config)")
	framesFlag   = flag.Uint64("frames", 0, "Stop after this many frames; 0 runs until quit")
	headlessFlag = flag.Bool("headless", false, "Client mode without terminal view or audio")
	profileFlag  = flag.String("profile", "", "Profile mode: cpu, mem, trace")
	statusFlag   = flag.Duration("status", 0, "Log the metric registry at this interval")
)

func main() {
	// A panic on the frame goroutine restores the terminal the same way service goroutines do
	defer func() {
		if r := recover(); r != nil {
			core.HandleCrash(r)
		}
	}()

	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tickforge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	if *configFlag != "" {
		loaded, err := config.Load(*configFlag)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *modeFlag != "" {
		cfg.Engine.Mode = *modeFlag
	}
	if *listenFlag != "" {
		cfg.Network.Listen = *listenFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, _ := cfg.Mode()
	terminal := mode == engine.ModeClient && !*headlessFlag

	logger, closeLog, err := openLog(cfg.Log.File, terminal)
	if err != nil {
		return err
	}
	defer closeLog()

	if p := startProfile(*profileFlag); p != nil {
		defer p.Stop()
	}

	e, err := engine.New(
		engine.WithMode(mode),
		engine.WithLogger(logger),
		engine.WithWorkers(cfg.Engine.Workers),
		engine.WithTickRate(cfg.Engine.TickRate),
	)
	if err != nil {
		return err
	}

	gravity := cfg.GravityVector()
	plugins := []engine.Plugin{
		transform.Plugin{},
		physics.Plugin{Gravity: &gravity, CellSize: cfg.Physics.CellSize},
		replication.Plugin{History: cfg.Network.History, Listen: cfg.Network.Listen, MaxClients: cfg.Network.MaxClients},
	}
	if terminal {
		plugins = append(plugins,
			render.Plugin{Scale: cfg.Render.Scale},
			audio.Plugin{Volume: cfg.Audio.Volume, Output: cfg.Audio.Enabled},
		)
	}
	plugins = append(plugins, ScenePlugin{LocalPlayer: mode == engine.ModeClient})
	if err := e.AddPlugins(plugins...); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = engine.Run(ctx, e, engine.RunConfig{
		TargetFPS:      cfg.Engine.TargetFPS,
		MaxFrames:      *framesFlag,
		StatusInterval: *statusFlag,
	})
	logger.Printf("main: exit after %s, tick %d, %s", time.Since(start).Round(time.Millisecond), e.Tick().Get(), e.Status())
	return err
}

// openLog writes to stderr unless the terminal view owns the screen, then to path
func openLog(path string, terminal bool) (*log.Logger, func(), error) {
	flags := log.Ldate | log.Ltime | log.Lmicroseconds
	if !terminal {
		return log.New(os.Stderr, "", flags), func() {}, nil
	}
	if path == "" {
		return log.New(io.Discard, "", 0), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return log.New(f, "", flags), func() { f.Close() }, nil
}

func startProfile(mode string) interface{ Stop() } {
	switch mode {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		return profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	case "trace":
		return profile.Start(profile.TraceProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	}
	return nil
}
