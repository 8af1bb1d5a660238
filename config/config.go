// Package config loads the tickforge TOML file over built-in defaults
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
	"github.com/lixenwraith/tickforge/render"
	"github.com/lixenwraith/tickforge/replication"
	"github.com/lixenwraith/tickforge/vmath"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	Physics PhysicsConfig `toml:"physics"`
	Network NetworkConfig `toml:"network"`
	Render  RenderConfig  `toml:"render"`
	Audio   AudioConfig   `toml:"audio"`
	Log     LogConfig     `toml:"log"`
}

type EngineConfig struct {
	Mode      string `toml:"mode"`
	TickRate  uint32 `toml:"tick_rate"`
	TargetFPS int    `toml:"target_fps"`
	// Workers bounds the schedule worker pool; 0 uses GOMAXPROCS
	Workers int `toml:"workers"`
}

type PhysicsConfig struct {
	Gravity  [3]float64 `toml:"gravity"`
	CellSize float64    `toml:"cell_size"`
}

// NetworkConfig configures the snapshot hub; an empty Listen disables it
type NetworkConfig struct {
	Listen     string `toml:"listen"`
	History    int    `toml:"history"`
	MaxClients int    `toml:"max_clients"`
}

type RenderConfig struct {
	Scale float64 `toml:"scale"`
}

type AudioConfig struct {
	Enabled bool    `toml:"enabled"`
	Volume  float64 `toml:"volume"`
}

// LogConfig names the log file; empty logs to stderr unless the terminal view is active
type LogConfig struct {
	File string `toml:"file"`
}

// Default returns the built-in configuration
func Default() Config {
	g := physics.DefaultGravity().Vector
	return Config{
		Engine: EngineConfig{
			Mode:      "client",
			TickRate:  engine.DefaultTickRate,
			TargetFPS: 60,
		},
		Physics: PhysicsConfig{
			Gravity:  [3]float64{g.X(), g.Y(), g.Z()},
			CellSize: physics.DefaultCellSize,
		},
		Network: NetworkConfig{
			History:    replication.DefaultHistory,
			MaxClients: replication.DefaultMaxClients,
		},
		Render: RenderConfig{Scale: render.DefaultScale},
		Audio:  AudioConfig{Enabled: true, Volume: 0.5},
		Log:    LogConfig{File: "tickforge.log"},
	}
}

// Load reads path over the defaults; keys absent from the file keep their default value
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undecoded[0].String(), path)
	}
	return cfg, cfg.Validate()
}

// Mode parses Engine.Mode
func (c Config) Mode() (engine.Mode, error) {
	return engine.ParseMode(c.Engine.Mode)
}

// GravityVector returns Physics.Gravity as a vector
func (c Config) GravityVector() vmath.Vec3 {
	g := c.Physics.Gravity
	return vmath.V3(g[0], g[1], g[2])
}

// Validate rejects values the engine cannot start with
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Mode(); err != nil {
		errs = append(errs, err)
	}
	if c.Engine.TickRate == 0 {
		errs = append(errs, errors.New("engine.tick_rate must be positive"))
	}
	if c.Engine.TargetFPS < 0 {
		errs = append(errs, errors.New("engine.target_fps must not be negative"))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, errors.New("engine.workers must not be negative"))
	}
	if !(c.Physics.CellSize > 0) || math.IsInf(c.Physics.CellSize, 0) {
		errs = append(errs, errors.New("physics.cell_size must be positive"))
	}
	for _, v := range c.Physics.Gravity {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, errors.New("physics.gravity must be finite"))
			break
		}
	}
	if c.Network.MaxClients < 0 {
		errs = append(errs, errors.New("network.max_clients must not be negative"))
	}
	if c.Render.Scale < 0 {
		errs = append(errs, errors.New("render.scale must not be negative"))
	}
	if c.Audio.Volume < 0 || math.IsNaN(c.Audio.Volume) {
		errs = append(errs, errors.New("audio.volume must not be negative"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
