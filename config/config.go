// Package config holds explicit engine configuration. Nothing in this module
// reads ambient global state; a Config is constructed (or loaded from a YAML
// file) and passed into the components that need it, so independent engine
// instances can run side by side.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/lod"
)

// Rendering configures the backend and its output surface.
type Rendering struct {
	// Backend selects the rendering backend by name. Empty selects the
	// best available backend by priority.
	Backend string `yaml:"backend"`

	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	VSync         bool `yaml:"vsync"`
	Multisampling int  `yaml:"multisampling"`
	MaxFPS        int  `yaml:"max_fps"`
}

// Logging configures log output.
type Logging struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
}

// Config is the complete engine configuration.
type Config struct {
	Rendering Rendering  `yaml:"rendering"`
	LOD       lod.Config `yaml:"lod"`
	Logging   Logging    `yaml:"logging"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Rendering: Rendering{
			Width:         800,
			Height:        600,
			VSync:         true,
			Multisampling: 4,
			MaxFPS:        60,
		},
		LOD:     lod.DefaultConfig(),
		Logging: Logging{Level: "info"},
	}
}

// Load reads a YAML configuration file and merges it over the defaults.
// Fields absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Rendering.Width < 0 || c.Rendering.Height < 0 {
		return fmt.Errorf("config: viewport %dx%d: %w",
			c.Rendering.Width, c.Rendering.Height, viz.ErrInvalidInput)
	}
	if c.LOD.LineTarget < 0 || c.LOD.ScatterTarget < 0 {
		return fmt.Errorf("config: negative LOD target: %w", viz.ErrInvalidInput)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log level %q: %w", c.Logging.Level, viz.ErrInvalidInput)
	}
	return nil
}
