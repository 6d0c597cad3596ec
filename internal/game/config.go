package game

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"entity-forge/ecs"
)

// Config contains demo initialization parameters.
type Config struct {
	Title      string `yaml:"title" json:"title"`
	Width      int    `yaml:"width" json:"width"`
	Height     int    `yaml:"height" json:"height"`
	SpawnCount int    `yaml:"spawn_count" json:"spawn_count"`
	Seed       int64  `yaml:"seed" json:"seed"`

	// FreezeInterval freezes one drifting sprite every N frames; zero
	// disables freezing.
	FreezeInterval int `yaml:"freeze_interval" json:"freeze_interval"`

	World ecs.Config `yaml:"world" json:"world"`
}

// DefaultConfig returns a configuration suitable for the demo.
func DefaultConfig() Config {
	return Config{
		Title:          "Entity Forge",
		Width:          1280,
		Height:         720,
		SpawnCount:     2000,
		Seed:           1,
		FreezeInterval: 120,
		World:          ecs.DefaultConfig(),
	}
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Width, c.Height)
	}
	if c.SpawnCount < 0 {
		return fmt.Errorf("spawn count %d is negative", c.SpawnCount)
	}
	if c.FreezeInterval < 0 {
		return fmt.Errorf("freeze interval %d is negative", c.FreezeInterval)
	}
	return c.World.Validate()
}

// LoadConfig reads a YAML configuration file. Missing keys keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
