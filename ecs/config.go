package ecs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config contains registry initialization parameters.
type Config struct {
	// InitialCapacity pre-sizes the entity pool.
	InitialCapacity int `yaml:"initial_capacity" json:"initial_capacity"`

	// PageSize is the default sparse page size for new storages. Must be a
	// power of two. Individual component types may override it at
	// registration time.
	PageSize int `yaml:"page_size" json:"page_size"`

	// QueryCacheSize bounds the runtime-view cache.
	QueryCacheSize int `yaml:"query_cache_size" json:"query_cache_size"`

	// EnableStats toggles per-pool statistics collection in Stats().
	EnableStats bool `yaml:"enable_stats" json:"enable_stats"`
}

// DefaultConfig returns a configuration suitable for most worlds.
func DefaultConfig() Config {
	return Config{
		InitialCapacity: 1024,
		PageSize:        DefaultPageSize,
		QueryCacheSize:  64,
		EnableStats:     true,
	}
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if c.InitialCapacity < 0 {
		return errInvalidArgument(fmt.Sprintf("initial capacity %d is negative", c.InitialCapacity))
	}
	if c.PageSize <= 0 || c.PageSize&(c.PageSize-1) != 0 {
		return errInvalidArgument(fmt.Sprintf("page size %d is not a power of two", c.PageSize))
	}
	if c.QueryCacheSize <= 0 {
		return errInvalidArgument(fmt.Sprintf("query cache size %d is not positive", c.QueryCacheSize))
	}
	return nil
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
