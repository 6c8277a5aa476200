// Package config loads and validates the run configuration consumed by
// the engine and topology packages. Parsing, logging, and plugin
// loading for the wider simulator are external collaborators; this
// package only owns the handful of fields the core needs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config groups the options the engine and topology consume.
type Config struct {
	MinTimeJump  uint64 `yaml:"minTimeJump"`
	EndTime      uint64 `yaml:"endTime"`
	NWorkers     uint   `yaml:"nWorkers"`
	TopologyPath string `yaml:"topologyPath"`
	Seed         uint64 `yaml:"seed"`
}

// Load reads and validates a run configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the field invariants the engine requires before it
// is allowed to start.
func (c *Config) Validate() error {
	if c.MinTimeJump == 0 {
		return fmt.Errorf("config: minTimeJump must be > 0")
	}
	if c.EndTime == 0 {
		return fmt.Errorf("config: endTime must be > 0")
	}
	if c.TopologyPath == "" {
		return fmt.Errorf("config: topologyPath must be set")
	}
	return nil
}
