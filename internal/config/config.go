// Package config loads the YAML scenario configuration consumed by
// the sidedemo CLI: which synthetic events and tracers to wire up,
// how the state-dump machine should run, and where to expose metrics
// and write recordings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sidecore/side/internal/metrics"
)

// EventConfig describes one synthetic event a demo scenario fires.
type EventConfig struct {
	// Name is the event's description name, e.g. "proc_exit".
	Name string `yaml:"name"`

	// Variadic marks the event as accepting a dynamic VarStruct
	// alongside its fixed argument.
	Variadic bool `yaml:"variadic"`

	// Key scopes this event's dispatch for state-dump filtering.
	// Zero means MATCH_ALL.
	Key uint64 `yaml:"key"`
}

// TracerConfig describes one synthetic tracer a demo scenario
// attaches for the lifetime of the run.
type TracerConfig struct {
	// Name labels the tracer in logs; it has no protocol meaning.
	Name string `yaml:"name"`
}

// StatedumpConfig configures the demo's state-dump producer.
type StatedumpConfig struct {
	// Enabled turns on a single synthetic state-dump handle.
	Enabled bool `yaml:"enabled"`

	// Name is the handle's producer name.
	Name string `yaml:"name"`

	// AgentThread selects agent-thread mode over polling mode.
	AgentThread bool `yaml:"agent_thread"`
}

// RecordConfig configures recording of dispatched calls and
// state-dump runs to a zstd-compressed JSON-lines file.
type RecordConfig struct {
	// Enabled turns on recording for the run.
	Enabled bool `yaml:"enabled"`

	// Path is the output file path.
	Path string `yaml:"path"`
}

// Config is the top-level configuration for a sidedemo run.
type Config struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Events lists the synthetic events the demo registers.
	Events []EventConfig `yaml:"events"`

	// Tracers lists the synthetic tracers the demo attaches.
	Tracers []TracerConfig `yaml:"tracers"`

	// Statedump configures the demo's state-dump producer.
	Statedump StatedumpConfig `yaml:"statedump"`

	// Metrics configures the Prometheus exposition server.
	Metrics metrics.Config `yaml:"metrics"`

	// Record configures call/dump recording.
	Record RecordConfig `yaml:"record"`

	// Duration bounds how long the demo runs before exiting cleanly.
	// Zero means run until interrupted.
	Duration time.Duration `yaml:"duration"`

	// CallInterval is the pacing between synthetic Call invocations.
	// Defaults to 100ms.
	CallInterval time.Duration `yaml:"call_interval"`
}

// DefaultConfig returns a Config with sensible defaults: a single
// plain event, a single tracer, polling state-dump, and metrics
// disabled.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Events: []EventConfig{
			{Name: "demo_event"},
		},
		Tracers: []TracerConfig{
			{Name: "demo_tracer"},
		},
		Statedump: StatedumpConfig{
			Enabled: true,
			Name:    "demo_statedump",
		},
		CallInterval: 100 * time.Millisecond,
	}
}

// LoadConfig reads and parses a YAML scenario file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for required fields and
// consistency, applying defaults where a zero value is ambiguous.
func (c *Config) Validate() error {
	if len(c.Events) == 0 {
		return fmt.Errorf("at least one event is required")
	}

	for _, e := range c.Events {
		if e.Name == "" {
			return fmt.Errorf("event name must not be empty")
		}
	}

	if c.Statedump.Enabled && c.Statedump.Name == "" {
		return fmt.Errorf("statedump.name is required when statedump.enabled is true")
	}

	if c.Record.Enabled && c.Record.Path == "" {
		return fmt.Errorf("record.path is required when record.enabled is true")
	}

	if c.CallInterval <= 0 {
		c.CallInterval = 100 * time.Millisecond
	}

	return nil
}
