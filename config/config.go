package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// OutputConfig defines the synth MIDI output
type OutputConfig struct {
	PortName string `json:"portName,omitempty"` // substring match, empty = first port
	Channel  int    `json:"channel"`            // -1 = each note's own channel, else 0-15
	Input    string `json:"input,omitempty"`    // keyboard port for recording
}

// PlayerConfig stores transport settings
type PlayerConfig struct {
	Tempo       float64  `json:"tempo"`
	BeatsPerBar int      `json:"beatsPerBar"`
	Lookahead   Duration `json:"lookahead"`
}

// PoolConfig stores pattern pool settings
type PoolConfig struct {
	StrictRoles        bool    `json:"strictRoles"`
	DefaultLengthBeats float64 `json:"defaultLengthBeats"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette     string `json:"palette,omitempty"` // path to a GIMP .gpl palette, empty = built in
	LastProject string `json:"lastProject,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Output      OutputConfig `json:"output"`
	Player      PlayerConfig `json:"player"`
	Pool        PoolConfig   `json:"pool"`
	UI          UIConfig     `json:"ui,omitempty"`
	Debug       bool         `json:"debug,omitempty"`
	MetricsAddr string       `json:"metricsAddr,omitempty"` // e.g. "localhost:9464", empty = off
}

// Duration is a time.Duration stored as a string like "100ms".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Channel: -1,
		},
		Player: PlayerConfig{
			Tempo:       120,
			BeatsPerBar: 4,
			Lookahead:   Duration(100 * time.Millisecond),
		},
		Pool: PoolConfig{
			StrictRoles:        true,
			DefaultLengthBeats: 4,
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Output.Channel < -1 || c.Output.Channel > 15 {
		errs = append(errs, fmt.Errorf("output.channel %d out of range -1..15", c.Output.Channel))
	}
	if c.Player.Tempo < 20 || c.Player.Tempo > 999 {
		errs = append(errs, fmt.Errorf("player.tempo %g out of range 20..999", c.Player.Tempo))
	}
	if c.Player.BeatsPerBar < 1 || c.Player.BeatsPerBar > 32 {
		errs = append(errs, fmt.Errorf("player.beatsPerBar %d out of range 1..32", c.Player.BeatsPerBar))
	}
	if c.Player.Lookahead <= 0 {
		errs = append(errs, errors.New("player.lookahead must be positive"))
	}
	if c.Pool.DefaultLengthBeats <= 0 {
		errs = append(errs, fmt.Errorf("pool.defaultLengthBeats %g must be positive", c.Pool.DefaultLengthBeats))
	}
	return errors.Join(errs...)
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-pattern"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Missing fields keep their defaults and
// a missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
