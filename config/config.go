package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RenderConfig tunes the sample accumulator
type RenderConfig struct {
	Workers         int  `json:"workers,omitempty"`   // 0 = one per CPU
	ChunkSize       int  `json:"chunkSize,omitempty"` // samples per worker job
	CloseOpenOnsets bool `json:"closeOpenOnsets,omitempty"`
}

// OutputConfig defines how finished buffers leave the process
type OutputConfig struct {
	BitDepth     int `json:"bitDepth,omitempty"`     // WAV only
	BufferMillis int `json:"bufferMillis,omitempty"` // device only, 0 = driver default
}

// UIConfig stores terminal preferences
type UIConfig struct {
	Palette  string `json:"palette,omitempty"` // GPL file, empty = built-in
	Progress *bool  `json:"progress,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Render RenderConfig `json:"render"`
	Output OutputConfig `json:"output"`
	UI     UIConfig     `json:"ui,omitempty"`
	Debug  bool         `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			ChunkSize: 1 << 14,
		},
		Output: OutputConfig{
			BitDepth: 16,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midi-synth"), nil
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

// LoadFrom reads the config at path. Missing keys keep their defaults and a
// missing file yields the defaults.
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
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no component can honour
func (c *Config) Validate() error {
	switch c.Output.BitDepth {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("output.bitDepth %d: want 16, 24 or 32", c.Output.BitDepth)
	}
	if c.Render.Workers < 0 {
		return fmt.Errorf("render.workers %d: must not be negative", c.Render.Workers)
	}
	if c.Render.ChunkSize < 0 {
		return fmt.Errorf("render.chunkSize %d: must not be negative", c.Render.ChunkSize)
	}
	if c.Output.BufferMillis < 0 {
		return fmt.Errorf("output.bufferMillis %d: must not be negative", c.Output.BufferMillis)
	}
	return nil
}

// DeviceBuffer is the configured device buffer length
func (c *Config) DeviceBuffer() time.Duration {
	return time.Duration(c.Output.BufferMillis) * time.Millisecond
}

// ShowProgress reports whether the playback view is wanted; unset means
// "when attached to a terminal", decided by the caller.
func (c *Config) ShowProgress(isTerminal bool) bool {
	if c.UI.Progress == nil {
		return isTerminal
	}
	return *c.UI.Progress
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
