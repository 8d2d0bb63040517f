// Package config holds the daemon settings. Every field has a default; a
// YAML file only needs the keys it changes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid indicates a setting outside its allowed range.
var ErrInvalid = errors.New("config: invalid value")

// Config is the daemon configuration.
type Config struct {
	Socket   string `yaml:"socket"`
	Lock     string `yaml:"lock"`
	Log      string `yaml:"log"`
	WorkDir  string `yaml:"work_dir"`
	LogLevel string `yaml:"log_level"`

	// Period is the duty-cycle length.
	Period time.Duration `yaml:"period"`
	// Stagger spreads worker start times across one period.
	Stagger bool `yaml:"stagger"`

	// Device overrides the discovered block device for the I/O load.
	Device string `yaml:"device"`
	// ReadBuffer is the I/O read size in bytes.
	ReadBuffer int `yaml:"read_buffer"`
	// PopulateMemory prefaults the arena on RUN.
	PopulateMemory bool `yaml:"populate_memory"`

	Kernel Kernel `yaml:"kernel"`
}

// Kernel configures the kernel hogging service.
type Kernel struct {
	Enabled bool   `yaml:"enabled"`
	Family  int    `yaml:"family"`
	Module  string `yaml:"module"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Socket:     "/tmp/loadgend.socket",
		Lock:       "/tmp/loadgend.lock",
		Log:        "/tmp/loadgend.log",
		WorkDir:    "/tmp",
		LogLevel:   "info",
		Period:     time.Second,
		ReadBuffer: 64 << 10,
		Kernel: Kernel{
			Family: 31,
			Module: "kloadgend",
		},
	}
}

// Load reads path and merges it over Default. An empty path yields the
// defaults. Only non-empty strings, positive numbers and true booleans in the
// file override a default.
func Load(path string) (*Config, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var file Config
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	merged := merge(base, &file)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

func merge(base, cfg *Config) *Config {
	m := *base

	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	str(&m.Socket, cfg.Socket)
	str(&m.Lock, cfg.Lock)
	str(&m.Log, cfg.Log)
	str(&m.WorkDir, cfg.WorkDir)
	str(&m.LogLevel, cfg.LogLevel)
	str(&m.Device, cfg.Device)
	str(&m.Kernel.Module, cfg.Kernel.Module)

	if cfg.Period > 0 {
		m.Period = cfg.Period
	}
	if cfg.ReadBuffer > 0 {
		m.ReadBuffer = cfg.ReadBuffer
	}
	if cfg.Kernel.Family > 0 {
		m.Kernel.Family = cfg.Kernel.Family
	}

	m.Stagger = m.Stagger || cfg.Stagger
	m.PopulateMemory = m.PopulateMemory || cfg.PopulateMemory
	m.Kernel.Enabled = m.Kernel.Enabled || cfg.Kernel.Enabled

	return &m
}

// Validate checks ranges.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Period < 10*time.Millisecond {
		return fmt.Errorf("%w: period %s is below 10ms", ErrInvalid, c.Period)
	}
	if c.ReadBuffer < 512 || c.ReadBuffer%512 != 0 {
		return fmt.Errorf("%w: read_buffer %d is not a positive multiple of 512", ErrInvalid, c.ReadBuffer)
	}
	if c.Kernel.Family < 0 || c.Kernel.Family > 31 {
		return fmt.Errorf("%w: kernel.family %d", ErrInvalid, c.Kernel.Family)
	}
	// sun_path holds 108 bytes including the terminator
	if len(c.Socket) == 0 || len(c.Socket) > 107 {
		return fmt.Errorf("%w: socket path %q", ErrInvalid, c.Socket)
	}
	for _, p := range []string{c.Socket, c.Lock, c.Log, c.WorkDir} {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("%w: path %q is not absolute", ErrInvalid, p)
		}
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return l, nil
}
