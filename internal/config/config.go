// Package config holds host settings: window, backend, logging and storage.
// Scene constants are compiled into the scene package and are not configurable.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	Backends  = []string{"auto", "cpu", "cuda", "gl"}
	LogLevels = []string{"debug", "info", "warn", "error"}
)

var (
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("config: invalid")
	// ErrNeedsWindow is returned for a windowless run on a backend that
	// requires the GUI's GL context.
	ErrNeedsWindow = errors.New("config: backend needs a window")
)

type Config struct {
	Window       WindowConfig `yaml:"window"`
	Scene        string       `yaml:"scene"`
	Backend      string       `yaml:"backend"`
	Workers      int          `yaml:"workers"`
	StartPlaying bool         `yaml:"start_playing"`
	LogLevel     string       `yaml:"log_level"`
	DataDir      string       `yaml:"data_dir"`
	Record       RecordConfig `yaml:"record"`
	Journal      string       `yaml:"journal"`
}

type WindowConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Title     string `yaml:"title"`
	TargetFPS int    `yaml:"target_fps"`
}

// RecordConfig enables periodic snapshots. Every 0 disables recording; an
// empty Dir falls back to DataDir.
type RecordConfig struct {
	Every int    `yaml:"every"`
	Dir   string `yaml:"dir"`
}

func DefaultConfig() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads path over the embedded defaults. Fields missing from the file
// keep their default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Window.TargetFPS <= 0 {
		errs = append(errs, fmt.Errorf("target_fps %d must be positive", c.Window.TargetFPS))
	}
	if !slices.Contains(Backends, c.Backend) {
		errs = append(errs, fmt.Errorf("backend %q not one of %v", c.Backend, Backends))
	}
	if !slices.Contains(LogLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level %q not one of %v", c.LogLevel, LogLevels))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Workers))
	}
	if c.Record.Every < 0 {
		errs = append(errs, fmt.Errorf("record.every %d must not be negative", c.Record.Every))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ValidateWindowless checks that the backend can run without a window. The gl
// backend is tied to the context created by the GUI.
func (c *Config) ValidateWindowless() error {
	if c.Backend == "gl" {
		return fmt.Errorf("%w: %q is only available in the gui command", ErrNeedsWindow, c.Backend)
	}
	return nil
}

// RecordDir is where the recorder writes snapshots.
func (c *Config) RecordDir() string {
	if c.Record.Dir != "" {
		return c.Record.Dir
	}
	return c.DataDir
}
