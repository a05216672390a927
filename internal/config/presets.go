package config

import (
	"maps"
	"slices"
)

// Presets adjust the defaults for common uses.
var Presets = map[string]func(*Config){
	"default": func(*Config) {},
	"preview": func(c *Config) {
		c.Window.Width, c.Window.Height = 800, 450
		c.Window.TargetFPS = 30
	},
	"bench": func(c *Config) {
		c.Backend = "cpu"
		c.StartPlaying = true
		c.LogLevel = "warn"
	},
	"record": func(c *Config) {
		c.StartPlaying = true
		c.Record.Every = 50
	},
}

// GetPreset returns the defaults with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	return slices.Sorted(maps.Keys(Presets))
}
