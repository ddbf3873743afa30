// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Terrain  TerrainConfig  `yaml:"terrain"`
	Data     DataConfig     `yaml:"data"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	Wireframe  bool `yaml:"wireframe"`
}

// TerrainConfig holds the adaptive-mesh and streaming settings.
type TerrainConfig struct {
	// Resolution is the target grid size per tile (513, 1025 or 2049).
	Resolution int `yaml:"resolution"`

	// ToleranceM is the baseline error tolerance in meters.
	ToleranceM float64 `yaml:"tolerance_m"`

	// Exaggeration scales elevation-driven relief.
	Exaggeration float64 `yaml:"exaggeration"`

	// CacheTiles is the grid LRU capacity.
	CacheTiles int `yaml:"cache_tiles"`

	// LoadBudget / RebuildBudget bound work started per frame.
	LoadBudget    int `yaml:"load_budget"`
	RebuildBudget int `yaml:"rebuild_budget"`

	// MaxConcurrentLoads caps simultaneous in-flight tile fetches.
	MaxConcurrentLoads int `yaml:"max_concurrent_loads"`

	// UpdateIntervalMS throttles scheduler passes, in milliseconds.
	UpdateIntervalMS int `yaml:"update_interval_ms"`
}

// UpdateInterval returns the scheduler throttle as a duration.
func (t TerrainConfig) UpdateInterval() time.Duration {
	return time.Duration(t.UpdateIntervalMS) * time.Millisecond
}

// DataConfig tells the viewer where tile payloads come from. TileURL
// takes precedence over TileDir when both are set.
type DataConfig struct {
	TileDir string `yaml:"tile_dir"`
	TileURL string `yaml:"tile_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Terrain: TerrainConfig{
			Resolution:         1025,
			ToleranceM:         30,
			Exaggeration:       1,
			CacheTiles:         60,
			LoadBudget:         2,
			RebuildBudget:      3,
			MaxConcurrentLoads: 4,
			UpdateIntervalMS:   100,
		},
		Data: DataConfig{
			TileDir: "data/tiles",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
