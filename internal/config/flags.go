package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagTileDir    = flag.String("tiles", "", "Directory containing elevation tiles")
	flagTileURL    = flag.String("tile-url", "", "Base URL for elevation tiles")
	flagResolution = flag.Int("resolution", 0, "Tile grid resolution (513, 1025, 2049)")
	flagWireframe  = flag.Bool("wireframe", false, "Start in wireframe mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagTileDir != "" {
		cfg.Data.TileDir = *flagTileDir
	}
	if *flagTileURL != "" {
		cfg.Data.TileURL = *flagTileURL
	}
	if *flagResolution > 0 {
		cfg.Terrain.Resolution = *flagResolution
	}
	if *flagWireframe {
		cfg.Graphics.Wireframe = true
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
}
