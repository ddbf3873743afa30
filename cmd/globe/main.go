// Package main is the entry point for the globe terrain viewer.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/terravox/globe/internal/config"
	"github.com/terravox/globe/internal/engine/camera"
	"github.com/terravox/globe/internal/engine/renderer"
	"github.com/terravox/globe/internal/engine/window"
	"github.com/terravox/globe/internal/logger"
	"github.com/terravox/globe/internal/store"
	"github.com/terravox/globe/internal/tiles"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Globe Terrain Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

// run wires the window, renderer, camera and scheduler together and
// drives the frame loop until quit.
func run(cfg *config.Config) error {
	win, err := window.New(window.Config{
		Title:      "Globe",
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer win.Close()

	rend, err := renderer.New(renderer.Config{
		Width:  cfg.Graphics.Width,
		Height: cfg.Graphics.Height,
	})
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	defer rend.Close()

	sched, err := tiles.NewScheduler(tileStore(cfg), tiles.Config{
		Resolution:       cfg.Terrain.Resolution,
		BaseTolerance:    cfg.Terrain.ToleranceM,
		Exaggeration:     cfg.Terrain.Exaggeration,
		LoadBudget:       cfg.Terrain.LoadBudget,
		RebuildBudget:    cfg.Terrain.RebuildBudget,
		MaxInFlightLoads: cfg.Terrain.MaxConcurrentLoads,
		CacheCapacity:    cfg.Terrain.CacheTiles,
		UpdateInterval:   cfg.Terrain.UpdateInterval(),
	})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	sched.SetWireframe(cfg.Graphics.Wireframe)

	cam := camera.New()
	ctx := context.Background()

	dragging := false
	statsTimer := time.Now()
	running := true

	for running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				running = false

			case *sdl.WindowEvent:
				if e.Event == sdl.WINDOWEVENT_RESIZED {
					rend.Resize(int(e.Data1), int(e.Data2))
				}

			case *sdl.KeyboardEvent:
				if e.Type == sdl.KEYDOWN {
					handleKey(e.Keysym.Scancode, sched, &running)
				}

			case *sdl.MouseButtonEvent:
				if e.Button == sdl.BUTTON_LEFT {
					dragging = e.Type == sdl.MOUSEBUTTONDOWN
				}

			case *sdl.MouseMotionEvent:
				if dragging {
					cam.HandleDrag(float32(e.XRel), float32(e.YRel))
				}

			case *sdl.MouseWheelEvent:
				cam.HandleZoom(float32(e.Y))
			}
		}

		width, height := win.Size()
		viewProj := cam.ViewProjection(float32(width) / float32(height))

		sched.Update(ctx, cam.Position(), viewProj)

		rend.Begin()
		rend.DrawGlobe(sched.Tiles(), viewProj, sched.Wireframe())
		win.SwapBuffers()

		if time.Since(statsTimer) >= time.Second {
			statsTimer = time.Now()
			st := sched.Stats()
			win.SetTitle(fmt.Sprintf("Globe | res %d | tiles %d | tris %d | loads %d",
				sched.Resolution(), st.VisibleTiles, st.TotalTriangles, st.InFlightLoads))
		}
	}
	return nil
}

// handleKey applies the viewer's keyboard controls.
//
//	1/2/3   tile resolution 513 / 1025 / 2049
//	-/=     coarser / finer tolerance baseline
//	E       cycle vertical exaggeration
//	F       toggle wireframe
//	ESC/Q   quit
func handleKey(key sdl.Scancode, sched *tiles.Scheduler, running *bool) {
	switch key {
	case sdl.SCANCODE_ESCAPE, sdl.SCANCODE_Q:
		*running = false

	case sdl.SCANCODE_1:
		setResolution(sched, 513)
	case sdl.SCANCODE_2:
		setResolution(sched, 1025)
	case sdl.SCANCODE_3:
		setResolution(sched, 2049)

	case sdl.SCANCODE_MINUS:
		sched.SetBaseTolerance(clampTolerance(sched.BaseTolerance() * 2))
	case sdl.SCANCODE_EQUALS:
		sched.SetBaseTolerance(clampTolerance(sched.BaseTolerance() / 2))

	case sdl.SCANCODE_E:
		sched.SetExaggeration(nextExaggeration(sched.Exaggeration()))

	case sdl.SCANCODE_F:
		sched.SetWireframe(!sched.Wireframe())
	}
}

func setResolution(sched *tiles.Scheduler, res int) {
	if err := sched.SetResolution(res); err != nil {
		logger.Warn("resolution change rejected", zap.Error(err))
	}
}

// clampTolerance keeps the baseline in a range that stays interactive
// at 2049 grids.
func clampTolerance(tol float64) float64 {
	if tol < 1 {
		return 1
	}
	if tol > 500 {
		return 500
	}
	return tol
}

// nextExaggeration cycles through useful relief multipliers.
func nextExaggeration(cur float64) float64 {
	steps := []float64{1, 2, 5, 10}
	for i, s := range steps {
		if cur == s {
			return steps[(i+1)%len(steps)]
		}
	}
	return steps[0]
}

// tileStore picks the payload source: HTTP when a tile URL is
// configured, the local directory otherwise.
func tileStore(cfg *config.Config) tiles.Store {
	if cfg.Data.TileURL != "" {
		logger.Info("using HTTP tile store", zap.String("url", cfg.Data.TileURL))
		return store.NewHTTPStore(cfg.Data.TileURL)
	}
	fs, err := store.NewFileStore(cfg.Data.TileDir)
	if err != nil {
		logger.Fatal("failed to open tile directory", zap.Error(err))
	}
	logger.Info("using file tile store", zap.String("dir", cfg.Data.TileDir))
	return fs
}
