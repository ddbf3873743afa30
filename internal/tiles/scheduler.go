package tiles

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/terravox/globe/internal/logger"
	"github.com/terravox/globe/internal/terrain"
	"github.com/terravox/globe/pkg/math"
)

// Hysteresis band on builtTolerance/desiredTolerance. While the ratio
// stays inside the band the live mesh is kept, which stops small camera
// movements from thrashing rebuilds.
const (
	hysteresisLow  = 0.67
	hysteresisHigh = 1.5
)

// Config holds the scheduler's tuning knobs.
type Config struct {
	// Resolution is the target grid size, one of Resolutions.
	Resolution int

	// BaseTolerance is the error tolerance in meters for the nearest
	// distance band; farther bands scale it up.
	BaseTolerance float64

	// Exaggeration multiplies elevation-driven radial displacement.
	Exaggeration float64

	// LoadBudget caps new fetches started per update call.
	LoadBudget int

	// RebuildBudget caps synchronous mesh rebuilds per update call.
	RebuildBudget int

	// MaxInFlightLoads caps simultaneous outstanding fetches.
	MaxInFlightLoads int

	// CacheCapacity is the grid LRU capacity.
	CacheCapacity int

	// UpdateInterval throttles update calls; calls arriving sooner are
	// no-ops so per-frame CPU stays bounded independent of frame rate.
	UpdateInterval time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Resolution:       1025,
		BaseTolerance:    30,
		Exaggeration:     1,
		LoadBudget:       2,
		RebuildBudget:    3,
		MaxInFlightLoads: 4,
		CacheCapacity:    DefaultCacheCapacity,
		UpdateInterval:   100 * time.Millisecond,
	}
}

// Stats is the aggregate telemetry of the last update.
type Stats struct {
	VisibleTiles   int
	TotalTriangles int
	InFlightLoads  int
}

// workItem is one tile needing work this frame.
type workItem struct {
	tile         *Tile
	dist         float32
	tol          float64
	needsLoad    bool
	needsRebuild bool
}

// Scheduler owns the tile fleet and drives it once per frame through
// cull, classify, prioritize, load and rebuild phases. All fleet state
// is mutated only inside Update, on the caller's thread.
type Scheduler struct {
	cfg    Config
	loader *Loader
	fleet  []*Tile
	byID   map[ID]*Tile
	hier   map[int]*terrain.Hierarchy

	wireframe  bool
	lastUpdate time.Time
	stats      Stats

	// scratch reused across frames
	work []workItem
}

// NewScheduler creates the fleet and wires it to a grid store.
func NewScheduler(store Store, cfg Config) (*Scheduler, error) {
	if !ValidResolution(cfg.Resolution) {
		return nil, fmt.Errorf("resolution %d is not one of %v", cfg.Resolution, Resolutions)
	}
	if cfg.BaseTolerance < 0 {
		return nil, fmt.Errorf("negative tolerance %g", cfg.BaseTolerance)
	}

	fleet := makeFleet()
	byID := make(map[ID]*Tile, len(fleet))
	for _, t := range fleet {
		byID[t.ID] = t
	}
	return &Scheduler{
		cfg:    cfg,
		loader: NewLoader(store, NewGridCache(cfg.CacheCapacity), cfg.MaxInFlightLoads),
		fleet:  fleet,
		byID:   byID,
		hier:   make(map[int]*terrain.Hierarchy),
		work:   make([]workItem, 0, FleetSize),
	}, nil
}

// Tiles returns the full fleet for renderer iteration.
func (s *Scheduler) Tiles() []*Tile { return s.fleet }

// Stats returns the telemetry gathered by the last update.
func (s *Scheduler) Stats() Stats { return s.stats }

// Wireframe reports the wireframe toggle.
func (s *Scheduler) Wireframe() bool { return s.wireframe }

// SetWireframe toggles wireframe rendering.
func (s *Scheduler) SetWireframe(on bool) { s.wireframe = on }

// Resolution returns the current target grid size.
func (s *Scheduler) Resolution() int { return s.cfg.Resolution }

// SetResolution switches the target grid size. The change is lazy:
// only tiles that are visible and mismatched get reloaded, as they are
// next classified.
func (s *Scheduler) SetResolution(res int) error {
	if !ValidResolution(res) {
		return fmt.Errorf("resolution %d is not one of %v", res, Resolutions)
	}
	if res != s.cfg.Resolution {
		s.cfg.Resolution = res
		logger.Info("target resolution changed", zap.Int("resolution", res))
	}
	return nil
}

// BaseTolerance returns the error-tolerance baseline in meters.
func (s *Scheduler) BaseTolerance() float64 { return s.cfg.BaseTolerance }

// SetBaseTolerance changes the error-tolerance baseline in meters.
func (s *Scheduler) SetBaseTolerance(tol float64) {
	if tol >= 0 && tol != s.cfg.BaseTolerance {
		s.cfg.BaseTolerance = tol
		logger.Info("tolerance baseline changed", zap.Float64("meters", tol))
	}
}

// Exaggeration returns the current vertical exaggeration factor.
func (s *Scheduler) Exaggeration() float64 { return s.cfg.Exaggeration }

// SetExaggeration changes the vertical exaggeration. Every tile whose
// mesh was built with a different factor is reclassified as needing a
// rebuild on its next visible frame.
func (s *Scheduler) SetExaggeration(e float64) {
	if e != s.cfg.Exaggeration {
		s.cfg.Exaggeration = e
		logger.Info("exaggeration changed", zap.Float64("factor", e))
	}
}

// Update runs one scheduling pass: drain completed loads, cull against
// the camera, classify surviving tiles, and dispatch budget-limited
// loads and rebuilds in nearest-first order. Calls arriving before the
// configured interval has elapsed are no-ops.
func (s *Scheduler) Update(ctx context.Context, camPos math.Vec3, viewProj math.Mat4) {
	now := time.Now()
	if s.cfg.UpdateInterval > 0 && now.Sub(s.lastUpdate) < s.cfg.UpdateInterval {
		return
	}
	s.lastUpdate = now

	s.drainLoads(now)

	frustum := math.FrustumFromMatrix(viewProj)
	work := s.work[:0]
	visible := 0

	for _, t := range s.fleet {
		// Frustum sphere test plus a horizon proxy: a tile whose center
		// direction opposes the camera position is on the far side of
		// the globe. Terrain self-occlusion is deliberately ignored.
		t.visible = t.Center.Dot(camPos) >= 0 &&
			frustum.IntersectsSphere(t.Center, t.BoundRadius)
		if !t.visible {
			continue
		}
		visible++
		if w, ok := s.classify(t, camPos, now); ok {
			work = append(work, w)
		}
	}

	sort.Slice(work, func(i, j int) bool { return work[i].dist < work[j].dist })

	loads := 0
	for i := range work {
		if loads >= s.cfg.LoadBudget {
			break
		}
		w := &work[i]
		if !w.needsLoad {
			continue
		}
		if s.loader.Start(ctx, w.tile.ID, s.cfg.Resolution) {
			w.tile.loading = true
			loads++
		} else if s.loader.InFlightCount() >= s.cfg.MaxInFlightLoads {
			break
		}
	}

	rebuilds := 0
	for i := range work {
		if rebuilds >= s.cfg.RebuildBudget {
			break
		}
		w := &work[i]
		if !w.needsRebuild {
			continue
		}
		if err := s.rebuild(w.tile, w.tol); err != nil {
			logger.Warn("tile rebuild failed",
				zap.String("tile", w.tile.ID.Name()), zap.Error(err))
			continue
		}
		rebuilds++
	}

	s.work = work[:0]
	s.stats = Stats{
		VisibleTiles:   visible,
		TotalTriangles: s.countTriangles(),
		InFlightLoads:  s.loader.InFlightCount(),
	}
}

// classify decides what work, if any, a visible tile needs this frame.
func (s *Scheduler) classify(t *Tile, camPos math.Vec3, now time.Time) (workItem, bool) {
	w := workItem{tile: t, dist: camPos.Distance(t.Center)}
	w.tol = s.toleranceFor(w.dist)

	if t.grid == nil || t.gridRes != s.cfg.Resolution {
		// A still-cached grid from an earlier eviction or a completed
		// but unadopted load can be taken over without refetching.
		if grid, ok := s.loader.Cached(t.ID, s.cfg.Resolution); ok {
			s.adoptGrid(t, grid, s.cfg.Resolution)
		} else if !t.loading && !now.Before(t.nextRetry) {
			w.needsLoad = true
			return w, true
		} else if t.grid == nil {
			return workItem{}, false
		}
		// Fetch pending, but a previous-resolution grid is still live:
		// fall through so tolerance and exaggeration changes keep the
		// old mesh in step until the new grid lands.
	}

	w.needsRebuild = t.field == nil || t.mesh == nil || t.builtExg != s.cfg.Exaggeration
	if !w.needsRebuild {
		if w.tol == 0 {
			// full-resolution request; only a lossless mesh satisfies it
			w.needsRebuild = t.builtTol != 0
		} else {
			ratio := t.builtTol / w.tol
			w.needsRebuild = ratio < hysteresisLow || ratio > hysteresisHigh
		}
	}
	return w, w.needsRebuild
}

// toleranceFor maps camera distance to the desired error tolerance in
// meters: the farther the tile, the coarser the mesh. Monotone step
// function over distance in render-radius units.
func (s *Scheduler) toleranceFor(dist float32) float64 {
	d := float64(dist) / terrain.RenderRadius
	switch {
	case d < 0.25:
		return s.cfg.BaseTolerance
	case d < 0.5:
		return s.cfg.BaseTolerance * 2
	case d < 1:
		return s.cfg.BaseTolerance * 4
	case d < 2:
		return s.cfg.BaseTolerance * 8
	default:
		return s.cfg.BaseTolerance * 16
	}
}

// drainLoads applies completed fetches to their tiles.
func (s *Scheduler) drainLoads(now time.Time) {
	s.loader.Drain(func(id ID, res int, grid *terrain.Grid, err error) {
		t := s.byID[id]
		t.loading = false
		if err != nil {
			t.failCount++
			t.nextRetry = now.Add(retryBackoff(t.failCount))
			logger.Warn("tile load failed",
				zap.String("tile", id.Name()),
				zap.Int("resolution", res),
				zap.Int("failures", t.failCount),
				zap.Error(err))
			return
		}
		t.failCount = 0
		t.nextRetry = time.Time{}
		s.adoptGrid(t, grid, res)
	})
}

// adoptGrid installs a decoded grid on a tile, invalidating any error
// field computed from the previous grid.
func (s *Scheduler) adoptGrid(t *Tile, grid *terrain.Grid, res int) {
	t.grid = grid
	t.gridRes = res
	t.field = nil
}

// rebuild computes the error field if needed and swaps in a fresh mesh
// at the desired tolerance. The previous mesh is dropped; the bumped
// generation counter tells the renderer to release its GPU buffers.
func (s *Scheduler) rebuild(t *Tile, tol float64) error {
	if t.field == nil {
		h, err := s.hierarchy(t.gridRes)
		if err != nil {
			return err
		}
		field, err := h.ComputeErrors(t.grid)
		if err != nil {
			return err
		}
		t.field = field
	}
	t.mesh = t.field.Extract(terrain.ExtractOptions{
		MaxError:     tol,
		Exaggeration: s.cfg.Exaggeration,
	})
	t.meshGen++
	t.builtTol = tol
	t.builtExg = s.cfg.Exaggeration
	return nil
}

// hierarchy returns the shared triangle hierarchy for a resolution.
func (s *Scheduler) hierarchy(res int) (*terrain.Hierarchy, error) {
	if h, ok := s.hier[res]; ok {
		return h, nil
	}
	h, err := terrain.NewHierarchy(res)
	if err != nil {
		return nil, err
	}
	s.hier[res] = h
	return h, nil
}

// countTriangles tallies triangles across all visible tiles with a
// live mesh.
func (s *Scheduler) countTriangles() int {
	total := 0
	for _, t := range s.fleet {
		if t.visible && t.mesh != nil {
			total += t.mesh.TriangleCount
		}
	}
	return total
}

// retryBackoff returns the wait before a failed tile may retry:
// exponential from 2s, capped at 60s.
func retryBackoff(failures int) time.Duration {
	d := 2 * time.Second
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= 60*time.Second {
			return 60 * time.Second
		}
	}
	return d
}
