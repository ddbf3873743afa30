package tiles

import (
	"context"
	"fmt"

	"github.com/terravox/globe/internal/terrain"
)

// Store is the external grid storage layer: it returns the raw binary
// payload for a (resolution, tile name) pair. Implementations live in
// internal/store; tests substitute their own.
type Store interface {
	ReadTile(ctx context.Context, name string, resolution int) ([]byte, error)
}

// loadResult is one completed fetch, delivered to the scheduler thread.
type loadResult struct {
	id   ID
	res  int
	grid *terrain.Grid
	err  error
}

// Loader fetches and decodes elevation grids asynchronously. Fetches
// run on their own goroutines, but results are buffered on a channel
// and applied only when the scheduler drains it, so the cache and all
// tile state stay single-writer. A global counter caps simultaneous
// in-flight fetches.
type Loader struct {
	store       Store
	cache       *GridCache
	maxInFlight int
	inFlight    map[gridKey]bool
	results     chan loadResult

	totalStarted int
	totalFailed  int
}

// NewLoader wraps a store with caching and in-flight accounting.
func NewLoader(store Store, cache *GridCache, maxInFlight int) *Loader {
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	return &Loader{
		store:       store,
		cache:       cache,
		maxInFlight: maxInFlight,
		inFlight:    make(map[gridKey]bool),
		results:     make(chan loadResult, FleetSize),
	}
}

// Cached returns the cached grid for a tile, if resident.
func (l *Loader) Cached(id ID, res int) (*terrain.Grid, bool) {
	return l.cache.Get(id, res)
}

// InFlight reports whether a fetch for this tile/resolution is pending.
func (l *Loader) InFlight(id ID, res int) bool {
	return l.inFlight[gridKey{res, id}]
}

// InFlightCount returns the number of outstanding fetches.
func (l *Loader) InFlightCount() int { return len(l.inFlight) }

// Start dispatches an asynchronous fetch for a tile. It returns false
// without dispatching when the fetch is already pending or the global
// concurrency ceiling is reached.
func (l *Loader) Start(ctx context.Context, id ID, res int) bool {
	key := gridKey{res, id}
	if l.inFlight[key] {
		return false
	}
	if len(l.inFlight) >= l.maxInFlight {
		return false
	}
	l.inFlight[key] = true
	l.totalStarted++

	go func() {
		grid, err := l.fetch(ctx, id, res)
		l.results <- loadResult{id: id, res: res, grid: grid, err: err}
	}()
	return true
}

// fetch reads and decodes one tile payload. It either fully succeeds or
// returns an error with nothing retained.
func (l *Loader) fetch(ctx context.Context, id ID, res int) (*terrain.Grid, error) {
	raw, err := l.store.ReadTile(ctx, id.Name(), res)
	if err != nil {
		return nil, fmt.Errorf("reading %s at %d: %w", id.Name(), res, err)
	}
	grid, err := terrain.DecodeGrid(raw, res, id.Bounds())
	if err != nil {
		return nil, fmt.Errorf("decoding %s at %d: %w", id.Name(), res, err)
	}
	return grid, nil
}

// Drain applies all completed fetches without blocking. Successful
// grids are inserted into the cache before the callback runs; the
// callback receives failures too so the scheduler can arm its retry
// backoff. Must be called from the scheduler thread.
func (l *Loader) Drain(apply func(id ID, res int, grid *terrain.Grid, err error)) {
	for {
		select {
		case r := <-l.results:
			delete(l.inFlight, gridKey{r.res, r.id})
			if r.err == nil {
				l.cache.Put(r.id, r.res, r.grid)
			} else {
				l.totalFailed++
			}
			if apply != nil {
				apply(r.id, r.res, r.grid, r.err)
			}
		default:
			return
		}
	}
}
