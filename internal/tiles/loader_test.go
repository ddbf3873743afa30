package tiles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/terravox/globe/internal/terrain"
)

// blockingStore serves flat elevation payloads but holds every read
// until release is closed, so tests can observe in-flight state.
type blockingStore struct {
	release chan struct{}

	mu      sync.Mutex
	started int
	names   []string
}

func newBlockingStore() *blockingStore {
	return &blockingStore{release: make(chan struct{})}
}

func (s *blockingStore) ReadTile(ctx context.Context, name string, resolution int) ([]byte, error) {
	s.mu.Lock()
	s.started++
	s.names = append(s.names, name)
	s.mu.Unlock()
	<-s.release
	return make([]byte, resolution*resolution*2), nil
}

func (s *blockingStore) Started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// failingStore rejects every read immediately.
type failingStore struct {
	mu       sync.Mutex
	finished int
	names    []string
}

func (s *failingStore) ReadTile(ctx context.Context, name string, resolution int) ([]byte, error) {
	s.mu.Lock()
	s.finished++
	s.names = append(s.names, name)
	s.mu.Unlock()
	return nil, errors.New("elevation backend offline")
}

func (s *failingStore) Started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

func (s *failingStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met within 5s")
}

func TestLoaderCapsInFlight(t *testing.T) {
	store := newBlockingStore()
	l := NewLoader(store, NewGridCache(8), 2)
	ctx := context.Background()

	a := ID{LatMin: 0, LonMin: 0}
	b := ID{LatMin: 0, LonMin: 15}
	c := ID{LatMin: 0, LonMin: 30}

	if !l.Start(ctx, a, 5) {
		t.Fatal("first dispatch refused")
	}
	if l.Start(ctx, a, 5) {
		t.Error("duplicate dispatch for a pending tile")
	}
	if !l.Start(ctx, b, 5) {
		t.Fatal("second dispatch refused")
	}
	if l.Start(ctx, c, 5) {
		t.Error("dispatch above the concurrency ceiling")
	}
	if got := l.InFlightCount(); got != 2 {
		t.Fatalf("in-flight = %d, want 2", got)
	}

	close(store.release)
	applied := 0
	waitFor(t, func() bool {
		l.Drain(func(id ID, res int, grid *terrain.Grid, err error) {
			if err != nil {
				t.Errorf("%v: unexpected load error: %v", id, err)
			}
			if grid == nil || grid.Size != 5 {
				t.Errorf("%v: bad decoded grid", id)
			}
			applied++
		})
		return applied == 2
	})

	if got := l.InFlightCount(); got != 0 {
		t.Errorf("in-flight after drain = %d, want 0", got)
	}
	for _, id := range []ID{a, b} {
		if _, ok := l.Cached(id, 5); !ok {
			t.Errorf("%v missing from cache after drain", id)
		}
	}
	if l.InFlight(c, 5) {
		t.Errorf("refused dispatch left %v marked in-flight", c)
	}
}

func TestLoaderDrainReportsFailure(t *testing.T) {
	store := &failingStore{}
	cache := NewGridCache(8)
	l := NewLoader(store, cache, 2)
	id := ID{LatMin: 15, LonMin: 45}

	if !l.Start(context.Background(), id, 5) {
		t.Fatal("dispatch refused")
	}

	var gotErr error
	applied := 0
	waitFor(t, func() bool {
		l.Drain(func(_ ID, _ int, grid *terrain.Grid, err error) {
			if grid != nil {
				t.Error("failed load delivered a grid")
			}
			gotErr = err
			applied++
		})
		return applied == 1
	})

	if gotErr == nil {
		t.Fatal("callback saw no error")
	}
	if cache.Len() != 0 {
		t.Errorf("failed load was cached, len = %d", cache.Len())
	}
	if l.totalFailed != 1 {
		t.Errorf("totalFailed = %d, want 1", l.totalFailed)
	}
	if l.InFlight(id, 5) {
		t.Error("failed load still marked in-flight")
	}
}

// staticStore returns the same payload for every tile.
type staticStore struct{ payload []byte }

func (s staticStore) ReadTile(ctx context.Context, name string, resolution int) ([]byte, error) {
	return s.payload, nil
}

func TestLoaderRejectsMalformedPayload(t *testing.T) {
	// 7 bytes matches neither the quantized nor the float encoding for
	// a 5x5 grid, so the fetch must surface a decode error.
	l := NewLoader(staticStore{payload: make([]byte, 7)}, NewGridCache(4), 2)
	id := ID{LatMin: 0, LonMin: 0}

	if !l.Start(context.Background(), id, 5) {
		t.Fatal("dispatch refused")
	}

	var gotErr error
	applied := 0
	waitFor(t, func() bool {
		l.Drain(func(_ ID, _ int, _ *terrain.Grid, err error) {
			gotErr = err
			applied++
		})
		return applied == 1
	})
	if gotErr == nil {
		t.Fatal("expected a decode error")
	}
}
