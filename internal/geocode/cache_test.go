// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wneessen/map-prep/internal/fault"
	"github.com/wneessen/map-prep/internal/logger"
)

var testCoords = Coordinate{Lat: 51.520847, Lon: -0.195521}

type mockCoder struct {
	calls atomic.Int32
	delay time.Duration
}

func (c *mockCoder) Name() string { return "mock" }

func (c *mockCoder) Convert(_ context.Context, id ID) (Coordinate, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	switch id {
	case "invalid":
		return Coordinate{}, errors.New("lookup intentionally failed")
	case "no.key.set":
		return Coordinate{}, fault.New(fault.ErrCredentialMissing, "resolve", string(id), nil)
	}
	return testCoords, nil
}

type countingRecorder struct {
	hits, misses atomic.Int32
}

func (r *countingRecorder) LookupHit()  { r.hits.Add(1) }
func (r *countingRecorder) LookupMiss() { r.misses.Add(1) }

func testLogger() *logger.Logger {
	return logger.NewLogger(slog.LevelDebug, io.Discard)
}

func TestNewResolver(t *testing.T) {
	t.Run("a new resolver should be returned", func(t *testing.T) {
		resolver := NewResolver(&mockCoder{}, testLogger(), nil)
		if resolver == nil {
			t.Fatal("expected a non-nil resolver")
		}
		if resolver.Name() != "location cache using mock" {
			t.Errorf("expected resolver name to be 'location cache using mock', got %q", resolver.Name())
		}
		if resolver.Len() != 0 {
			t.Errorf("expected empty cache, got %d entries", resolver.Len())
		}
	})
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("a miss calls the geocoder and caches the result", func(t *testing.T) {
		coder := &mockCoder{}
		recorder := &countingRecorder{}
		resolver := NewResolver(coder, testLogger(), recorder)
		coords, err := resolver.Resolve(t.Context(), "index.home.raft")
		if err != nil {
			t.Fatal(err)
		}
		if coords != testCoords {
			t.Errorf("expected coordinates to be %s, got %s", testCoords, coords)
		}
		if coder.calls.Load() != 1 {
			t.Errorf("expected 1 geocoder call, got %d", coder.calls.Load())
		}
		if recorder.misses.Load() != 1 {
			t.Errorf("expected 1 recorded miss, got %d", recorder.misses.Load())
		}
		if _, ok := resolver.Lookup("index.home.raft"); !ok {
			t.Error("expected entry to be cached")
		}
	})
	t.Run("resolving twice should hit the cache", func(t *testing.T) {
		coder := &mockCoder{}
		recorder := &countingRecorder{}
		resolver := NewResolver(coder, testLogger(), recorder)
		for i := 0; i < 2; i++ {
			if _, err := resolver.Resolve(t.Context(), "index.home.raft"); err != nil {
				t.Fatal(err)
			}
		}
		if coder.calls.Load() != 1 {
			t.Errorf("expected 1 geocoder call, got %d", coder.calls.Load())
		}
		if recorder.hits.Load() != 1 {
			t.Errorf("expected 1 recorded hit, got %d", recorder.hits.Load())
		}
	})
	t.Run("seeded entries are resolved without the geocoder", func(t *testing.T) {
		coder := &mockCoder{}
		resolver := NewResolver(coder, testLogger(), nil)
		seeded := Coordinate{Lat: 1, Lon: 2}
		resolver.Seed(map[ID]Coordinate{"filled.count.soap": seeded})
		coords, err := resolver.Resolve(t.Context(), "filled.count.soap")
		if err != nil {
			t.Fatal(err)
		}
		if coords != seeded {
			t.Errorf("expected coordinates to be %s, got %s", seeded, coords)
		}
		if coder.calls.Load() != 0 {
			t.Errorf("expected no geocoder call, got %d", coder.calls.Load())
		}
	})
	t.Run("identifiers are case sensitive", func(t *testing.T) {
		coder := &mockCoder{}
		resolver := NewResolver(coder, testLogger(), nil)
		resolver.Seed(map[ID]Coordinate{"filled.count.soap": testCoords})
		if _, err := resolver.Resolve(t.Context(), "Filled.Count.Soap"); err != nil {
			t.Fatal(err)
		}
		if coder.calls.Load() != 1 {
			t.Errorf("expected 1 geocoder call, got %d", coder.calls.Load())
		}
		if resolver.Len() != 2 {
			t.Errorf("expected 2 entries, got %d", resolver.Len())
		}
	})
	t.Run("failing lookups return a lookup failure and are not cached", func(t *testing.T) {
		resolver := NewResolver(&mockCoder{}, testLogger(), nil)
		_, err := resolver.Resolve(t.Context(), "invalid")
		if !errors.Is(err, fault.ErrLookup) {
			t.Fatalf("expected error to be %s, got %v", fault.ErrLookup, err)
		}
		if _, ok := resolver.Lookup("invalid"); ok {
			t.Error("did not expect failed lookup to be cached")
		}
	})
	t.Run("credential errors keep their kind", func(t *testing.T) {
		resolver := NewResolver(&mockCoder{}, testLogger(), nil)
		_, err := resolver.Resolve(t.Context(), "no.key.set")
		if !errors.Is(err, fault.ErrCredentialMissing) {
			t.Errorf("expected error to be %s, got %v", fault.ErrCredentialMissing, err)
		}
		if errors.Is(err, fault.ErrLookup) {
			t.Errorf("did not expect error to be %s", fault.ErrLookup)
		}
	})
	t.Run("concurrent resolutions of the same id perform a single lookup", func(t *testing.T) {
		coder := &mockCoder{delay: 50 * time.Millisecond}
		resolver := NewResolver(coder, testLogger(), nil)
		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := resolver.Resolve(t.Context(), "index.home.raft"); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Error(err)
		}
		if coder.calls.Load() != 1 {
			t.Errorf("expected 1 geocoder call, got %d", coder.calls.Load())
		}
	})
}

func TestResolver_Seed(t *testing.T) {
	t.Run("seeding never overwrites a known entry", func(t *testing.T) {
		resolver := NewResolver(&mockCoder{}, testLogger(), nil)
		if _, err := resolver.Resolve(t.Context(), "index.home.raft"); err != nil {
			t.Fatal(err)
		}
		resolver.Seed(map[ID]Coordinate{"index.home.raft": {Lat: 0, Lon: 0}})
		coords, _ := resolver.Lookup("index.home.raft")
		if coords != testCoords {
			t.Errorf("expected coordinates to stay %s, got %s", testCoords, coords)
		}
	})
}

func TestResolver_Entries(t *testing.T) {
	t.Run("entries returns a copy", func(t *testing.T) {
		resolver := NewResolver(&mockCoder{}, testLogger(), nil)
		resolver.Seed(map[ID]Coordinate{"index.home.raft": testCoords})
		entries := resolver.Entries()
		delete(entries, "index.home.raft")
		if resolver.Len() != 1 {
			t.Error("expected modifications of the copy not to affect the resolver")
		}
	})
}
