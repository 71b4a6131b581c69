// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"errors"
	"maps"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/wneessen/map-prep/internal/fault"
	"github.com/wneessen/map-prep/internal/logger"
)

// Recorder receives cache hit and miss events. It is satisfied by *metrics.Metrics.
type Recorder interface {
	LookupHit()
	LookupMiss()
}

type nopRecorder struct{}

func (nopRecorder) LookupHit()  {}
func (nopRecorder) LookupMiss() {}

// Resolver resolves what3words addresses into coordinates. Resolved coordinates are kept
// for the lifetime of the Resolver and are never replaced, so a Resolver seeded from a
// persisted cache only ever grows it.
type Resolver struct {
	coder    Geocoder
	logger   *logger.Logger
	recorder Recorder

	mu       sync.RWMutex
	cache    map[ID]Coordinate
	inflight singleflight.Group
}

func NewResolver(coder Geocoder, log *logger.Logger, recorder Recorder) *Resolver {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Resolver{
		coder:    coder,
		logger:   log,
		recorder: recorder,
		cache:    make(map[ID]Coordinate),
	}
}

func (r *Resolver) Name() string {
	return "location cache using " + r.coder.Name()
}

// Seed adds previously persisted entries. Entries already known to the Resolver are kept.
func (r *Resolver) Seed(entries map[ID]Coordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, coords := range entries {
		if _, ok := r.cache[id]; !ok {
			r.cache[id] = coords
		}
	}
}

// Lookup returns the cached coordinate for id without calling the geocoder.
func (r *Resolver) Lookup(id ID) (Coordinate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	coords, ok := r.cache[id]
	return coords, ok
}

// Entries returns a copy of all known entries.
func (r *Resolver) Entries() map[ID]Coordinate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.cache)
}

// Len returns the number of known entries.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Resolve returns the coordinate for id. The geocoder is only consulted on a cache miss and
// at most one lookup per id is in flight at any time; concurrent callers share its result.
func (r *Resolver) Resolve(ctx context.Context, id ID) (Coordinate, error) {
	if coords, ok := r.Lookup(id); ok {
		r.recorder.LookupHit()
		r.logger.Debug("location cache hit", "what3words", string(id))
		return coords, nil
	}

	result, err, _ := r.inflight.Do(string(id), func() (any, error) {
		// Another caller may have completed the lookup between our check and Do.
		if coords, ok := r.Lookup(id); ok {
			return coords, nil
		}

		r.recorder.LookupMiss()
		r.logger.Info("looking up missing location", "what3words", string(id), "geocoder", r.coder.Name())
		coords, err := r.coder.Convert(ctx, id)
		if err != nil {
			return Coordinate{}, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.cache[id]; ok {
			return existing, nil
		}
		r.cache[id] = coords
		return coords, nil
	})
	if err != nil {
		if errors.Is(err, fault.ErrCredentialMissing) || errors.Is(err, fault.ErrLookup) {
			return Coordinate{}, err
		}
		return Coordinate{}, fault.New(fault.ErrLookup, "resolve", string(id), err)
	}
	return result.(Coordinate), nil
}
