// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package builder turns map specifications into published static map images. A build run
// resolves every referenced what3words address, fits a canvas around the points of
// interest of each map, downloads the rendered map through the download cache and hands
// the result to a publisher.
package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wneessen/map-prep/internal/download"
	"github.com/wneessen/map-prep/internal/fault"
	"github.com/wneessen/map-prep/internal/geocode"
	"github.com/wneessen/map-prep/internal/locstore"
	"github.com/wneessen/map-prep/internal/logger"
	"github.com/wneessen/map-prep/internal/mapspec"
	"github.com/wneessen/map-prep/internal/staticmap"
	"github.com/wneessen/map-prep/internal/viewport"
)

// DefaultWorkers is the number of concurrent location lookups if none is configured.
const DefaultWorkers = 4

// Publisher places a downloaded map at its final location.
type Publisher interface {
	Publish(id, src string) (string, error)
}

// Recorder receives per map build outcomes. It is satisfied by *metrics.Metrics.
type Recorder interface {
	MapBuilt()
	MapFailed()
}

type nopRecorder struct{}

func (nopRecorder) MapBuilt()  {}
func (nopRecorder) MapFailed() {}

// Config holds the settings of a Builder.
type Config struct {
	MapsKey         string
	Workers         int
	ContinueOnError bool
}

// Builder runs map builds. It is safe to call Run repeatedly; the Resolver and the download
// cache carry their state across runs.
type Builder struct {
	config    Config
	resolver  *geocode.Resolver
	store     locstore.Store
	cache     *download.Cache
	publisher Publisher
	logger    *logger.Logger
	recorder  Recorder
}

// Result describes a successfully built map.
type Result struct {
	ID       string
	Size     viewport.CanvasSize
	Download string
	Output   string
}

// BuildError lists the maps that failed in a run that continues past failing maps.
type BuildError struct {
	Failed []string
	Errs   []error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to build %d map(s): %s", len(e.Failed), strings.Join(e.Failed, ", "))
}

func (e *BuildError) Unwrap() []error {
	return e.Errs
}

func New(config Config, resolver *geocode.Resolver, store locstore.Store, cache *download.Cache,
	publisher Publisher, log *logger.Logger, recorder Recorder,
) *Builder {
	if config.Workers < 1 {
		config.Workers = DefaultWorkers
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Builder{
		config:    config,
		resolver:  resolver,
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    log,
		recorder:  recorder,
	}
}

// Run builds all maps. Every referenced address is resolved before the first map is
// planned; a resolution failure aborts the run. Map failures abort the run as well, unless
// ContinueOnError is set, in which case a *BuildError lists the failed maps.
func (b *Builder) Run(ctx context.Context, maps []mapspec.Map) ([]Result, error) {
	if b.config.MapsKey == "" {
		return nil, fault.New(fault.ErrCredentialMissing, "build maps", "",
			errors.New("no Google Maps API key configured"))
	}
	if err := b.Resolve(ctx, maps); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(maps))
	buildErr := &BuildError{}
	for _, spec := range maps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := b.build(ctx, spec)
		if err != nil {
			b.recorder.MapFailed()
			b.logger.Error("failed to build map", "map", spec.ID, logger.Err(err))
			if !b.config.ContinueOnError {
				return results, fmt.Errorf("failed to build map %q: %w", spec.ID, err)
			}
			buildErr.Failed = append(buildErr.Failed, spec.ID)
			buildErr.Errs = append(buildErr.Errs, err)
			continue
		}
		b.recorder.MapBuilt()
		b.logger.Info("map built", "map", spec.ID, "size", result.Size.String(), "output", result.Output)
		results = append(results, result)
	}
	if len(buildErr.Failed) > 0 {
		return results, buildErr
	}
	return results, nil
}

// Resolve loads the persisted locations and resolves every address referenced by maps.
// The location store is saved once all lookups have returned, including the lookups that
// completed before a failure.
func (b *Builder) Resolve(ctx context.Context, maps []mapspec.Map) error {
	entries, err := b.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load location cache: %w", err)
	}
	b.resolver.Seed(entries)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.config.Workers)
	for _, id := range distinctIDs(maps) {
		group.Go(func() error {
			_, err := b.resolver.Resolve(groupCtx, id)
			return err
		})
	}
	resolveErr := group.Wait()

	if err = b.store.Save(ctx, b.resolver.Entries()); err != nil {
		return errors.Join(resolveErr, fmt.Errorf("failed to save location cache: %w", err))
	}
	b.logger.Debug("location cache saved", "entries", b.resolver.Len())
	if resolveErr != nil {
		return fmt.Errorf("failed to resolve locations: %w", resolveErr)
	}
	return nil
}

func (b *Builder) build(ctx context.Context, spec mapspec.Map) (Result, error) {
	from, err := b.coordinate(spec.From)
	if err != nil {
		return Result{}, err
	}
	to, err := b.coordinate(spec.To)
	if err != nil {
		return Result{}, err
	}

	points := make([]geocode.Coordinate, 0, len(spec.Locations))
	markers := make([]staticmap.Marker, 0, len(spec.Locations))
	for _, location := range spec.Locations {
		point, err := b.coordinate(location.Point)
		if err != nil {
			return Result{}, err
		}
		label, err := staticmap.Label(location.Title)
		if err != nil {
			return Result{}, fmt.Errorf("failed to label location %q: %w", location.ID, err)
		}
		points = append(points, point)
		markers = append(markers, staticmap.Marker{Location: point, Label: label})
	}

	_, size, err := viewport.Plan(points)
	if err != nil {
		return Result{}, err
	}

	staticMap := staticmap.New(b.config.MapsKey, size)
	staticMap.Visible = []geocode.Coordinate{from, to}
	staticMap.Markers = markers
	source, err := staticMap.URL()
	if err != nil {
		return Result{}, err
	}

	path, err := b.cache.FetchOrGet(ctx, spec.ID, source)
	if err != nil {
		return Result{}, err
	}
	output, err := b.publisher.Publish(spec.ID, path)
	if err != nil {
		return Result{}, err
	}
	return Result{ID: spec.ID, Size: size, Download: path, Output: output}, nil
}

func (b *Builder) coordinate(id geocode.ID) (geocode.Coordinate, error) {
	coords, ok := b.resolver.Lookup(id)
	if !ok {
		return geocode.Coordinate{}, fault.New(fault.ErrLookup, "build map", string(id),
			errors.New("location has not been resolved"))
	}
	return coords, nil
}

// distinctIDs returns every address referenced by maps once, in order of first reference.
func distinctIDs(maps []mapspec.Map) []geocode.ID {
	seen := make(map[geocode.ID]struct{})
	ids := make([]geocode.ID, 0)
	for _, spec := range maps {
		for _, id := range spec.GeocodeIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
