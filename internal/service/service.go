// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/wneessen/map-prep/internal/builder"
	"github.com/wneessen/map-prep/internal/config"
	"github.com/wneessen/map-prep/internal/geocode"
	"github.com/wneessen/map-prep/internal/logger"
	"github.com/wneessen/map-prep/internal/mapspec"
	"github.com/wneessen/map-prep/internal/metrics"
	"github.com/wneessen/map-prep/internal/report"
)

const rebuildJobName = "map_rebuild_job"

// Builder builds a set of maps.
type Builder interface {
	Run(ctx context.Context, maps []mapspec.Map) ([]builder.Result, error)
}

// Locations exposes the resolved locations for the listing printed after each build.
type Locations interface {
	Entries() map[geocode.ID]geocode.Coordinate
}

type Service struct {
	config    *config.Config
	builder   Builder
	locations Locations
	logger    *logger.Logger
	metrics   *metrics.Metrics
	output    io.Writer
	scheduler gocron.Scheduler
	signals   signalSource

	buildLock sync.Mutex
}

func New(conf *config.Config, build Builder, locations Locations, log *logger.Logger,
	stats *metrics.Metrics, output io.Writer,
) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	service := &Service{
		config:    conf,
		builder:   build,
		locations: locations,
		logger:    log,
		metrics:   stats,
		output:    output,
		scheduler: scheduler,
		signals:   stdLibSignalSource{},
	}
	return service, nil
}

// Run builds all maps once. With a watch interval configured, the maps are rebuilt on every
// tick and on SIGHUP until ctx is cancelled; failed builds are logged and retried on the
// next tick.
func (s *Service) Run(ctx context.Context) error {
	err := s.Build(ctx)
	if s.config.Watch.Interval <= 0 {
		return s.shutdown(err)
	}
	if err != nil {
		s.logger.Error("map build failed, retrying on next interval", logger.Err(err),
			slog.Duration("interval", s.config.Watch.Interval))
	}

	if err = s.createScheduledJob(ctx, s.config.Watch.Interval, s.rebuild, rebuildJobName); err != nil {
		return s.shutdown(err)
	}
	s.scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	s.signals.Notify(sigChan, syscall.SIGHUP)
	defer s.signals.Stop(sigChan)
	go s.HandleRebuildSignal(ctx, sigChan)

	s.logger.Info("watching maps for changes", slog.String("map_dir", s.config.Paths.MapDir),
		slog.Duration("interval", s.config.Watch.Interval))
	<-ctx.Done()
	return s.shutdown(nil)
}

// Build loads all map specifications and builds them.
func (s *Service) Build(ctx context.Context) error {
	s.buildLock.Lock()
	defer s.buildLock.Unlock()

	start := time.Now()
	maps, err := mapspec.LoadDir(s.config.Paths.MapDir)
	if err != nil {
		return fmt.Errorf("failed to load maps: %w", err)
	}
	s.logger.Info("loaded maps", slog.Int("count", len(maps)), slog.String("map_dir", s.config.Paths.MapDir))

	results, err := s.builder.Run(ctx, maps)
	if entries := s.locations.Entries(); len(entries) > 0 {
		if lerr := report.Locations(s.output, entries); lerr != nil {
			s.logger.Warn("failed to print location listing", logger.Err(lerr))
		}
	}
	for _, result := range results {
		if _, perr := fmt.Fprintf(s.output, "map: %s as %s\n", result.ID, result.Output); perr != nil {
			s.logger.Warn("failed to print map result", logger.Err(perr))
		}
	}
	s.writeMetrics()
	if err != nil {
		return err
	}

	s.logger.Info("build complete", slog.Int("maps", len(results)), slog.Duration("took", time.Since(start)))
	return nil
}

func (s *Service) rebuild(ctx context.Context) {
	if err := s.Build(ctx); err != nil {
		s.logger.Error("scheduled map build failed", logger.Err(err))
	}
}

func (s *Service) writeMetrics() {
	if s.metrics == nil {
		return
	}
	s.metrics.RunCompleted()
	if s.config.Metrics.Textfile == "" {
		return
	}
	if err := s.metrics.WriteTextfile(s.config.Metrics.Textfile); err != nil {
		s.logger.Warn("failed to write metrics", logger.Err(err))
	}
}

func (s *Service) shutdown(err error) error {
	if serr := s.scheduler.Shutdown(); serr != nil {
		s.logger.Warn("failed to shut down scheduler", logger.Err(serr))
	}
	return err
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}
