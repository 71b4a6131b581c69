// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package main implements the map-prep command.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wneessen/map-prep/internal/builder"
	"github.com/wneessen/map-prep/internal/config"
	"github.com/wneessen/map-prep/internal/download"
	"github.com/wneessen/map-prep/internal/geocode"
	"github.com/wneessen/map-prep/internal/geocode/provider/what3words"
	"github.com/wneessen/map-prep/internal/http"
	"github.com/wneessen/map-prep/internal/locstore"
	"github.com/wneessen/map-prep/internal/logger"
	"github.com/wneessen/map-prep/internal/metrics"
	"github.com/wneessen/map-prep/internal/publish"
	"github.com/wneessen/map-prep/internal/service"
	"github.com/wneessen/map-prep/internal/staticmap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	// Initialize Logger
	log := logger.New(slog.LevelError)

	confPath := flag.String("config", "", "path to the config file")
	mapDir := flag.String("map-dir", "", "the directory that contains your map yaml files")
	locationFile := flag.String("location-file", "", "the file that contains the location cache")
	downloadDir := flag.String("download-dir", "", "the directory to download maps to")
	outputDir := flag.String("output-dir", "", "the directory where the final maps will be written to")
	flag.Parse()

	conf, err := loadConfig(*confPath)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}
	overridePath(&conf.Paths.MapDir, *mapDir)
	overridePath(&conf.Paths.LocationFile, *locationFile)
	overridePath(&conf.Paths.DownloadDir, *downloadDir)
	overridePath(&conf.Paths.OutputDir, *outputDir)
	if err = conf.Validate(); err != nil {
		log.Error("invalid config", logger.Err(err))
		os.Exit(1)
	}

	log = logger.New(conf.LogLevel)
	log.Info("starting map-prep", slog.String("version", version), slog.String("commit", commit),
		slog.String("date", date))
	log.Info("using paths", slog.String("map_dir", conf.Paths.MapDir),
		slog.String("location_file", conf.Paths.LocationFile), slog.String("download_dir", conf.Paths.DownloadDir),
		slog.String("output_dir", conf.Paths.OutputDir))

	if err = createDirs(log, filepath.Dir(conf.Paths.LocationFile), conf.Paths.DownloadDir,
		conf.Paths.OutputDir); err != nil {
		log.Error("failed to create directories", logger.Err(err))
		os.Exit(1)
	}

	store, err := locstore.Open(conf.Store.Backend, conf.Paths.LocationFile)
	if err != nil {
		log.Error("failed to open location store", logger.Err(err))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close location store", logger.Err(err))
		}
	}()

	stats := metrics.New()
	client := http.New(log)
	resolver := geocode.NewResolver(what3words.New(client, conf.Credentials.What3WordsKey, conf.Timeouts.Geocode),
		log, stats)
	cache := download.New(conf.Paths.DownloadDir, staticmap.FormatPNG, client, log,
		download.WithTimeout(conf.Timeouts.Download), download.WithRecorder(stats))
	mapBuilder := builder.New(builder.Config{
		MapsKey:         conf.Credentials.GoogleMapsKey,
		Workers:         conf.Build.Workers,
		ContinueOnError: conf.Build.ContinueOnError,
	}, resolver, store, cache, publish.NewCopier(conf.Paths.OutputDir, staticmap.FormatPNG), log, stats)

	serv, err := service.New(conf, mapBuilder, resolver, log, stats, os.Stdout)
	if err != nil {
		log.Error("failed to initialize map-prep service", logger.Err(err))
		os.Exit(1)
	}
	if err = serv.Run(ctx); err != nil {
		log.Error("failed to build maps", logger.Err(err))
		cancel()
		_ = store.Close()
		os.Exit(1)
	}
	log.Info("shutting down map-prep")
}

func loadConfig(confPath string) (*config.Config, error) {
	// If config file was specified, read it
	if confPath != "" {
		return config.NewFromFile(filepath.Dir(confPath), filepath.Base(confPath))
	}

	// Check if we have a config file in the default location
	if path, file := findConfigFile(); path != "" && file != "" {
		return config.NewFromFile(path, file)
	}

	return config.New()
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "map-prep", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}

func overridePath(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func createDirs(log *logger.Logger, dirs ...string) error {
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
		log.Info("created missing directory", slog.String("dir", dir))
	}
	return nil
}
