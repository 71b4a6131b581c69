// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv = "MAPPREP"

	What3WordsKeyEnv = "WHAT3WORDS_API_KEY"
	GoogleMapsKeyEnv = "GOOGLE_MAPS_API_KEY"

	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// Config represents the application's configuration structure.
type Config struct {
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Paths struct {
		MapDir       string `fig:"map_dir" default:"maps"`
		LocationFile string `fig:"location_file" default:"locations.yaml"`
		DownloadDir  string `fig:"download_dir" default:"downloads"`
		OutputDir    string `fig:"output_dir" default:"public"`
	} `fig:"paths"`

	// Empty keys fall back to WHAT3WORDS_API_KEY and GOOGLE_MAPS_API_KEY
	Credentials struct {
		What3WordsKey string `fig:"what3words_key"`
		GoogleMapsKey string `fig:"google_maps_key"`
	} `fig:"credentials"`

	Timeouts struct {
		Geocode  time.Duration `fig:"geocode" default:"10s"`
		Download time.Duration `fig:"download" default:"60s"`
	} `fig:"timeouts"`

	Build struct {
		Workers         int  `fig:"workers" default:"4"`
		ContinueOnError bool `fig:"continue_on_error"`
	} `fig:"build"`

	Store struct {
		// Allowed values: yaml, sqlite
		Backend string `fig:"backend" default:"yaml"`
	} `fig:"store"`

	Metrics struct {
		Textfile string `fig:"textfile"`
	} `fig:"metrics"`

	Watch struct {
		// A zero interval builds once and exits
		Interval time.Duration `fig:"interval"`
	} `fig:"watch"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Paths.MapDir == "" || c.Paths.LocationFile == "" || c.Paths.DownloadDir == "" ||
		c.Paths.OutputDir == "" {
		return fmt.Errorf("map dir, location file, download dir and output dir must all be set")
	}
	if c.Credentials.What3WordsKey == "" {
		c.Credentials.What3WordsKey = os.Getenv(What3WordsKeyEnv)
	}
	if c.Credentials.GoogleMapsKey == "" {
		c.Credentials.GoogleMapsKey = os.Getenv(GoogleMapsKeyEnv)
	}
	if c.Timeouts.Geocode <= 0 {
		return fmt.Errorf("invalid geocode timeout: %s", c.Timeouts.Geocode)
	}
	if c.Timeouts.Download <= 0 {
		return fmt.Errorf("invalid download timeout: %s", c.Timeouts.Download)
	}
	if c.Build.Workers < 1 || c.Build.Workers > 64 {
		return fmt.Errorf("invalid number of build workers: %d", c.Build.Workers)
	}
	if c.Store.Backend != BackendYAML && c.Store.Backend != BackendSQLite {
		return fmt.Errorf("invalid location store backend: %s", c.Store.Backend)
	}
	if c.Watch.Interval < 0 {
		return fmt.Errorf("invalid watch interval: %s", c.Watch.Interval)
	}

	return nil
}
