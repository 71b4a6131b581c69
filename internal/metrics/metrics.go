// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package metrics counts location lookups and downloads of a build run. The counters can be
// written to a textfile for the Prometheus node exporter.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mapprep"

type Metrics struct {
	registry *prometheus.Registry

	lookups       *prometheus.CounterVec
	downloads     *prometheus.CounterVec
	downloadBytes prometheus.Counter
	maps          *prometheus.CounterVec
	lastRun       prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "location_cache",
			Name:      "lookups_total",
			Help:      "Total what3words resolutions by cache result",
		}, []string{"result"}),
		downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download_cache",
			Name:      "requests_total",
			Help:      "Total map downloads by cache result",
		}, []string{"result"}),
		downloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download_cache",
			Name:      "fetched_bytes_total",
			Help:      "Total bytes fetched from the static map provider",
		}),
		maps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "maps_total",
			Help:      "Total maps built by outcome",
		}, []string{"outcome"}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed build run",
		}),
	}
}

func (m *Metrics) LookupHit()  { m.lookups.WithLabelValues("hit").Inc() }
func (m *Metrics) LookupMiss() { m.lookups.WithLabelValues("miss").Inc() }

func (m *Metrics) DownloadCached() { m.downloads.WithLabelValues("cached").Inc() }

func (m *Metrics) DownloadFetched(bytes int64) {
	m.downloads.WithLabelValues("fetched").Inc()
	m.downloadBytes.Add(float64(bytes))
}

func (m *Metrics) MapBuilt()  { m.maps.WithLabelValues("success").Inc() }
func (m *Metrics) MapFailed() { m.maps.WithLabelValues("failure").Inc() }

// RunCompleted records the end of a build run.
func (m *Metrics) RunCompleted() { m.lastRun.SetToCurrentTime() }

// Registry returns the registry holding all counters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all counters in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
