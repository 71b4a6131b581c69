// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/wneessen/map-prep/internal/builder"
	"github.com/wneessen/map-prep/internal/config"
	"github.com/wneessen/map-prep/internal/geocode"
	"github.com/wneessen/map-prep/internal/logger"
	"github.com/wneessen/map-prep/internal/mapspec"
	"github.com/wneessen/map-prep/internal/metrics"
)

func TestNew(t *testing.T) {
	t.Run("new service succeeds", func(t *testing.T) {
		if _, _, err := testService(t, nil); err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
	})
}

func TestService_Run(t *testing.T) {
	t.Run("a single build runs once and returns", func(t *testing.T) {
		build := &mockBuilder{}
		serv, buf, err := testService(t, build)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		if err = serv.Run(t.Context()); err != nil {
			t.Fatalf("failed to run service: %s", err)
		}
		if got := build.calls.Load(); got != 1 {
			t.Errorf("expected 1 build, got %d", got)
		}
		if got := build.lastMaps(); got != 2 {
			t.Errorf("expected 2 maps to be passed to the builder, got %d", got)
		}
		if !strings.Contains(buf.String(), "index.home.raft") {
			t.Errorf("expected output to list resolved locations, got %q", buf.String())
		}
		if !strings.Contains(buf.String(), "map: hyde-park as public/hyde-park.png") {
			t.Errorf("expected output to list built maps, got %q", buf.String())
		}
	})
	t.Run("a failed single build returns the error", func(t *testing.T) {
		build := &mockBuilder{shouldFail: true}
		serv, _, err := testService(t, build)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		if err = serv.Run(t.Context()); err == nil {
			t.Fatal("expected service to fail")
		}
	})
	t.Run("a missing map dir fails", func(t *testing.T) {
		build := &mockBuilder{}
		serv, _, err := testService(t, build)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		serv.config.Paths.MapDir = filepath.Join(t.TempDir(), "missing")
		err = serv.Run(t.Context())
		if err == nil {
			t.Fatal("expected service to fail")
		}
		if !strings.Contains(err.Error(), "failed to load maps") {
			t.Errorf("expected error to mention the map loading, got %q", err)
		}
		if got := build.calls.Load(); got != 0 {
			t.Errorf("expected no build, got %d", got)
		}
	})
	t.Run("watch mode rebuilds until the context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		build := &mockBuilder{shouldFail: true}
		serv, _, err := testService(t, build)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		serv.config.Watch.Interval = time.Millisecond * 20

		done := make(chan error, 1)
		go func() { done <- serv.Run(ctx) }()

		deadline := time.Now().Add(time.Second * 5)
		for build.calls.Load() < 3 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond * 10)
		}
		cancel()
		if err = <-done; err != nil {
			t.Errorf("expected watch mode to shut down cleanly, got %s", err)
		}
		if got := build.calls.Load(); got < 3 {
			t.Errorf("expected at least 3 builds, got %d", got)
		}
	})
	t.Run("metrics are written after a build", func(t *testing.T) {
		serv, _, err := testService(t, &mockBuilder{})
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		serv.config.Metrics.Textfile = filepath.Join(t.TempDir(), "map-prep.prom")
		if err = serv.Run(t.Context()); err != nil {
			t.Fatalf("failed to run service: %s", err)
		}
		data, err := os.ReadFile(serv.config.Metrics.Textfile)
		if err != nil {
			t.Fatalf("failed to read metrics textfile: %s", err)
		}
		if !strings.Contains(string(data), "mapprep_build_last_run_timestamp_seconds") {
			t.Errorf("expected metrics textfile to contain the last run, got %q", string(data))
		}
	})
}

func TestService_HandleRebuildSignal(t *testing.T) {
	t.Run("HUP signal rebuilds the maps", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		build := &mockBuilder{}
		serv, _, err := testService(t, build)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		logBuf := &syncBuffer{buf: bytes.NewBuffer(nil)}
		serv.logger = logger.NewLogger(slog.LevelInfo, logBuf)
		sigChan := make(chan os.Signal, 1)
		serv.signals.Notify(sigChan, syscall.SIGHUP)
		go func() {
			defer serv.signals.Stop(sigChan)
			serv.HandleRebuildSignal(ctx, sigChan)
		}()

		sigChan <- syscall.SIGHUP
		time.Sleep(time.Millisecond * 100)
		if got := build.calls.Load(); got != 1 {
			t.Errorf("expected 1 build, got %d", got)
		}
		wantLog := `msg="rebuild requested by signal"`
		if !strings.Contains(logBuf.String(), wantLog) {
			t.Errorf("expected log to contain %q, got %q", wantLog, logBuf.String())
		}
		cancel()
		time.Sleep(time.Millisecond * 100)
	})
}

type (
	mockBuilder struct {
		shouldFail bool
		calls      atomic.Int32
		maps       atomic.Int32
	}
	mockLocations struct{}
	syncBuffer    struct {
		mu  sync.Mutex
		buf *bytes.Buffer
	}
)

func (m *mockBuilder) Run(_ context.Context, maps []mapspec.Map) ([]builder.Result, error) {
	m.calls.Add(1)
	m.maps.Store(int32(len(maps)))
	if m.shouldFail {
		return nil, errors.New("intentionally failing")
	}
	results := make([]builder.Result, 0, len(maps))
	for _, spec := range maps {
		results = append(results, builder.Result{ID: spec.ID, Output: fmt.Sprintf("public/%s.png", spec.ID)})
	}
	return results, nil
}

func (m *mockBuilder) lastMaps() int {
	return int(m.maps.Load())
}

func (mockLocations) Entries() map[geocode.ID]geocode.Coordinate {
	return map[geocode.ID]geocode.Coordinate{"index.home.raft": {Lat: 51.520847, Lon: -0.195521}}
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func testService(t *testing.T, build Builder) (*Service, *syncBuffer, error) {
	t.Helper()
	conf, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	conf.Paths.MapDir = "../../testdata/maps"
	if build == nil {
		build = &mockBuilder{}
	}
	buf := &syncBuffer{buf: bytes.NewBuffer(nil)}
	serv, err := New(conf, build, mockLocations{}, logger.NewLogger(slog.LevelDebug, io.Discard),
		metrics.New(), buf)
	return serv, buf, err
}
