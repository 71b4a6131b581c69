// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package download

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/wneessen/map-prep/internal/atomicfile"
	"github.com/wneessen/map-prep/internal/fault"
	"github.com/wneessen/map-prep/internal/http"
	"github.com/wneessen/map-prep/internal/logger"
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = time.Second * 60

// ErrEmptyBody is returned when the server answered with an empty body. No cache entry is
// created for it.
var ErrEmptyBody = errors.New("response body is empty")

// Recorder receives download events. It is satisfied by *metrics.Metrics.
type Recorder interface {
	DownloadCached()
	DownloadFetched(bytes int64)
}

type nopRecorder struct{}

func (nopRecorder) DownloadCached()         {}
func (nopRecorder) DownloadFetched(_ int64) {}

// Cache stores downloaded files under a name derived from a logical id and the source URL.
// Once a file exists it is returned as is, without any network access. Entries never
// expire; changing any part of the source URL yields a new entry.
type Cache struct {
	dir      string
	ext      string
	http     *http.Client
	logger   *logger.Logger
	recorder Recorder
	timeout  time.Duration
	inflight singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithTimeout sets the timeout of a single download.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Cache) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRecorder sets the recorder for download events.
func WithRecorder(recorder Recorder) Option {
	return func(c *Cache) {
		if recorder != nil {
			c.recorder = recorder
		}
	}
}

// New returns a Cache storing files with the extension ext in dir.
func New(dir, ext string, client *http.Client, log *logger.Logger, opts ...Option) *Cache {
	cache := &Cache{
		dir:      dir,
		ext:      ext,
		http:     client,
		logger:   log,
		recorder: nopRecorder{},
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// EntryPath returns the path of the cache entry for id and the source URL.
func (c *Cache) EntryPath(id string, source *url.URL) string {
	sum := xxhash.Sum64String(source.String())
	root := base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(sum, 10)))
	return filepath.Join(c.dir, fmt.Sprintf("%s-%s.%s", id, root, c.ext))
}

// FetchOrGet returns the local path of the resource at source. The resource is downloaded
// only if no entry for id and source exists yet. Concurrent calls for the same entry share a
// single download.
func (c *Cache) FetchOrGet(ctx context.Context, id, source string) (string, error) {
	if id == "" {
		return "", fault.New(fault.ErrDownload, "fetch", source, errors.New("logical id must not be empty"))
	}
	sourceURL, err := url.Parse(source)
	if err != nil {
		return "", fault.New(fault.ErrDownload, "fetch", id, fmt.Errorf("failed to parse URL: %w", err))
	}
	if !sourceURL.IsAbs() {
		return "", fault.New(fault.ErrDownload, "fetch", id, fmt.Errorf("URL %q is not absolute", source))
	}

	path := c.EntryPath(id, sourceURL)
	result, err, _ := c.inflight.Do(path, func() (any, error) {
		exists, err := fileExists(path)
		if err != nil {
			return "", fault.New(fault.ErrWrite, "fetch", path, err)
		}
		if exists {
			c.recorder.DownloadCached()
			c.logger.Debug("download cache hit", "id", id, "path", path)
			return path, nil
		}

		c.logger.Info("downloading missing file", "id", id, "path", path)
		var written int64
		err = atomicfile.Write(path, func(w io.Writer) error {
			var fetchErr error
			written, fetchErr = c.fetch(ctx, id, sourceURL.String(), w)
			return fetchErr
		})
		if err != nil {
			var ferr *fault.Error
			if errors.As(err, &ferr) {
				return "", err
			}
			return "", fault.New(fault.ErrWrite, "fetch", path, err)
		}
		c.recorder.DownloadFetched(written)
		c.logger.Info("download complete", "id", id, "path", path, "bytes", written)
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// fetch downloads source into w. Errors of w are reported as fault.ErrWrite, everything else
// as fault.ErrDownload, including an empty response body.
func (c *Cache) fetch(ctx context.Context, id, source string, w io.Writer) (int64, error) {
	dst := &diskWriter{w: w}
	written, err := c.http.Download(ctx, source, dst, c.timeout)
	if dst.err != nil {
		return written, fault.New(fault.ErrWrite, "fetch", id, dst.err)
	}
	if err != nil {
		return written, fault.New(fault.ErrDownload, "fetch", id, err)
	}
	if written == 0 {
		return 0, fault.New(fault.ErrDownload, "fetch", id, ErrEmptyBody)
	}
	return written, nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("%q exists but is not a regular file", path)
	}
	return true, nil
}

// diskWriter keeps the error of the underlying writer apart from errors of the response body.
type diskWriter struct {
	w   io.Writer
	err error
}

func (d *diskWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if err != nil && d.err == nil {
		d.err = err
	}
	return n, err
}
