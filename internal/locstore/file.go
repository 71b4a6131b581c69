// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package locstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wneessen/map-prep/internal/atomicfile"
	"github.com/wneessen/map-prep/internal/fault"
	"github.com/wneessen/map-prep/internal/geocode"
)

// File stores the location cache as a flat YAML mapping of what3words address to a
// [lat, lon] pair. Keys are written in sorted order so the file diffs cleanly under
// version control.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the location of the cache file.
func (f *File) Path() string {
	return f.path
}

// Load reads the cache file. A missing file yields an empty cache. A file that exists but
// cannot be parsed is reported as fault.ErrCacheCorrupt and must not be overwritten.
func (f *File) Load(ctx context.Context) (map[geocode.ID]geocode.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := make(map[geocode.ID]geocode.Coordinate)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fault.New(fault.ErrRead, "read location file", f.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}
	if err = yaml.Unmarshal(data, &entries); err != nil {
		return nil, fault.New(fault.ErrCacheCorrupt, "load location file", f.path,
			fmt.Errorf("failed to parse YAML, if this keeps failing try deleting the file: %w", err))
	}
	if entries == nil {
		entries = make(map[geocode.ID]geocode.Coordinate)
	}
	return entries, nil
}

// Save replaces the cache file with the given entries. The data is written to a temporary
// file next to the target and renamed over it, so the previous file stays intact until the
// new one is complete.
func (f *File) Save(ctx context.Context, entries map[geocode.ID]geocode.Coordinate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entries == nil {
		entries = make(map[geocode.ID]geocode.Coordinate)
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to serialize location cache: %w", err)
	}
	if err = atomicfile.WriteBytes(f.path, data); err != nil {
		return fault.New(fault.ErrWrite, "save location file", f.path, err)
	}
	return nil
}

func (f *File) Close() error {
	return nil
}
