// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package locstore persists the resolved what3words locations between runs. A store is
// loaded once at the start of a build and saved once at its end. Stores never drop a
// previously persisted entry.
package locstore

import (
	"context"
	"fmt"

	"github.com/wneessen/map-prep/internal/geocode"
)

const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// Store loads and saves the full location cache.
type Store interface {
	Load(ctx context.Context) (map[geocode.ID]geocode.Coordinate, error)
	Save(ctx context.Context, entries map[geocode.ID]geocode.Coordinate) error
	Close() error
}

// Open returns the store for the given backend, persisted at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendYAML, "":
		return NewFile(path), nil
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unsupported location store backend: %s", backend)
	}
}
