// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package mapspec reads map specifications from YAML files. A file may contain any number of
// YAML documents, each describing one map.
package mapspec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wneessen/map-prep/internal/geocode"
)

// FileExt is the extension of map specification files.
const FileExt = ".yaml"

// Map describes a single map: the pair of what3words addresses that must be visible and the
// labeled points of interest drawn onto it.
type Map struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	From      geocode.ID `yaml:"from"`
	To        geocode.ID `yaml:"to"`
	Locations []Location `yaml:"locations"`
}

// Location is a point of interest on a map.
type Location struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Point       geocode.ID `yaml:"pt"`
	Description string     `yaml:"description,omitempty"`
}

// GeocodeIDs returns every what3words address the map references: from, to and the point of
// every location, in that order. Duplicates are kept.
func (m Map) GeocodeIDs() []geocode.ID {
	ids := make([]geocode.ID, 0, len(m.Locations)+2)
	ids = append(ids, m.From, m.To)
	for _, loc := range m.Locations {
		ids = append(ids, loc.Point)
	}
	return ids
}

// Validate checks that all required fields are set.
func (m Map) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("map id is required")
	}
	if strings.ContainsAny(m.ID, `/\`) {
		return fmt.Errorf("map id %q must not contain path separators", m.ID)
	}
	if m.From == "" {
		return fmt.Errorf("map %q: from is required", m.ID)
	}
	if m.To == "" {
		return fmt.Errorf("map %q: to is required", m.ID)
	}
	for i, loc := range m.Locations {
		if loc.Point == "" {
			return fmt.Errorf("map %q: location %d (%q) has no pt", m.ID, i, loc.ID)
		}
	}
	return nil
}

// Decode reads all map documents from r.
func Decode(r io.Reader) ([]Map, error) {
	var maps []Map
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	for {
		var m Map
		err := decoder.Decode(&m)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode map document %d: %w", len(maps)+1, err)
		}
		if err = m.Validate(); err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, nil
}

// LoadFile reads all maps of a single file.
func LoadFile(path string) ([]Map, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map file %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	maps, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load map file %q: %w", path, err)
	}
	return maps, nil
}

// LoadDir reads all maps of the *.yaml files in dir, in file name order. Map ids must be
// unique across the directory since they name the output files.
func LoadDir(dir string) ([]Map, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+FileExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list map files in %q: %w", dir, err)
	}
	if _, err = os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to read map directory: %w", err)
	}
	slices.Sort(files)

	var maps []Map
	seen := make(map[string]string)
	for _, file := range files {
		loaded, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		for _, m := range loaded {
			if other, ok := seen[m.ID]; ok {
				return nil, fmt.Errorf("duplicate map id %q in %q and %q", m.ID, other, file)
			}
			seen[m.ID] = file
		}
		maps = append(maps, loaded...)
	}
	return maps, nil
}
