// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ID is a what3words address like "index.home.raft". It is used verbatim as cache key.
type ID string

// Coordinate represents a resolved geographic coordinate in WGS84 degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Geocoder converts a what3words address into a coordinate.
type Geocoder interface {
	Name() string
	Convert(ctx context.Context, id ID) (Coordinate, error)
}

// Valid checks if the coordinate is finite and within the EPSG:4326 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// String returns the coordinate in the "lat,lon" notation used by most map APIs.
func (c Coordinate) String() string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lon)
}

// MarshalYAML stores the coordinate as a two element [lat, lon] flow sequence.
func (c Coordinate) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, val := range []float64{c.Lat, c.Lon} {
		item := new(yaml.Node)
		if err := item.Encode(val); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, item)
	}
	return node, nil
}

// UnmarshalYAML reads a coordinate from a two element [lat, lon] sequence.
func (c *Coordinate) UnmarshalYAML(value *yaml.Node) error {
	var pair []float64
	if err := value.Decode(&pair); err != nil {
		return fmt.Errorf("line %d: coordinate must be a [lat, lon] sequence: %w", value.Line, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: coordinate must have exactly 2 values, got %d", value.Line, len(pair))
	}
	coord := Coordinate{Lat: pair[0], Lon: pair[1]}
	if !coord.Valid() {
		return fmt.Errorf("line %d: coordinate %s is out of range", value.Line, coord)
	}
	*c = coord
	return nil
}
