// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package viewport fits a set of coordinates into a pixel canvas that keeps the aspect
// ratio of their bounding box.
package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/wneessen/map-prep/internal/fault"
	"github.com/wneessen/map-prep/internal/geocode"
)

// MaxEdge is the largest single edge in pixels the static map provider accepts.
const MaxEdge = 2500

// BoundingBox is the smallest rectangle in degrees that contains all planned points.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Width returns the longitude span in degrees.
func (b BoundingBox) Width() float64 {
	return b.MaxLon - b.MinLon
}

// Height returns the latitude span in degrees.
func (b BoundingBox) Height() float64 {
	return b.MaxLat - b.MinLat
}

// CanvasSize is the pixel size of the requested map image.
type CanvasSize struct {
	Width  int
	Height int
}

func (c CanvasSize) String() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// Bounds returns the bounding box of the given points.
func Bounds(points []geocode.Coordinate) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, fault.New(fault.ErrInsufficientPoints, "plan viewport", "",
			errors.New("a bounding box requires at least one point"))
	}
	box := BoundingBox{
		MinLat: math.MaxFloat64,
		MaxLat: -math.MaxFloat64,
		MinLon: math.MaxFloat64,
		MaxLon: -math.MaxFloat64,
	}
	for _, point := range points {
		box.MinLon = math.Min(box.MinLon, point.Lon)
		box.MaxLon = math.Max(box.MaxLon, point.Lon)
		box.MinLat = math.Min(box.MinLat, point.Lat)
		box.MaxLat = math.Max(box.MaxLat, point.Lat)
	}
	return box, nil
}

// Plan computes the bounding box of points and a canvas whose longer edge is MaxEdge and
// whose shorter edge follows the width to height ratio of the box, truncated to whole pixels.
// Boxes without extent on either axis cannot be fitted and yield fault.ErrDegenerateViewport.
func Plan(points []geocode.Coordinate) (BoundingBox, CanvasSize, error) {
	box, err := Bounds(points)
	if err != nil {
		return box, CanvasSize{}, err
	}

	width, height := box.Width(), box.Height()
	if height == 0 || width == 0 {
		return box, CanvasSize{}, fault.New(fault.ErrDegenerateViewport, "plan viewport", "",
			fmt.Errorf("bounding box spans %g° x %g°", width, height))
	}
	ratio := width / height
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return box, CanvasSize{}, fault.New(fault.ErrDegenerateViewport, "plan viewport", "",
			fmt.Errorf("bounding box has a non-finite aspect ratio %g", ratio))
	}

	var size CanvasSize
	if ratio > 1 {
		// landscape
		size = CanvasSize{Width: MaxEdge, Height: int(MaxEdge / ratio)}
	} else {
		// portrait
		size = CanvasSize{Width: int(MaxEdge * ratio), Height: MaxEdge}
	}
	if size.Width < 1 || size.Height < 1 {
		return box, CanvasSize{}, fault.New(fault.ErrDegenerateViewport, "plan viewport", "",
			fmt.Errorf("canvas %s is too narrow for aspect ratio %g", size, ratio))
	}
	return box, size, nil
}
