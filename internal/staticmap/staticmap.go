// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package staticmap builds request URLs for the Google Maps Static API.
//
// https://developers.google.com/maps/documentation/maps-static/start
package staticmap

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wneessen/map-prep/internal/fault"
	"github.com/wneessen/map-prep/internal/geocode"
	"github.com/wneessen/map-prep/internal/viewport"
)

const (
	APIEndpoint = "https://maps.googleapis.com/maps/api/staticmap"

	FormatPNG        = "png"
	MapTypeSatellite = "satellite"
	// Scale2 doubles the pixel density of the returned image.
	Scale2 = 2
)

var upper = cases.Upper(language.Und)

// Marker is a labeled pin on the map.
type Marker struct {
	Location geocode.Coordinate
	Label    rune
}

// Map describes a single static map request.
type Map struct {
	Key     string
	Size    viewport.CanvasSize
	Scale   int
	Format  string
	MapType string
	Visible []geocode.Coordinate
	Markers []Marker
}

// New returns a PNG satellite map at scale 2, the style map-prep renders all maps in.
func New(key string, size viewport.CanvasSize) *Map {
	return &Map{
		Key:     key,
		Size:    size,
		Scale:   Scale2,
		Format:  FormatPNG,
		MapType: MapTypeSatellite,
	}
}

// Label derives a marker label from a point title. The API only accepts a single
// character out of [A-Z0-9], so the first character of the title is upper-cased as is.
func Label(title string) (rune, error) {
	if title == "" {
		return 0, fault.New(fault.ErrInvalidMarkerLabel, "derive marker label", title,
			errors.New("title is empty"))
	}
	first, _ := utf8.DecodeRuneInString(title)
	label, _ := utf8.DecodeRuneInString(upper.String(string(first)))
	if (label < 'A' || label > 'Z') && (label < '0' || label > '9') {
		return 0, fault.New(fault.ErrInvalidMarkerLabel, "derive marker label", title,
			fmt.Errorf("character %q is not a valid label, only A-Z and 0-9 are allowed", first))
	}
	return label, nil
}

// URL returns the request URL of the map.
func (m *Map) URL() (string, error) {
	if m.Key == "" {
		return "", fault.New(fault.ErrCredentialMissing, "build static map URL", "",
			errors.New("no Google Maps API key configured"))
	}
	if m.Size.Width < 1 || m.Size.Height < 1 {
		return "", fmt.Errorf("invalid map size: %s", m.Size)
	}

	query := url.Values{}
	query.Set("key", m.Key)
	query.Set("size", m.Size.String())
	if m.Scale > 0 {
		query.Set("scale", strconv.Itoa(m.Scale))
	}
	if m.Format != "" {
		query.Set("format", m.Format)
	}
	if m.MapType != "" {
		query.Set("maptype", m.MapType)
	}
	if len(m.Visible) > 0 {
		locations := make([]string, 0, len(m.Visible))
		for _, loc := range m.Visible {
			locations = append(locations, loc.String())
		}
		query.Set("visible", strings.Join(locations, "|"))
	}
	for _, marker := range m.Markers {
		query.Add("markers", fmt.Sprintf("label:%c|%s", marker.Label, marker.Location))
	}

	endpoint, err := url.Parse(APIEndpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}
