// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package what3words

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wneessen/map-prep/internal/fault"
	"github.com/wneessen/map-prep/internal/geocode"
	"github.com/wneessen/map-prep/internal/http"
)

// https://developer.what3words.com/public-api/docs#convert-to-coords
const (
	APIEndpoint = "https://api.what3words.com/v3/convert-to-coordinates"
	APITimeout  = time.Second * 10
	name        = "what3words"
)

type What3Words struct {
	apikey  string
	http    *http.Client
	timeout time.Duration
}

type Response struct {
	Coordinates *Coordinates `json:"coordinates"`
	Words       string       `json:"words"`
	Error       *APIError    `json:"error"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New returns a what3words geocoder. A zero timeout falls back to APITimeout.
func New(client *http.Client, apikey string, timeout time.Duration) *What3Words {
	if timeout <= 0 {
		timeout = APITimeout
	}
	return &What3Words{
		apikey:  apikey,
		http:    client,
		timeout: timeout,
	}
}

func (w *What3Words) Name() string {
	return name
}

// Convert converts a what3words address into a coordinate.
func (w *What3Words) Convert(ctx context.Context, id geocode.ID) (geocode.Coordinate, error) {
	if w.apikey == "" {
		return geocode.Coordinate{}, fault.New(fault.ErrCredentialMissing, "resolve", string(id),
			errors.New("no what3words API key configured"))
	}
	words := strings.TrimSpace(string(id))
	if words == "" {
		return geocode.Coordinate{}, fault.New(fault.ErrLookup, "resolve", string(id),
			errors.New("empty what3words address"))
	}

	var response Response
	query := url.Values{}
	query.Set("words", words)
	query.Set("key", w.apikey)

	status, err := w.http.GetWithTimeout(ctx, APIEndpoint, &response, query, nil, w.timeout)
	if err != nil {
		return geocode.Coordinate{}, fault.New(fault.ErrLookup, "resolve", string(id),
			fmt.Errorf("failed to retrieve coordinates from what3words API: %w", err))
	}
	if response.Error != nil {
		return geocode.Coordinate{}, fault.New(fault.ErrLookup, "resolve", string(id),
			fmt.Errorf("what3words API returned %s: %s", response.Error.Code, response.Error.Message))
	}
	if status < 200 || status > 299 {
		return geocode.Coordinate{}, fault.New(fault.ErrLookup, "resolve", string(id),
			fmt.Errorf("what3words API returned HTTP status %d", status))
	}
	if response.Coordinates == nil {
		return geocode.Coordinate{}, fault.New(fault.ErrLookup, "resolve", string(id),
			errors.New("what3words API response contains no coordinates"))
	}

	coords := geocode.Coordinate{Lat: response.Coordinates.Lat, Lon: response.Coordinates.Lon}
	if !coords.Valid() {
		return geocode.Coordinate{}, fault.New(fault.ErrLookup, "resolve", string(id),
			fmt.Errorf("what3words API returned invalid coordinates %s", coords))
	}
	return coords, nil
}
