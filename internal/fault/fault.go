// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package fault defines the failure kinds reported by the map build pipeline. Every error
// returned by the core packages matches exactly one of the sentinel kinds via errors.Is.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialMissing is returned when an API key required for a network call is not configured.
	ErrCredentialMissing = errors.New("credential missing")

	// ErrLookup is returned when a what3words address cannot be converted into coordinates.
	ErrLookup = errors.New("lookup failure")

	// ErrCacheCorrupt is returned when a persisted location cache exists but cannot be parsed.
	ErrCacheCorrupt = errors.New("location cache corrupt")

	// ErrInsufficientPoints is returned when a viewport is planned without any point.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrDegenerateViewport is returned when the bounding box has no extent on one of its axes.
	ErrDegenerateViewport = errors.New("degenerate viewport")

	// ErrInvalidMarkerLabel is returned when no marker label can be derived from a point title.
	ErrInvalidMarkerLabel = errors.New("invalid marker label")

	// ErrDownload is returned when a remote resource could not be fetched.
	ErrDownload = errors.New("download failure")

	// ErrWrite is returned when a file could not be written to local disk.
	ErrWrite = errors.New("write failure")

	// ErrRead is returned when an existing local file could not be read.
	ErrRead = errors.New("read failure")
)

// Error carries the failed operation and the identifier it operated on.
type Error struct {
	// Op is the failed operation, e.g. "resolve" or "fetch".
	Op string
	// ID is the identifier the operation was performed for (geocode, map id, file path).
	ID string
	// Kind is one of the sentinel errors of this package.
	Kind error
	// Err is the underlying cause, may be nil.
	Err error
}

// New returns a new Error of the given kind.
func New(kind error, op, id string, err error) *Error {
	return &Error{Op: op, ID: id, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	msg := e.Op
	if e.ID != "" {
		msg = fmt.Sprintf("%s %q", e.Op, e.ID)
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns both the kind and the cause so errors.Is matches either of them.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
