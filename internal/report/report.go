// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package report renders human-readable listings of resolved locations.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/wneessen/map-prep/internal/geocode"
)

const columnGap = 2

// Locations writes a table of all entries sorted by their what3words address. Columns are
// aligned by display width.
func Locations(w io.Writer, entries map[geocode.ID]geocode.Coordinate) error {
	ids := make([]geocode.ID, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	rows := make([][3]string, 0, len(ids)+1)
	rows = append(rows, [3]string{"WHAT3WORDS", "LATITUDE", "LONGITUDE"})
	for _, id := range ids {
		coords := entries[id]
		rows = append(rows, [3]string{
			string(id),
			fmt.Sprintf("%.6f", coords.Lat),
			fmt.Sprintf("%.6f", coords.Lon),
		})
	}

	var widths [3]int
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	for _, row := range rows {
		line := strings.Builder{}
		for i, cell := range row {
			if i == len(row)-1 {
				line.WriteString(cell)
				break
			}
			line.WriteString(runewidth.FillRight(cell, widths[i]+columnGap))
		}
		if _, err := fmt.Fprintln(w, line.String()); err != nil {
			return fmt.Errorf("failed to write location listing: %w", err)
		}
	}
	return nil
}
