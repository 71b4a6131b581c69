// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package publish copies built maps to their final location.
package publish

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wneessen/map-prep/internal/atomicfile"
	"github.com/wneessen/map-prep/internal/fault"
)

// Copier copies files into an output directory as {id}.{ext}.
type Copier struct {
	dir string
	ext string
}

func NewCopier(dir, ext string) *Copier {
	return &Copier{dir: dir, ext: ext}
}

// Publish copies src to the output directory and returns the destination path.
func (c *Copier) Publish(id, src string) (string, error) {
	dst := filepath.Join(c.dir, fmt.Sprintf("%s.%s", id, c.ext))
	source, err := os.Open(src)
	if err != nil {
		return "", fault.New(fault.ErrRead, "publish", id, fmt.Errorf("failed to open %q: %w", src, err))
	}
	defer func() { _ = source.Close() }()

	err = atomicfile.Write(dst, func(w io.Writer) error {
		if _, err := io.Copy(w, source); err != nil {
			return fmt.Errorf("failed to copy downloaded file into place: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", fault.New(fault.ErrWrite, "publish", id, err)
	}
	return dst, nil
}
