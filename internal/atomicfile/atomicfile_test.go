// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteBytes(t *testing.T) {
	t.Run("writing a file succeeds", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "file.txt")
		if err := WriteBytes(path, []byte("content")); err != nil {
			t.Fatalf("failed to write file: %s", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read file: %s", err)
		}
		if string(data) != "content" {
			t.Errorf("expected file content to be %q, got %q", "content", string(data))
		}
	})
	t.Run("writing replaces an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := WriteBytes(path, []byte("new")); err != nil {
			t.Fatalf("failed to write file: %s", err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "new" {
			t.Errorf("expected file content to be %q, got %q", "new", string(data))
		}
	})
}

func TestWrite(t *testing.T) {
	t.Run("a failing writer leaves no file behind", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "file.txt")
		if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
		wantErr := errors.New("intentionally failing")
		err := Write(path, func(w io.Writer) error {
			_, _ = w.Write([]byte("partial"))
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected error to be %s, got %v", wantErr, err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "old" {
			t.Errorf("expected previous content to be kept, got %q", string(data))
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("expected temporary file to be removed, got %d directory entries", len(entries))
		}
	})
	t.Run("an unwritable directory fails", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "blocker")
		if err := os.WriteFile(blocker, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		if err := WriteBytes(filepath.Join(blocker, "file.txt"), []byte("x")); err == nil {
			t.Error("expected write to fail")
		}
	})
}
