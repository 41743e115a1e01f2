// Package atomicfile writes files the way the archiver needs them
// written: either to disk in full or not at all, never half-written.
// It generalizes the temp-file-then-rename idiom used throughout CT log
// storage implementations for checkpoints and tiles.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write creates dir (ignoring an already-exists conflict) and writes
// data to path atomically: it writes to path+".temp" first, syncs, then
// renames over the destination. A crash leaves either the old contents
// or nothing — never a partial file.
func Write(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := MkdirAll(dir); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}

	tmp := path + ".temp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating temp file %q: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing temp file %q: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing temp file %q: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp file %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %q to %q: %w", tmp, path, err)
	}
	return nil
}

// MkdirAll creates dir and any missing parents, tolerating the
// already-exists race between a listing and a create that every
// component in this archiver relies on.
func MkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
		return err
	}
	return nil
}
