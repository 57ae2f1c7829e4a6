// Package atomicfile persists files by writing to a temp file and renaming it
// over the target, so a concurrent reader sees either the old contents or the
// new, never a torn write.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// WriteFile replaces the file at path with data. The data is staged in a
// temporary file in the same directory, synced, and renamed into place.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, base+"-*.tmp")
	if err != nil {
		return fmt.Errorf("staging %s: %w", base, err)
	}
	// no-op once the rename has happened
	defer os.Remove(tmp.Name())

	if err := stage(tmp, data, perm); err != nil {
		tmp.Close()
		return fmt.Errorf("staging %s: %w", base, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("staging %s: %w", base, err)
	}
	if runtime.GOOS == "windows" {
		// renaming onto an existing file fails on Windows
		_ = os.Remove(path)
	}
	return os.Rename(tmp.Name(), path)
}

func stage(f *os.File, data []byte, perm os.FileMode) error {
	if _, err := f.Write(data); err != nil {
		return err
	}
	// CreateTemp opens 0600; adjust to what the caller asked for. Windows has
	// no meaningful chmod here.
	if runtime.GOOS != "windows" {
		if err := f.Chmod(perm); err != nil {
			return err
		}
	}
	return f.Sync()
}

// ReadFile reads the file at path. Reading needs no atomicity tricks; the
// helper keeps both directions of settings I/O in one place.
func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
