// Package osfilesystem implements ports.FileSystem on the local disk.
package osfilesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/h264play/pkg/ports"
)

// FileSystem implements ports.FileSystem using the os package. Writes go
// through a temporary file in the target directory and are renamed into
// place, so readers never observe a partially written sheet or report.
type FileSystem struct{}

// New creates a new FileSystem.
func New() *FileSystem {
	return &FileSystem{}
}

// ReadFile reads the entire contents of a file.
func (f *FileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile replaces path with data, creating parent directories.
func (f *FileSystem) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

// MkdirAll creates a directory and all parent directories.
func (f *FileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists checks if a file or directory exists.
func (f *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Remove deletes a file or empty directory.
func (f *FileSystem) Remove(path string) error {
	return os.Remove(path)
}

var _ ports.FileSystem = (*FileSystem)(nil)
