package summarizer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/user/h264play/pkg/ports"
)

// Writer saves formatted reports through a ports.FileSystem.
type Writer struct {
	formatter Formatter
	ext       string
	fs        ports.FileSystem
}

// NewWriter returns a Writer producing files with the given extension
// (without the dot) from formatter.
func NewWriter(formatter Formatter, ext string, fs ports.FileSystem) *Writer {
	return &Writer{formatter: formatter, ext: ext, fs: fs}
}

// Write formats summary into path, creating the parent directory first.
func (w *Writer) Write(path string, summary *Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := w.fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := w.fs.WriteFile(path, []byte(w.formatter.Format(summary))); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteBeside writes the report next to file, replacing its extension, and
// returns the report path. A non-empty dir places the report there instead.
func (w *Writer) WriteBeside(file, dir string, summary *Summary) (string, error) {
	path := strings.TrimSuffix(file, filepath.Ext(file)) + "." + w.ext
	if dir != "" {
		path = filepath.Join(dir, filepath.Base(path))
	}
	return path, w.Write(path, summary)
}
