// Package filesink writes debug output under a directory.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/h264play/pkg/ports"
)

// Sink saves published frames, contact sheets and stream metadata.
//
// Layout under baseDir:
//
//	frames/frame-000042.png
//	sheet.png
//	<name>.json
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new Sink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveFrame saves a published frame as PNG.
func (s *Sink) SaveFrame(seq int64, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", seq, err)
	}
	return s.fs.WriteFile(filepath.Join(dir, fmt.Sprintf("frame-%06d.png", seq)), data)
}

// SaveContactSheet saves the composed sheet as PNG.
func (s *Sink) SaveContactSheet(img image.Image) error {
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode sheet: %w", err)
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "sheet.png"), data)
}

// SaveStreamJSON saves metadata as <name>.json.
func (s *Sink) SaveStreamJSON(name string, data []byte) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid debug file name %q", name)
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, name+".json"), data)
}

var _ ports.DebugSink = (*Sink)(nil)
