// Package nullsink provides a debug sink that discards everything.
package nullsink

import (
	"image"

	"github.com/user/h264play/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink.
type Sink struct{}

// New creates a new Sink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false; callers skip encoding work for disabled sinks.
func (s *Sink) Enabled() bool {
	return false
}

func (s *Sink) SaveFrame(seq int64, img image.Image) error    { return nil }
func (s *Sink) SaveContactSheet(img image.Image) error        { return nil }
func (s *Sink) SaveStreamJSON(name string, data []byte) error { return nil }

var _ ports.DebugSink = (*Sink)(nil)
