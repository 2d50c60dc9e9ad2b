package mocks

import (
	"image"
	"sync"

	"github.com/user/h264play/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu      sync.RWMutex
	enabled bool

	Frames  map[int64]image.Image
	Sheet   image.Image
	Streams map[string][]byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled: enabled,
		Frames:  make(map[int64]image.Image),
		Streams: make(map[string][]byte),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveFrame(seq int64, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames[seq] = img
	return nil
}

func (m *DebugSink) SaveContactSheet(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sheet = img
	return nil
}

func (m *DebugSink) SaveStreamJSON(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Streams[name] = data
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)
