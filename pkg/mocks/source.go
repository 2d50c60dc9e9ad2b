package mocks

import "github.com/user/h264play/pkg/ports"

// VideoSource is a mock implementation of ports.VideoSource.
// It reports loaded once Ready is set.
type VideoSource struct {
	Data    []byte
	Ready   bool
	LoadErr error

	// BytesCalls counts Bytes calls, one per rewind.
	BytesCalls int
}

// NewVideoSource returns a source that is already loaded with data.
func NewVideoSource(data []byte) *VideoSource {
	return &VideoSource{Data: data, Ready: true}
}

func (m *VideoSource) Loaded() bool { return m.Ready }
func (m *VideoSource) Err() error   { return m.LoadErr }

func (m *VideoSource) Bytes() []byte {
	m.BytesCalls++
	return m.Data
}

var _ ports.VideoSource = (*VideoSource)(nil)
