package mocks

import "github.com/user/h264play/pkg/ports"

// RenderTarget is an in-memory ports.RenderTarget.
type RenderTarget struct {
	Width, Height int
	Buf           []byte
	Resizes       int
}

// NewRenderTarget allocates a width x height target.
func NewRenderTarget(width, height int) *RenderTarget {
	return &RenderTarget{Width: width, Height: height, Buf: make([]byte, width*height*4)}
}

func (m *RenderTarget) Size() (int, int) { return m.Width, m.Height }
func (m *RenderTarget) Pixels() []byte   { return m.Buf }

func (m *RenderTarget) Resize(width, height int) {
	m.Width, m.Height = width, height
	m.Buf = make([]byte, width*height*4)
	m.Resizes++
}

// Pixel returns the four bytes at (x, y).
func (m *RenderTarget) Pixel(x, y int) [4]byte {
	var px [4]byte
	copy(px[:], m.Buf[(y*m.Width+x)*4:])
	return px
}

var _ ports.RenderTarget = (*RenderTarget)(nil)

// FrameRecorder collects frame-updated notifications.
type FrameRecorder struct {
	Events []ports.FrameEvent
}

func (m *FrameRecorder) FrameUpdated(ev ports.FrameEvent) {
	m.Events = append(m.Events, ev)
}

// FrameNums returns the frame_num of every recorded event in order.
func (m *FrameRecorder) FrameNums() []uint32 {
	nums := make([]uint32, len(m.Events))
	for i, ev := range m.Events {
		nums[i] = ev.FrameNum
	}
	return nums
}

// Reset forgets recorded events.
func (m *FrameRecorder) Reset() {
	m.Events = nil
}

var _ ports.FrameListener = (*FrameRecorder)(nil)
