package ports

import "github.com/google/uuid"

// RenderTarget is the host-owned pixel buffer frames are published into.
// Pixels are interleaved four bytes per pixel, rows packed without padding.
type RenderTarget interface {
	// Size returns the current buffer dimensions in pixels.
	Size() (width, height int)

	// Resize reallocates the buffer. Previous contents are discarded.
	Resize(width, height int)

	// Pixels returns the buffer to write into, width*height*4 bytes long.
	Pixels() []byte
}

// FrameEvent is raised once each time a frame has been written to a RenderTarget.
// Consumers holding anything derived from the buffer must re-read it.
type FrameEvent struct {
	PlayerID uuid.UUID
	Sequence int64  // publish count for this player, starting at 1
	FrameNum uint32 // frame_num of the decoded picture
	Width    int
	Height   int
}

// FrameListener receives frame-updated notifications.
type FrameListener interface {
	FrameUpdated(ev FrameEvent)
}

// FrameListenerFunc adapts a function to FrameListener.
type FrameListenerFunc func(ev FrameEvent)

// FrameUpdated calls f(ev).
func (f FrameListenerFunc) FrameUpdated(ev FrameEvent) {
	f(ev)
}
