// Package imagetarget provides an in-memory render target.
package imagetarget

import (
	"image"

	"github.com/user/h264play/pkg/codec/colorconv"
	"github.com/user/h264play/pkg/ports"
)

// InitialSize is the edge length of a new target, before the first
// frame sets the real size.
const InitialSize = 12

// Target is a ports.RenderTarget backed by a byte slice. It is not safe
// for concurrent use.
type Target struct {
	width, height int
	pix           []byte
	format        colorconv.Format
}

// New creates an InitialSize square target holding pixels in format.
func New(format colorconv.Format) *Target {
	t := &Target{format: format}
	t.Resize(InitialSize, InitialSize)
	return t
}

// Size returns the buffer dimensions.
func (t *Target) Size() (int, int) {
	return t.width, t.height
}

// Resize reallocates the buffer, discarding its contents.
func (t *Target) Resize(width, height int) {
	t.width, t.height = width, height
	t.pix = make([]byte, width*height*4)
}

// Pixels returns the raw buffer.
func (t *Target) Pixels() []byte {
	return t.pix
}

// Image copies the buffer into an RGBA image, swapping channels when the
// target holds BGRA.
func (t *Target) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	copy(img.Pix, t.pix)
	if t.format == colorconv.FormatBGRA {
		for i := 0; i+3 < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return img
}

var _ ports.RenderTarget = (*Target)(nil)
