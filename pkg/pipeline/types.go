// Package pipeline defines the stages a contact sheet passes through and
// the values handed between them.
package pipeline

import (
	"context"
	"image"
	"image/color"

	"github.com/user/h264play/pkg/codec/colorconv"
	"github.com/user/h264play/pkg/codec/decoder"
	"github.com/user/h264play/pkg/ports"
)

// Stage turns one pipeline value into the next.
type Stage[In, Out any] interface {
	Execute(ctx context.Context, input In) (Out, error)
}

// Dimension represents width and height.
type Dimension struct {
	Width  int
	Height int
}

// Rectangle represents a rectangular area.
type Rectangle struct {
	X      int
	Y      int
	Width  int
	Height int
}

// =============================================================================
// Decode Stage Types
// =============================================================================

// DecodeInput selects which frames of a stream end up on the sheet.
type DecodeInput struct {
	Name      string
	Data      []byte
	MaxFrames int // 0 keeps every sampled frame
	Every     int // keep every Nth decoded frame (default: 1)
}

// DecodeResult holds the sampled frames and what the decoder saw.
type DecodeResult struct {
	Frames  []DecodedFrame
	Size    Dimension // cropped size of the first frame
	Matrix  colorconv.Matrix
	FPS     float64 // from VUI timing, 0 when absent
	Profile int
	Level   int
	Stats   decoder.Stats
	Errors  int // NAL units that failed to decode
	Total   int // frames decoded, sampled or not
}

// DecodedFrame is one sampled frame converted for display.
type DecodedFrame struct {
	Index    int // position in decode order
	FrameNum uint32
	IDR      bool
	Corrupt  bool
	Image    image.Image
}

// =============================================================================
// Layout Stage Types
// =============================================================================

// LayoutInput contains parameters for the thumbnail grid.
type LayoutInput struct {
	Frames       int       // number of cells
	Source       Dimension // decoded frame size, for the aspect ratio
	Columns      int       // default: 4
	ThumbWidth   int       // default: 160
	Gap          int       // default: 8
	Padding      int       // default: 16
	LabelHeight  int       // default: 16, 0 disables labels
	BannerHeight int       // default: 0
}

// DefaultLayoutInput returns LayoutInput with default values.
func DefaultLayoutInput() LayoutInput {
	return LayoutInput{
		Columns:     4,
		ThumbWidth:  160,
		Gap:         8,
		Padding:     16,
		LabelHeight: 16,
	}
}

// LayoutResult contains the canvas size and cell positions.
type LayoutResult struct {
	Canvas     Dimension
	Thumb      Dimension
	Cells      []Rectangle // thumbnail areas in frame order
	Labels     []Rectangle // label strip under each cell, empty without labels
	BannerArea Rectangle
}

// =============================================================================
// Banner Stage Types
// =============================================================================

// BannerInput contains the stream facts printed above the grid.
type BannerInput struct {
	Width   int
	Height  int
	Name    string
	Size    Dimension
	Frames  int
	Sampled int
	FPS     float64
	Matrix  string
	Profile int
	Level   int
	Credit  string
	Theme   BannerTheme
}

// BannerTheme defines banner styling.
type BannerTheme struct {
	BackgroundColor color.Color
	TextColor       color.Color
	AccentColor     color.Color
}

// DefaultBannerTheme returns a default banner theme.
func DefaultBannerTheme() BannerTheme {
	return BannerTheme{
		BackgroundColor: color.RGBA{R: 45, G: 45, B: 45, A: 255},
		TextColor:       color.White,
		AccentColor:     color.RGBA{R: 100, G: 180, B: 255, A: 255},
	}
}

// BannerResult contains the generated banner.
type BannerResult struct {
	Image image.Image
}

// =============================================================================
// Composite Stage Types
// =============================================================================

// CompositeInput contains parameters for sheet composition.
type CompositeInput struct {
	Frames []DecodedFrame
	Layout LayoutResult
	Banner *BannerResult // optional
	Theme  CompositeTheme
}

// CompositeTheme defines composition styling.
type CompositeTheme struct {
	BackgroundColor color.Color
	BorderColor     color.Color
	LabelColor      color.Color
	IDRColor        color.Color // border of IDR frames
	CorruptColor    color.Color // border of concealed frames
}

// DefaultCompositeTheme returns a default composite theme.
func DefaultCompositeTheme() CompositeTheme {
	return CompositeTheme{
		BackgroundColor: color.RGBA{R: 30, G: 30, B: 30, A: 255},
		BorderColor:     color.RGBA{R: 80, G: 80, B: 80, A: 255},
		LabelColor:      color.RGBA{R: 200, G: 200, B: 200, A: 255},
		IDRColor:        color.RGBA{R: 76, G: 175, B: 80, A: 255},
		CorruptColor:    color.RGBA{R: 229, G: 57, B: 53, A: 255},
	}
}

// CompositeResult contains the composed sheet.
type CompositeResult struct {
	Image image.Image
}

// =============================================================================
// Encode Stage Types
// =============================================================================

// EncodeInput contains parameters for image encoding.
type EncodeInput struct {
	Image   image.Image
	Format  ports.ImageFormat
	Quality int // JPEG quality 1-100
}

// DefaultEncodeInput returns EncodeInput with default values.
func DefaultEncodeInput() EncodeInput {
	return EncodeInput{
		Format:  ports.FormatPNG,
		Quality: 85,
	}
}

// EncodeResult contains the encoded image.
type EncodeResult struct {
	Data     []byte
	FileSize int64
}
