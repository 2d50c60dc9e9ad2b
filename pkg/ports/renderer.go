package ports

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// Renderer abstracts image composition and encoding.
type Renderer interface {
	// CreateCanvas creates a new drawing canvas with the specified dimensions and background color.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// EncodeImage encodes an image to the specified format.
	// quality is only used for JPEG.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage resizes an image to the specified dimensions.
	ResizeImage(img image.Image, width, height int) image.Image
}

// Canvas provides drawing operations for compositing images.
type Canvas interface {
	DrawImage(img image.Image, x, y int)
	DrawRect(x, y, w, h int, c color.Color)
	DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64)

	// DrawText draws text vertically centred on y.
	DrawText(text string, x, y int, style TextStyle)

	// MeasureText returns the width and height of the text.
	MeasureText(text string, style TextStyle) (width, height float64)

	ToImage() image.Image
}

// TextStyle defines text rendering properties.
type TextStyle struct {
	FontSize float64
	FontPath string // empty selects the built-in face
	Color    color.Color
	Align    TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
)

// Extension returns the file extension for the format, without the dot.
func (f ImageFormat) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// ParseImageFormat parses "png", "jpg" or "jpeg".
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(s) {
	case "png", "":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	default:
		return FormatPNG, fmt.Errorf("unknown image format %q", s)
	}
}
