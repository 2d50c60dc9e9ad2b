package mocks

import (
	"image"
	"image/color"

	"github.com/user/h264play/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer. Canvases it
// creates record what was drawn on them.
type Renderer struct {
	EncodeImageFunc func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)

	Canvases []*Canvas
}

func (m *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	c := &Canvas{Width: width, Height: height, Background: bg}
	m.Canvases = append(m.Canvases, c)
	return c
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte(format.Extension()), nil
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

var _ ports.Renderer = (*Renderer)(nil)

// Placement is one DrawImage call.
type Placement struct {
	X, Y          int
	Width, Height int
}

// Canvas is a recording ports.Canvas.
type Canvas struct {
	Width, Height int
	Background    color.Color

	Images []Placement
	Texts  []string
	Rects  int
}

func (m *Canvas) DrawImage(img image.Image, x, y int) {
	b := img.Bounds()
	m.Images = append(m.Images, Placement{X: x, Y: y, Width: b.Dx(), Height: b.Dy()})
}

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color)                            { m.Rects++ }
func (m *Canvas) DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64) { m.Rects++ }

func (m *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	m.Texts = append(m.Texts, text)
}

// MeasureText assumes a fixed advance of 0.6 em per byte.
func (m *Canvas) MeasureText(text string, style ports.TextStyle) (float64, float64) {
	return float64(len(text)) * style.FontSize * 0.6, style.FontSize
}

func (m *Canvas) ToImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
}

var _ ports.Canvas = (*Canvas)(nil)
