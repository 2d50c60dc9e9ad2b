// Package ggrenderer draws contact sheets with the gg library.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/user/h264play/pkg/ports"
)

var (
	builtinOnce sync.Once
	builtin     *opentype.Font
	builtinErr  error
)

// builtinFont parses the embedded Go Regular face once.
func builtinFont() (*opentype.Font, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = opentype.Parse(goregular.TTF)
	})
	return builtin, builtinErr
}

// Renderer implements ports.Renderer using the gg library.
type Renderer struct{}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{}
}

// CreateCanvas creates a new drawing canvas.
func (r *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	return &Canvas{dc: dc, faces: make(map[faceKey]font.Face)}
}

// EncodeImage encodes an image to the specified format.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		opts := &jpeg.Options{Quality: quality}
		if err := jpeg.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// ResizeImage scales an image with Catmull-Rom filtering.
func (r *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

var _ ports.Renderer = (*Renderer)(nil)

type faceKey struct {
	path string
	size float64
}

// Canvas implements ports.Canvas using gg.Context. It is not safe for
// concurrent use.
type Canvas struct {
	dc    *gg.Context
	faces map[faceKey]font.Face
}

// DrawImage draws an image at the specified position.
func (c *Canvas) DrawImage(img image.Image, x, y int) {
	c.dc.DrawImage(img, x, y)
}

// DrawRect draws a filled rectangle.
func (c *Canvas) DrawRect(x, y, w, h int, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Fill()
}

// DrawRectStroke draws a rectangle outline inside the given bounds.
func (c *Canvas) DrawRectStroke(x, y, w, h int, col color.Color, strokeWidth float64) {
	half := strokeWidth / 2
	c.dc.SetColor(col)
	c.dc.SetLineWidth(strokeWidth)
	c.dc.DrawRectangle(float64(x)+half, float64(y)+half, float64(w)-strokeWidth, float64(h)-strokeWidth)
	c.dc.Stroke()
}

// DrawText draws text vertically centred on y.
func (c *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	c.useFace(style)
	c.dc.SetColor(style.Color)

	ax := 0.0
	switch style.Align {
	case ports.AlignCenter:
		ax = 0.5
	case ports.AlignRight:
		ax = 1.0
	}
	c.dc.DrawStringAnchored(text, float64(x), float64(y), ax, 0.35)
}

// MeasureText returns the rendered size of text.
func (c *Canvas) MeasureText(text string, style ports.TextStyle) (float64, float64) {
	c.useFace(style)
	return c.dc.MeasureString(text)
}

// useFace selects the face for style, falling back to the built-in
// face when the font file cannot be loaded.
func (c *Canvas) useFace(style ports.TextStyle) {
	size := style.FontSize
	if size <= 0 {
		size = 12
	}
	key := faceKey{path: style.FontPath, size: size}
	if face, ok := c.faces[key]; ok {
		c.dc.SetFontFace(face)
		return
	}

	var face font.Face
	if style.FontPath != "" {
		if f, err := gg.LoadFontFace(style.FontPath, size); err == nil {
			face = f
		}
	}
	if face == nil {
		f, err := builtinFont()
		if err != nil {
			return
		}
		face, err = opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return
		}
	}
	c.faces[key] = face
	c.dc.SetFontFace(face)
}

// ToImage returns the canvas as an image.Image.
func (c *Canvas) ToImage() image.Image {
	return c.dc.Image()
}

var _ ports.Canvas = (*Canvas)(nil)
