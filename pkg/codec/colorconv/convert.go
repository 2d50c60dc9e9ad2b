// Package colorconv converts decoded YUV 4:2:0 pictures into interleaved
// 8-bit RGB pixels.
package colorconv

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/user/h264play/pkg/codec/params"
	"github.com/user/h264play/pkg/codec/picture"
)

// ErrShortBuffer is returned when the destination cannot hold the picture.
var ErrShortBuffer = errors.New("colorconv: destination buffer too small")

// Format is the byte order of an output pixel.
type Format int

// Output formats. Both carry an opaque alpha channel.
const (
	FormatBGRA Format = iota
	FormatRGBA
)

func (f Format) String() string {
	switch f {
	case FormatBGRA:
		return "bgra"
	case FormatRGBA:
		return "rgba"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat parses "rgba" or "bgra".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "bgra", "BGRA", "":
		return FormatBGRA, nil
	case "rgba", "RGBA":
		return FormatRGBA, nil
	default:
		return FormatBGRA, fmt.Errorf("colorconv: unknown pixel format %q", s)
	}
}

// Standard selects the luma coefficients.
type Standard int

// Supported standards.
const (
	BT601 Standard = iota
	BT709
)

func (s Standard) String() string {
	if s == BT709 {
		return "BT.709"
	}
	return "BT.601"
}

// Matrix is a conversion matrix: coefficients plus sample range.
type Matrix struct {
	Standard  Standard
	FullRange bool
}

func (m Matrix) String() string {
	if m.FullRange {
		return m.Standard.String() + " full"
	}
	return m.Standard.String() + " limited"
}

// MatrixFor picks the matrix signalled in the SPS colour description.
// Streams without one use limited range BT.601.
func MatrixFor(s *params.SPS) Matrix {
	if s == nil {
		return Matrix{}
	}
	m := Matrix{FullRange: s.FullRange}
	if s.MatrixCoefficients == params.MatrixBT709 {
		m.Standard = BT709
	}
	return m
}

// 16.16 fixed point coefficients
type coeffs struct {
	y, rv, gu, gv, bu int
	yOff              int
}

var table = map[Matrix]coeffs{}

func init() {
	for _, st := range []Standard{BT601, BT709} {
		for _, full := range []bool{false, true} {
			m := Matrix{Standard: st, FullRange: full}
			table[m] = derive(m)
		}
	}
}

func derive(m Matrix) coeffs {
	kr, kb := 0.299, 0.114
	if m.Standard == BT709 {
		kr, kb = 0.2126, 0.0722
	}
	kg := 1 - kr - kb

	ys, cs, yOff := 1.0, 1.0, 0
	if !m.FullRange {
		ys, cs, yOff = 255.0/219.0, 255.0/224.0, 16
	}

	fix := func(v float64) int { return int(math.Round(v * 65536)) }
	return coeffs{
		y:    fix(ys),
		rv:   fix(cs * 2 * (1 - kr)),
		gu:   fix(cs * 2 * kb * (1 - kb) / kg),
		gv:   fix(cs * 2 * kr * (1 - kr) / kg),
		bu:   fix(cs * 2 * (1 - kb)),
		yOff: yOff,
	}
}

// Convert writes the cropped picture into dst as 4-byte pixels with a
// stride of Width()*4. dst must hold at least Width()*Height()*4 bytes.
func Convert(pic *picture.Picture, dst []byte, f Format, m Matrix) error {
	w, h := pic.Width(), pic.Height()
	if len(dst) < w*h*4 {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, w*h*4, len(dst))
	}
	convert(pic, dst, w*4, f, m)
	return nil
}

// ToImage converts the cropped picture into a new RGBA image.
func ToImage(pic *picture.Picture, m Matrix) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, pic.Width(), pic.Height()))
	convert(pic, img.Pix, img.Stride, FormatRGBA, m)
	return img
}

func convert(pic *picture.Picture, dst []byte, dstStride int, f Format, m Matrix) {
	c, ok := table[m]
	if !ok {
		c = table[Matrix{}]
	}
	ri, bi := 0, 2
	if f == FormatBGRA {
		ri, bi = 2, 0
	}

	w, h := pic.Width(), pic.Height()
	cstride := pic.ChromaStride()
	for y := 0; y < h; y++ {
		ly := y + pic.CropTop
		yrow := pic.Y[ly*pic.Stride:]
		crow := (ly / 2) * cstride
		out := dst[y*dstStride:]
		for x := 0; x < w; x++ {
			lx := x + pic.CropLeft
			yy := (int(yrow[lx]) - c.yOff) * c.y
			u := int(pic.Cb[crow+lx/2]) - 128
			v := int(pic.Cr[crow+lx/2]) - 128

			r := (yy + c.rv*v + 1<<15) >> 16
			g := (yy - c.gu*u - c.gv*v + 1<<15) >> 16
			b := (yy + c.bu*u + 1<<15) >> 16

			o := out[x*4 : x*4+4]
			o[ri] = clamp(r)
			o[1] = clamp(g)
			o[bi] = clamp(b)
			o[3] = 0xff
		}
	}
}

func clamp(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
