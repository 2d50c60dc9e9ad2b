// Package picture holds the sample arena and per-macroblock state of a
// picture under reconstruction.
package picture

// MbType classifies how a macroblock was coded.
type MbType uint8

// Macroblock coding classes.
const (
	MbNone MbType = iota
	MbI4x4
	MbI16x16
	MbIPCM
	MbInter
	MbPSkip
)

// IsIntra reports whether the type uses intra prediction.
func (t MbType) IsIntra() bool {
	return t == MbI4x4 || t == MbI16x16 || t == MbIPCM
}

func (t MbType) String() string {
	switch t {
	case MbI4x4:
		return "I4x4"
	case MbI16x16:
		return "I16x16"
	case MbIPCM:
		return "IPCM"
	case MbInter:
		return "P"
	case MbPSkip:
		return "PSkip"
	default:
		return "none"
	}
}

// MV is a motion vector in quarter luma samples.
type MV struct {
	X, Y int
}

// Add returns the component-wise sum.
func (m MV) Add(o MV) MV {
	return MV{m.X + o.X, m.Y + o.Y}
}

// Macroblock is the state later macroblocks and the deblocking filter need.
// 4x4 block arrays are indexed in raster order within the macroblock
// (index = y*4 + x).
type Macroblock struct {
	Decoded  bool
	SliceNum int
	Type     MbType

	Intra4x4Modes [16]int8

	// coefficient counts per 4x4 block; Intra16x16 stores AC counts
	TotalCoeff       [16]uint8
	ChromaTotalCoeff [2][4]uint8

	MV [16]MV
	// RefIdx and RefID per 8x8 partition in raster order, -1 when intra
	RefIdx [4]int8
	RefID  [4]int64

	QP             int
	ChromaQPOffset int

	FilterIdc   int
	AlphaOffset int
	BetaOffset  int
}

// Picture is a YUV 4:2:0 frame with macroblock-aligned planes.
type Picture struct {
	WidthMbs  int
	HeightMbs int

	Y      []byte
	Cb     []byte
	Cr     []byte
	Stride int // luma stride; chroma stride is Stride/2

	FrameNum    uint32
	Seq         int64
	IsReference bool
	IsIDR       bool
	// Corrupt is set when part of the picture could not be reconstructed.
	Corrupt bool

	CropLeft, CropRight, CropTop, CropBottom int

	MBs []Macroblock
}

// New allocates a picture of the given size in macroblocks.
func New(widthMbs, heightMbs int) *Picture {
	w := widthMbs * 16
	h := heightMbs * 16
	return &Picture{
		WidthMbs:  widthMbs,
		HeightMbs: heightMbs,
		Y:         make([]byte, w*h),
		Cb:        make([]byte, w*h/4),
		Cr:        make([]byte, w*h/4),
		Stride:    w,
		MBs:       make([]Macroblock, widthMbs*heightMbs),
	}
}

// LumaWidth returns the coded luma width.
func (p *Picture) LumaWidth() int { return p.WidthMbs * 16 }

// LumaHeight returns the coded luma height.
func (p *Picture) LumaHeight() int { return p.HeightMbs * 16 }

// ChromaStride returns the stride of the Cb and Cr planes.
func (p *Picture) ChromaStride() int { return p.Stride / 2 }

// Width returns the cropped display width.
func (p *Picture) Width() int { return p.LumaWidth() - p.CropLeft - p.CropRight }

// Height returns the cropped display height.
func (p *Picture) Height() int { return p.LumaHeight() - p.CropTop - p.CropBottom }

// MbCount returns the number of macroblocks.
func (p *Picture) MbCount() int { return len(p.MBs) }

// MB returns the macroblock at address addr.
func (p *Picture) MB(addr int) *Macroblock { return &p.MBs[addr] }

// DecodedCount returns how many macroblocks have been reconstructed.
func (p *Picture) DecodedCount() int {
	n := 0
	for i := range p.MBs {
		if p.MBs[i].Decoded {
			n++
		}
	}
	return n
}

// Complete reports whether every macroblock has been reconstructed.
func (p *Picture) Complete() bool {
	return p.DecodedCount() == len(p.MBs)
}

// Plane returns the sample slice and stride of plane c (0 luma, 1 Cb, 2 Cr).
func (p *Picture) Plane(c int) ([]byte, int) {
	switch c {
	case 1:
		return p.Cb, p.Stride / 2
	case 2:
		return p.Cr, p.Stride / 2
	default:
		return p.Y, p.Stride
	}
}

// LumaAt returns the luma sample at (x, y) with coordinates clamped to the
// coded picture area.
func (p *Picture) LumaAt(x, y int) int {
	x = clamp(x, 0, p.LumaWidth()-1)
	y = clamp(y, 0, p.LumaHeight()-1)
	return int(p.Y[y*p.Stride+x])
}

// ChromaAt returns the sample of chroma plane c (1 or 2) at (x, y), clamped.
func (p *Picture) ChromaAt(c, x, y int) int {
	plane, stride := p.Plane(c)
	x = clamp(x, 0, p.WidthMbs*8-1)
	y = clamp(y, 0, p.HeightMbs*8-1)
	return int(plane[y*stride+x])
}

// Fill sets every sample to the given values.
func (p *Picture) Fill(y, cb, cr byte) {
	for i := range p.Y {
		p.Y[i] = y
	}
	for i := range p.Cb {
		p.Cb[i] = cb
		p.Cr[i] = cr
	}
}

// CopyFrom copies the samples of src, which must have the same size.
func (p *Picture) CopyFrom(src *Picture) {
	copy(p.Y, src.Y)
	copy(p.Cb, src.Cb)
	copy(p.Cr, src.Cr)
}

// Reset clears the macroblock state so the arena can be reused.
func (p *Picture) Reset() {
	clear(p.MBs)
	p.Corrupt = false
	p.IsReference = false
	p.IsIDR = false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
