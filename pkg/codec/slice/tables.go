package slice

// zigzag maps 4x4 frame scan positions to raster indices.
var zigzag4x4 = [16]int{0, 1, 4, 8, 5, 2, 3, 6, 9, 12, 13, 10, 7, 11, 14, 15}

// blkRaster maps luma4x4BlkIdx to the raster index of the 4x4 block in the macroblock.
var blkRaster = [16]int{0, 1, 4, 5, 2, 3, 6, 7, 8, 9, 12, 13, 10, 11, 14, 15}

// rasterBlk is the inverse of blkRaster.
var rasterBlk = [16]int{0, 1, 4, 5, 2, 3, 6, 7, 8, 9, 12, 13, 10, 11, 14, 15}

// coded_block_pattern mapping for me(v), indexed by codeNum.
var cbpIntra = [48]uint8{
	47, 31, 15, 0, 23, 27, 29, 30, 7, 11, 13, 14, 39, 43, 45, 46,
	16, 3, 5, 10, 12, 19, 21, 26, 28, 35, 37, 42, 44, 1, 2, 4,
	8, 17, 18, 20, 24, 6, 9, 22, 25, 32, 33, 34, 36, 40, 38, 41,
}

var cbpInter = [48]uint8{
	0, 16, 1, 2, 4, 8, 32, 3, 5, 10, 12, 15, 47, 7, 11, 13,
	14, 6, 9, 31, 35, 37, 42, 44, 33, 34, 36, 40, 39, 43, 45, 46,
	17, 18, 20, 24, 19, 21, 26, 28, 23, 27, 29, 30, 22, 25, 38, 41,
}

// chromaQPTable maps qPI 30..51 to QPc; below 30 QPc equals qPI.
var chromaQPTable = [22]int{
	29, 30, 31, 32, 32, 33, 34, 34, 35, 35, 36, 36, 37, 37, 37, 38, 38, 38, 39, 39, 39, 39,
}

// ChromaQP derives QPc from the luma QP and chroma_qp_index_offset.
func ChromaQP(qp, offset int) int {
	qpi := qp + offset
	if qpi < 0 {
		qpi = 0
	}
	if qpi > 51 {
		qpi = 51
	}
	if qpi < 30 {
		return qpi
	}
	return chromaQPTable[qpi-30]
}

// normAdjust4x4 values v[m][0..2].
var normAdjust = [6][3]int{
	{10, 16, 13},
	{11, 18, 14},
	{13, 20, 16},
	{14, 23, 18},
	{16, 25, 20},
	{18, 29, 23},
}

// levelScale returns normAdjust4x4(m, i, j) for raster position idx.
func levelScale(m, idx int) int {
	i, j := idx>>2, idx&3
	switch {
	case i%2 == 0 && j%2 == 0:
		return normAdjust[m][0]
	case i%2 == 1 && j%2 == 1:
		return normAdjust[m][1]
	default:
		return normAdjust[m][2]
	}
}

// Intra 4x4 prediction modes.
const (
	i4Vertical = iota
	i4Horizontal
	i4DC
	i4DiagDownLeft
	i4DiagDownRight
	i4VerticalRight
	i4HorizontalDown
	i4VerticalLeft
	i4HorizontalUp
)

// Intra 16x16 prediction modes.
const (
	i16Vertical = iota
	i16Horizontal
	i16DC
	i16Plane
)

// Intra chroma prediction modes.
const (
	chromaPredDC = iota
	chromaPredHorizontal
	chromaPredVertical
	chromaPredPlane
)

// P macroblock types (mb_type 0..4 in P slices).
const (
	pL016x16 = iota
	pL016x8
	pL08x16
	p8x8
	p8x8ref0
)

// partition is a rectangle in 4x4 block units within the macroblock.
type partition struct {
	x, y, w, h int
}

var subPartitions = [4][]partition{
	{{0, 0, 2, 2}},
	{{0, 0, 2, 1}, {0, 1, 2, 1}},
	{{0, 0, 1, 2}, {1, 0, 1, 2}},
	{{0, 0, 1, 1}, {1, 0, 1, 1}, {0, 1, 1, 1}, {1, 1, 1, 1}},
}
