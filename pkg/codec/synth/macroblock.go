package synth

import (
	"fmt"

	"github.com/user/h264play/pkg/codec/cavlc"
)

// MbKind selects how a macroblock is coded.
type MbKind int

// Macroblock kinds.
const (
	// Skip is P_Skip.
	Skip MbKind = iota
	// PCM is I_PCM filled with Fill.
	PCM
	// DC is I_16x16 with DC prediction and an optional luma DC level.
	DC
	// Inter is a P macroblock partitioned as Part.
	Inter
	// Intra4x4 is I_NxN with per-block prediction modes Modes.
	Intra4x4
	// Intra16x16 is I_16x16 with prediction mode Pred.
	Intra16x16
)

// Partition is the mb_type of an Inter macroblock.
type Partition int

// Inter partitions.
const (
	P16x16 Partition = iota
	P16x8
	P8x16
	P8x8
	P8x8Ref0
)

// Macroblock describes one coded macroblock.
type Macroblock struct {
	Kind MbKind
	Fill [3]byte
	// Level is the Intra16x16 DC coefficient of the DC kind.
	Level int

	// Modes holds Intra4x4 prediction modes by raster block index.
	Modes      [16]int
	Pred       int
	ChromaPred int

	// Luma holds levels in zigzag scan order by raster block index.
	// Intra16x16 codes only positions 1..15 and takes its DC levels,
	// in scan order, from LumaDC.
	Luma     [16][16]int
	LumaDC   [16]int
	ChromaDC [2][4]int
	// ChromaAC holds levels for scan positions 1..15.
	ChromaAC [2][4][15]int
	QPDelta  int

	Part Partition
	// Ref and MVD describe a P16x16 macroblock.
	Ref int
	MVD [2]int
	// SubTypes, Refs and MVDs describe the other partitions. MVDs are
	// listed in syntax order.
	SubTypes [4]int
	Refs     [4]int
	MVDs     [][2]int
}

// Repeat returns n copies of mb.
func Repeat(n int, mb Macroblock) []Macroblock {
	out := make([]Macroblock, n)
	for i := range out {
		out[i] = mb
	}
	return out
}

// luma4x4BlkIdx to raster block index.
var blkRaster = [16]int{0, 1, 4, 5, 2, 3, 6, 7, 8, 9, 12, 13, 10, 11, 14, 15}

// coded_block_pattern by codeNum.
var cbpIntra = [48]int{
	47, 31, 15, 0, 23, 27, 29, 30, 7, 11, 13, 14, 39, 43, 45, 46,
	16, 3, 5, 10, 12, 19, 21, 26, 28, 35, 37, 42, 44, 1, 2, 4,
	8, 17, 18, 20, 24, 6, 9, 22, 25, 32, 33, 34, 36, 40, 38, 41,
}

var cbpInter = [48]int{
	0, 16, 1, 2, 4, 8, 32, 3, 5, 10, 12, 15, 47, 7, 11, 13,
	14, 6, 9, 31, 35, 37, 42, 44, 33, 34, 36, 40, 39, 43, 45, 46,
	17, 18, 20, 24, 19, 21, 26, 28, 23, 27, 29, 30, 22, 25, 38, 41,
}

var subPartitionCount = [4]int{1, 2, 2, 4}

func codeNum(table *[48]int, cbp int) uint32 {
	for i, v := range table {
		if v == cbp {
			return uint32(i)
		}
	}
	panic(fmt.Sprintf("synth: coded_block_pattern %d", cbp))
}

func nonZero(levels []int) bool {
	for _, v := range levels {
		if v != 0 {
			return true
		}
	}
	return false
}

// cbp derives coded_block_pattern from the residual levels.
func (mb *Macroblock) cbp() (luma, chroma int) {
	for rast := range mb.Luma {
		if mb.Kind == Intra16x16 {
			if nonZero(mb.Luma[rast][1:]) {
				luma = 15
			}
		} else if nonZero(mb.Luma[rast][:]) {
			luma |= 1 << ((rast/8)*2 + (rast%4)/2)
		}
	}
	for c := 0; c < 2; c++ {
		if nonZero(mb.ChromaDC[c][:]) && chroma < 1 {
			chroma = 1
		}
		for blk := 0; blk < 4; blk++ {
			if nonZero(mb.ChromaAC[c][blk][:]) {
				chroma = 2
			}
		}
	}
	return luma, chroma
}

// mbState is what later macroblocks of the slice read back from a coded one.
type mbState struct {
	intra4x4 bool
	modes    [16]int
	tc       [16]int
	ctc      [2][4]int
}

type sliceWriter struct {
	w      *Writer
	width  int
	first  int
	numRef int
	addr   int
	states []mbState
}

func (e *sliceWriter) cur() *mbState {
	return &e.states[e.addr-e.first]
}

// neighbour returns the coded state of the macroblock at (dx, dy) from the
// current one, or nil outside the slice.
func (e *sliceWriter) neighbour(dx, dy int) *mbState {
	x, y := e.addr%e.width+dx, e.addr/e.width+dy
	if x < 0 || y < 0 || x >= e.width {
		return nil
	}
	a := y*e.width + x
	if a < e.first || a >= e.addr {
		return nil
	}
	return &e.states[a-e.first]
}

// block resolves the 4x4 block at (bx, by) relative to the current
// macroblock, with bx and by in -1..3.
func (e *sliceWriter) block(bx, by int) (*mbState, int) {
	blk := ((by+4)%4)*4 + (bx+4)%4
	switch {
	case bx < 0:
		return e.neighbour(-1, 0), blk
	case by < 0:
		return e.neighbour(0, -1), blk
	}
	return e.cur(), blk
}

func (e *sliceWriter) lumaNC(bx, by int) int {
	a, ablk := e.block(bx-1, by)
	b, bblk := e.block(bx, by-1)
	var na, nb int
	if a != nil {
		na = a.tc[ablk]
	}
	if b != nil {
		nb = b.tc[bblk]
	}
	return cavlc.PredictNC(na, a != nil, nb, b != nil)
}

func (e *sliceWriter) chromaNC(c, bx, by int) int {
	st := e.cur()
	var na, nb int
	var a, b *mbState
	if bx > 0 {
		a, na = st, st.ctc[c][by*2]
	} else if a = e.neighbour(-1, 0); a != nil {
		na = a.ctc[c][by*2+1]
	}
	if by > 0 {
		b, nb = st, st.ctc[c][bx]
	} else if b = e.neighbour(0, -1); b != nil {
		nb = b.ctc[c][2+bx]
	}
	return cavlc.PredictNC(na, a != nil, nb, b != nil)
}

// predMode derives predIntra4x4PredMode; neighbours that are not Intra4x4
// count as DC.
func (e *sliceWriter) predMode(bx, by int) int {
	a, ablk := e.block(bx-1, by)
	b, bblk := e.block(bx, by-1)
	if a == nil || b == nil {
		return 2
	}
	ma, mb := 2, 2
	if a.intra4x4 {
		ma = a.modes[ablk]
	}
	if b.intra4x4 {
		mb = b.modes[bblk]
	}
	return min(ma, mb)
}

func (e *sliceWriter) macroblock(mb Macroblock, offset int) error {
	w := e.w
	switch mb.Kind {
	case PCM:
		w.WriteUE(uint32(offset + 25))
		w.AlignZero()
		for c, n := range []int{256, 64, 64} {
			for j := 0; j < n; j++ {
				w.WriteBits(uint32(mb.Fill[c]), 8)
			}
		}
		st := e.cur()
		for i := range st.tc {
			st.tc[i] = 16
		}
		for c := range st.ctc {
			for i := range st.ctc[c] {
				st.ctc[c][i] = 16
			}
		}
		return nil

	case DC:
		return e.intra16x16(Macroblock{Kind: Intra16x16, Pred: 2, LumaDC: [16]int{mb.Level}}, offset)

	case Intra16x16:
		return e.intra16x16(mb, offset)

	case Intra4x4:
		return e.intra4x4(mb, offset)

	case Inter:
		return e.inter(mb)
	}
	return fmt.Errorf("%w: macroblock kind %d", ErrLayout, mb.Kind)
}

func (e *sliceWriter) intra16x16(mb Macroblock, offset int) error {
	if mb.Pred < 0 || mb.Pred > 3 || mb.ChromaPred < 0 || mb.ChromaPred > 3 {
		return fmt.Errorf("%w: intra 16x16 modes %d/%d", ErrLayout, mb.Pred, mb.ChromaPred)
	}
	w := e.w
	cbpLuma, cbpChroma := mb.cbp()
	mbType := 1 + mb.Pred + 4*cbpChroma
	if cbpLuma != 0 {
		mbType += 12
	}
	w.WriteUE(uint32(offset + mbType))
	w.WriteUE(uint32(mb.ChromaPred))
	w.WriteSE(int32(mb.QPDelta))

	if _, err := cavlc.WriteBlock(w, e.lumaNC(0, 0), mb.LumaDC[:], 0, 15, 16); err != nil {
		return err
	}
	if cbpLuma != 0 {
		st := e.cur()
		for blkIdx := 0; blkIdx < 16; blkIdx++ {
			rast := blkRaster[blkIdx]
			tc, err := cavlc.WriteBlock(w, e.lumaNC(rast%4, rast/4), mb.Luma[rast][1:], 0, 14, 15)
			if err != nil {
				return err
			}
			st.tc[rast] = tc
		}
	}
	return e.chromaResidual(&mb, cbpChroma)
}

func (e *sliceWriter) intra4x4(mb Macroblock, offset int) error {
	if mb.ChromaPred < 0 || mb.ChromaPred > 3 {
		return fmt.Errorf("%w: intra chroma mode %d", ErrLayout, mb.ChromaPred)
	}
	w := e.w
	w.WriteUE(uint32(offset))

	st := e.cur()
	st.intra4x4 = true
	for blkIdx := 0; blkIdx < 16; blkIdx++ {
		rast := blkRaster[blkIdx]
		mode := mb.Modes[rast]
		if mode < 0 || mode > 8 {
			return fmt.Errorf("%w: intra 4x4 mode %d", ErrLayout, mode)
		}
		pred := e.predMode(rast%4, rast/4)
		st.modes[rast] = mode
		if mode == pred {
			w.WriteFlag(true)
			continue
		}
		w.WriteFlag(false)
		if mode > pred {
			mode--
		}
		w.WriteBits(uint32(mode), 3)
	}
	w.WriteUE(uint32(mb.ChromaPred))

	cbpLuma, cbpChroma := mb.cbp()
	cbp := cbpChroma<<4 | cbpLuma
	w.WriteUE(codeNum(&cbpIntra, cbp))
	return e.residual(&mb, cbpLuma, cbpChroma)
}

func (e *sliceWriter) inter(mb Macroblock) error {
	w := e.w
	writeRef := func(ref int) {
		if e.numRef > 1 {
			w.WriteTE(uint32(ref), uint32(e.numRef-1))
		}
	}
	writeMVDs := func(mvds [][2]int, n int) error {
		if len(mvds) != n {
			return fmt.Errorf("%w: %d motion vector differences for %d partitions", ErrLayout, len(mvds), n)
		}
		for _, v := range mvds {
			w.WriteSE(int32(v[0]))
			w.WriteSE(int32(v[1]))
		}
		return nil
	}

	w.WriteUE(uint32(mb.Part))
	switch mb.Part {
	case P16x16:
		writeRef(mb.Ref)
		if err := writeMVDs([][2]int{mb.MVD}, 1); err != nil {
			return err
		}
	case P16x8, P8x16:
		writeRef(mb.Refs[0])
		writeRef(mb.Refs[1])
		if err := writeMVDs(mb.MVDs, 2); err != nil {
			return err
		}
	case P8x8, P8x8Ref0:
		n := 0
		for _, t := range mb.SubTypes {
			if t < 0 || t > 3 {
				return fmt.Errorf("%w: sub_mb_type %d", ErrLayout, t)
			}
			w.WriteUE(uint32(t))
			n += subPartitionCount[t]
		}
		if mb.Part == P8x8 {
			for _, r := range mb.Refs {
				writeRef(r)
			}
		}
		if err := writeMVDs(mb.MVDs, n); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: partition %d", ErrLayout, mb.Part)
	}

	cbpLuma, cbpChroma := mb.cbp()
	w.WriteUE(codeNum(&cbpInter, cbpChroma<<4|cbpLuma))
	return e.residual(&mb, cbpLuma, cbpChroma)
}

// residual writes mb_qp_delta and the 4x4 luma and chroma blocks selected
// by the coded block pattern.
func (e *sliceWriter) residual(mb *Macroblock, cbpLuma, cbpChroma int) error {
	if cbpLuma == 0 && cbpChroma == 0 {
		return nil
	}
	e.w.WriteSE(int32(mb.QPDelta))

	st := e.cur()
	for blkIdx := 0; blkIdx < 16; blkIdx++ {
		if cbpLuma&(1<<(blkIdx/4)) == 0 {
			continue
		}
		rast := blkRaster[blkIdx]
		tc, err := cavlc.WriteBlock(e.w, e.lumaNC(rast%4, rast/4), mb.Luma[rast][:], 0, 15, 16)
		if err != nil {
			return err
		}
		st.tc[rast] = tc
	}
	return e.chromaResidual(mb, cbpChroma)
}

func (e *sliceWriter) chromaResidual(mb *Macroblock, cbpChroma int) error {
	if cbpChroma == 0 {
		return nil
	}
	for c := 0; c < 2; c++ {
		if _, err := cavlc.WriteBlock(e.w, cavlc.ChromaDCNC, mb.ChromaDC[c][:], 0, 3, 4); err != nil {
			return err
		}
	}
	if cbpChroma < 2 {
		return nil
	}
	st := e.cur()
	for c := 0; c < 2; c++ {
		for blk := 0; blk < 4; blk++ {
			tc, err := cavlc.WriteBlock(e.w, e.chromaNC(c, blk%2, blk/2), mb.ChromaAC[c][blk][:], 0, 14, 15)
			if err != nil {
				return err
			}
			st.ctc[c][blk] = tc
		}
	}
	return nil
}
