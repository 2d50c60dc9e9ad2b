package slice

import (
	"fmt"

	"github.com/user/h264play/pkg/codec/bitstream"
	"github.com/user/h264play/pkg/codec/cavlc"
	"github.com/user/h264play/pkg/codec/nal"
	"github.com/user/h264play/pkg/codec/picture"
	"github.com/user/h264play/pkg/codec/refs"
)

// Params are the per-slice inputs of Decode.
type Params struct {
	Header   *Header
	Picture  *picture.Picture
	RefList  []*picture.Picture
	SliceNum int
}

// Result reports how far a slice got.
type Result struct {
	Decoded int // macroblocks reconstructed
	// FailedAt is the bit position of the macroblock that failed, or -1.
	FailedAt int
}

// Decode reconstructs the macroblocks of the slice carried by u into
// p.Picture. On error the macroblocks decoded before the failure stay in
// the picture; the rest of the slice is abandoned.
func Decode(u nal.Unit, p Params) (Result, error) {
	h := p.Header
	r := bitstream.New(u.Payload)
	if err := r.Skip(h.dataBit); err != nil {
		return Result{FailedAt: -1}, err
	}

	d := &decoder{
		r:        r,
		h:        h,
		pic:      p.Picture,
		refList:  p.RefList,
		sliceNum: p.SliceNum,
		qp:       h.QP,
		w:        p.Picture.WidthMbs,
	}

	res := Result{FailedAt: -1}
	err := d.run(&res)
	return res, err
}

type decoder struct {
	r        *bitstream.Reader
	h        *Header
	pic      *picture.Picture
	refList  []*picture.Picture
	sliceNum int
	qp       int
	w        int

	// current macroblock
	addr   int
	mbx    int
	mby    int
	mb     *picture.Macroblock
	done   [16]bool // 4x4 blocks of the current macroblock already predicted
	coeffs [16][16]int
	dc     [16]int
	cdc    [2][4]int
	cac    [2][4][16]int
}

func (d *decoder) run(res *Result) error {
	n := d.pic.MbCount()
	addr := d.h.FirstMb
	more := true

	for more {
		if d.h.Type != TypeI {
			cp := d.r.Checkpoint()
			run, err := d.r.ReadUE()
			if err != nil {
				res.FailedAt = cp.Pos()
				return fmt.Errorf("mb_skip_run: %w", err)
			}
			if int(run) > n-addr {
				res.FailedAt = cp.Pos()
				return fmt.Errorf("%w: mb_skip_run %d at macroblock %d", ErrCorrupt, run, addr)
			}
			for i := 0; i < int(run); i++ {
				d.begin(addr)
				if err := d.decodeSkip(); err != nil {
					res.FailedAt = cp.Pos()
					return fmt.Errorf("skipped macroblock %d: %w", addr, err)
				}
				d.mb.Decoded = true
				res.Decoded++
				addr++
			}
			if run > 0 {
				more = d.r.MoreRBSPData()
			}
		}

		if more {
			if addr >= n {
				return fmt.Errorf("%w: slice runs past macroblock %d", ErrCorrupt, n)
			}
			cp := d.r.Checkpoint()
			d.begin(addr)
			if err := d.decodeMacroblock(); err != nil {
				d.r.Restore(cp)
				d.pic.MBs[addr] = picture.Macroblock{}
				res.FailedAt = cp.Pos()
				return fmt.Errorf("macroblock %d: %w", addr, err)
			}
			d.mb.Decoded = true
			res.Decoded++
			addr++
			more = d.r.MoreRBSPData()
		}
	}
	return nil
}

func (d *decoder) begin(addr int) {
	d.addr = addr
	d.mbx = addr % d.w
	d.mby = addr / d.w
	d.mb = &d.pic.MBs[addr]
	*d.mb = picture.Macroblock{
		SliceNum:       d.sliceNum,
		QP:             d.qp,
		ChromaQPOffset: d.h.PPS.ChromaQPIndexOffset,
		FilterIdc:      d.h.DisableDeblockingFilterIdc,
		AlphaOffset:    d.h.FilterOffsetA,
		BetaOffset:     d.h.FilterOffsetB,
		RefIdx:         [4]int8{-1, -1, -1, -1},
		RefID:          [4]int64{-1, -1, -1, -1},
	}
	d.done = [16]bool{}
}

// neighbourMB returns the macroblock at offset (dx, dy) in macroblock units
// if it is available for prediction from the current one.
func (d *decoder) neighbourMB(dx, dy int) *picture.Macroblock {
	x, y := d.mbx+dx, d.mby+dy
	if x < 0 || y < 0 || x >= d.w || y >= d.pic.HeightMbs {
		return nil
	}
	addr := y*d.w + x
	if addr >= d.addr {
		return nil
	}
	mb := &d.pic.MBs[addr]
	if !mb.Decoded || mb.SliceNum != d.sliceNum {
		return nil
	}
	return mb
}

// neighbourBlock resolves the 4x4 block at (bx, by), given in 4x4 units
// relative to the current macroblock (-1..4). Blocks of the current
// macroblock are always returned; see predictedBlock.
func (d *decoder) neighbourBlock(bx, by int) (*picture.Macroblock, int, bool) {
	dx, dy := 0, 0
	if bx < 0 {
		dx = -1
	} else if bx > 3 {
		dx = 1
	}
	if by < 0 {
		dy = -1
	} else if by > 3 {
		dy = 1
	}
	blk := ((by+4)%4)*4 + (bx+4)%4

	if dx == 0 && dy == 0 {
		return d.mb, blk, true
	}
	if dy > 0 || (dy == 0 && dx > 0) {
		return nil, 0, false
	}
	mb := d.neighbourMB(dx, dy)
	if mb == nil {
		return nil, 0, false
	}
	return mb, blk, true
}

// predictedBlock is neighbourBlock restricted to blocks that precede the
// current one in decoding order.
func (d *decoder) predictedBlock(bx, by int) (*picture.Macroblock, int, bool) {
	mb, blk, ok := d.neighbourBlock(bx, by)
	if ok && mb == d.mb && !d.done[blk] {
		return nil, 0, false
	}
	return mb, blk, ok
}

// intraAvailable applies constrained_intra_pred to a neighbour.
func (d *decoder) intraAvailable(mb *picture.Macroblock) bool {
	if mb == nil {
		return false
	}
	if d.h.PPS.ConstrainedIntraPred && !mb.Type.IsIntra() {
		return false
	}
	return true
}

func (d *decoder) lumaNC(bx, by int) int {
	a, ablk, aok := d.neighbourBlock(bx-1, by)
	b, bblk, bok := d.neighbourBlock(bx, by-1)
	na, nb := 0, 0
	if aok {
		na = int(a.TotalCoeff[ablk])
	}
	if bok {
		nb = int(b.TotalCoeff[bblk])
	}
	return cavlc.PredictNC(na, aok, nb, bok)
}

func (d *decoder) chromaNC(c, bx, by int) int {
	var na, nb int
	aok, bok := true, true
	if bx > 0 {
		na = int(d.mb.ChromaTotalCoeff[c][by*2+bx-1])
	} else if mb := d.neighbourMB(-1, 0); mb != nil {
		na = int(mb.ChromaTotalCoeff[c][by*2+1])
	} else {
		aok = false
	}
	if by > 0 {
		nb = int(d.mb.ChromaTotalCoeff[c][bx])
	} else if mb := d.neighbourMB(0, -1); mb != nil {
		nb = int(mb.ChromaTotalCoeff[c][2+bx])
	} else {
		bok = false
	}
	return cavlc.PredictNC(na, aok, nb, bok)
}

// reference resolves a ref_idx against the slice's list.
func (d *decoder) reference(refIdx int) (*picture.Picture, error) {
	if refIdx < 0 || refIdx >= len(d.refList) || d.refList[refIdx] == nil {
		return nil, fmt.Errorf("%w: ref_idx %d", refs.ErrMissingReference, refIdx)
	}
	return d.refList[refIdx], nil
}
