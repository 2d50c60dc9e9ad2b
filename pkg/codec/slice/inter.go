package slice

import (
	"fmt"

	"github.com/user/h264play/pkg/codec/picture"
)

type partShape int

const (
	shapeOther partShape = iota
	shape16x8
	shape8x16
)

func (d *decoder) decodeInter(mbType int) error {
	d.mb.Type = picture.MbInter
	numRef := d.h.NumRefIdxActive

	var parts []partition
	var partRef []int
	var partMvd []picture.MV
	shape := shapeOther

	readRef := func() (int, error) {
		if numRef <= 1 {
			return 0, nil
		}
		v, err := d.r.ReadTE(uint32(numRef - 1))
		if err != nil {
			return 0, fmt.Errorf("ref_idx_l0: %w", err)
		}
		if int(v) >= numRef {
			return 0, fmt.Errorf("%w: ref_idx_l0 %d", ErrCorrupt, v)
		}
		return int(v), nil
	}
	readMvd := func() (picture.MV, error) {
		x, err := d.r.ReadSE()
		if err != nil {
			return picture.MV{}, fmt.Errorf("mvd_l0: %w", err)
		}
		y, err := d.r.ReadSE()
		if err != nil {
			return picture.MV{}, fmt.Errorf("mvd_l0: %w", err)
		}
		return picture.MV{X: int(x), Y: int(y)}, nil
	}

	switch mbType {
	case pL016x16:
		parts = []partition{{0, 0, 4, 4}}
	case pL016x8:
		parts = []partition{{0, 0, 4, 2}, {0, 2, 4, 2}}
		shape = shape16x8
	case pL08x16:
		parts = []partition{{0, 0, 2, 4}, {2, 0, 2, 4}}
		shape = shape8x16
	}

	if parts != nil {
		partRef = make([]int, len(parts))
		partMvd = make([]picture.MV, len(parts))
		for i := range parts {
			v, err := readRef()
			if err != nil {
				return err
			}
			partRef[i] = v
		}
		for i := range parts {
			v, err := readMvd()
			if err != nil {
				return err
			}
			partMvd[i] = v
		}
	} else {
		var subType [4]int
		for i := 0; i < 4; i++ {
			v, err := d.r.ReadUE()
			if err != nil {
				return fmt.Errorf("sub_mb_type: %w", err)
			}
			if v > 3 {
				return fmt.Errorf("%w: sub_mb_type %d", ErrCorrupt, v)
			}
			subType[i] = int(v)
		}
		var subRef [4]int
		if mbType != p8x8ref0 {
			for i := 0; i < 4; i++ {
				v, err := readRef()
				if err != nil {
					return err
				}
				subRef[i] = v
			}
		}
		for i := 0; i < 4; i++ {
			x0, y0 := (i%2)*2, (i/2)*2
			for _, sp := range subPartitions[subType[i]] {
				v, err := readMvd()
				if err != nil {
					return err
				}
				parts = append(parts, partition{x0 + sp.x, y0 + sp.y, sp.w, sp.h})
				partRef = append(partRef, subRef[i])
				partMvd = append(partMvd, v)
			}
		}
	}

	// motion vectors must be derived in partition order
	for i, pt := range parts {
		mvp := d.predictMV(pt, partRef[i], shape)
		d.assignMotion(pt, partRef[i], mvp.Add(partMvd[i]))
	}

	cbp, err := d.readCBP(cbpInter[:])
	if err != nil {
		return err
	}
	cbpLuma, cbpChroma := cbp&15, cbp>>4
	if cbp != 0 {
		if err := d.readQPDelta(); err != nil {
			return err
		}
	}
	if err := d.parseLumaResidual(cbpLuma); err != nil {
		return err
	}
	if err := d.parseChromaResidual(cbpChroma); err != nil {
		return err
	}

	for i, pt := range parts {
		if err := d.motionCompensate(pt, partRef[i]); err != nil {
			return err
		}
	}

	for rast := 0; rast < 16; rast++ {
		if cbpLuma&(1<<(rasterBlk[rast]/4)) != 0 {
			d.addLumaResidual(rast, true)
		}
	}
	d.addChromaResidual(cbpChroma)
	return nil
}

func (d *decoder) decodeSkip() error {
	d.mb.Type = picture.MbPSkip
	pt := partition{0, 0, 4, 4}
	d.assignMotion(pt, 0, d.skipMV())
	return d.motionCompensate(pt, 0)
}

func (d *decoder) assignMotion(pt partition, refIdx int, mv picture.MV) {
	var refID int64 = -1
	if ref, err := d.reference(refIdx); err == nil {
		refID = ref.Seq
	}
	for y := pt.y; y < pt.y+pt.h; y++ {
		for x := pt.x; x < pt.x+pt.w; x++ {
			blk := y*4 + x
			d.mb.MV[blk] = mv
			i8 := (y/2)*2 + x/2
			d.mb.RefIdx[i8] = int8(refIdx)
			d.mb.RefID[i8] = refID
			d.done[blk] = true
		}
	}
}

// motionAt returns the motion of the 4x4 block at (bx, by) relative to the
// current macroblock. Intra blocks are available with ref -1.
func (d *decoder) motionAt(bx, by int) (picture.MV, int, bool) {
	mb, blk, ok := d.predictedBlock(bx, by)
	if !ok {
		return picture.MV{}, -1, false
	}
	if mb.Type.IsIntra() {
		return picture.MV{}, -1, true
	}
	i8 := (blk/8)*2 + (blk%4)/2
	return mb.MV[blk], int(mb.RefIdx[i8]), true
}

func (d *decoder) predictMV(pt partition, refIdx int, shape partShape) picture.MV {
	mvA, refA, availA := d.motionAt(pt.x-1, pt.y)
	mvB, refB, availB := d.motionAt(pt.x, pt.y-1)
	mvC, refC, availC := d.motionAt(pt.x+pt.w, pt.y-1)
	if !availC {
		mvC, refC, availC = d.motionAt(pt.x-1, pt.y-1)
	}

	switch shape {
	case shape16x8:
		if pt.y == 0 && refB == refIdx {
			return mvB
		}
		if pt.y != 0 && refA == refIdx {
			return mvA
		}
	case shape8x16:
		if pt.x == 0 && refA == refIdx {
			return mvA
		}
		if pt.x != 0 && refC == refIdx {
			return mvC
		}
	}

	if !availB && !availC && availA {
		mvB, refB = mvA, refA
		mvC, refC = mvA, refA
	}

	matches := 0
	var only picture.MV
	for _, n := range []struct {
		mv  picture.MV
		ref int
	}{{mvA, refA}, {mvB, refB}, {mvC, refC}} {
		if n.ref == refIdx {
			matches++
			only = n.mv
		}
	}
	if matches == 1 {
		return only
	}
	return picture.MV{
		X: median(mvA.X, mvB.X, mvC.X),
		Y: median(mvA.Y, mvB.Y, mvC.Y),
	}
}

func (d *decoder) skipMV() picture.MV {
	mvA, refA, availA := d.motionAt(-1, 0)
	mvB, refB, availB := d.motionAt(0, -1)
	if !availA || !availB {
		return picture.MV{}
	}
	if refA == 0 && mvA == (picture.MV{}) {
		return picture.MV{}
	}
	if refB == 0 && mvB == (picture.MV{}) {
		return picture.MV{}
	}
	return d.predictMV(partition{0, 0, 4, 4}, 0, shapeOther)
}

func median(a, b, c int) int {
	return max(min(a, b), min(max(a, b), c))
}

// motionCompensate writes the inter prediction of pt into the picture.
func (d *decoder) motionCompensate(pt partition, refIdx int) error {
	ref, err := d.reference(refIdx)
	if err != nil {
		return err
	}
	if ref.WidthMbs != d.pic.WidthMbs || ref.HeightMbs != d.pic.HeightMbs {
		return fmt.Errorf("%w: reference size differs", ErrCorrupt)
	}
	mv := d.mb.MV[pt.y*4+pt.x]

	var wt *PredWeightTable
	if d.h.Weights != nil && refIdx < len(d.h.Weights.Luma) {
		wt = d.h.Weights
	}

	// luma
	px, py := d.mbx*16+pt.x*4, d.mby*16+pt.y*4
	w, h := pt.w*4, pt.h*4
	stride := d.pic.Stride
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := lumaSample(ref, px+x+(mv.X>>2), py+y+(mv.Y>>2), mv.X&3, mv.Y&3)
			if wt != nil {
				v = weight(v, wt.LumaLog2Denom, wt.Luma[refIdx])
			}
			d.pic.Y[(py+y)*stride+px+x] = clip1(v)
		}
	}

	// chroma, eighth-sample positions
	cpx, cpy := px/2, py/2
	cw, ch := w/2, h/2
	cstride := d.pic.ChromaStride()
	xFrac, yFrac := mv.X&7, mv.Y&7
	for c := 1; c <= 2; c++ {
		plane, _ := d.pic.Plane(c)
		for y := 0; y < ch; y++ {
			for x := 0; x < cw; x++ {
				xi := cpx + x + (mv.X >> 3)
				yi := cpy + y + (mv.Y >> 3)
				a := ref.ChromaAt(c, xi, yi)
				b := ref.ChromaAt(c, xi+1, yi)
				cc := ref.ChromaAt(c, xi, yi+1)
				dd := ref.ChromaAt(c, xi+1, yi+1)
				v := ((8-xFrac)*(8-yFrac)*a + xFrac*(8-yFrac)*b + (8-xFrac)*yFrac*cc + xFrac*yFrac*dd + 32) >> 6
				if wt != nil {
					v = weight(v, wt.ChromaLog2Denom, wt.Chroma[refIdx][c-1])
				}
				plane[(cpy+y)*cstride+cpx+x] = clip1(v)
			}
		}
	}
	return nil
}

func weight(v, logWD int, w Weight) int {
	if logWD >= 1 {
		return ((v*w.Weight + (1 << (logWD - 1))) >> logWD) + w.Offset
	}
	return v*w.Weight + w.Offset
}

// lumaSample interpolates the reference luma at integer position (x, y)
// plus a quarter-sample fraction.
func lumaSample(ref *picture.Picture, x, y, xFrac, yFrac int) int {
	at := ref.LumaAt
	if xFrac == 0 && yFrac == 0 {
		return at(x, y)
	}

	tapH := func(x, y int) int {
		return at(x-2, y) - 5*at(x-1, y) + 20*at(x, y) + 20*at(x+1, y) - 5*at(x+2, y) + at(x+3, y)
	}
	tapV := func(x, y int) int {
		return at(x, y-2) - 5*at(x, y-1) + 20*at(x, y) + 20*at(x, y+1) - 5*at(x, y+2) + at(x, y+3)
	}
	half := func(v int) int { return int(clip1((v + 16) >> 5)) }
	center := func() int {
		j1 := tapH(x, y-2) - 5*tapH(x, y-1) + 20*tapH(x, y) + 20*tapH(x, y+1) - 5*tapH(x, y+2) + tapH(x, y+3)
		return int(clip1((j1 + 512) >> 10))
	}
	avg := func(a, b int) int { return (a + b + 1) >> 1 }

	switch yFrac<<2 | xFrac {
	case 0<<2 | 1: // a
		return avg(at(x, y), half(tapH(x, y)))
	case 0<<2 | 2: // b
		return half(tapH(x, y))
	case 0<<2 | 3: // c
		return avg(at(x+1, y), half(tapH(x, y)))
	case 1<<2 | 0: // d
		return avg(at(x, y), half(tapV(x, y)))
	case 2<<2 | 0: // h
		return half(tapV(x, y))
	case 3<<2 | 0: // n
		return avg(at(x, y+1), half(tapV(x, y)))
	case 1<<2 | 1: // e
		return avg(half(tapH(x, y)), half(tapV(x, y)))
	case 1<<2 | 3: // g
		return avg(half(tapH(x, y)), half(tapV(x+1, y)))
	case 3<<2 | 1: // p
		return avg(half(tapV(x, y)), half(tapH(x, y+1)))
	case 3<<2 | 3: // r
		return avg(half(tapV(x+1, y)), half(tapH(x, y+1)))
	case 1<<2 | 2: // f
		return avg(half(tapH(x, y)), center())
	case 3<<2 | 2: // q
		return avg(center(), half(tapH(x, y+1)))
	case 2<<2 | 1: // i
		return avg(half(tapV(x, y)), center())
	case 2<<2 | 3: // k
		return avg(center(), half(tapV(x+1, y)))
	default: // j
		return center()
	}
}
