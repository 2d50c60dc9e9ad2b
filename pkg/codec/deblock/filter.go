// Package deblock implements the H.264 in-loop deblocking filter for
// progressive 4:2:0 pictures.
package deblock

import (
	"github.com/user/h264play/pkg/codec/picture"
	"github.com/user/h264play/pkg/codec/slice"
)

// Filter smooths the block edges of every decoded macroblock of pic in
// place. Macroblocks are visited in raster order; each one filters its
// vertical edges first, left to right, then its horizontal edges, top to
// bottom. Undecoded macroblocks and edges towards them are left alone.
func Filter(pic *picture.Picture) {
	for addr := range pic.MBs {
		q := &pic.MBs[addr]
		if !q.Decoded || q.FilterIdc == 1 {
			continue
		}
		mbx, mby := addr%pic.WidthMbs, addr/pic.WidthMbs
		f := edgeFilter{pic: pic, q: q, mbx: mbx, mby: mby}

		f.left = f.neighbour(mbx-1, mby)
		f.top = f.neighbour(mbx, mby-1)

		for dir := 0; dir < 2; dir++ {
			for k := 0; k < 4; k++ {
				f.filterEdge(dir, k)
			}
		}
	}
}

type edgeFilter struct {
	pic      *picture.Picture
	q        *picture.Macroblock
	left     *picture.Macroblock
	top      *picture.Macroblock
	mbx, mby int
}

func (f *edgeFilter) neighbour(x, y int) *picture.Macroblock {
	if x < 0 || y < 0 {
		return nil
	}
	mb := f.pic.MB(y*f.pic.WidthMbs + x)
	if !mb.Decoded {
		return nil
	}
	if f.q.FilterIdc == 2 && mb.SliceNum != f.q.SliceNum {
		return nil
	}
	return mb
}

// filterEdge filters luma edge k in direction dir (0 vertical, 1
// horizontal) and, for k 0 and 2, the matching chroma edge.
func (f *edgeFilter) filterEdge(dir, k int) {
	p := f.q
	if k == 0 {
		if dir == 0 {
			p = f.left
		} else {
			p = f.top
		}
		if p == nil {
			return
		}
	}

	var bs [4]int
	active := false
	for i := 0; i < 4; i++ {
		bs[i] = f.strength(p, dir, k, i)
		if bs[i] != 0 {
			active = true
		}
	}
	if !active {
		return
	}

	qpAv := (p.QP + f.q.QP + 1) >> 1
	f.filterLuma(dir, k, bs, qpAv)

	if k == 0 || k == 2 {
		qpc := (slice.ChromaQP(p.QP, p.ChromaQPOffset) + slice.ChromaQP(f.q.QP, f.q.ChromaQPOffset) + 1) >> 1
		f.filterChroma(1, dir, k/2, bs, qpc)
		f.filterChroma(2, dir, k/2, bs, qpc)
	}
}

// strength derives the boundary strength of segment i of edge k.
func (f *edgeFilter) strength(p *picture.Macroblock, dir, k, i int) int {
	q := f.q
	mbEdge := k == 0
	if p.Type.IsIntra() || q.Type.IsIntra() {
		if mbEdge {
			return 4
		}
		return 3
	}

	var qBlk, pBlk int
	if dir == 0 {
		qBlk = i*4 + k
		pBlk = i*4 + (k+3)%4
	} else {
		qBlk = k*4 + i
		pBlk = ((k+3)%4)*4 + i
	}

	if q.TotalCoeff[qBlk] != 0 || p.TotalCoeff[pBlk] != 0 {
		return 2
	}

	q8 := (qBlk/8)*2 + (qBlk%4)/2
	p8 := (pBlk/8)*2 + (pBlk%4)/2
	if q.RefID[q8] != p.RefID[p8] {
		return 1
	}
	dmv := q.MV[qBlk]
	pmv := p.MV[pBlk]
	if abs(dmv.X-pmv.X) >= 4 || abs(dmv.Y-pmv.Y) >= 4 {
		return 1
	}
	return 0
}

func (f *edgeFilter) thresholds(qpAv int) (indexA, alpha, beta int) {
	indexA = clip3(0, 51, qpAv+f.q.AlphaOffset)
	indexB := clip3(0, 51, qpAv+f.q.BetaOffset)
	return indexA, alphaTable[indexA], betaTable[indexB]
}

func (f *edgeFilter) filterLuma(dir, k int, bs [4]int, qpAv int) {
	indexA, alpha, beta := f.thresholds(qpAv)
	if alpha == 0 || beta == 0 {
		return
	}
	stride := f.pic.Stride
	x0, y0 := f.mbx*16, f.mby*16

	for s := 0; s < 16; s++ {
		strength := bs[s/4]
		if strength == 0 {
			continue
		}
		var pos, step int
		if dir == 0 {
			pos = (y0+s)*stride + x0 + k*4
			step = 1
		} else {
			pos = (y0+k*4)*stride + x0 + s
			step = stride
		}
		filterLumaLine(f.pic.Y, pos, step, strength, indexA, alpha, beta)
	}
}

func (f *edgeFilter) filterChroma(c, dir, e int, bs [4]int, qpc int) {
	indexA, alpha, beta := f.thresholds(qpc)
	if alpha == 0 || beta == 0 {
		return
	}
	plane, stride := f.pic.Plane(c)
	x0, y0 := f.mbx*8, f.mby*8

	for s := 0; s < 8; s++ {
		strength := bs[s/2]
		if strength == 0 {
			continue
		}
		var pos, step int
		if dir == 0 {
			pos = (y0+s)*stride + x0 + e*4
			step = 1
		} else {
			pos = (y0+e*4)*stride + x0 + s
			step = stride
		}
		filterChromaLine(plane, pos, step, strength, indexA, alpha, beta)
	}
}

// filterLumaLine filters the samples across one edge; pos indexes q0 and
// step is the distance between consecutive samples across the edge.
func filterLumaLine(s []byte, pos, step, bs, indexA, alpha, beta int) {
	p0, p1, p2 := int(s[pos-step]), int(s[pos-2*step]), int(s[pos-3*step])
	q0, q1, q2 := int(s[pos]), int(s[pos+step]), int(s[pos+2*step])

	if abs(p0-q0) >= alpha || abs(p1-p0) >= beta || abs(q1-q0) >= beta {
		return
	}
	ap := abs(p2 - p0)
	aq := abs(q2 - q0)

	if bs < 4 {
		tc0 := tc0Table[indexA][bs-1]
		tc := tc0
		if ap < beta {
			tc++
		}
		if aq < beta {
			tc++
		}
		delta := clip3(-tc, tc, (((q0-p0)<<2)+(p1-q1)+4)>>3)
		s[pos-step] = clip1(p0 + delta)
		s[pos] = clip1(q0 - delta)
		if ap < beta {
			s[pos-2*step] = clip1(p1 + clip3(-tc0, tc0, (p2+((p0+q0+1)>>1)-(p1<<1))>>1))
		}
		if aq < beta {
			s[pos+step] = clip1(q1 + clip3(-tc0, tc0, (q2+((p0+q0+1)>>1)-(q1<<1))>>1))
		}
		return
	}

	p3, q3 := int(s[pos-4*step]), int(s[pos+3*step])
	strong := abs(p0-q0) < (alpha>>2)+2
	if strong && ap < beta {
		s[pos-step] = byte((p2 + 2*p1 + 2*p0 + 2*q0 + q1 + 4) >> 3)
		s[pos-2*step] = byte((p2 + p1 + p0 + q0 + 2) >> 2)
		s[pos-3*step] = byte((2*p3 + 3*p2 + p1 + p0 + q0 + 4) >> 3)
	} else {
		s[pos-step] = byte((2*p1 + p0 + q1 + 2) >> 2)
	}
	if strong && aq < beta {
		s[pos] = byte((p1 + 2*p0 + 2*q0 + 2*q1 + q2 + 4) >> 3)
		s[pos+step] = byte((p0 + q0 + q1 + q2 + 2) >> 2)
		s[pos+2*step] = byte((2*q3 + 3*q2 + q1 + q0 + p0 + 4) >> 3)
	} else {
		s[pos] = byte((2*q1 + q0 + p1 + 2) >> 2)
	}
}

func filterChromaLine(s []byte, pos, step, bs, indexA, alpha, beta int) {
	p0, p1 := int(s[pos-step]), int(s[pos-2*step])
	q0, q1 := int(s[pos]), int(s[pos+step])

	if abs(p0-q0) >= alpha || abs(p1-p0) >= beta || abs(q1-q0) >= beta {
		return
	}
	if bs < 4 {
		tc := tc0Table[indexA][bs-1] + 1
		delta := clip3(-tc, tc, (((q0-p0)<<2)+(p1-q1)+4)>>3)
		s[pos-step] = clip1(p0 + delta)
		s[pos] = clip1(q0 - delta)
		return
	}
	s[pos-step] = byte((2*p1 + p0 + q1 + 2) >> 2)
	s[pos] = byte((2*q1 + q0 + p1 + 2) >> 2)
}

func clip3(lo, hi, v int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clip1(v int) byte {
	return byte(clip3(0, 255, v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
