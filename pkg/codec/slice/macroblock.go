package slice

import (
	"fmt"

	"github.com/user/h264play/pkg/codec/cavlc"
	"github.com/user/h264play/pkg/codec/picture"
)

func (d *decoder) decodeMacroblock() error {
	mbType, err := d.r.ReadUE()
	if err != nil {
		return fmt.Errorf("mb_type: %w", err)
	}

	if d.h.Type == TypeP {
		if mbType < 5 {
			return d.decodeInter(int(mbType))
		}
		mbType -= 5
	}

	switch {
	case mbType == 0:
		return d.decodeIntra4x4()
	case mbType == 25:
		return d.decodePCM()
	case mbType < 25:
		return d.decodeIntra16x16(int(mbType))
	default:
		return fmt.Errorf("%w: mb_type %d", ErrCorrupt, mbType)
	}
}

func (d *decoder) decodePCM() error {
	d.mb.Type = picture.MbIPCM
	d.r.Align()

	px, py := d.mbx*16, d.mby*16
	stride := d.pic.Stride
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v, err := d.r.ReadBits(8)
			if err != nil {
				return fmt.Errorf("pcm_sample_luma: %w", err)
			}
			d.pic.Y[(py+y)*stride+px+x] = byte(v)
		}
	}

	cstride := d.pic.ChromaStride()
	for c := 1; c <= 2; c++ {
		plane, _ := d.pic.Plane(c)
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				v, err := d.r.ReadBits(8)
				if err != nil {
					return fmt.Errorf("pcm_sample_chroma: %w", err)
				}
				plane[(d.mby*8+y)*cstride+d.mbx*8+x] = byte(v)
			}
		}
	}

	// deblocking treats I_PCM as QP 0; the running QP is untouched
	d.mb.QP = 0
	for i := range d.mb.TotalCoeff {
		d.mb.TotalCoeff[i] = 16
	}
	for c := 0; c < 2; c++ {
		for i := 0; i < 4; i++ {
			d.mb.ChromaTotalCoeff[c][i] = 16
		}
	}
	return nil
}

func (d *decoder) decodeIntra4x4() error {
	d.mb.Type = picture.MbI4x4

	var prevFlag [16]bool
	var rem [16]int
	for blk := 0; blk < 16; blk++ {
		f, err := d.r.ReadFlag()
		if err != nil {
			return fmt.Errorf("prev_intra4x4_pred_mode_flag: %w", err)
		}
		prevFlag[blk] = f
		if !f {
			v, err := d.r.ReadBits(3)
			if err != nil {
				return fmt.Errorf("rem_intra4x4_pred_mode: %w", err)
			}
			rem[blk] = int(v)
		}
	}

	chromaMode, err := d.readChromaPredMode()
	if err != nil {
		return err
	}

	cbp, err := d.readCBP(cbpIntra[:])
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

	for blkIdx := 0; blkIdx < 16; blkIdx++ {
		rast := blkRaster[blkIdx]
		bx, by := rast%4, rast/4

		pred := d.predIntra4x4Mode(bx, by)
		mode := pred
		if !prevFlag[blkIdx] {
			if rem[blkIdx] < pred {
				mode = rem[blkIdx]
			} else {
				mode = rem[blkIdx] + 1
			}
		}
		d.mb.Intra4x4Modes[rast] = int8(mode)

		var e edges
		d.lumaEdges4x4(bx, by, &e)
		var p [16]int
		if !predIntra4x4(mode, &e, &p) {
			return fmt.Errorf("%w: intra 4x4 mode %d without neighbours", ErrCorrupt, mode)
		}

		px, py := d.mbx*16+bx*4, d.mby*16+by*4
		dst := d.pic.Y[py*d.pic.Stride+px:]
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				dst[y*d.pic.Stride+x] = byte(p[y*4+x])
			}
		}
		if cbpLuma&(1<<(blkIdx/4)) != 0 {
			d.addLumaResidual(rast, true)
		}
		d.done[rast] = true
	}

	return d.reconstructIntraChroma(chromaMode, cbpChroma)
}

func (d *decoder) decodeIntra16x16(mbType int) error {
	d.mb.Type = picture.MbI16x16
	a := mbType - 1
	predMode := a % 4
	cbpChroma := (a / 4) % 3
	cbpLuma := 0
	if a >= 12 {
		cbpLuma = 15
	}

	chromaMode, err := d.readChromaPredMode()
	if err != nil {
		return err
	}
	if err := d.readQPDelta(); err != nil {
		return err
	}

	// Intra16x16DCLevel
	var scan [16]int
	if _, err := cavlc.ReadBlock(d.r, d.lumaNC(0, 0), scan[:], 0, 15, 16); err != nil {
		return fmt.Errorf("Intra16x16DCLevel: %w", err)
	}
	var dcIn [16]int
	for k := 0; k < 16; k++ {
		dcIn[zigzag4x4[k]] = scan[k]
	}

	// Intra16x16ACLevel
	for blkIdx := 0; blkIdx < 16; blkIdx++ {
		rast := blkRaster[blkIdx]
		d.coeffs[rast] = [16]int{}
		if cbpLuma == 0 {
			d.mb.TotalCoeff[rast] = 0
			continue
		}
		var ac [15]int
		tc, err := cavlc.ReadBlock(d.r, d.lumaNC(rast%4, rast/4), ac[:], 0, 14, 15)
		if err != nil {
			return fmt.Errorf("Intra16x16ACLevel: %w", err)
		}
		d.mb.TotalCoeff[rast] = uint8(tc)
		for k := 0; k < 15; k++ {
			d.coeffs[rast][zigzag4x4[k+1]] = ac[k]
		}
	}

	if err := d.parseChromaResidual(cbpChroma); err != nil {
		return err
	}

	var e edges
	d.lumaEdges16x16(&e)
	var p [256]int
	if !predIntra16x16(predMode, &e, &p) {
		return fmt.Errorf("%w: intra 16x16 mode %d without neighbours", ErrCorrupt, predMode)
	}
	px, py := d.mbx*16, d.mby*16
	for y := 0; y < 16; y++ {
		row := d.pic.Y[(py+y)*d.pic.Stride+px:]
		for x := 0; x < 16; x++ {
			row[x] = byte(p[y*16+x])
		}
	}

	lumaDC(&dcIn, d.qp, &d.dc)
	for rast := 0; rast < 16; rast++ {
		c := &d.coeffs[rast]
		dequant4x4(c, d.qp, false)
		c[0] = d.dc[rast]
		d.addCoeffs(c, d.pic.Y, d.pic.Stride, px+(rast%4)*4, py+(rast/4)*4)
	}

	return d.reconstructIntraChroma(chromaMode, cbpChroma)
}

func (d *decoder) readChromaPredMode() (int, error) {
	v, err := d.r.ReadUE()
	if err != nil {
		return 0, fmt.Errorf("intra_chroma_pred_mode: %w", err)
	}
	if v > 3 {
		return 0, fmt.Errorf("%w: intra_chroma_pred_mode %d", ErrCorrupt, v)
	}
	return int(v), nil
}

func (d *decoder) readCBP(table []uint8) (int, error) {
	v, err := d.r.ReadUE()
	if err != nil {
		return 0, fmt.Errorf("coded_block_pattern: %w", err)
	}
	if v > 47 {
		return 0, fmt.Errorf("%w: coded_block_pattern %d", ErrCorrupt, v)
	}
	return int(table[v]), nil
}

func (d *decoder) readQPDelta() error {
	delta, err := d.r.ReadSE()
	if err != nil {
		return fmt.Errorf("mb_qp_delta: %w", err)
	}
	if delta < -26 || delta > 25 {
		return fmt.Errorf("%w: mb_qp_delta %d", ErrCorrupt, delta)
	}
	d.qp = (d.qp + int(delta) + 52) % 52
	d.mb.QP = d.qp
	return nil
}

// parseLumaResidual reads the 4x4 luma blocks of the 8x8 quadrants set in cbpLuma.
func (d *decoder) parseLumaResidual(cbpLuma int) error {
	for blkIdx := 0; blkIdx < 16; blkIdx++ {
		rast := blkRaster[blkIdx]
		d.coeffs[rast] = [16]int{}
		if cbpLuma&(1<<(blkIdx/4)) == 0 {
			d.mb.TotalCoeff[rast] = 0
			continue
		}
		var scan [16]int
		tc, err := cavlc.ReadBlock(d.r, d.lumaNC(rast%4, rast/4), scan[:], 0, 15, 16)
		if err != nil {
			return fmt.Errorf("LumaLevel4x4[%d]: %w", blkIdx, err)
		}
		d.mb.TotalCoeff[rast] = uint8(tc)
		for k := 0; k < 16; k++ {
			d.coeffs[rast][zigzag4x4[k]] = scan[k]
		}
	}
	return nil
}

func (d *decoder) parseChromaResidual(cbpChroma int) error {
	if cbpChroma > 2 {
		return fmt.Errorf("%w: chroma cbp %d", ErrCorrupt, cbpChroma)
	}
	for c := 0; c < 2; c++ {
		d.cdc[c] = [4]int{}
		for blk := 0; blk < 4; blk++ {
			d.cac[c][blk] = [16]int{}
			d.mb.ChromaTotalCoeff[c][blk] = 0
		}
	}
	if cbpChroma == 0 {
		return nil
	}

	for c := 0; c < 2; c++ {
		if _, err := cavlc.ReadBlock(d.r, cavlc.ChromaDCNC, d.cdc[c][:], 0, 3, 4); err != nil {
			return fmt.Errorf("ChromaDCLevel[%d]: %w", c, err)
		}
	}
	if cbpChroma < 2 {
		return nil
	}
	for c := 0; c < 2; c++ {
		for blk := 0; blk < 4; blk++ {
			var ac [15]int
			tc, err := cavlc.ReadBlock(d.r, d.chromaNC(c, blk%2, blk/2), ac[:], 0, 14, 15)
			if err != nil {
				return fmt.Errorf("ChromaACLevel[%d][%d]: %w", c, blk, err)
			}
			d.mb.ChromaTotalCoeff[c][blk] = uint8(tc)
			for k := 0; k < 15; k++ {
				d.cac[c][blk][zigzag4x4[k+1]] = ac[k]
			}
		}
	}
	return nil
}

// addLumaResidual dequantizes and adds the parsed 4x4 block at raster index rast.
func (d *decoder) addLumaResidual(rast int, hasDC bool) {
	c := &d.coeffs[rast]
	dequant4x4(c, d.qp, hasDC)
	d.addCoeffs(c, d.pic.Y, d.pic.Stride, d.mbx*16+(rast%4)*4, d.mby*16+(rast/4)*4)
}

func (d *decoder) addCoeffs(c *[16]int, plane []byte, stride, px, py int) {
	nonZero := false
	for _, v := range c {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		return
	}
	var res [16]int
	idct4x4(c, &res)
	addResidual(plane[py*stride+px:], stride, &res)
}

// addChromaResidual adds the parsed chroma DC and AC residual of both components.
func (d *decoder) addChromaResidual(cbpChroma int) {
	if cbpChroma == 0 {
		return
	}
	offsets := [2]int{d.h.PPS.ChromaQPIndexOffset, d.h.PPS.SecondChromaQPIndexOffset}
	cstride := d.pic.ChromaStride()
	for c := 0; c < 2; c++ {
		qpc := ChromaQP(d.qp, offsets[c])
		var dc [4]int
		chromaDC(&d.cdc[c], qpc, &dc)
		plane, _ := d.pic.Plane(c + 1)
		for blk := 0; blk < 4; blk++ {
			coeffs := &d.cac[c][blk]
			dequant4x4(coeffs, qpc, false)
			coeffs[0] = dc[blk]
			d.addCoeffs(coeffs, plane, cstride, d.mbx*8+(blk%2)*4, d.mby*8+(blk/2)*4)
		}
	}
}

func (d *decoder) reconstructIntraChroma(mode, cbpChroma int) error {
	cstride := d.pic.ChromaStride()
	for c := 1; c <= 2; c++ {
		var e edges
		d.chromaEdges(c, &e)
		var p [64]int
		if !predIntraChroma(mode, &e, &p) {
			return fmt.Errorf("%w: intra chroma mode %d without neighbours", ErrCorrupt, mode)
		}
		plane, _ := d.pic.Plane(c)
		for y := 0; y < 8; y++ {
			row := plane[(d.mby*8+y)*cstride+d.mbx*8:]
			for x := 0; x < 8; x++ {
				row[x] = byte(p[y*8+x])
			}
		}
	}
	d.addChromaResidual(cbpChroma)
	return nil
}

// predIntra4x4Mode derives predIntra4x4PredMode for the block at (bx, by).
func (d *decoder) predIntra4x4Mode(bx, by int) int {
	a, ablk, aok := d.neighbourBlock(bx-1, by)
	b, bblk, bok := d.neighbourBlock(bx, by-1)
	if !aok || !bok || !d.intraAvailable(a) || !d.intraAvailable(b) {
		return i4DC
	}
	modeA, modeB := i4DC, i4DC
	if a.Type == picture.MbI4x4 {
		modeA = int(a.Intra4x4Modes[ablk])
	}
	if b.Type == picture.MbI4x4 {
		modeB = int(b.Intra4x4Modes[bblk])
	}
	return min(modeA, modeB)
}

func (d *decoder) lumaEdges4x4(bx, by int, e *edges) {
	stride := d.pic.Stride
	px, py := d.mbx*16+bx*4, d.mby*16+by*4

	if mb, _, ok := d.predictedBlock(bx, by-1); ok && d.intraAvailable(mb) {
		e.hasTop = true
		for x := 0; x < 4; x++ {
			e.top[x] = int(d.pic.Y[(py-1)*stride+px+x])
		}
	}
	if mb, _, ok := d.predictedBlock(bx+1, by-1); ok && d.intraAvailable(mb) {
		e.hasTopRt = true
		for x := 4; x < 8; x++ {
			e.top[x] = int(d.pic.Y[(py-1)*stride+px+x])
		}
	}
	if mb, _, ok := d.predictedBlock(bx-1, by); ok && d.intraAvailable(mb) {
		e.hasLeft = true
		for y := 0; y < 4; y++ {
			e.left[y] = int(d.pic.Y[(py+y)*stride+px-1])
		}
	}
	if mb, _, ok := d.predictedBlock(bx-1, by-1); ok && d.intraAvailable(mb) {
		e.hasTL = true
		e.topLeft = int(d.pic.Y[(py-1)*stride+px-1])
	}
}

func (d *decoder) lumaEdges16x16(e *edges) {
	stride := d.pic.Stride
	px, py := d.mbx*16, d.mby*16
	if d.intraAvailable(d.neighbourMB(0, -1)) {
		e.hasTop = true
		for x := 0; x < 16; x++ {
			e.top[x] = int(d.pic.Y[(py-1)*stride+px+x])
		}
	}
	if d.intraAvailable(d.neighbourMB(-1, 0)) {
		e.hasLeft = true
		for y := 0; y < 16; y++ {
			e.left[y] = int(d.pic.Y[(py+y)*stride+px-1])
		}
	}
	if d.intraAvailable(d.neighbourMB(-1, -1)) {
		e.hasTL = true
		e.topLeft = int(d.pic.Y[(py-1)*stride+px-1])
	}
}

func (d *decoder) chromaEdges(c int, e *edges) {
	plane, stride := d.pic.Plane(c)
	px, py := d.mbx*8, d.mby*8
	if d.intraAvailable(d.neighbourMB(0, -1)) {
		e.hasTop = true
		for x := 0; x < 8; x++ {
			e.top[x] = int(plane[(py-1)*stride+px+x])
		}
	}
	if d.intraAvailable(d.neighbourMB(-1, 0)) {
		e.hasLeft = true
		for y := 0; y < 8; y++ {
			e.left[y] = int(plane[(py+y)*stride+px-1])
		}
	}
	if d.intraAvailable(d.neighbourMB(-1, -1)) {
		e.hasTL = true
		e.topLeft = int(plane[(py-1)*stride+px-1])
	}
}
