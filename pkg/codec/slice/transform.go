package slice

// dequant4x4 scales raster-ordered coefficients in place. The DC position
// is skipped when hasDC is false (its value comes from a separate DC transform).
func dequant4x4(c *[16]int, qp int, hasDC bool) {
	m, shift := qp%6, qp/6
	start := 0
	if !hasDC {
		start = 1
	}
	for i := start; i < 16; i++ {
		if c[i] != 0 {
			c[i] = (c[i] * levelScale(m, i)) << shift
		}
	}
}

// idct4x4 applies the inverse core transform to raster coefficients and
// returns the residual samples (already rounded by (x+32)>>6).
func idct4x4(d *[16]int, out *[16]int) {
	var f [16]int
	for i := 0; i < 4; i++ {
		r := d[i*4 : i*4+4]
		e0 := r[0] + r[2]
		e1 := r[0] - r[2]
		e2 := (r[1] >> 1) - r[3]
		e3 := r[1] + (r[3] >> 1)
		f[i*4+0] = e0 + e3
		f[i*4+1] = e1 + e2
		f[i*4+2] = e1 - e2
		f[i*4+3] = e0 - e3
	}
	for j := 0; j < 4; j++ {
		g0 := f[j] + f[8+j]
		g1 := f[j] - f[8+j]
		g2 := (f[4+j] >> 1) - f[12+j]
		g3 := f[4+j] + (f[12+j] >> 1)
		out[j] = (g0 + g3 + 32) >> 6
		out[4+j] = (g1 + g2 + 32) >> 6
		out[8+j] = (g1 - g2 + 32) >> 6
		out[12+j] = (g0 - g3 + 32) >> 6
	}
}

// lumaDC inverts the Intra16x16 DC Hadamard transform and scales the
// result. c is raster ordered; dc[y*4+x] belongs to the 4x4 block at (x, y).
func lumaDC(c *[16]int, qp int, dc *[16]int) {
	var f, g [16]int
	for i := 0; i < 4; i++ {
		r := c[i*4 : i*4+4]
		f[i*4+0] = r[0] + r[1] + r[2] + r[3]
		f[i*4+1] = r[0] + r[1] - r[2] - r[3]
		f[i*4+2] = r[0] - r[1] - r[2] + r[3]
		f[i*4+3] = r[0] - r[1] + r[2] - r[3]
	}
	for j := 0; j < 4; j++ {
		g[j] = f[j] + f[4+j] + f[8+j] + f[12+j]
		g[4+j] = f[j] + f[4+j] - f[8+j] - f[12+j]
		g[8+j] = f[j] - f[4+j] - f[8+j] + f[12+j]
		g[12+j] = f[j] - f[4+j] + f[8+j] - f[12+j]
	}

	scale := 16 * normAdjust[qp%6][0]
	for i := range g {
		if qp >= 36 {
			dc[i] = (g[i] * scale) << (qp/6 - 6)
		} else {
			dc[i] = (g[i]*scale + (1 << (5 - qp/6))) >> (6 - qp/6)
		}
	}
}

// chromaDC inverts the 2x2 chroma DC transform and scales the result.
func chromaDC(c *[4]int, qpc int, dc *[4]int) {
	f0 := c[0] + c[1] + c[2] + c[3]
	f1 := c[0] - c[1] + c[2] - c[3]
	f2 := c[0] + c[1] - c[2] - c[3]
	f3 := c[0] - c[1] - c[2] + c[3]

	scale := 16 * normAdjust[qpc%6][0]
	shift := qpc / 6
	dc[0] = ((f0 * scale) << shift) >> 5
	dc[1] = ((f1 * scale) << shift) >> 5
	dc[2] = ((f2 * scale) << shift) >> 5
	dc[3] = ((f3 * scale) << shift) >> 5
}

func clip1(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// addResidual adds a 4x4 residual to the prediction already in dst.
func addResidual(dst []byte, stride int, res *[16]int) {
	for y := 0; y < 4; y++ {
		row := dst[y*stride : y*stride+4]
		for x := 0; x < 4; x++ {
			row[x] = clip1(int(row[x]) + res[y*4+x])
		}
	}
}
