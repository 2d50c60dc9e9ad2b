package slice

// edges carries the neighbouring samples of a block being intra predicted.
type edges struct {
	top      [16]int // p[x,-1], above-right samples follow the block width
	left     [16]int // p[-1,y]
	topLeft  int     // p[-1,-1]
	hasTop   bool
	hasLeft  bool
	hasTL    bool
	hasTopRt bool
}

// predIntra4x4 fills out (raster 4x4) and reports whether the mode's
// neighbours were available.
func predIntra4x4(mode int, e *edges, out *[16]int) bool {
	if e.hasTop && !e.hasTopRt {
		for x := 4; x < 8; x++ {
			e.top[x] = e.top[3]
		}
	}

	// p returns p[x,y] for y == -1 or x == -1.
	p := func(x, y int) int {
		if y < 0 {
			if x < 0 {
				return e.topLeft
			}
			return e.top[x]
		}
		return e.left[y]
	}

	switch mode {
	case i4Vertical:
		if !e.hasTop {
			return false
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				out[y*4+x] = e.top[x]
			}
		}

	case i4Horizontal:
		if !e.hasLeft {
			return false
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				out[y*4+x] = e.left[y]
			}
		}

	case i4DC:
		v := 128
		switch {
		case e.hasTop && e.hasLeft:
			v = (e.top[0] + e.top[1] + e.top[2] + e.top[3] + e.left[0] + e.left[1] + e.left[2] + e.left[3] + 4) >> 3
		case e.hasLeft:
			v = (e.left[0] + e.left[1] + e.left[2] + e.left[3] + 2) >> 2
		case e.hasTop:
			v = (e.top[0] + e.top[1] + e.top[2] + e.top[3] + 2) >> 2
		}
		for i := range out {
			out[i] = v
		}

	case i4DiagDownLeft:
		if !e.hasTop {
			return false
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				if x == 3 && y == 3 {
					out[y*4+x] = (p(6, -1) + 3*p(7, -1) + 2) >> 2
				} else {
					out[y*4+x] = (p(x+y, -1) + 2*p(x+y+1, -1) + p(x+y+2, -1) + 2) >> 2
				}
			}
		}

	case i4DiagDownRight:
		if !e.hasTop || !e.hasLeft || !e.hasTL {
			return false
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				switch {
				case x > y:
					out[y*4+x] = (p(x-y-2, -1) + 2*p(x-y-1, -1) + p(x-y, -1) + 2) >> 2
				case x < y:
					out[y*4+x] = (p(-1, y-x-2) + 2*p(-1, y-x-1) + p(-1, y-x) + 2) >> 2
				default:
					out[y*4+x] = (p(0, -1) + 2*p(-1, -1) + p(-1, 0) + 2) >> 2
				}
			}
		}

	case i4VerticalRight:
		if !e.hasTop || !e.hasLeft || !e.hasTL {
			return false
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				z := 2*x - y
				switch {
				case z >= 0 && z%2 == 0:
					out[y*4+x] = (p(x-(y>>1)-1, -1) + p(x-(y>>1), -1) + 1) >> 1
				case z > 0:
					out[y*4+x] = (p(x-(y>>1)-2, -1) + 2*p(x-(y>>1)-1, -1) + p(x-(y>>1), -1) + 2) >> 2
				case z == -1:
					out[y*4+x] = (p(-1, 0) + 2*p(-1, -1) + p(0, -1) + 2) >> 2
				default:
					out[y*4+x] = (p(-1, y-1) + 2*p(-1, y-2) + p(-1, y-3) + 2) >> 2
				}
			}
		}

	case i4HorizontalDown:
		if !e.hasTop || !e.hasLeft || !e.hasTL {
			return false
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				z := 2*y - x
				switch {
				case z >= 0 && z%2 == 0:
					out[y*4+x] = (p(-1, y-(x>>1)-1) + p(-1, y-(x>>1)) + 1) >> 1
				case z > 0:
					out[y*4+x] = (p(-1, y-(x>>1)-2) + 2*p(-1, y-(x>>1)-1) + p(-1, y-(x>>1)) + 2) >> 2
				case z == -1:
					out[y*4+x] = (p(-1, 0) + 2*p(-1, -1) + p(0, -1) + 2) >> 2
				default:
					out[y*4+x] = (p(x-1, -1) + 2*p(x-2, -1) + p(x-3, -1) + 2) >> 2
				}
			}
		}

	case i4VerticalLeft:
		if !e.hasTop {
			return false
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				i := x + (y >> 1)
				if y%2 == 0 {
					out[y*4+x] = (p(i, -1) + p(i+1, -1) + 1) >> 1
				} else {
					out[y*4+x] = (p(i, -1) + 2*p(i+1, -1) + p(i+2, -1) + 2) >> 2
				}
			}
		}

	case i4HorizontalUp:
		if !e.hasLeft {
			return false
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				z := x + 2*y
				i := y + (x >> 1)
				switch {
				case z > 5:
					out[y*4+x] = p(-1, 3)
				case z == 5:
					out[y*4+x] = (p(-1, 2) + 3*p(-1, 3) + 2) >> 2
				case z%2 == 0:
					out[y*4+x] = (p(-1, i) + p(-1, i+1) + 1) >> 1
				default:
					out[y*4+x] = (p(-1, i) + 2*p(-1, i+1) + p(-1, i+2) + 2) >> 2
				}
			}
		}

	default:
		return false
	}
	return true
}

// predIntra16x16 fills out (raster 16x16).
func predIntra16x16(mode int, e *edges, out *[256]int) bool {
	switch mode {
	case i16Vertical:
		if !e.hasTop {
			return false
		}
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				out[y*16+x] = e.top[x]
			}
		}

	case i16Horizontal:
		if !e.hasLeft {
			return false
		}
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				out[y*16+x] = e.left[y]
			}
		}

	case i16DC:
		sumTop, sumLeft := 0, 0
		for i := 0; i < 16; i++ {
			sumTop += e.top[i]
			sumLeft += e.left[i]
		}
		v := 128
		switch {
		case e.hasTop && e.hasLeft:
			v = (sumTop + sumLeft + 16) >> 5
		case e.hasLeft:
			v = (sumLeft + 8) >> 4
		case e.hasTop:
			v = (sumTop + 8) >> 4
		}
		for i := range out {
			out[i] = v
		}

	case i16Plane:
		if !e.hasTop || !e.hasLeft || !e.hasTL {
			return false
		}
		top := func(x int) int {
			if x < 0 {
				return e.topLeft
			}
			return e.top[x]
		}
		left := func(y int) int {
			if y < 0 {
				return e.topLeft
			}
			return e.left[y]
		}
		hh, vv := 0, 0
		for i := 0; i < 8; i++ {
			hh += (i + 1) * (top(8+i) - top(6-i))
			vv += (i + 1) * (left(8+i) - left(6-i))
		}
		a := 16 * (e.left[15] + e.top[15])
		b := (5*hh + 32) >> 6
		c := (5*vv + 32) >> 6
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				out[y*16+x] = int(clip1((a + b*(x-7) + c*(y-7) + 16) >> 5))
			}
		}

	default:
		return false
	}
	return true
}

// predIntraChroma fills out (raster 8x8) for one chroma component.
func predIntraChroma(mode int, e *edges, out *[64]int) bool {
	switch mode {
	case chromaPredDC:
		for blk := 0; blk < 4; blk++ {
			xO, yO := (blk&1)*4, (blk>>1)*4
			sumTop, sumLeft := 0, 0
			for i := 0; i < 4; i++ {
				sumTop += e.top[xO+i]
				sumLeft += e.left[yO+i]
			}
			v := 128
			switch {
			case (xO == 0 && yO == 0) || (xO == 4 && yO == 4):
				switch {
				case e.hasTop && e.hasLeft:
					v = (sumTop + sumLeft + 4) >> 3
				case e.hasLeft:
					v = (sumLeft + 2) >> 2
				case e.hasTop:
					v = (sumTop + 2) >> 2
				}
			case xO == 4 && yO == 0:
				switch {
				case e.hasTop:
					v = (sumTop + 2) >> 2
				case e.hasLeft:
					v = (sumLeft + 2) >> 2
				}
			default:
				switch {
				case e.hasLeft:
					v = (sumLeft + 2) >> 2
				case e.hasTop:
					v = (sumTop + 2) >> 2
				}
			}
			for y := 0; y < 4; y++ {
				for x := 0; x < 4; x++ {
					out[(yO+y)*8+xO+x] = v
				}
			}
		}

	case chromaPredHorizontal:
		if !e.hasLeft {
			return false
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				out[y*8+x] = e.left[y]
			}
		}

	case chromaPredVertical:
		if !e.hasTop {
			return false
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				out[y*8+x] = e.top[x]
			}
		}

	case chromaPredPlane:
		if !e.hasTop || !e.hasLeft || !e.hasTL {
			return false
		}
		top := func(x int) int {
			if x < 0 {
				return e.topLeft
			}
			return e.top[x]
		}
		left := func(y int) int {
			if y < 0 {
				return e.topLeft
			}
			return e.left[y]
		}
		hh, vv := 0, 0
		for i := 0; i < 4; i++ {
			hh += (i + 1) * (top(4+i) - top(2-i))
			vv += (i + 1) * (left(4+i) - left(2-i))
		}
		a := 16 * (e.left[7] + e.top[7])
		b := (34*hh + 32) >> 6
		c := (34*vv + 32) >> 6
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				out[y*8+x] = int(clip1((a + b*(x-3) + c*(y-3) + 16) >> 5))
			}
		}

	default:
		return false
	}
	return true
}
