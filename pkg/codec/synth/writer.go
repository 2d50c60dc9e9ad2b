// Package synth writes small H.264 baseline elementary streams. It produces
// the subset of syntax the decoder understands and is used to build test
// fixtures and the generate command's sample clips.
package synth

import (
	"github.com/bluenviron/mediacommon/v2/pkg/bits"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

// Writer accumulates an RBSP bit by bit.
type Writer struct {
	buf []byte
	pos int
}

// WriteBits appends the n low bits of v, MSB first.
func (w *Writer) WriteBits(v uint32, n int) {
	if n <= 0 {
		return
	}
	for (w.pos+n+7)/8 > len(w.buf) {
		w.buf = append(w.buf, 0)
	}
	bits.WriteBitsUnsafe(w.buf, &w.pos, uint64(v)&(1<<n-1), n)
}

// WriteFlag appends a single bit.
func (w *Writer) WriteFlag(f bool) {
	if f {
		w.WriteBits(1, 1)
	} else {
		w.WriteBits(0, 1)
	}
}

// WriteUE appends an unsigned Exp-Golomb code.
func (w *Writer) WriteUE(v uint32) {
	x := uint64(v) + 1
	n := 0
	for t := x; t > 1; t >>= 1 {
		n++
	}
	w.WriteBits(0, n)
	// n+1 significant bits, may exceed 32 only for values near 2^32
	if n+1 > 32 {
		w.WriteBits(uint32(x>>32), n+1-32)
		w.WriteBits(uint32(x), 32)
		return
	}
	w.WriteBits(uint32(x), n+1)
}

// WriteSE appends a signed Exp-Golomb code.
func (w *Writer) WriteSE(v int32) {
	if v > 0 {
		w.WriteUE(uint32(v)*2 - 1)
	} else {
		w.WriteUE(uint32(-v) * 2)
	}
}

// WriteTE appends a truncated Exp-Golomb code with range 0..max.
func (w *Writer) WriteTE(v, max uint32) {
	if max == 1 {
		w.WriteFlag(v == 0)
		return
	}
	w.WriteUE(v)
}

// AlignZero pads with zero bits to the next byte boundary.
func (w *Writer) AlignZero() {
	if r := w.pos % 8; r != 0 {
		w.WriteBits(0, 8-r)
	}
}

// WriteTrailing appends rbsp_trailing_bits.
func (w *Writer) WriteTrailing() {
	w.WriteBits(1, 1)
	w.AlignZero()
}

// Len returns the number of bits written.
func (w *Writer) Len() int {
	return w.pos
}

// Bytes returns the written bytes. The last byte is zero padded.
func (w *Writer) Bytes() []byte {
	return w.buf[:(w.pos+7)/8]
}

// Escape inserts emulation prevention bytes into an RBSP.
func Escape(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp)+len(rbsp)/64+1)
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 3 {
			out = append(out, 3)
			zeros = 0
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	// an RBSP ending in zero would merge into the next start code
	if len(out) > 0 && out[len(out)-1] == 0 {
		out = append(out, 3)
	}
	return out
}

// NALU prefixes an escaped RBSP with a NAL header.
func NALU(refIdc uint8, typ h264.NALUType, rbsp []byte) []byte {
	return append([]byte{refIdc<<5 | byte(typ)}, Escape(rbsp)...)
}
