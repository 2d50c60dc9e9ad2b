// Package bitstream provides a bit-level cursor over RBSP payloads.
package bitstream

import (
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/bits"
)

// Sentinel errors
var (
	// ErrExhausted is returned when a read would advance past the end of the buffer.
	ErrExhausted = errors.New("bitstream: exhausted")
	// ErrInvalidCode is returned for an Exp-Golomb code whose value overflows 32 bits.
	ErrInvalidCode = errors.New("bitstream: invalid exp-golomb code")
)

// Reader reads MSB-first fields from a byte buffer.
// The position only moves forward, except through Restore.
type Reader struct {
	buf  []byte
	pos  int
	stop int // position of the rbsp_stop_one_bit, -1 without one
}

// Checkpoint is an opaque saved position.
type Checkpoint struct {
	pos int
}

// New creates a reader positioned at the first bit of buf.
func New(buf []byte) *Reader {
	return &Reader{buf: buf, stop: stopBit(buf)}
}

// stopBit returns the position of the last set bit of buf, or -1.
func stopBit(buf []byte) int {
	last := len(buf) - 1
	for last >= 0 && buf[last] == 0 {
		last--
	}
	if last < 0 {
		return -1
	}
	b := buf[last]
	stop := last*8 + 7
	for b&1 == 0 {
		b >>= 1
		stop--
	}
	return stop
}

// Pos returns the current bit position.
func (r *Reader) Pos() int {
	return r.pos
}

// BitsLeft returns the number of unread bits.
func (r *Reader) BitsLeft() int {
	return len(r.buf)*8 - r.pos
}

// ReadBits reads n bits (0 <= n <= 32).
func (r *Reader) ReadBits(n int) (uint32, error) {
	if n < 0 || n > 32 {
		return 0, fmt.Errorf("bitstream: invalid width %d", n)
	}
	if n == 0 {
		return 0, nil
	}
	if err := r.need(n); err != nil {
		return 0, err
	}
	return uint32(bits.ReadBitsUnsafe(r.buf, &r.pos, n)), nil
}

// ReadFlag reads a single bit.
func (r *Reader) ReadFlag() (bool, error) {
	if err := r.need(1); err != nil {
		return false, err
	}
	return bits.ReadFlagUnsafe(r.buf, &r.pos), nil
}

// ReadUE reads an unsigned Exp-Golomb value, ue(v).
func (r *Reader) ReadUE() (uint32, error) {
	zeros := 0
	for {
		if err := r.need(1); err != nil {
			return 0, err
		}
		if bits.ReadFlagUnsafe(r.buf, &r.pos) {
			break
		}
		zeros++
		if zeros > 31 {
			return 0, fmt.Errorf("%w at bit %d", ErrInvalidCode, r.pos)
		}
	}
	if zeros == 0 {
		return 0, nil
	}
	if err := r.need(zeros); err != nil {
		return 0, err
	}
	suffix := bits.ReadBitsUnsafe(r.buf, &r.pos, zeros)
	return uint32(uint64(1)<<zeros - 1 + suffix), nil
}

// ReadSE reads a signed Exp-Golomb value, se(v).
func (r *Reader) ReadSE() (int32, error) {
	v, err := r.ReadUE()
	if err != nil {
		return 0, err
	}
	if v&1 != 0 {
		return int32((int64(v) + 1) / 2), nil
	}
	return int32(-int64(v) / 2), nil
}

// ReadTE reads a truncated Exp-Golomb value, te(v), whose range is [0, max].
func (r *Reader) ReadTE(max uint32) (uint32, error) {
	if max == 0 {
		return 0, nil
	}
	if max == 1 {
		b, err := r.ReadFlag()
		if err != nil {
			return 0, err
		}
		if b {
			return 0, nil
		}
		return 1, nil
	}
	return r.ReadUE()
}

// Skip advances n bits.
func (r *Reader) Skip(n int) error {
	if n > r.BitsLeft() {
		r.pos = len(r.buf) * 8
		return ErrExhausted
	}
	r.pos += n
	return nil
}

// ByteAligned reports whether the cursor sits on a byte boundary.
func (r *Reader) ByteAligned() bool {
	return r.pos&7 == 0
}

// Align advances to the next byte boundary.
func (r *Reader) Align() {
	r.pos = (r.pos + 7) &^ 7
	if r.pos > len(r.buf)*8 {
		r.pos = len(r.buf) * 8
	}
}

// MoreRBSPData reports whether data remains before the rbsp_stop_one_bit,
// which is the last set bit of the buffer.
func (r *Reader) MoreRBSPData() bool {
	return r.pos < r.stop
}

// Checkpoint saves the current position.
func (r *Reader) Checkpoint() Checkpoint {
	return Checkpoint{pos: r.pos}
}

// Pos returns the saved bit position.
func (c Checkpoint) Pos() int { return c.pos }

// Restore rewinds to a position saved by Checkpoint.
func (r *Reader) Restore(c Checkpoint) {
	r.pos = c.pos
}

func (r *Reader) need(n int) error {
	if err := bits.HasSpace(r.buf, r.pos, n); err != nil {
		return fmt.Errorf("%w at bit %d", ErrExhausted, r.pos)
	}
	return nil
}
