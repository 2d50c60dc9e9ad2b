// Package nal splits Annex-B byte streams into NAL units.
package nal

import (
	"errors"
	"fmt"
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

// Sentinel errors
var (
	// ErrMalformedStartCode is returned when the stream holds no start code at all.
	ErrMalformedStartCode = errors.New("nal: no start code found")
	// ErrForbiddenBit is returned for a unit whose forbidden_zero_bit is set.
	ErrForbiddenBit = errors.New("nal: forbidden_zero_bit set")
)

// Unit is a demuxed NAL unit.
type Unit struct {
	Type   h264.NALUType
	RefIdc uint8
	// Payload is the RBSP following the one-byte header, emulation prevention removed.
	Payload []byte
	// Raw is the unit as it appeared in the stream, header included.
	Raw []byte
	// Offset is the byte offset of Raw in the source stream.
	Offset int
}

// IsSlice reports whether the unit carries coded slice data.
func (u Unit) IsSlice() bool {
	return u.Type == h264.NALUTypeNonIDR || u.Type == h264.NALUTypeIDR
}

// IsIDR reports whether the unit is an IDR slice.
func (u Unit) IsIDR() bool {
	return u.Type == h264.NALUTypeIDR
}

func (u Unit) String() string {
	return fmt.Sprintf("%s(ref=%d, %d bytes)", u.Type, u.RefIdc, len(u.Raw))
}

// Demuxer lazily yields the NAL units of an Annex-B stream.
// It is not restartable; create a new one to reprocess the stream.
type Demuxer struct {
	buf   []byte
	pos   int
	count int
}

// NewDemuxer positions a demuxer at the first start code of buf.
func NewDemuxer(buf []byte) (*Demuxer, error) {
	start, prefix := findStartCode(buf, 0)
	if start < 0 {
		return nil, ErrMalformedStartCode
	}
	return &Demuxer{buf: buf, pos: start + prefix}, nil
}

// Count returns the number of units yielded so far.
func (d *Demuxer) Count() int {
	return d.count
}

// Next returns the next unit, or io.EOF once the stream is consumed.
// A unit with a corrupt header is reported with an error; the demuxer
// stays usable and the following call moves on to the next unit.
func (d *Demuxer) Next() (Unit, error) {
	for {
		if d.pos >= len(d.buf) {
			return Unit{}, io.EOF
		}

		begin := d.pos
		next, prefix := findStartCode(d.buf, begin)
		end := next
		if next < 0 {
			end = len(d.buf)
			d.pos = len(d.buf)
		} else {
			d.pos = next + prefix
		}

		// trailing_zero_8bits belong to no unit
		for end > begin && d.buf[end-1] == 0 {
			end--
		}
		if end == begin {
			continue
		}

		raw := d.buf[begin:end]
		d.count++

		header := raw[0]
		if header&0x80 != 0 {
			return Unit{Raw: raw, Offset: begin}, fmt.Errorf("%w at offset %d", ErrForbiddenBit, begin)
		}

		return Unit{
			Type:    h264.NALUType(header & 0x1F),
			RefIdc:  (header >> 5) & 0x03,
			Payload: unescape(raw[1:]),
			Raw:     raw,
			Offset:  begin,
		}, nil
	}
}

// unescape drops each emulation_prevention_three_byte: a 03 that follows
// 00 00 and precedes a byte no greater than 03 or ends the unit. Any other
// 00 00 03 sequence is left untouched. The input is not modified.
func unescape(b []byte) []byte {
	out := b
	copied := false
	zeros := 0
	for i := 0; i < len(b); i++ {
		c := b[i]
		if zeros >= 2 && c == 0x03 && (i+1 == len(b) || b[i+1] <= 0x03) {
			if !copied {
				out = append(make([]byte, 0, len(b)), b[:i]...)
				copied = true
			}
			zeros = 0
			continue
		}
		if copied {
			out = append(out, c)
		}
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// findStartCode returns the index of the next 00 00 01 prefix at or after
// from, extended backwards to cover a 4-byte prefix, and the prefix length.
func findStartCode(buf []byte, from int) (int, int) {
	for i := from; i+2 < len(buf); i++ {
		if buf[i+2] > 1 {
			i += 2
			continue
		}
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			if i > from && buf[i-1] == 0 {
				return i - 1, 4
			}
			return i, 3
		}
	}
	return -1, 0
}
