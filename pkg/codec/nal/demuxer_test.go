package nal

import (
	"errors"
	"io"
	"testing"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, d *Demuxer) []Unit {
	t.Helper()
	var units []Unit
	for {
		u, err := d.Next()
		if errors.Is(err, io.EOF) {
			return units
		}
		require.NoError(t, err)
		units = append(units, u)
	}
}

func TestDemuxerStartCodes(t *testing.T) {
	stream := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x1e, // SPS, 4-byte prefix
		0x00, 0x00, 0x01, 0x68, 0xce, // PPS, 3-byte prefix
		0x00, 0x00, 0x01, 0x65, 0x88, 0x84, 0x00, 0x00, // IDR with trailing zeros
	}

	d, err := NewDemuxer(stream)
	require.NoError(t, err)

	units := collect(t, d)
	require.Len(t, units, 3)

	require.Equal(t, h264.NALUTypeSPS, units[0].Type)
	require.Equal(t, uint8(3), units[0].RefIdc)
	require.Equal(t, []byte{0x42, 0x00, 0x1e}, units[0].Payload)
	require.Equal(t, 4, units[0].Offset)

	require.Equal(t, h264.NALUTypePPS, units[1].Type)
	require.Equal(t, []byte{0xce}, units[1].Payload)

	require.Equal(t, h264.NALUTypeIDR, units[2].Type)
	require.True(t, units[2].IsSlice())
	require.True(t, units[2].IsIDR())
	require.Equal(t, []byte{0x65, 0x88, 0x84}, units[2].Raw)
	require.Equal(t, 3, d.Count())
}

func TestDemuxerEmulationPrevention(t *testing.T) {
	stream := []byte{0x00, 0x00, 0x01, 0x41, 0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0x03, 0x00, 0x05}

	d, err := NewDemuxer(stream)
	require.NoError(t, err)

	units := collect(t, d)
	require.Len(t, units, 1)
	require.Equal(t, h264.NALUTypeNonIDR, units[0].Type)
	require.Equal(t, uint8(2), units[0].RefIdc)
	require.Equal(t, []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x05}, units[0].Payload)
}

func TestUnescape(t *testing.T) {
	for _, ca := range []struct {
		name string
		in   []byte
		exp  []byte
	}{
		{"none", []byte{0x01, 0x00, 0x02}, []byte{0x01, 0x00, 0x02}},
		{"before zero", []byte{0x00, 0x00, 0x03, 0x00}, []byte{0x00, 0x00, 0x00}},
		{"before three", []byte{0x00, 0x00, 0x03, 0x03, 0x07}, []byte{0x00, 0x00, 0x03, 0x07}},
		{"before larger byte", []byte{0x00, 0x00, 0x03, 0x04}, []byte{0x00, 0x00, 0x03, 0x04}},
		{"at end", []byte{0x80, 0x00, 0x00, 0x03}, []byte{0x80, 0x00, 0x00}},
		{"single zero", []byte{0x00, 0x03, 0x01}, []byte{0x00, 0x03, 0x01}},
		{"back to back", []byte{0x00, 0x00, 0x03, 0x00, 0x00, 0x03, 0x01}, []byte{0x00, 0x00, 0x00, 0x00, 0x01}},
	} {
		t.Run(ca.name, func(t *testing.T) {
			in := append([]byte(nil), ca.in...)
			require.Equal(t, ca.exp, unescape(in))
			require.Equal(t, ca.in, in)
		})
	}
}

func TestDemuxerKeepsThreeBeforeLargerByte(t *testing.T) {
	stream := []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0x00, 0x00, 0x03, 0x04, 0x80}

	d, err := NewDemuxer(stream)
	require.NoError(t, err)

	units := collect(t, d)
	require.Len(t, units, 1)
	require.Equal(t, []byte{0x00, 0x00, 0x03, 0x04, 0x80}, units[0].Payload)
}

func TestDemuxerNoStartCode(t *testing.T) {
	for _, ca := range []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0x12, 0x34, 0x56, 0x78}},
		{"truncated prefix", []byte{0x00, 0x00}},
		{"zeros", []byte{0x00, 0x00, 0x00, 0x00, 0x00}},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, err := NewDemuxer(ca.buf)
			require.ErrorIs(t, err, ErrMalformedStartCode)
		})
	}
}

func TestDemuxerLeadingGarbage(t *testing.T) {
	stream := []byte{0xff, 0xee, 0x00, 0x00, 0x01, 0x09, 0xf0}

	d, err := NewDemuxer(stream)
	require.NoError(t, err)

	units := collect(t, d)
	require.Len(t, units, 1)
	require.Equal(t, h264.NALUTypeAccessUnitDelimiter, units[0].Type)
}

func TestDemuxerForbiddenBit(t *testing.T) {
	stream := []byte{0x00, 0x00, 0x01, 0xE5, 0x01, 0x00, 0x00, 0x01, 0x09, 0xf0}

	d, err := NewDemuxer(stream)
	require.NoError(t, err)

	_, err = d.Next()
	require.ErrorIs(t, err, ErrForbiddenBit)

	u, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, h264.NALUTypeAccessUnitDelimiter, u.Type)

	_, err = d.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDemuxerEmptyUnits(t *testing.T) {
	stream := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x01, 0x09, 0xf0, 0x00, 0x00, 0x01}

	d, err := NewDemuxer(stream)
	require.NoError(t, err)

	units := collect(t, d)
	require.Len(t, units, 1)
}
