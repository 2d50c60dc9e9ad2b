package picture

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSizes(t *testing.T) {
	p := New(3, 2)
	require.Equal(t, 48, p.LumaWidth())
	require.Equal(t, 32, p.LumaHeight())
	require.Len(t, p.Y, 48*32)
	require.Len(t, p.Cb, 24*16)
	require.Equal(t, 24, p.ChromaStride())
	require.Equal(t, 6, p.MbCount())

	p.CropRight = 6
	p.CropBottom = 2
	require.Equal(t, 42, p.Width())
	require.Equal(t, 30, p.Height())
}

func TestClampedAccess(t *testing.T) {
	p := New(1, 1)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			p.Y[y*p.Stride+x] = byte(y*16 + x)
		}
	}
	p.Cb[7*8+7] = 200

	require.Equal(t, 0, p.LumaAt(-5, -5))
	require.Equal(t, 15, p.LumaAt(40, -1))
	require.Equal(t, 255, p.LumaAt(99, 99))
	require.Equal(t, 200, p.ChromaAt(1, 20, 20))
}

func TestCompleteness(t *testing.T) {
	p := New(2, 1)
	require.False(t, p.Complete())
	p.MB(0).Decoded = true
	require.Equal(t, 1, p.DecodedCount())
	p.MB(1).Decoded = true
	require.True(t, p.Complete())

	p.Reset()
	require.Equal(t, 0, p.DecodedCount())
}

func TestMbTypeIntra(t *testing.T) {
	require.True(t, MbI4x4.IsIntra())
	require.True(t, MbIPCM.IsIntra())
	require.False(t, MbPSkip.IsIntra())
	require.Equal(t, "I16x16", MbI16x16.String())
}
