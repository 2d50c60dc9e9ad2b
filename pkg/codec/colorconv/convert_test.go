package colorconv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/h264play/pkg/codec/params"
	"github.com/user/h264play/pkg/codec/picture"
)

func flat(y, cb, cr byte) *picture.Picture {
	pic := picture.New(1, 1)
	pic.Fill(y, cb, cr)
	return pic
}

func near(t *testing.T, want, got byte) {
	t.Helper()
	d := int(want) - int(got)
	require.True(t, d >= -2 && d <= 2, "want %d got %d", want, got)
}

func TestConvertGreys(t *testing.T) {
	for _, ca := range []struct {
		name string
		y    byte
		m    Matrix
		want byte
	}{
		{"black limited", 16, Matrix{}, 0},
		{"white limited", 235, Matrix{}, 255},
		{"mid limited", 128, Matrix{}, 130},
		{"mid full", 128, Matrix{FullRange: true}, 128},
		{"white 709", 235, Matrix{Standard: BT709}, 255},
	} {
		t.Run(ca.name, func(t *testing.T) {
			pic := flat(ca.y, 128, 128)
			dst := make([]byte, 16*16*4)
			require.NoError(t, Convert(pic, dst, FormatRGBA, ca.m))
			for i := 0; i < len(dst); i += 4 {
				require.Equal(t, ca.want, dst[i])
				require.Equal(t, ca.want, dst[i+1])
				require.Equal(t, ca.want, dst[i+2])
				require.Equal(t, byte(0xff), dst[i+3])
			}
		})
	}
}

func TestConvertRed(t *testing.T) {
	for _, ca := range []struct {
		name       string
		y, cb, cr  byte
		m          Matrix
		format     Format
		ri, gi, bi int
	}{
		{"601 rgba", 81, 90, 240, Matrix{}, FormatRGBA, 0, 1, 2},
		{"601 bgra", 81, 90, 240, Matrix{}, FormatBGRA, 2, 1, 0},
		{"709 rgba", 63, 102, 240, Matrix{Standard: BT709}, FormatRGBA, 0, 1, 2},
	} {
		t.Run(ca.name, func(t *testing.T) {
			dst := make([]byte, 16*16*4)
			require.NoError(t, Convert(flat(ca.y, ca.cb, ca.cr), dst, ca.format, ca.m))
			near(t, 255, dst[ca.ri])
			near(t, 0, dst[ca.gi])
			near(t, 0, dst[ca.bi])
		})
	}
}

func TestConvertCrop(t *testing.T) {
	pic := flat(16, 128, 128)
	pic.CropLeft, pic.CropTop, pic.CropRight, pic.CropBottom = 2, 2, 4, 2
	pic.Y[2*pic.Stride+2] = 235

	require.Equal(t, 10, pic.Width())
	require.Equal(t, 12, pic.Height())

	dst := make([]byte, 10*12*4)
	require.NoError(t, Convert(pic, dst, FormatBGRA, Matrix{}))
	require.Equal(t, []byte{255, 255, 255, 255}, dst[0:4])
	require.Equal(t, []byte{0, 0, 0, 255}, dst[4:8])

	img := ToImage(pic, Matrix{})
	require.Equal(t, 10, img.Bounds().Dx())
	require.Equal(t, 12, img.Bounds().Dy())
	require.Equal(t, uint8(255), img.RGBAAt(0, 0).R)
	require.Equal(t, uint8(0), img.RGBAAt(1, 0).R)
}

func TestConvertShortBuffer(t *testing.T) {
	err := Convert(flat(16, 128, 128), make([]byte, 10), FormatRGBA, Matrix{})
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestMatrixFor(t *testing.T) {
	require.Equal(t, Matrix{}, MatrixFor(nil))
	require.Equal(t, Matrix{}, MatrixFor(&params.SPS{MatrixCoefficients: params.MatrixUnspecified}))
	require.Equal(t, Matrix{Standard: BT709, FullRange: true},
		MatrixFor(&params.SPS{MatrixCoefficients: params.MatrixBT709, FullRange: true}))
	require.Equal(t, "BT.709 full", Matrix{Standard: BT709, FullRange: true}.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("rgba")
	require.NoError(t, err)
	require.Equal(t, FormatRGBA, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatBGRA, f)

	_, err = ParseFormat("yuv")
	require.Error(t, err)
}
