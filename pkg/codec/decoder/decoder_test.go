package decoder

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/h264play/pkg/adapters/logger"
	"github.com/user/h264play/pkg/codec/nal"
	"github.com/user/h264play/pkg/codec/params"
	"github.com/user/h264play/pkg/codec/refs"
	"github.com/user/h264play/pkg/codec/slice"
	"github.com/user/h264play/pkg/codec/synth"
)

type result struct {
	frames []*Frame
	errs   []error
}

// run decodes every unit of s and flushes. Frame pictures are copied
// because they are only valid until the next call.
func run(t *testing.T, d *Decoder, s *synth.Stream) result {
	t.Helper()
	buf, err := s.AnnexB()
	require.NoError(t, err)
	dm, err := nal.NewDemuxer(buf)
	require.NoError(t, err)

	var res result
	keep := func(f *Frame) {
		if f == nil {
			return
		}
		cp := *f
		pic := *f.Picture
		pic.Y = append([]byte(nil), f.Picture.Y...)
		cp.Picture = &pic
		res.frames = append(res.frames, &cp)
	}
	for {
		u, err := dm.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		f, err := d.Decode(u)
		keep(f)
		if err != nil {
			res.errs = append(res.errs, err)
		}
	}
	keep(d.Flush())
	return res
}

func newDecoder() *Decoder {
	return New(logger.NewNoop())
}

func grey(y byte) synth.Macroblock {
	return synth.Macroblock{Kind: synth.PCM, Fill: [3]byte{y, 128, 128}}
}

func idr(frameNum uint32) synth.SliceHeader {
	return synth.SliceHeader{Type: synth.SliceI, IDR: true, RefIdc: 3, FrameNum: frameNum}
}

func pRef(frameNum uint32) synth.SliceHeader {
	return synth.SliceHeader{Type: synth.SliceP, RefIdc: 2, FrameNum: frameNum}
}

func allEqual(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}

func TestDecodeOrder(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 2, HeightMbs: 2, MaxNumRefFrames: 2}, synth.PPSConfig{})
	require.NoError(t, s.Picture(idr(0), grey(200)))
	require.NoError(t, s.Picture(pRef(1), synth.Macroblock{Kind: synth.Skip}))
	require.NoError(t, s.Picture(pRef(2), synth.Macroblock{Kind: synth.Skip}))

	d := newDecoder()
	res := run(t, d, s)
	require.Empty(t, res.errs)
	require.Len(t, res.frames, 3)

	for i, f := range res.frames {
		require.Equal(t, uint32(i), f.FrameNum)
		require.Equal(t, 32, f.Width())
		require.Equal(t, 32, f.Height())
		require.False(t, f.Corrupt())
		require.True(t, allEqual(f.Picture.Y, 200))
	}
	require.True(t, res.frames[0].IDR)
	require.Equal(t, 2, d.References())

	st := d.Stats()
	require.Equal(t, 3, st.Frames)
	require.Equal(t, 3, st.Slices)
	require.Equal(t, 5, st.NALUs)
	require.Zero(t, st.Skipped)
}

func TestDecodeCroppedSize(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 3, HeightMbs: 2, Crop: &[4]uint32{0, 3, 0, 2}}, synth.PPSConfig{})
	require.NoError(t, s.Picture(idr(0), synth.Macroblock{Kind: synth.DC}))

	res := run(t, newDecoder(), s)
	require.Empty(t, res.errs)
	require.Len(t, res.frames, 1)
	require.Equal(t, 42, res.frames[0].Width())
	require.Equal(t, 28, res.frames[0].Height())
}

func TestDecodeSkipsBSlices(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 1, HeightMbs: 1, MaxNumRefFrames: 1}, synth.PPSConfig{})
	require.NoError(t, s.Picture(idr(0), grey(90)))
	require.NoError(t, s.Slice(synth.SliceHeader{Type: synth.SliceB, FrameNum: 1}, nil))
	require.NoError(t, s.Picture(pRef(1), synth.Macroblock{Kind: synth.Skip}))

	d := newDecoder()
	res := run(t, d, s)

	require.Len(t, res.errs, 1)
	require.ErrorIs(t, res.errs[0], slice.ErrUnsupportedSliceType)
	require.True(t, IsRecoverable(res.errs[0]))

	require.Len(t, res.frames, 2)
	require.Equal(t, uint32(0), res.frames[0].FrameNum)
	require.Equal(t, uint32(1), res.frames[1].FrameNum)
	require.True(t, allEqual(res.frames[1].Picture.Y, 90))
	require.Equal(t, 1, d.Stats().Skipped)
}

func TestSlidingWindow(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 1, HeightMbs: 1, MaxNumRefFrames: 2}, synth.PPSConfig{})
	require.NoError(t, s.Picture(idr(0), grey(10)))
	for i := uint32(1); i <= 4; i++ {
		require.NoError(t, s.Picture(pRef(i), synth.Macroblock{Kind: synth.Skip}))
	}
	// not a reference
	require.NoError(t, s.Picture(synth.SliceHeader{Type: synth.SliceP, FrameNum: 5}, synth.Macroblock{Kind: synth.Skip}))

	d := newDecoder()
	res := run(t, d, s)
	require.Empty(t, res.errs)
	require.Len(t, res.frames, 6)
	require.Equal(t, 2, d.References())
}

func TestConcealment(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 2, HeightMbs: 2, MaxNumRefFrames: 1}, synth.PPSConfig{})
	require.NoError(t, s.Picture(idr(0), grey(60)))
	// only the top row is coded
	require.NoError(t, s.Slice(pRef(1), synth.Repeat(2, synth.Macroblock{Kind: synth.Skip})))

	res := run(t, newDecoder(), s)
	require.Empty(t, res.errs)
	require.Len(t, res.frames, 2)

	f := res.frames[1]
	require.True(t, f.Corrupt())
	require.Equal(t, 2, f.Concealed)
	require.True(t, allEqual(f.Picture.Y, 60))
}

func TestConcealWithoutReference(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 1, HeightMbs: 1, MaxNumRefFrames: 1}, synth.PPSConfig{})
	require.NoError(t, s.Picture(pRef(3), synth.Macroblock{Kind: synth.Inter}))

	d := newDecoder()
	res := run(t, d, s)
	require.Len(t, res.errs, 1)
	require.ErrorIs(t, res.errs[0], refs.ErrMissingReference)
	require.True(t, IsRecoverable(res.errs[0]))

	require.Len(t, res.frames, 1)
	require.Equal(t, 1, res.frames[0].Concealed)
	require.True(t, allEqual(res.frames[0].Picture.Y, 128))
}

func TestAdaptiveMarking(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 1, HeightMbs: 1, MaxNumRefFrames: 3}, synth.PPSConfig{})
	require.NoError(t, s.Picture(idr(0), grey(10)))
	require.NoError(t, s.Picture(pRef(1), synth.Macroblock{Kind: synth.Skip}))

	h := pRef(2)
	h.MMCOs = []synth.MMCO{{Op: 1, DifferenceOfPicNums: 1}}
	require.NoError(t, s.Picture(h, synth.Macroblock{Kind: synth.Skip}))

	d := newDecoder()
	res := run(t, d, s)
	require.Empty(t, res.errs)
	// frame 1 was unmarked before frame 2 was stored, and its buffer is
	// ready for reuse
	require.Equal(t, 2, d.References())
	require.Len(t, d.free, 1)
	require.Equal(t, uint32(1), d.free[0].FrameNum)
	unmarked := d.free[0]

	h = pRef(3)
	h.MMCOs = []synth.MMCO{{Op: 5}}
	s2 := synth.NewStream(synth.SPSConfig{WidthMbs: 1, HeightMbs: 1, MaxNumRefFrames: 3}, synth.PPSConfig{})
	require.NoError(t, s2.Picture(h, synth.Macroblock{Kind: synth.Skip}))
	res = run(t, d, s2)
	require.Empty(t, res.errs)
	require.Len(t, res.frames, 1)
	require.Same(t, unmarked, d.pool.Pictures()[0])
	require.Equal(t, uint32(0), res.frames[0].FrameNum)
	require.Equal(t, 1, d.References())
}

func TestParameterSetsRequired(t *testing.T) {
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 1, HeightMbs: 1}, synth.PPSConfig{})
	require.NoError(t, s.Picture(idr(0), grey(1)))

	d := newDecoder()
	res := run(t, d, s)
	require.Len(t, res.frames, 1)

	d.Reset()
	require.Zero(t, d.References())

	// the same slice without its parameter sets
	dm, err := nal.NewDemuxer(mustAnnexB(t, s))
	require.NoError(t, err)
	var last nal.Unit
	for {
		u, err := dm.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		last = u
	}
	f, err := d.Decode(last)
	require.Nil(t, f)
	require.ErrorIs(t, err, params.ErrNotFound)
	require.True(t, IsRecoverable(err))
	require.Nil(t, d.Flush())
}

func TestUnsupportedStream(t *testing.T) {
	w := &synth.Writer{}
	w.WriteUE(0)
	w.WriteUE(0)
	w.WriteFlag(true) // CABAC
	w.WriteTrailing()

	d := newDecoder()
	f, err := d.Decode(nal.Unit{Type: 8, RefIdc: 3, Payload: w.Bytes()})
	require.Nil(t, f)
	require.ErrorIs(t, err, params.ErrUnsupported)
	require.False(t, IsRecoverable(err))
	require.False(t, IsRecoverable(nal.ErrMalformedStartCode))
	require.True(t, IsRecoverable(nil))
}

func mustAnnexB(t *testing.T, s *synth.Stream) []byte {
	t.Helper()
	buf, err := s.AnnexB()
	require.NoError(t, err)
	return buf
}
