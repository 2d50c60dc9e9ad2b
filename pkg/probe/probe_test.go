package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/h264play/pkg/adapters/logger"
	"github.com/user/h264play/pkg/codec/params"
	"github.com/user/h264play/pkg/codec/synth"
)

func stream(t *testing.T, withB bool) []byte {
	t.Helper()
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 4, HeightMbs: 3, MaxNumRefFrames: 2}, synth.PPSConfig{})
	require.NoError(t, s.Picture(synth.SliceHeader{Type: synth.SliceI, IDR: true, RefIdc: 3}, synth.Macroblock{Kind: synth.PCM, Fill: [3]byte{16, 128, 128}}))
	require.NoError(t, s.Picture(synth.SliceHeader{Type: synth.SliceP, RefIdc: 2, FrameNum: 1}, synth.Macroblock{Kind: synth.Skip}))
	if withB {
		require.NoError(t, s.Slice(synth.SliceHeader{Type: synth.SliceB, FrameNum: 2}, nil))
	}
	require.NoError(t, s.Picture(synth.SliceHeader{Type: synth.SliceP, RefIdc: 2, FrameNum: 2}, synth.Macroblock{Kind: synth.Skip}))
	buf, err := s.AnnexB()
	require.NoError(t, err)
	return buf
}

func TestRun(t *testing.T) {
	data := stream(t, false)
	res, err := Run(context.Background(), data, logger.NewNoop())
	require.NoError(t, err)

	require.Equal(t, len(data), res.Bytes)
	require.Equal(t, 5, res.Total)
	require.Equal(t, 3, res.Frames)
	require.Equal(t, 1, res.IDRs)
	require.Equal(t, 0, res.Errors)
	require.Equal(t, 1, res.PPS)

	require.Len(t, res.SPS, 1)
	sps := res.SPS[0]
	require.Equal(t, 64, sps.Width)
	require.Equal(t, 48, sps.Height)
	require.Equal(t, 66, sps.Profile)
	require.Equal(t, 2, sps.RefFrames)
	require.Equal(t, "BT.601 limited", sps.Matrix)

	codes := make([]int, len(res.Units))
	for i, u := range res.Units {
		codes[i] = u.Code
	}
	require.Equal(t, []int{1, 5, 7, 8}, codes)
	require.Equal(t, 2, res.Units[0].Count)
}

func TestRunCountsSkippedSlices(t *testing.T) {
	res, err := Run(context.Background(), stream(t, true), logger.NewNoop())
	require.NoError(t, err)
	require.Equal(t, 1, res.Errors)
	require.Equal(t, 3, res.Frames)
	require.Equal(t, 1, res.Stats.Skipped)
}

func TestRunErrors(t *testing.T) {
	_, err := Run(context.Background(), []byte{1, 2, 3}, logger.NewNoop())
	require.Error(t, err)

	w := &synth.Writer{}
	w.WriteUE(0)
	w.WriteUE(0)
	w.WriteFlag(true) // CABAC
	w.WriteTrailing()
	s := synth.NewStream(synth.SPSConfig{WidthMbs: 1, HeightMbs: 1}, synth.PPSConfig{})
	s.Append(synth.NALU(3, 8, w.Bytes()))
	buf, err := s.AnnexB()
	require.NoError(t, err)

	res, err := Run(context.Background(), buf, logger.NewNoop())
	require.True(t, errors.Is(err, params.ErrUnsupported), "err = %v", err)
	require.Equal(t, 3, res.Total)
	require.Len(t, res.Units, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, stream(t, false), logger.NewNoop())
	require.ErrorIs(t, err, context.Canceled)
}
