// Package decode implements the frame capture stage: it decodes a whole
// stream without pacing and keeps a sample of the frames as images.
package decode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/user/h264play/pkg/codec/colorconv"
	"github.com/user/h264play/pkg/codec/decoder"
	"github.com/user/h264play/pkg/codec/nal"
	"github.com/user/h264play/pkg/pipeline"
	"github.com/user/h264play/pkg/player"
	"github.com/user/h264play/pkg/ports"
)

// Stage decodes an Annex-B stream into sampled frames.
type Stage struct {
	sink   ports.DebugSink
	root   ports.Logger
	logger ports.Logger
}

// NewStage creates a new decode stage.
func NewStage(sink ports.DebugSink, logger ports.Logger) *Stage {
	return &Stage{
		sink:   sink,
		root:   logger,
		logger: logger.WithComponent("capture"),
	}
}

// Execute decodes input.Data until it is exhausted or enough frames were kept.
// Damaged NAL units are counted and skipped; stream-level errors abort.
func (s *Stage) Execute(ctx context.Context, input pipeline.DecodeInput) (pipeline.DecodeResult, error) {
	result := pipeline.DecodeResult{
		Frames: make([]pipeline.DecodedFrame, 0),
	}

	every := input.Every
	if every < 1 {
		every = 1
	}

	dm, err := nal.NewDemuxer(input.Data)
	if err != nil {
		return result, fmt.Errorf("open stream: %w", err)
	}
	dec := decoder.New(s.root)

	// keep returns false once no more frames are wanted
	keep := func(f *decoder.Frame) bool {
		if result.Total == 0 {
			result.Size = pipeline.Dimension{Width: f.Width(), Height: f.Height()}
			result.Matrix = colorconv.MatrixFor(f.SPS)
			result.FPS = f.SPS.FPS
			result.Profile = int(f.SPS.ProfileIdc)
			result.Level = int(f.SPS.LevelIdc)
		}
		index := result.Total
		result.Total++
		if index%every != 0 {
			return true
		}

		img := colorconv.ToImage(f.Picture, colorconv.MatrixFor(f.SPS))
		result.Frames = append(result.Frames, pipeline.DecodedFrame{
			Index:    index,
			FrameNum: f.FrameNum,
			IDR:      f.IDR,
			Corrupt:  f.Corrupt(),
			Image:    img,
		})
		if s.sink.Enabled() {
			if err := s.sink.SaveFrame(int64(index), img); err != nil {
				s.logger.Warn("Failed to save debug frame %d: %v", index, err)
			}
		}
		return input.MaxFrames <= 0 || len(result.Frames) < input.MaxFrames
	}

	more := true
	for more {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u, err := dm.Next()
		if errors.Is(err, io.EOF) {
			if f := dec.Flush(); f != nil {
				keep(f)
			}
			break
		}
		if err != nil {
			result.Errors++
			s.logger.Debug("Skipping NAL unit: %v", err)
			continue
		}

		f, err := dec.Decode(u)
		if err != nil {
			if !decoder.IsRecoverable(err) {
				return result, fmt.Errorf("%s: %w", input.Name, err)
			}
			result.Errors++
			s.logger.Debug("Skipping NAL unit at offset %d: %v", u.Offset, err)
		}
		if f != nil {
			more = keep(f)
		}
	}

	result.Stats = dec.Stats()
	if result.Total == 0 {
		return result, fmt.Errorf("%s: %w", input.Name, player.ErrNoPictures)
	}
	s.logger.Debug("Decoded %d frames from %s, kept %d", result.Total, input.Name, len(result.Frames))
	return result, nil
}
