// Package probe walks a stream once and reports what it contains.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/user/h264play/pkg/codec/colorconv"
	"github.com/user/h264play/pkg/codec/decoder"
	"github.com/user/h264play/pkg/codec/nal"
	"github.com/user/h264play/pkg/codec/params"
	"github.com/user/h264play/pkg/ports"
)

// UnitCount is the number of NAL units of one type.
type UnitCount struct {
	Code  int    `json:"code"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// SPSInfo describes one sequence parameter set.
type SPSInfo struct {
	ID        uint32  `json:"id"`
	Profile   int     `json:"profile"`
	Level     int     `json:"level"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	RefFrames int     `json:"ref_frames"`
	FPS       float64 `json:"fps,omitempty"`
	Matrix    string  `json:"matrix"`
}

// Result is what a probe found.
type Result struct {
	Bytes   int           `json:"bytes"`
	Units   []UnitCount   `json:"units"`
	Total   int           `json:"total"`
	SPS     []SPSInfo     `json:"sps"`
	PPS     int           `json:"pps"`
	Frames  int           `json:"frames"`
	IDRs    int           `json:"idrs"`
	Corrupt int           `json:"corrupt"`
	Errors  int           `json:"errors"`
	Stats   decoder.Stats `json:"stats"`
}

// Run demuxes and decodes data. A stream-level failure stops the walk;
// the partial result is returned alongside the error.
func Run(ctx context.Context, data []byte, logger ports.Logger) (result Result, err error) {
	result.Bytes = len(data)
	log := logger.WithComponent("probe")

	dm, err := nal.NewDemuxer(data)
	if err != nil {
		return result, fmt.Errorf("open stream: %w", err)
	}
	dec := decoder.New(logger)
	counts := make(map[int]*UnitCount)

	frame := func(f *decoder.Frame) {
		if f == nil {
			return
		}
		result.Frames++
		if f.IDR {
			result.IDRs++
		}
		if f.Corrupt() {
			result.Corrupt++
		}
	}

	// units are collected on every return path, including errors
	defer func() {
		result.Units = make([]UnitCount, 0, len(counts))
		for _, c := range counts {
			result.Units = append(result.Units, *c)
		}
		sort.Slice(result.Units, func(i, j int) bool { return result.Units[i].Code < result.Units[j].Code })
	}()

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		u, err := dm.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Errors++
			log.Debug("Skipping NAL unit: %v", err)
			continue
		}

		result.Total++
		code := int(u.Type)
		c, ok := counts[code]
		if !ok {
			c = &UnitCount{Code: code, Type: u.Type.String()}
			counts[code] = c
		}
		c.Count++

		switch u.Type {
		case h264.NALUTypeSPS:
			if s, err := params.ParseSPS(u.Raw); err == nil {
				result.SPS = append(result.SPS, SPSInfo{
					ID:        s.ID,
					Profile:   int(s.ProfileIdc),
					Level:     int(s.LevelIdc),
					Width:     s.Width(),
					Height:    s.Height(),
					RefFrames: s.MaxNumRefFrames,
					FPS:       s.FPS,
					Matrix:    colorconv.MatrixFor(s).String(),
				})
			}
		case h264.NALUTypePPS:
			result.PPS++
		}

		f, err := dec.Decode(u)
		frame(f)
		if err != nil {
			if !decoder.IsRecoverable(err) {
				result.Stats = dec.Stats()
				return result, fmt.Errorf("unit %d at offset %d: %w", result.Total, u.Offset, err)
			}
			result.Errors++
			log.Debug("Skipping NAL unit at offset %d: %v", u.Offset, err)
		}
	}

	frame(dec.Flush())
	result.Stats = dec.Stats()
	return result, nil
}
