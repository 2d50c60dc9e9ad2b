// Package params parses and retains sequence and picture parameter sets.
package params

import (
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

// Sentinel errors
var (
	// ErrNotFound is returned when a parameter set id has not been stored.
	ErrNotFound = errors.New("params: parameter set not found")
	// ErrUnsupported is returned for streams outside the baseline/main CAVLC feature set.
	ErrUnsupported = errors.New("params: unsupported stream feature")
	// ErrInvalid is returned for out-of-range syntax elements.
	ErrInvalid = errors.New("params: invalid parameter set")
)

// Profiles accepted by the decoder.
const (
	ProfileBaseline = 66
	ProfileMain     = 77
	ProfileExtended = 88
)

// Matrix coefficient codes from the VUI colour description.
const (
	MatrixBT709       = 1
	MatrixUnspecified = 2
)

// SPS holds the sequence-level decode parameters.
type SPS struct {
	ID         uint32
	ProfileIdc uint8
	LevelIdc   uint8

	// picture size in macroblocks
	WidthMbs  int
	HeightMbs int

	Log2MaxFrameNum int
	MaxFrameNum     uint32

	PicOrderCntType         uint32
	Log2MaxPicOrderCntLsb   int
	DeltaPicOrderAlwaysZero bool

	MaxNumRefFrames int

	// crop offsets in luma samples
	CropLeft   int
	CropRight  int
	CropTop    int
	CropBottom int

	MatrixCoefficients uint8
	FullRange          bool
	FPS                float64

	raw h264.SPS
}

// ParseSPS parses an SPS NAL unit. raw includes the NAL header and may still
// carry emulation prevention bytes.
func ParseSPS(raw []byte) (*SPS, error) {
	var hs h264.SPS
	if err := hs.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	switch hs.ProfileIdc {
	case ProfileBaseline, ProfileMain, ProfileExtended:
	default:
		return nil, fmt.Errorf("%w: profile_idc %d", ErrUnsupported, hs.ProfileIdc)
	}
	if !hs.FrameMbsOnlyFlag {
		return nil, fmt.Errorf("%w: interlaced coding", ErrUnsupported)
	}
	if hs.ID > 31 {
		return nil, fmt.Errorf("%w: seq_parameter_set_id %d", ErrInvalid, hs.ID)
	}
	if hs.Log2MaxFrameNumMinus4 > 12 {
		return nil, fmt.Errorf("%w: log2_max_frame_num_minus4 %d", ErrInvalid, hs.Log2MaxFrameNumMinus4)
	}

	s := &SPS{
		ID:                      hs.ID,
		ProfileIdc:              hs.ProfileIdc,
		LevelIdc:                hs.LevelIdc,
		WidthMbs:                int(hs.PicWidthInMbsMinus1) + 1,
		HeightMbs:               int(hs.PicHeightInMapUnitsMinus1) + 1,
		Log2MaxFrameNum:         int(hs.Log2MaxFrameNumMinus4) + 4,
		PicOrderCntType:         hs.PicOrderCntType,
		Log2MaxPicOrderCntLsb:   int(hs.Log2MaxPicOrderCntLsbMinus4) + 4,
		DeltaPicOrderAlwaysZero: hs.DeltaPicOrderAlwaysZeroFlag,
		MaxNumRefFrames:         int(hs.MaxNumRefFrames),
		MatrixCoefficients:      MatrixUnspecified,
		FPS:                     hs.FPS(),
		raw:                     hs,
	}
	s.MaxFrameNum = 1 << s.Log2MaxFrameNum

	if s.WidthMbs > 1024 || s.HeightMbs > 1024 {
		return nil, fmt.Errorf("%w: %dx%d macroblocks", ErrUnsupported, s.WidthMbs, s.HeightMbs)
	}

	if c := hs.FrameCropping; c != nil {
		// 4:2:0 frame coding: CropUnitX = CropUnitY = 2
		s.CropLeft = int(c.LeftOffset) * 2
		s.CropRight = int(c.RightOffset) * 2
		s.CropTop = int(c.TopOffset) * 2
		s.CropBottom = int(c.BottomOffset) * 2
		if s.CropLeft+s.CropRight >= s.WidthMbs*16 || s.CropTop+s.CropBottom >= s.HeightMbs*16 {
			return nil, fmt.Errorf("%w: cropping exceeds picture", ErrInvalid)
		}
	}

	if v := hs.VUI; v != nil && v.VideoSignalTypePresentFlag {
		s.FullRange = v.VideoFullRangeFlag
		if v.ColourDescriptionPresentFlag {
			s.MatrixCoefficients = v.MatrixCoefficients
		}
	}

	return s, nil
}

// Width returns the cropped picture width in luma samples.
func (s *SPS) Width() int {
	return s.WidthMbs*16 - s.CropLeft - s.CropRight
}

// Height returns the cropped picture height in luma samples.
func (s *SPS) Height() int {
	return s.HeightMbs*16 - s.CropTop - s.CropBottom
}

// MbCount returns the number of macroblocks in a picture.
func (s *SPS) MbCount() int {
	return s.WidthMbs * s.HeightMbs
}

// RefCapacity returns the reference pool capacity. A stream that declares
// zero reference frames still needs one slot for its own P pictures.
func (s *SPS) RefCapacity() int {
	if s.MaxNumRefFrames < 1 {
		return 1
	}
	return s.MaxNumRefFrames
}

// Unwrap returns the underlying parsed syntax structure.
func (s *SPS) Unwrap() h264.SPS {
	return s.raw
}
