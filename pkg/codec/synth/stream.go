package synth

import (
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

// ErrLayout is returned when macroblocks do not fit the configured picture.
var ErrLayout = errors.New("synth: invalid macroblock layout")

// VUI is the colour and timing part of an SPS.
type VUI struct {
	FullRange      bool
	Matrix         uint8
	NumUnitsInTick uint32
	TimeScale      uint32
}

// SPSConfig describes a sequence parameter set. Zero values select
// baseline profile, level 3.0 and picture order count type 2.
type SPSConfig struct {
	ID              uint32
	ProfileIdc      uint8
	LevelIdc        uint8
	WidthMbs        int
	HeightMbs       int
	Log2MaxFrameNum int
	MaxNumRefFrames uint32
	// Crop holds left, right, top and bottom offsets in chroma sample pairs.
	Crop *[4]uint32
	VUI  *VUI
}

// PPSConfig describes a picture parameter set.
type PPSConfig struct {
	ID                  uint32
	SPSID               uint32
	NumRefIdxActive     int
	WeightedPred        bool
	InitQP              int
	ChromaQPIndexOffset int
	DeblockingControl   bool
	ConstrainedIntra    bool
}

func (c SPSConfig) log2MaxFrameNum() int {
	if c.Log2MaxFrameNum < 4 {
		return 4
	}
	return c.Log2MaxFrameNum
}

func (c PPSConfig) numRefIdxActive() int {
	if c.NumRefIdxActive < 1 {
		return 1
	}
	return c.NumRefIdxActive
}

func (c PPSConfig) initQP() int {
	if c.InitQP == 0 {
		return 26
	}
	return c.InitQP
}

// SPS returns an SPS NAL unit.
func SPS(c SPSConfig) []byte {
	profile := c.ProfileIdc
	if profile == 0 {
		profile = 66
	}
	level := c.LevelIdc
	if level == 0 {
		level = 30
	}

	w := &Writer{}
	w.WriteBits(uint32(profile), 8)
	w.WriteBits(0, 8) // constraint flags
	w.WriteBits(uint32(level), 8)
	w.WriteUE(c.ID)
	w.WriteUE(uint32(c.log2MaxFrameNum() - 4))
	w.WriteUE(2) // pic_order_cnt_type
	w.WriteUE(c.MaxNumRefFrames)
	w.WriteFlag(false) // gaps_in_frame_num_value_allowed_flag
	w.WriteUE(uint32(c.WidthMbs - 1))
	w.WriteUE(uint32(c.HeightMbs - 1))
	w.WriteFlag(true) // frame_mbs_only_flag
	w.WriteFlag(true) // direct_8x8_inference_flag

	w.WriteFlag(c.Crop != nil)
	if c.Crop != nil {
		for _, v := range c.Crop {
			w.WriteUE(v)
		}
	}

	w.WriteFlag(c.VUI != nil)
	if v := c.VUI; v != nil {
		w.WriteFlag(false) // aspect_ratio_info_present_flag
		w.WriteFlag(false) // overscan_info_present_flag
		w.WriteFlag(true)  // video_signal_type_present_flag
		w.WriteBits(5, 3)  // video_format unspecified
		w.WriteFlag(v.FullRange)
		w.WriteFlag(true) // colour_description_present_flag
		w.WriteBits(uint32(v.Matrix), 8)
		w.WriteBits(uint32(v.Matrix), 8)
		w.WriteBits(uint32(v.Matrix), 8)
		w.WriteFlag(false) // chroma_loc_info_present_flag
		w.WriteFlag(v.TimeScale != 0)
		if v.TimeScale != 0 {
			w.WriteBits(v.NumUnitsInTick, 32)
			w.WriteBits(v.TimeScale, 32)
			w.WriteFlag(true)
		}
		w.WriteFlag(false) // nal_hrd_parameters_present_flag
		w.WriteFlag(false) // vcl_hrd_parameters_present_flag
		w.WriteFlag(false) // pic_struct_present_flag
		w.WriteFlag(false) // bitstream_restriction_flag
	}

	w.WriteTrailing()
	return NALU(3, h264.NALUTypeSPS, w.Bytes())
}

// PPS returns a PPS NAL unit.
func PPS(c PPSConfig) []byte {
	w := &Writer{}
	w.WriteUE(c.ID)
	w.WriteUE(c.SPSID)
	w.WriteFlag(false) // entropy_coding_mode_flag
	w.WriteFlag(false) // bottom_field_pic_order_in_frame_present_flag
	w.WriteUE(0)       // num_slice_groups_minus1
	w.WriteUE(uint32(c.numRefIdxActive() - 1))
	w.WriteUE(0) // num_ref_idx_l1_default_active_minus1
	w.WriteFlag(c.WeightedPred)
	w.WriteBits(0, 2) // weighted_bipred_idc
	w.WriteSE(int32(c.initQP() - 26))
	w.WriteSE(0) // pic_init_qs_minus26
	w.WriteSE(int32(c.ChromaQPIndexOffset))
	w.WriteFlag(c.DeblockingControl)
	w.WriteFlag(c.ConstrainedIntra)
	w.WriteFlag(false) // redundant_pic_cnt_present_flag
	w.WriteTrailing()
	return NALU(3, h264.NALUTypePPS, w.Bytes())
}

// Slice types as coded in slice_type.
const (
	SliceP = 0
	SliceB = 1
	SliceI = 2
)

// MMCO is one memory_management_control_operation. Only operations 1 and 5
// carry the fields written here.
type MMCO struct {
	Op                  uint32
	DifferenceOfPicNums uint32
}

// Weights is an explicit weighted prediction table applied to every
// reference index.
type Weights struct {
	LumaLog2Denom int
	LumaWeight    int
	LumaOffset    int
}

// SliceHeader holds the slice header fields the writer can express.
type SliceHeader struct {
	Type     int
	IDR      bool
	RefIdc   uint8
	FirstMb  int
	FrameNum uint32
	IDRPicID uint32
	// NumRefIdxActive overrides the PPS default when non-zero.
	NumRefIdxActive int
	// Reorder lists modification_of_pic_nums_idc / value pairs.
	Reorder           [][2]uint32
	Weights           *Weights
	MMCOs             []MMCO
	QPDelta           int
	DisableDeblocking int
	AlphaDiv2         int
	BetaDiv2          int
}

// Stream collects NAL units of one parameter set pair.
type Stream struct {
	sps   SPSConfig
	pps   PPSConfig
	nalus [][]byte
}

// NewStream starts a stream with the given SPS and PPS.
func NewStream(sps SPSConfig, pps PPSConfig) *Stream {
	pps.SPSID = sps.ID
	return &Stream{
		sps:   sps,
		pps:   pps,
		nalus: [][]byte{SPS(sps), PPS(pps)},
	}
}

// Append adds raw NAL units.
func (s *Stream) Append(nalus ...[]byte) {
	s.nalus = append(s.nalus, nalus...)
}

// NALUs returns the collected NAL units.
func (s *Stream) NALUs() [][]byte {
	return s.nalus
}

// AnnexB returns the stream with start codes.
func (s *Stream) AnnexB() ([]byte, error) {
	return h264.AnnexB(s.nalus).Marshal()
}

// Slice encodes one slice covering mbs starting at h.FirstMb and appends it.
func (s *Stream) Slice(h SliceHeader, mbs []Macroblock) error {
	nalu, err := s.EncodeSlice(h, mbs)
	if err != nil {
		return err
	}
	s.nalus = append(s.nalus, nalu)
	return nil
}

// Picture appends a single-slice picture.
func (s *Stream) Picture(h SliceHeader, mb Macroblock) error {
	h.FirstMb = 0
	return s.Slice(h, Repeat(s.sps.WidthMbs*s.sps.HeightMbs, mb))
}

// EncodeSlice encodes one slice NAL unit.
func (s *Stream) EncodeSlice(h SliceHeader, mbs []Macroblock) ([]byte, error) {
	total := s.sps.WidthMbs * s.sps.HeightMbs
	if h.FirstMb < 0 || h.FirstMb+len(mbs) > total {
		return nil, fmt.Errorf("%w: %d macroblocks from %d in a %d macroblock picture",
			ErrLayout, len(mbs), h.FirstMb, total)
	}

	typ := h264.NALUTypeNonIDR
	if h.IDR {
		typ = h264.NALUTypeIDR
	}

	w := &Writer{}
	s.writeHeader(w, h)
	if h.Type == SliceB {
		// the decoder stops at slice_type; the rest only has to be well formed
		w.WriteTrailing()
		return NALU(h.RefIdc, typ, w.Bytes()), nil
	}

	numRef := s.pps.numRefIdxActive()
	if h.NumRefIdxActive > 0 {
		numRef = h.NumRefIdxActive
	}

	e := &sliceWriter{
		w:      w,
		width:  s.sps.WidthMbs,
		first:  h.FirstMb,
		numRef: numRef,
		states: make([]mbState, len(mbs)),
	}
	offset := 0
	if h.Type == SliceP {
		offset = 5
	}
	skipRun := 0
	for i, mb := range mbs {
		e.addr = h.FirstMb + i
		if h.Type == SliceI && (mb.Kind == Skip || mb.Kind == Inter) {
			return nil, fmt.Errorf("%w: inter macroblock %d in I slice", ErrLayout, e.addr)
		}
		if mb.Kind == Skip {
			skipRun++
			continue
		}
		if h.Type == SliceP {
			w.WriteUE(uint32(skipRun))
			skipRun = 0
		}
		if err := e.macroblock(mb, offset); err != nil {
			return nil, fmt.Errorf("macroblock %d: %w", e.addr, err)
		}
	}
	if skipRun > 0 {
		w.WriteUE(uint32(skipRun))
	}
	w.WriteTrailing()
	return NALU(h.RefIdc, typ, w.Bytes()), nil
}

func (s *Stream) writeHeader(w *Writer, h SliceHeader) {
	w.WriteUE(uint32(h.FirstMb))
	w.WriteUE(uint32(h.Type))
	w.WriteUE(s.pps.ID)
	w.WriteBits(h.FrameNum, s.sps.log2MaxFrameNum())
	if h.IDR {
		w.WriteUE(h.IDRPicID)
	}
	if h.Type == SliceB {
		return
	}

	if h.Type == SliceP {
		w.WriteFlag(h.NumRefIdxActive > 0)
		if h.NumRefIdxActive > 0 {
			w.WriteUE(uint32(h.NumRefIdxActive - 1))
		}
		w.WriteFlag(len(h.Reorder) > 0)
		if len(h.Reorder) > 0 {
			for _, m := range h.Reorder {
				w.WriteUE(m[0])
				w.WriteUE(m[1])
			}
			w.WriteUE(3)
		}
		if s.pps.WeightedPred {
			s.writeWeights(w, h)
		}
	}

	if h.RefIdc != 0 {
		if h.IDR {
			w.WriteFlag(false) // no_output_of_prior_pics_flag
			w.WriteFlag(false) // long_term_reference_flag
		} else {
			w.WriteFlag(len(h.MMCOs) > 0)
			if len(h.MMCOs) > 0 {
				for _, m := range h.MMCOs {
					w.WriteUE(m.Op)
					if m.Op == 1 {
						w.WriteUE(m.DifferenceOfPicNums - 1)
					}
				}
				w.WriteUE(0)
			}
		}
	}

	w.WriteSE(int32(h.QPDelta))
	if s.pps.DeblockingControl {
		w.WriteUE(uint32(h.DisableDeblocking))
		if h.DisableDeblocking != 1 {
			w.WriteSE(int32(h.AlphaDiv2))
			w.WriteSE(int32(h.BetaDiv2))
		}
	}
}

func (s *Stream) writeWeights(w *Writer, h SliceHeader) {
	numRef := s.pps.numRefIdxActive()
	if h.NumRefIdxActive > 0 {
		numRef = h.NumRefIdxActive
	}
	wt := h.Weights
	if wt == nil {
		wt = &Weights{}
	}
	w.WriteUE(uint32(wt.LumaLog2Denom))
	w.WriteUE(0) // chroma_log2_weight_denom
	for i := 0; i < numRef; i++ {
		w.WriteFlag(h.Weights != nil)
		if h.Weights != nil {
			w.WriteSE(int32(wt.LumaWeight))
			w.WriteSE(int32(wt.LumaOffset))
		}
		w.WriteFlag(false) // chroma_weight_l0_flag
	}
}
