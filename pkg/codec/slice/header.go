// Package slice parses slice headers and reconstructs the macroblocks of
// I and P slices coded with CAVLC.
package slice

import (
	"errors"
	"fmt"

	"github.com/user/h264play/pkg/codec/bitstream"
	"github.com/user/h264play/pkg/codec/nal"
	"github.com/user/h264play/pkg/codec/params"
	"github.com/user/h264play/pkg/codec/refs"
)

// Sentinel errors
var (
	// ErrUnsupportedSliceType is returned for B, SP and SI slices.
	ErrUnsupportedSliceType = errors.New("slice: unsupported slice type")
	// ErrCorrupt is returned for syntax elements outside their legal range.
	ErrCorrupt = errors.New("slice: corrupt slice data")
)

// Type is the slice_type modulo 5.
type Type uint32

// Slice types.
const (
	TypeP  Type = 0
	TypeB  Type = 1
	TypeI  Type = 2
	TypeSP Type = 3
	TypeSI Type = 4
)

func (t Type) String() string {
	switch t {
	case TypeP:
		return "P"
	case TypeB:
		return "B"
	case TypeI:
		return "I"
	case TypeSP:
		return "SP"
	case TypeSI:
		return "SI"
	default:
		return fmt.Sprintf("Type(%d)", uint32(t))
	}
}

// MMCO is one memory_management_control_operation.
type MMCO struct {
	Op                    uint32
	DifferenceOfPicNums   uint32 // difference_of_pic_nums_minus1 + 1
	LongTermPicNum        uint32
	LongTermFrameIdx      uint32
	MaxLongTermFrameIdxP1 uint32
}

// Weight is an explicit weighted-prediction factor.
type Weight struct {
	Weight int
	Offset int
}

// PredWeightTable holds pred_weight_table for list 0.
type PredWeightTable struct {
	LumaLog2Denom   int
	ChromaLog2Denom int
	Luma            []Weight
	Chroma          [][2]Weight
}

// Header is a parsed slice header.
type Header struct {
	NalType uint8
	RefIdc  uint8
	IDR     bool

	FirstMb  int
	Type     Type
	PPSID    uint32
	FrameNum uint32
	IDRPicID uint32

	PicOrderCntLsb         uint32
	DeltaPicOrderCntBottom int32
	DeltaPicOrderCnt       [2]int32
	RedundantPicCnt        uint32

	NumRefIdxActive int
	Modifications   []refs.Modification
	Weights         *PredWeightTable

	NoOutputOfPriorPics bool
	LongTermReference   bool
	AdaptiveMarking     bool
	MMCOs               []MMCO

	QP int

	DisableDeblockingFilterIdc int
	FilterOffsetA              int
	FilterOffsetB              int

	SPS *params.SPS
	PPS *params.PPS

	dataBit int
}

// ParseType reads just first_mb_in_slice and slice_type.
func ParseType(payload []byte) (int, Type, error) {
	r := bitstream.New(payload)
	first, err := r.ReadUE()
	if err != nil {
		return 0, 0, err
	}
	st, err := r.ReadUE()
	if err != nil {
		return 0, 0, err
	}
	if st > 9 {
		return 0, 0, fmt.Errorf("%w: slice_type %d", ErrCorrupt, st)
	}
	return int(first), Type(st % 5), nil
}

// ParseHeader parses the slice header of u, resolving its parameter sets in store.
// B, SP and SI slices fail with ErrUnsupportedSliceType before any
// parameter set lookup.
func ParseHeader(u nal.Unit, store *params.Store) (*Header, error) {
	r := bitstream.New(u.Payload)
	h := &Header{
		NalType: uint8(u.Type),
		RefIdc:  u.RefIdc,
		IDR:     u.IsIDR(),
	}

	v, err := r.ReadUE()
	if err != nil {
		return nil, fmt.Errorf("first_mb_in_slice: %w", err)
	}
	h.FirstMb = int(v)

	if v, err = r.ReadUE(); err != nil {
		return nil, fmt.Errorf("slice_type: %w", err)
	}
	if v > 9 {
		return nil, fmt.Errorf("%w: slice_type %d", ErrCorrupt, v)
	}
	h.Type = Type(v % 5)
	if h.Type != TypeP && h.Type != TypeI {
		return h, fmt.Errorf("%w: %s", ErrUnsupportedSliceType, h.Type)
	}
	if h.IDR && h.Type != TypeI {
		return nil, fmt.Errorf("%w: IDR picture with %s slice", ErrCorrupt, h.Type)
	}

	if h.PPSID, err = r.ReadUE(); err != nil {
		return nil, fmt.Errorf("pic_parameter_set_id: %w", err)
	}
	pps, sps, err := store.Resolve(h.PPSID)
	if err != nil {
		return nil, err
	}
	h.PPS = pps
	h.SPS = sps

	if h.FirstMb >= sps.MbCount() {
		return nil, fmt.Errorf("%w: first_mb_in_slice %d", ErrCorrupt, h.FirstMb)
	}

	if h.FrameNum, err = r.ReadBits(sps.Log2MaxFrameNum); err != nil {
		return nil, fmt.Errorf("frame_num: %w", err)
	}

	if h.IDR {
		if h.IDRPicID, err = r.ReadUE(); err != nil {
			return nil, fmt.Errorf("idr_pic_id: %w", err)
		}
	}

	switch sps.PicOrderCntType {
	case 0:
		if h.PicOrderCntLsb, err = r.ReadBits(sps.Log2MaxPicOrderCntLsb); err != nil {
			return nil, fmt.Errorf("pic_order_cnt_lsb: %w", err)
		}
		if pps.BottomFieldPicOrderInFramePresent {
			if h.DeltaPicOrderCntBottom, err = r.ReadSE(); err != nil {
				return nil, fmt.Errorf("delta_pic_order_cnt_bottom: %w", err)
			}
		}
	case 1:
		if !sps.DeltaPicOrderAlwaysZero {
			if h.DeltaPicOrderCnt[0], err = r.ReadSE(); err != nil {
				return nil, fmt.Errorf("delta_pic_order_cnt[0]: %w", err)
			}
			if pps.BottomFieldPicOrderInFramePresent {
				if h.DeltaPicOrderCnt[1], err = r.ReadSE(); err != nil {
					return nil, fmt.Errorf("delta_pic_order_cnt[1]: %w", err)
				}
			}
		}
	}

	if pps.RedundantPicCntPresent {
		if h.RedundantPicCnt, err = r.ReadUE(); err != nil {
			return nil, fmt.Errorf("redundant_pic_cnt: %w", err)
		}
	}

	h.NumRefIdxActive = pps.NumRefIdxL0DefaultActive
	if h.Type == TypeP {
		override, err := r.ReadFlag()
		if err != nil {
			return nil, fmt.Errorf("num_ref_idx_active_override_flag: %w", err)
		}
		if override {
			if v, err = r.ReadUE(); err != nil {
				return nil, fmt.Errorf("num_ref_idx_l0_active_minus1: %w", err)
			}
			if v > 31 {
				return nil, fmt.Errorf("%w: num_ref_idx_l0_active_minus1 %d", ErrCorrupt, v)
			}
			h.NumRefIdxActive = int(v) + 1
		}

		if err := h.parseListModification(r); err != nil {
			return nil, err
		}

		if pps.WeightedPred {
			if err := h.parsePredWeightTable(r); err != nil {
				return nil, err
			}
		}
	}

	if h.RefIdc != 0 {
		if err := h.parseRefPicMarking(r); err != nil {
			return nil, err
		}
	}

	qpDelta, err := r.ReadSE()
	if err != nil {
		return nil, fmt.Errorf("slice_qp_delta: %w", err)
	}
	h.QP = pps.PicInitQP + int(qpDelta)
	if h.QP < 0 || h.QP > 51 {
		return nil, fmt.Errorf("%w: slice QP %d", ErrCorrupt, h.QP)
	}

	if pps.DeblockingFilterControlPresent {
		if v, err = r.ReadUE(); err != nil {
			return nil, fmt.Errorf("disable_deblocking_filter_idc: %w", err)
		}
		if v > 2 {
			return nil, fmt.Errorf("%w: disable_deblocking_filter_idc %d", ErrCorrupt, v)
		}
		h.DisableDeblockingFilterIdc = int(v)
		if v != 1 {
			a, err := r.ReadSE()
			if err != nil {
				return nil, fmt.Errorf("slice_alpha_c0_offset_div2: %w", err)
			}
			b, err := r.ReadSE()
			if err != nil {
				return nil, fmt.Errorf("slice_beta_offset_div2: %w", err)
			}
			if a < -6 || a > 6 || b < -6 || b > 6 {
				return nil, fmt.Errorf("%w: filter offsets %d/%d", ErrCorrupt, a, b)
			}
			h.FilterOffsetA = int(a) * 2
			h.FilterOffsetB = int(b) * 2
		}
	}

	h.dataBit = r.Pos()
	return h, nil
}

func (h *Header) parseListModification(r *bitstream.Reader) error {
	flag, err := r.ReadFlag()
	if err != nil {
		return fmt.Errorf("ref_pic_list_modification_flag_l0: %w", err)
	}
	if !flag {
		return nil
	}
	for i := 0; ; i++ {
		idc, err := r.ReadUE()
		if err != nil {
			return fmt.Errorf("modification_of_pic_nums_idc: %w", err)
		}
		if idc == 3 {
			return nil
		}
		if idc > 3 || i > h.NumRefIdxActive {
			return fmt.Errorf("%w: modification_of_pic_nums_idc %d", ErrCorrupt, idc)
		}
		v, err := r.ReadUE()
		if err != nil {
			return fmt.Errorf("abs_diff_pic_num_minus1: %w", err)
		}
		h.Modifications = append(h.Modifications, refs.Modification{Idc: idc, Value: v})
	}
}

func (h *Header) parsePredWeightTable(r *bitstream.Reader) error {
	t := &PredWeightTable{}

	v, err := r.ReadUE()
	if err != nil {
		return fmt.Errorf("luma_log2_weight_denom: %w", err)
	}
	if v > 7 {
		return fmt.Errorf("%w: luma_log2_weight_denom %d", ErrCorrupt, v)
	}
	t.LumaLog2Denom = int(v)

	if v, err = r.ReadUE(); err != nil {
		return fmt.Errorf("chroma_log2_weight_denom: %w", err)
	}
	if v > 7 {
		return fmt.Errorf("%w: chroma_log2_weight_denom %d", ErrCorrupt, v)
	}
	t.ChromaLog2Denom = int(v)

	t.Luma = make([]Weight, h.NumRefIdxActive)
	t.Chroma = make([][2]Weight, h.NumRefIdxActive)

	for i := 0; i < h.NumRefIdxActive; i++ {
		t.Luma[i] = Weight{Weight: 1 << t.LumaLog2Denom}
		t.Chroma[i] = [2]Weight{{Weight: 1 << t.ChromaLog2Denom}, {Weight: 1 << t.ChromaLog2Denom}}

		flag, err := r.ReadFlag()
		if err != nil {
			return fmt.Errorf("luma_weight_l0_flag: %w", err)
		}
		if flag {
			w, err := r.ReadSE()
			if err != nil {
				return fmt.Errorf("luma_weight_l0: %w", err)
			}
			o, err := r.ReadSE()
			if err != nil {
				return fmt.Errorf("luma_offset_l0: %w", err)
			}
			t.Luma[i] = Weight{Weight: int(w), Offset: int(o)}
		}

		if flag, err = r.ReadFlag(); err != nil {
			return fmt.Errorf("chroma_weight_l0_flag: %w", err)
		}
		if flag {
			for j := 0; j < 2; j++ {
				w, err := r.ReadSE()
				if err != nil {
					return fmt.Errorf("chroma_weight_l0: %w", err)
				}
				o, err := r.ReadSE()
				if err != nil {
					return fmt.Errorf("chroma_offset_l0: %w", err)
				}
				t.Chroma[i][j] = Weight{Weight: int(w), Offset: int(o)}
			}
		}
	}

	h.Weights = t
	return nil
}

func (h *Header) parseRefPicMarking(r *bitstream.Reader) error {
	var err error
	if h.IDR {
		if h.NoOutputOfPriorPics, err = r.ReadFlag(); err != nil {
			return fmt.Errorf("no_output_of_prior_pics_flag: %w", err)
		}
		if h.LongTermReference, err = r.ReadFlag(); err != nil {
			return fmt.Errorf("long_term_reference_flag: %w", err)
		}
		return nil
	}

	if h.AdaptiveMarking, err = r.ReadFlag(); err != nil {
		return fmt.Errorf("adaptive_ref_pic_marking_mode_flag: %w", err)
	}
	if !h.AdaptiveMarking {
		return nil
	}

	for i := 0; ; i++ {
		op, err := r.ReadUE()
		if err != nil {
			return fmt.Errorf("memory_management_control_operation: %w", err)
		}
		if op == 0 {
			return nil
		}
		if op > 6 || i > 66 {
			return fmt.Errorf("%w: memory_management_control_operation %d", ErrCorrupt, op)
		}
		m := MMCO{Op: op}
		if op == 1 || op == 3 {
			v, err := r.ReadUE()
			if err != nil {
				return fmt.Errorf("difference_of_pic_nums_minus1: %w", err)
			}
			m.DifferenceOfPicNums = v + 1
		}
		if op == 2 {
			if m.LongTermPicNum, err = r.ReadUE(); err != nil {
				return fmt.Errorf("long_term_pic_num: %w", err)
			}
		}
		if op == 3 || op == 6 {
			if m.LongTermFrameIdx, err = r.ReadUE(); err != nil {
				return fmt.Errorf("long_term_frame_idx: %w", err)
			}
		}
		if op == 4 {
			if m.MaxLongTermFrameIdxP1, err = r.ReadUE(); err != nil {
				return fmt.Errorf("max_long_term_frame_idx_plus1: %w", err)
			}
		}
		h.MMCOs = append(h.MMCOs, m)
	}
}

// FirstOfPicture reports whether h starts a different picture than prev.
func (h *Header) FirstOfPicture(prev *Header) bool {
	if prev == nil {
		return true
	}
	return h.FrameNum != prev.FrameNum ||
		h.PPSID != prev.PPSID ||
		(h.RefIdc == 0) != (prev.RefIdc == 0) ||
		h.IDR != prev.IDR ||
		(h.IDR && h.IDRPicID != prev.IDRPicID) ||
		h.PicOrderCntLsb != prev.PicOrderCntLsb ||
		h.DeltaPicOrderCntBottom != prev.DeltaPicOrderCntBottom ||
		h.DeltaPicOrderCnt != prev.DeltaPicOrderCnt ||
		h.FirstMb == 0
}
