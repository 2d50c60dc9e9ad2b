package params

import (
	"fmt"

	"github.com/user/h264play/pkg/codec/bitstream"
)

// PPS holds the picture-level decode parameters.
type PPS struct {
	ID    uint32
	SPSID uint32

	BottomFieldPicOrderInFramePresent bool

	NumRefIdxL0DefaultActive int
	NumRefIdxL1DefaultActive int

	WeightedPred      bool
	WeightedBipredIdc uint32

	PicInitQP int
	PicInitQS int

	ChromaQPIndexOffset       int
	SecondChromaQPIndexOffset int

	DeblockingFilterControlPresent bool
	ConstrainedIntraPred           bool
	RedundantPicCntPresent         bool
}

// ParsePPS parses a PPS RBSP (header byte removed, emulation prevention removed).
func ParsePPS(rbsp []byte) (*PPS, error) {
	r := bitstream.New(rbsp)
	p := &PPS{}

	wrap := func(field string, err error) error {
		return fmt.Errorf("pps %s: %w", field, err)
	}

	v, err := r.ReadUE()
	if err != nil {
		return nil, wrap("pic_parameter_set_id", err)
	}
	if v > 255 {
		return nil, fmt.Errorf("%w: pic_parameter_set_id %d", ErrInvalid, v)
	}
	p.ID = v

	if v, err = r.ReadUE(); err != nil {
		return nil, wrap("seq_parameter_set_id", err)
	}
	if v > 31 {
		return nil, fmt.Errorf("%w: seq_parameter_set_id %d", ErrInvalid, v)
	}
	p.SPSID = v

	cabac, err := r.ReadFlag()
	if err != nil {
		return nil, wrap("entropy_coding_mode_flag", err)
	}
	if cabac {
		return nil, fmt.Errorf("%w: CABAC entropy coding", ErrUnsupported)
	}

	if p.BottomFieldPicOrderInFramePresent, err = r.ReadFlag(); err != nil {
		return nil, wrap("bottom_field_pic_order_in_frame_present_flag", err)
	}

	if v, err = r.ReadUE(); err != nil {
		return nil, wrap("num_slice_groups_minus1", err)
	}
	if v > 0 {
		return nil, fmt.Errorf("%w: %d slice groups", ErrUnsupported, v+1)
	}

	if v, err = r.ReadUE(); err != nil {
		return nil, wrap("num_ref_idx_l0_default_active_minus1", err)
	}
	if v > 31 {
		return nil, fmt.Errorf("%w: num_ref_idx_l0_default_active_minus1 %d", ErrInvalid, v)
	}
	p.NumRefIdxL0DefaultActive = int(v) + 1

	if v, err = r.ReadUE(); err != nil {
		return nil, wrap("num_ref_idx_l1_default_active_minus1", err)
	}
	if v > 31 {
		return nil, fmt.Errorf("%w: num_ref_idx_l1_default_active_minus1 %d", ErrInvalid, v)
	}
	p.NumRefIdxL1DefaultActive = int(v) + 1

	if p.WeightedPred, err = r.ReadFlag(); err != nil {
		return nil, wrap("weighted_pred_flag", err)
	}
	if p.WeightedBipredIdc, err = r.ReadBits(2); err != nil {
		return nil, wrap("weighted_bipred_idc", err)
	}

	sv, err := r.ReadSE()
	if err != nil {
		return nil, wrap("pic_init_qp_minus26", err)
	}
	if sv < -26 || sv > 25 {
		return nil, fmt.Errorf("%w: pic_init_qp_minus26 %d", ErrInvalid, sv)
	}
	p.PicInitQP = 26 + int(sv)

	if sv, err = r.ReadSE(); err != nil {
		return nil, wrap("pic_init_qs_minus26", err)
	}
	p.PicInitQS = 26 + int(sv)

	if sv, err = r.ReadSE(); err != nil {
		return nil, wrap("chroma_qp_index_offset", err)
	}
	if sv < -12 || sv > 12 {
		return nil, fmt.Errorf("%w: chroma_qp_index_offset %d", ErrInvalid, sv)
	}
	p.ChromaQPIndexOffset = int(sv)
	p.SecondChromaQPIndexOffset = p.ChromaQPIndexOffset

	if p.DeblockingFilterControlPresent, err = r.ReadFlag(); err != nil {
		return nil, wrap("deblocking_filter_control_present_flag", err)
	}
	if p.ConstrainedIntraPred, err = r.ReadFlag(); err != nil {
		return nil, wrap("constrained_intra_pred_flag", err)
	}
	if p.RedundantPicCntPresent, err = r.ReadFlag(); err != nil {
		return nil, wrap("redundant_pic_cnt_present_flag", err)
	}

	if r.MoreRBSPData() {
		t8x8, err := r.ReadFlag()
		if err != nil {
			return nil, wrap("transform_8x8_mode_flag", err)
		}
		scaling, err := r.ReadFlag()
		if err != nil {
			return nil, wrap("pic_scaling_matrix_present_flag", err)
		}
		if t8x8 || scaling {
			return nil, fmt.Errorf("%w: high profile picture tools", ErrUnsupported)
		}
		if sv, err = r.ReadSE(); err != nil {
			return nil, wrap("second_chroma_qp_index_offset", err)
		}
		p.SecondChromaQPIndexOffset = int(sv)
	}

	return p, nil
}
