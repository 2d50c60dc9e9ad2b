package refs

import (
	"fmt"

	"github.com/user/h264play/pkg/codec/picture"
)

// Modification is one ref_pic_list_modification entry.
type Modification struct {
	Idc   uint32 // modification_of_pic_nums_idc
	Value uint32 // abs_diff_pic_num_minus1 or long_term_pic_num
}

// ListParams describes the list a P slice predicts from.
type ListParams struct {
	NumActive     int
	CurrFrameNum  uint32
	MaxFrameNum   uint32
	Modifications []Modification
}

// BuildList returns the initial reference list (most recent first)
// truncated or padded with nil to NumActive, after applying modifications.
func (p *Pool) BuildList(lp ListParams) ([]*picture.Picture, error) {
	list := make([]*picture.Picture, lp.NumActive)
	copy(list, p.Pictures())

	picNumPred := int64(lp.CurrFrameNum)
	maxFrameNum := int64(lp.MaxFrameNum)

	for refIdx, m := range lp.Modifications {
		if refIdx >= lp.NumActive {
			break
		}

		var picNumNoWrap int64
		switch m.Idc {
		case 0:
			picNumNoWrap = picNumPred - (int64(m.Value) + 1)
			if picNumNoWrap < 0 {
				picNumNoWrap += maxFrameNum
			}
		case 1:
			picNumNoWrap = picNumPred + (int64(m.Value) + 1)
			if picNumNoWrap >= maxFrameNum {
				picNumNoWrap -= maxFrameNum
			}
		default:
			return nil, fmt.Errorf("%w: idc %d", ErrUnsupportedModification, m.Idc)
		}
		picNumPred = picNumNoWrap

		picNum := picNumNoWrap
		if picNum > int64(lp.CurrFrameNum) {
			picNum -= maxFrameNum
		}

		target := p.byPicNum(picNum, lp.CurrFrameNum, lp.MaxFrameNum)
		if target == nil {
			return nil, fmt.Errorf("%w: pic_num %d", ErrMissingReference, picNum)
		}

		// insert at refIdx, then drop the later duplicate
		list = append(list[:refIdx], append([]*picture.Picture{target}, list[refIdx:]...)...)
		w := refIdx + 1
		for r := refIdx + 1; r < len(list); r++ {
			if list[r] != target {
				list[w] = list[r]
				w++
			}
		}
		list = list[:w]
		if len(list) > lp.NumActive {
			list = list[:lp.NumActive]
		}
		for len(list) < lp.NumActive {
			list = append(list, nil)
		}
	}

	return list, nil
}

func (p *Pool) byPicNum(picNum int64, currFrameNum, maxFrameNum uint32) *picture.Picture {
	for _, pic := range p.pics {
		wrap := int64(pic.FrameNum)
		if pic.FrameNum > currFrameNum {
			wrap -= int64(maxFrameNum)
		}
		if wrap == picNum {
			return pic
		}
	}
	return nil
}
