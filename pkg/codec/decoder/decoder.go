// Package decoder assembles decoded slices into finished frames. It owns
// the parameter set store, the reference pool and the picture under
// construction for one stream.
package decoder

import (
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"

	"github.com/user/h264play/pkg/codec/deblock"
	"github.com/user/h264play/pkg/codec/nal"
	"github.com/user/h264play/pkg/codec/params"
	"github.com/user/h264play/pkg/codec/picture"
	"github.com/user/h264play/pkg/codec/refs"
	"github.com/user/h264play/pkg/codec/slice"
	"github.com/user/h264play/pkg/ports"
)

// Frame is a finished picture in decode order, which is also display order.
type Frame struct {
	Picture  *picture.Picture
	SPS      *params.SPS
	FrameNum uint32
	IDR      bool
	// Concealed counts macroblocks that were not decoded and were copied
	// from the previous reference or filled with grey instead.
	Concealed int
}

// Width returns the cropped frame width.
func (f *Frame) Width() int { return f.Picture.Width() }

// Height returns the cropped frame height.
func (f *Frame) Height() int { return f.Picture.Height() }

// Corrupt reports whether any part of the frame was concealed.
func (f *Frame) Corrupt() bool { return f.Concealed > 0 }

// Stats counts what the decoder has seen since it was created.
type Stats struct {
	NALUs     int
	Slices    int
	Frames    int
	Skipped   int // NAL units rejected or abandoned
	Concealed int // frames with concealed macroblocks
}

// Decoder turns NAL units into frames. It is not safe for concurrent use.
type Decoder struct {
	log   ports.Logger
	store *params.Store
	pool  *refs.Pool

	cur      *picture.Picture
	curSPS   *params.SPS
	prev     *slice.Header
	sliceNum int
	marking  []slice.MMCO
	seq      int64

	// released pictures reused for the next frame
	free    []*picture.Picture
	lastOut *picture.Picture
	active  *params.SPS

	stats Stats
}

// New creates a decoder.
func New(log ports.Logger) *Decoder {
	return &Decoder{
		log:   log.WithComponent("decoder"),
		store: params.NewStore(),
		pool:  refs.NewPool(1),
	}
}

// Stats returns the running counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// References returns the number of resident reference pictures.
func (d *Decoder) References() int {
	return d.pool.Len()
}

// Decode consumes one NAL unit. When u ends the picture under
// construction the finished frame is returned. A frame may be returned
// together with an error; the error then describes u only. The frame
// stays valid until the next call to Decode, Flush or Reset.
func (d *Decoder) Decode(u nal.Unit) (*Frame, error) {
	d.stats.NALUs++
	d.recycle()

	switch u.Type {
	case h264.NALUTypeSPS:
		frame := d.finish()
		sps, err := params.ParseSPS(u.Raw)
		if err != nil {
			d.stats.Skipped++
			return frame, fmt.Errorf("sps: %w", err)
		}
		d.store.PutSPS(sps)
		d.log.Debug("Stored SPS %d: %dx%d, %d reference frames", sps.ID, sps.Width(), sps.Height(), sps.MaxNumRefFrames)
		return frame, nil

	case h264.NALUTypePPS:
		frame := d.finish()
		pps, err := params.ParsePPS(u.Payload)
		if err != nil {
			d.stats.Skipped++
			return frame, fmt.Errorf("pps: %w", err)
		}
		d.store.PutPPS(pps)
		d.log.Debug("Stored PPS %d for SPS %d", pps.ID, pps.SPSID)
		return frame, nil

	case h264.NALUTypeAccessUnitDelimiter, h264.NALUTypeSEI,
		h264.NALUTypeEndOfSequence, h264.NALUTypeEndOfStream:
		return d.finish(), nil

	case h264.NALUTypeNonIDR, h264.NALUTypeIDR:
		return d.decodeSlice(u)

	default:
		// data partitioning, filler and extensions carry nothing we use
		return nil, nil
	}
}

// Pending reports whether a picture is under construction.
func (d *Decoder) Pending() bool {
	return d.cur != nil
}

// Flush finishes the picture under construction, if any.
func (d *Decoder) Flush() *Frame {
	d.recycle()
	return d.finish()
}

// Reset drops all state: parameter sets, references and any partial picture.
func (d *Decoder) Reset() {
	d.store.Reset()
	d.pool.Reset()
	d.cur = nil
	d.curSPS = nil
	d.prev = nil
	d.marking = nil
	d.lastOut = nil
	d.active = nil
}

func (d *Decoder) decodeSlice(u nal.Unit) (*Frame, error) {
	d.stats.Slices++

	h, err := slice.ParseHeader(u, d.store)
	if err != nil {
		d.stats.Skipped++
		var frame *Frame
		if h != nil && h.FirstMb == 0 {
			// an unsupported slice starting a picture still ends the previous one
			frame = d.finish()
		}
		return frame, err
	}

	if h.RedundantPicCnt > 0 {
		d.log.Debug("Skipping redundant slice of frame %d", h.FrameNum)
		return nil, nil
	}

	var frame *Frame
	if d.cur == nil || h.FirstOfPicture(d.prev) {
		frame = d.finish()
		d.begin(h)
	} else {
		d.sliceNum++
	}
	d.prev = h
	if h.RefIdc != 0 && h.AdaptiveMarking {
		d.marking = h.MMCOs
	}

	var refList []*picture.Picture
	if h.Type == slice.TypeP {
		refList, err = d.pool.BuildList(refs.ListParams{
			NumActive:     h.NumRefIdxActive,
			CurrFrameNum:  h.FrameNum,
			MaxFrameNum:   h.SPS.MaxFrameNum,
			Modifications: h.Modifications,
		})
		if err != nil {
			d.stats.Skipped++
			return frame, fmt.Errorf("frame %d: %w", h.FrameNum, err)
		}
	}

	res, err := slice.Decode(u, slice.Params{
		Header:   h,
		Picture:  d.cur,
		RefList:  refList,
		SliceNum: d.sliceNum,
	})
	if err != nil {
		d.stats.Skipped++
		return frame, fmt.Errorf("frame %d slice %d after %d macroblocks: %w", h.FrameNum, d.sliceNum, res.Decoded, err)
	}
	return frame, nil
}

// begin starts a new picture for the slice h.
func (d *Decoder) begin(h *slice.Header) {
	sps := h.SPS
	if h.IDR || d.active != sps {
		if d.active == nil || h.IDR || d.active.WidthMbs != sps.WidthMbs || d.active.HeightMbs != sps.HeightMbs {
			// pictures still referenced by the frame being returned are not released
			d.pool.Reset()
		}
		if d.active != nil && d.active.ID != sps.ID {
			d.log.Debug("Activating SPS %d", sps.ID)
		}
		d.active = sps
		for _, p := range d.pool.SetCapacity(sps.RefCapacity()) {
			d.release(p)
		}
	}

	pic := d.alloc(sps.WidthMbs, sps.HeightMbs)
	d.seq++
	pic.Seq = d.seq
	pic.FrameNum = h.FrameNum
	pic.IsIDR = h.IDR
	pic.IsReference = h.RefIdc != 0
	pic.CropLeft, pic.CropRight = sps.CropLeft, sps.CropRight
	pic.CropTop, pic.CropBottom = sps.CropTop, sps.CropBottom

	d.cur = pic
	d.curSPS = sps
	d.sliceNum = 0
	d.marking = nil
}

// finish conceals, filters and stores the current picture.
func (d *Decoder) finish() *Frame {
	pic := d.cur
	if pic == nil {
		return nil
	}
	d.cur = nil
	d.prev = nil

	concealed := d.conceal(pic)
	if concealed > 0 {
		pic.Corrupt = true
		d.stats.Concealed++
		d.log.Debug("Concealed %d of %d macroblocks in frame %d", concealed, pic.MbCount(), pic.FrameNum)
	}

	deblock.Filter(pic)

	if pic.IsReference {
		d.mark(pic)
		if evicted := d.pool.Store(pic); evicted != nil {
			d.log.Debug("Reference frame %d evicted", evicted.FrameNum)
			d.release(evicted)
		}
	} else {
		d.lastOut = pic
	}

	d.stats.Frames++
	return &Frame{
		Picture:   pic,
		SPS:       d.curSPS,
		FrameNum:  pic.FrameNum,
		IDR:       pic.IsIDR,
		Concealed: concealed,
	}
}

// conceal fills every undecoded macroblock from the most recent reference,
// or with mid grey when there is none, and returns how many it touched.
func (d *Decoder) conceal(pic *picture.Picture) int {
	n := pic.MbCount() - pic.DecodedCount()
	if n == 0 {
		return 0
	}
	ref, err := d.pool.Resolve(0)
	if err != nil || ref.WidthMbs != pic.WidthMbs || ref.HeightMbs != pic.HeightMbs {
		ref = nil
	}

	for addr := range pic.MBs {
		if pic.MBs[addr].Decoded {
			continue
		}
		mbx, mby := addr%pic.WidthMbs, addr/pic.WidthMbs
		for c := 0; c < 3; c++ {
			plane, stride := pic.Plane(c)
			size := 16
			if c > 0 {
				size = 8
			}
			for y := 0; y < size; y++ {
				off := (mby*size+y)*stride + mbx*size
				row := plane[off : off+size]
				if ref != nil {
					src, _ := ref.Plane(c)
					copy(row, src[off:off+size])
					continue
				}
				for i := range row {
					row[i] = 128
				}
			}
		}
	}
	return n
}

// mark applies adaptive reference marking before pic is stored.
func (d *Decoder) mark(pic *picture.Picture) {
	for _, m := range d.marking {
		switch m.Op {
		case 1:
			picNum := int64(pic.FrameNum) - int64(m.DifferenceOfPicNums)
			if picNum < 0 {
				picNum += int64(d.curSPS.MaxFrameNum)
			}
			if removed := d.pool.Remove(uint32(picNum)); removed != nil {
				d.log.Debug("Reference frame %d unmarked", picNum)
				d.release(removed)
			}
		case 5:
			for _, p := range d.pool.Pictures() {
				d.release(p)
			}
			d.pool.Reset()
			pic.FrameNum = 0
		default:
			d.log.Debug("Ignoring long-term marking operation %d", m.Op)
		}
	}
	d.marking = nil
}

func (d *Decoder) alloc(widthMbs, heightMbs int) *picture.Picture {
	for i, p := range d.free {
		if p.WidthMbs == widthMbs && p.HeightMbs == heightMbs {
			d.free = append(d.free[:i], d.free[i+1:]...)
			p.Reset()
			return p
		}
	}
	return picture.New(widthMbs, heightMbs)
}

// release hands a picture back for reuse once no frame refers to it.
func (d *Decoder) release(p *picture.Picture) {
	if len(d.free) < 4 {
		d.free = append(d.free, p)
	}
}

// recycle frees the last non-reference output, whose frame has expired.
func (d *Decoder) recycle() {
	if d.lastOut != nil {
		d.release(d.lastOut)
		d.lastOut = nil
	}
}

// IsRecoverable reports whether err only affects the NAL unit it came
// from. Other errors mean the stream cannot be decoded at all.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	return !errors.Is(err, nal.ErrMalformedStartCode) && !errors.Is(err, params.ErrUnsupported)
}
