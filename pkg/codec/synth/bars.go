package synth

import (
	"fmt"
	"math/bits"
)

// barColours are 75% colour bars as limited-range BT.601 Y, Cb, Cr.
var barColours = [8][3]byte{
	{180, 128, 128}, // white
	{162, 44, 142},  // yellow
	{131, 156, 44},  // cyan
	{112, 72, 58},   // green
	{84, 184, 198},  // magenta
	{65, 100, 212},  // red
	{35, 212, 114},  // blue
	{16, 128, 128},  // black
}

// BarsConfig describes a generated colour bar clip.
type BarsConfig struct {
	WidthMbs  int
	HeightMbs int
	Frames    int
	// GOP is the IDR period. Frames between IDRs are P_Skip copies.
	GOP int
	// BSlices inserts a non-reference B slice after every P frame.
	BSlices bool
	// FPS is written as VUI timing when positive.
	FPS float64
}

// Bars returns a baseline clip of colour bars. Each IDR shifts the bars
// one position to the left, so playback shows a step every GOP frames.
func Bars(c BarsConfig) (*Stream, error) {
	if c.WidthMbs < 1 || c.HeightMbs < 1 {
		return nil, fmt.Errorf("%w: %dx%d macroblocks", ErrLayout, c.WidthMbs, c.HeightMbs)
	}
	if c.Frames < 1 {
		return nil, fmt.Errorf("%w: %d frames", ErrLayout, c.Frames)
	}
	if c.GOP < 1 {
		c.GOP = c.Frames
	}

	sps := SPSConfig{
		WidthMbs:        c.WidthMbs,
		HeightMbs:       c.HeightMbs,
		Log2MaxFrameNum: max(4, bits.Len(uint(c.GOP))),
		MaxNumRefFrames: 1,
	}
	if c.FPS > 0 {
		sps.VUI = &VUI{NumUnitsInTick: 1000, TimeScale: uint32(c.FPS * 2000)}
	}
	s := NewStream(sps, PPSConfig{})

	for i := 0; i < c.Frames; i++ {
		pos := i % c.GOP
		if pos == 0 {
			gop := i / c.GOP
			h := SliceHeader{Type: SliceI, IDR: true, RefIdc: 3, IDRPicID: uint32(gop % 2)}
			if err := s.Slice(h, barRow(c.WidthMbs, c.HeightMbs, gop)); err != nil {
				return nil, err
			}
			continue
		}
		h := SliceHeader{Type: SliceP, RefIdc: 2, FrameNum: uint32(pos)}
		if err := s.Picture(h, Macroblock{Kind: Skip}); err != nil {
			return nil, err
		}
		if c.BSlices {
			if err := s.Slice(SliceHeader{Type: SliceB, FrameNum: uint32(pos + 1)}, nil); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func barRow(widthMbs, heightMbs, shift int) []Macroblock {
	mbs := make([]Macroblock, 0, widthMbs*heightMbs)
	for y := 0; y < heightMbs; y++ {
		for x := 0; x < widthMbs; x++ {
			bar := (x*len(barColours)/widthMbs + shift) % len(barColours)
			mbs = append(mbs, Macroblock{Kind: PCM, Fill: barColours[bar]})
		}
	}
	return mbs
}
