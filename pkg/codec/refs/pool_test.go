package refs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/h264play/pkg/codec/picture"
)

func pic(frameNum uint32) *picture.Picture {
	p := picture.New(1, 1)
	p.FrameNum = frameNum
	p.Seq = int64(frameNum)
	return p
}

func TestPoolSlidingWindow(t *testing.T) {
	p := NewPool(3)

	var stored []*picture.Picture
	for i := uint32(0); i < 3; i++ {
		stored = append(stored, pic(i))
		require.Nil(t, p.Store(stored[i]))
	}
	require.Equal(t, 3, p.Len())

	// capacity+1 evicts exactly the oldest
	evicted := p.Store(pic(3))
	require.Same(t, stored[0], evicted)
	require.Equal(t, 3, p.Len())

	for idx, exp := range []uint32{3, 2, 1} {
		r, err := p.Resolve(idx)
		require.NoError(t, err)
		require.Equal(t, exp, r.FrameNum)
	}

	_, err := p.Resolve(3)
	require.ErrorIs(t, err, ErrMissingReference)
}

func TestPoolNeverExceedsCapacity(t *testing.T) {
	p := NewPool(2)
	for i := uint32(0); i < 10; i++ {
		p.Store(pic(i))
		require.LessOrEqual(t, p.Len(), p.Cap())
	}
}

func TestPoolMinimumCapacity(t *testing.T) {
	p := NewPool(0)
	require.Equal(t, 1, p.Cap())
	p.Store(pic(0))
	p.Store(pic(1))
	r, err := p.Resolve(0)
	require.NoError(t, err)
	require.Equal(t, uint32(1), r.FrameNum)
}

func TestPoolResetAndRemove(t *testing.T) {
	p := NewPool(4)
	for i := uint32(0); i < 4; i++ {
		p.Store(pic(i))
	}

	removed := p.Remove(1)
	require.NotNil(t, removed)
	require.Equal(t, uint32(1), removed.FrameNum)
	require.Nil(t, p.Remove(1))
	require.Equal(t, 3, p.Len())
	for _, r := range p.Pictures() {
		require.NotSame(t, removed, r)
	}

	evicted := p.SetCapacity(2)
	require.Len(t, evicted, 1)
	require.Equal(t, uint32(0), evicted[0].FrameNum)

	p.Reset()
	require.Equal(t, 0, p.Len())
	_, err := p.Resolve(0)
	require.ErrorIs(t, err, ErrMissingReference)
}

func TestBuildListDefault(t *testing.T) {
	p := NewPool(4)
	for i := uint32(0); i < 3; i++ {
		p.Store(pic(i))
	}

	list, err := p.BuildList(ListParams{NumActive: 4, CurrFrameNum: 3, MaxFrameNum: 16})
	require.NoError(t, err)
	require.Len(t, list, 4)
	require.Equal(t, uint32(2), list[0].FrameNum)
	require.Equal(t, uint32(0), list[2].FrameNum)
	require.Nil(t, list[3])
}

func TestBuildListModification(t *testing.T) {
	p := NewPool(4)
	for i := uint32(0); i < 3; i++ {
		p.Store(pic(i))
	}

	// move frame 0 to the front: pred 3 - (2+1) = 0
	list, err := p.BuildList(ListParams{
		NumActive:     3,
		CurrFrameNum:  3,
		MaxFrameNum:   16,
		Modifications: []Modification{{Idc: 0, Value: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 2, 1}, []uint32{list[0].FrameNum, list[1].FrameNum, list[2].FrameNum})
}

func TestBuildListModificationWrap(t *testing.T) {
	p := NewPool(4)
	p.Store(pic(14))
	p.Store(pic(15))

	// current frame_num 0 after wrap; 15 has PicNum -1
	list, err := p.BuildList(ListParams{
		NumActive:     2,
		CurrFrameNum:  0,
		MaxFrameNum:   16,
		Modifications: []Modification{{Idc: 0, Value: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, uint32(14), list[0].FrameNum)
	require.Equal(t, uint32(15), list[1].FrameNum)
}

func TestBuildListErrors(t *testing.T) {
	p := NewPool(2)
	p.Store(pic(0))

	_, err := p.BuildList(ListParams{
		NumActive:     1,
		CurrFrameNum:  1,
		MaxFrameNum:   16,
		Modifications: []Modification{{Idc: 0, Value: 4}},
	})
	require.ErrorIs(t, err, ErrMissingReference)

	_, err = p.BuildList(ListParams{
		NumActive:     1,
		CurrFrameNum:  1,
		MaxFrameNum:   16,
		Modifications: []Modification{{Idc: 2, Value: 0}},
	})
	require.ErrorIs(t, err, ErrUnsupportedModification)
}
