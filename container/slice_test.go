package snapcontainer

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestSliceCloneRetainsAndRelease(t *testing.T) {
	creator := NewSliceStorageCreator[int]()
	h := newStorageHandle[int](creator.NewFromSlice([]int{1, 2, 3}))
	s := newSlice(h, 0)
	assert.Equal(t, true, s.isModifiable())

	clone := s.clone()
	assert.Equal(t, 2, h.refs)
	assert.Equal(t, false, s.isModifiable())
	assert.Equal(t, false, clone.isModifiable())

	clone.release()
	assert.Equal(t, 1, h.refs)
	assert.Equal(t, true, s.isModifiable())
}

func TestSliceCopyRangeIsIndependent(t *testing.T) {
	creator := NewSliceStorageCreator[int]()
	h := newStorageHandle[int](creator.NewFromSlice([]int{0, 1, 2, 3, 4}))
	s := newSlice(h, 0)

	cp := s.copyRange(1, 4, creator)
	assert.Equal(t, 3, cp.size())
	assert.Equal(t, 1, cp.at(0))
	assert.Equal(t, 2, cp.at(1))
	assert.Equal(t, 3, cp.at(2))

	cp.setAt(0, 99)
	assert.Equal(t, 1, s.at(1))
}

func TestSliceAppendGrowsStorage(t *testing.T) {
	creator := NewSliceStorageCreator[int]()
	h := newStorageHandle[int](creator.New())
	s := newSlice(h, 0)
	s.append(1)
	s.append(2)
	s.appendRange([]int{3, 4})
	assert.Equal(t, 4, s.size())
	assert.Equal(t, 4, s.at(3))
}
