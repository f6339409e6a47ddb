package snapcontainer

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

type sliceCursor struct {
	values []int
	pos    int
}

func (self *sliceCursor) Next() (int, bool) {
	if self.pos >= len(self.values) {
		return 0, false
	}
	v := self.values[self.pos]
	self.pos++
	return v, true
}

func TestCollectDrainsForwardRange(t *testing.T) {
	out := collect[int](&sliceCursor{values: []int{1, 2, 3}})
	assert.Equal(t, []int{1, 2, 3}, out)
}

func TestAsForwardWrapsRandomRange(t *testing.T) {
	r := FromSlice([]int{5, 6, 7})
	fwd := asForward[int](r)

	got := []int{}
	for {
		v, ok := fwd.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{5, 6, 7}, got)
}
