package snapcontainer

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestContainerBasicCRUD(t *testing.T) {
	c := NewContainer[string]()
	assert.Equal(t, true, c.Empty())

	assert.Equal(t, nil, c.PushBack("a"))
	assert.Equal(t, nil, c.PushBack("b"))
	assert.Equal(t, nil, c.PushBack("c"))
	assert.Equal(t, 3, c.Size())

	v, err := c.Get(1)
	assert.Equal(t, nil, err)
	assert.Equal(t, "b", v)

	assert.Equal(t, nil, c.Set(1, "bb"))
	v, _ = c.Get(1)
	assert.Equal(t, "bb", v)

	assert.Equal(t, nil, c.PopBack())
	assert.Equal(t, 2, c.Size())

	c.Clear()
	assert.Equal(t, true, c.Empty())
}

func TestContainerOutOfRangeReturnsError(t *testing.T) {
	c := NewContainer[int]()
	assert.Equal(t, nil, c.PushBack(1))

	_, err := c.Get(5)
	assert.NotEqual(t, err, nil)

	kerr, ok := err.(*KernelError)
	assert.Equal(t, true, ok)
	assert.Equal(t, OutOfRange, kerr.Kind)

	err = c.Set(-1, 9)
	assert.NotEqual(t, err, nil)
}

func TestContainerInsertAndErase(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(5))
	mid := newIterator[int](c.kernel, 2, true)

	_, err := c.Insert(mid, 100)
	assert.Equal(t, nil, err)
	assert.Equal(t, 6, c.Size())

	for i, want := range []int{0, 1, 100, 2, 3, 4} {
		v, _ := c.Get(i)
		assert.Equal(t, want, v)
	}

	target := newIterator[int](c.kernel, 2, true)
	_, err = c.Erase(target)
	assert.Equal(t, nil, err)
	assert.Equal(t, 5, c.Size())

	for i, want := range []int{0, 1, 2, 3, 4} {
		v, _ := c.Get(i)
		assert.Equal(t, want, v)
	}
}

func TestContainerSwap(t *testing.T) {
	a := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(3))
	b := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), rangeFrom(100, 2))

	a.Swap(b)
	assert.Equal(t, 2, a.Size())
	assert.Equal(t, 3, b.Size())

	v, _ := a.Get(0)
	assert.Equal(t, 100, v)
	v, _ = b.Get(0)
	assert.Equal(t, 0, v)
}

func TestContainerClone(t *testing.T) {
	a := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(10))
	b := a.Clone()

	assert.Equal(t, nil, b.Set(0, -1))

	av, _ := a.Get(0)
	bv, _ := b.Get(0)
	assert.Equal(t, 0, av)
	assert.Equal(t, -1, bv)
}

func TestIteratorTraversal(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(5))

	it := c.CBegin()
	got := []int{}
	for {
		v, err := it.Get()
		assert.Equal(t, nil, err)
		got = append(got, v)
		if !it.Next() {
			break
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestConstIteratorRejectsWrite(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(3))
	it := c.CBegin()
	err := it.Set(9)
	assert.NotEqual(t, err, nil)
}

// channelDrain is a genuinely single-pass ForwardRange -- no Len/At,
// each value is only ever observed once via Next -- standing in for a
// channel drain or a file scan the way spec.md's forward-range overload
// is meant to serve.
type channelDrain struct {
	ch <-chan int
}

func (self *channelDrain) Next() (int, bool) {
	v, ok := <-self.ch
	return v, ok
}

func drainOf(values ...int) *channelDrain {
	ch := make(chan int, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return &channelDrain{ch: ch}
}

func TestNewContainerFromForwardSinglePassSource(t *testing.T) {
	c := NewContainerFromForward[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), drainOf(1, 2, 3))
	assert.Equal(t, 3, c.Size())
	for i, want := range []int{1, 2, 3} {
		v, _ := c.Get(i)
		assert.Equal(t, want, v)
	}
}

func TestInsertForwardSinglePassSource(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(3))
	mid := newIterator[int](c.kernel, 1, true)

	_, err := c.InsertForward(mid, drainOf(100, 101))
	assert.Equal(t, nil, err)
	assert.Equal(t, 5, c.Size())
	for i, want := range []int{0, 100, 101, 1, 2} {
		v, _ := c.Get(i)
		assert.Equal(t, want, v)
	}
}

func TestAppendForwardSinglePassSource(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(2))
	before := c.NumSlices()

	assert.Equal(t, nil, c.AppendForward(drainOf(50, 51)))
	assert.Equal(t, 4, c.Size())
	assert.Equal(t, before+1, c.NumSlices())
	for i, want := range []int{0, 1, 50, 51} {
		v, _ := c.Get(i)
		assert.Equal(t, want, v)
	}
}
