package snapcontainer

import (
	mathrand "math/rand"
	"testing"

	"github.com/go-playground/assert/v2"
)

func iotaRange(n int) RandomRange[int] {
	return rangeFrom(0, n)
}

func rangeFrom(start, n int) RandomRange[int] {
	buf := make([]int, n)
	for i := range buf {
		buf[i] = start + i
	}
	return FromSlice(buf)
}

// TestSnapshotIndependence is scenario S1: a snapshot's elements must
// not change when its originating container is mutated afterward, and
// the container's own elements must reflect the mutation.
func TestSnapshotIndependence(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(100))
	snap := c.CreateSnapshot()
	assert.Equal(t, 100, snap.Size())

	err := c.Set(50, -1)
	assert.Equal(t, nil, err)
	_, err = c.Erase(newIterator[int](c.kernel, 10, true))
	assert.Equal(t, nil, err)

	v, err := snap.Get(50)
	assert.Equal(t, nil, err)
	assert.Equal(t, 50, v)

	sv, err := snap.Get(10)
	assert.Equal(t, nil, err)
	assert.Equal(t, 10, sv)

	assert.Equal(t, 100, snap.Size())
	assert.Equal(t, 99, c.Size())

	cv, err := c.Get(49)
	assert.Equal(t, nil, err)
	assert.Equal(t, -1, cv)
}

// TestFragmentationSweep is scenario S2: a long seeded run of random
// mutations against a container with live snapshots must never violate
// the structural invariants, and the fragmentation index -- a scalar
// proxy for wasted capacity -- must stay bounded by the slice count.
func TestFragmentationSweep(t *testing.T) {
	rng := mathrand.New(mathrand.NewSource(1234))
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(512))

	var snaps []*Snapshot[int]
	for i := 0; i < 30000; i++ {
		switch rng.Intn(5) {
		case 0:
			if c.Size() > 0 {
				idx := rng.Intn(c.Size())
				assert.Equal(t, nil, c.Set(idx, rng.Int()))
			}
		case 1:
			idx := 0
			if c.Size() > 0 {
				idx = rng.Intn(c.Size() + 1)
			}
			_, err := c.Insert(newIterator[int](c.kernel, idx, true), rng.Int())
			assert.Equal(t, nil, err)
		case 2:
			if c.Size() > 0 {
				idx := rng.Intn(c.Size())
				_, err := c.Erase(newIterator[int](c.kernel, idx, true))
				assert.Equal(t, nil, err)
			}
		case 3:
			assert.Equal(t, nil, c.PushBack(rng.Int()))
		case 4:
			if len(snaps) < 16 {
				snaps = append(snaps, c.CreateSnapshot())
			}
		}

		if i%500 == 0 {
			assert.Equal(t, nil, c.CheckIntegrity())
			frag := c.FragmentationIndex()
			if frag > float64(c.NumSlices()) {
				t.Fatalf("fragmentation index %f exceeds slice count %d at op %d", frag, c.NumSlices(), i)
			}
			for _, s := range snaps {
				assert.Equal(t, nil, s.CheckIntegrity())
			}
		}
	}
}

// TestCOWSingleSliceInsert is scenario S3: inserting into a single,
// snapshot-shared 16384-element slice at index 10000 must split it
// into exactly a 10000-element and a 6384-element slice, leave
// container_index(result) == 10000, and leave exactly one of the two
// halves sole-owned (the other still shared with the snapshot).
//
// The two refcounts are attributable to a specific side (the shrunk
// original slice keeps the shared storage and ends up on the side the
// split didn't freshly copy) by direct derivation from the copy
// direction, not asserted positionally here.
func TestCOWSingleSliceInsert(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(16384))
	_ = c.CreateSnapshot()
	assert.Equal(t, 1, c.NumSlices())

	point := c.kernel.insertCOWOps(newSlicePoint(0, 10000))
	assert.Equal(t, 2, c.NumSlices())
	assert.Equal(t, 10000, c.kernel.slices[0].size())
	assert.Equal(t, 6384, c.kernel.slices[1].size())
	assert.Equal(t, 10000, c.kernel.containerIndex(point))

	soleOwnedCount := 0
	for _, s := range c.kernel.slices {
		if s.storage.soleOwner() {
			soleOwnedCount++
		} else {
			assert.Equal(t, 2, s.storage.refs)
		}
	}
	assert.Equal(t, 1, soleOwnedCount)
}

// TestIterateModifyAliased is scenario S4: writing through a mutable
// iterator over a slice shared with a live snapshot must copy before
// writing, leaving the snapshot's view of that element unchanged.
func TestIterateModifyAliased(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(50))
	snap := c.CreateSnapshot()

	it := c.Begin()
	for i := 0; i < 20; i++ {
		it.Next()
	}
	err := it.Set(-42)
	assert.Equal(t, nil, err)

	v, _ := c.Get(20)
	assert.Equal(t, -42, v)

	sv, _ := snap.Get(20)
	assert.Equal(t, 20, sv)
}

// TestCrossSliceErase is scenario S5: erasing a range that spans a
// slice boundary must leave the container's elements contiguous and
// its cumulative-length index consistent.
func TestCrossSliceErase(t *testing.T) {
	c := NewContainer[int]()
	for i := 0; i < 50; i++ {
		assert.Equal(t, nil, c.PushBack(i))
	}
	assert.Equal(t, nil, c.Append(rangeFrom(50, 50)))
	for i := 50; i < 100; i++ {
		v, _ := c.Get(i)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, true, c.NumSlices() >= 2)

	first := newIterator[int](c.kernel, 45, true)
	last := newIterator[int](c.kernel, 55, true)
	_, err := c.EraseRange(first, last)
	assert.Equal(t, nil, err)

	assert.Equal(t, 90, c.Size())
	assert.Equal(t, nil, c.CheckIntegrity())

	for i := 0; i < 45; i++ {
		v, _ := c.Get(i)
		assert.Equal(t, i, v)
	}
	for i := 45; i < 90; i++ {
		v, _ := c.Get(i)
		assert.Equal(t, i+10, v)
	}
}

// TestIteratorIndexStability is scenario S6: an iterator's logical
// slot is container-index-stable -- it does not follow an element
// inserted ahead of it. After inserting before an iterator's position,
// the iterator still addresses the same container index, now holding
// whatever was shifted into it, not the element it originally pointed at.
func TestIteratorIndexStability(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(20))

	it := newIterator[int](c.kernel, 10, true)
	v, _ := it.Get()
	assert.Equal(t, 10, v)

	insertAt := newIterator[int](c.kernel, 5, true)
	_, err := c.Insert(insertAt, -1)
	assert.Equal(t, nil, err)

	assert.Equal(t, 21, c.Size())
	assert.Equal(t, 10, it.containerIndex())

	v, _ = it.Get()
	assert.Equal(t, 9, v)
}
