package snapcontainer

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestSnapshotStorageIDsConvergeThenDiverge(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(10))
	snap := c.CreateSnapshot()

	assert.Equal(t, 1, len(snap.StorageIDs()))
	before := snap.StorageIDs()[0]
	assert.Equal(t, before, c.kernel.slices[0].storage.id.String())

	assert.Equal(t, nil, c.Set(0, 99))

	after := c.kernel.slices[0].storage.id.String()
	assert.NotEqual(t, before, after)

	stillOriginal, _ := snap.Get(0)
	assert.Equal(t, 0, stillOriginal)
}

func TestSnapshotClose(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(4))
	snap := c.CreateSnapshot()
	assert.Equal(t, 2, c.kernel.slices[0].storage.refs)

	snap.Close()
	assert.Equal(t, 1, c.kernel.slices[0].storage.refs)
}

func TestSnapshotDivergenceViaReconstitutedContainer(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(10))
	snap := c.CreateSnapshot()

	reconstituted := NewContainerFromSnapshot[int](snap)
	assert.Equal(t, nil, reconstituted.Set(0, 999))

	stillOriginalInSnap, _ := snap.Get(0)
	assert.Equal(t, 0, stillOriginalInSnap)

	stillOriginalInC, _ := c.Get(0)
	assert.Equal(t, 0, stillOriginalInC)

	reconstitutedVal, _ := reconstituted.Get(0)
	assert.Equal(t, 999, reconstitutedVal)
}

func TestSnapshotFragmentationIndexBounded(t *testing.T) {
	c := NewContainerFromRandom[int](NewSliceStorageCreator[int](), DefaultCOWConfig(), iotaRange(1000))
	snap := c.CreateSnapshot()

	idx := snap.FragmentationIndex()
	if idx > float64(1) {
		t.Fatalf("fragmentation index %f exceeds single-slice snapshot's slice count 1", idx)
	}
}
