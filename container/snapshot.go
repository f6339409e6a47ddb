package snapcontainer

import "strings"

// Snapshot is a read-only view of a Container's elements at the
// moment CreateSnapshot was called. Taking one is O(num_slices): every
// slice is aliased into the snapshot's own kernel, bumping each
// storage's reference count, and no element data is copied until
// either the snapshot's originating container, or a container
// reconstituted from a snapshot sharing a segment, next mutates that
// segment -- at which point the kernel's insertion-COW or iteration-COW
// policy transparently deep-copies just the affected slice.
//
// A Snapshot never itself triggers copy-on-write: it exposes no
// mutating operations, so every divergence is driven by a container
// (the originating one, or one built by NewContainerFromSnapshot)
// diverging away from it.
type Snapshot[T any] struct {
	kernel *iteratorKernel[T]
}

func newSnapshot[T any](origin *iteratorKernel[T]) *Snapshot[T] {
	k := &iteratorKernel[T]{}
	k.snapshotFrom(origin)
	return &Snapshot[T]{kernel: k}
}

func (self *Snapshot[T]) Size() int {
	return self.kernel.size()
}

func (self *Snapshot[T]) Empty() bool {
	return self.kernel.size() == 0
}

func (self *Snapshot[T]) Get(index int) (val T, err error) {
	defer recoverKernelError(&err)
	if index < 0 || index >= self.kernel.size() {
		panicKernelError(OutOfRange, "index %d out of range [0, %d)", index, self.kernel.size())
	}
	return self.kernel.readAt(index), nil
}

func (self *Snapshot[T]) Begin() Iterator[T] {
	return newIterator[T](self.kernel, 0, false)
}

func (self *Snapshot[T]) End() Iterator[T] {
	return newIterator[T](self.kernel, self.kernel.size(), false)
}

// FragmentationIndex reports the snapshot's own scalar proxy for
// wasted capacity, computed over the slices it currently aliases.
func (self *Snapshot[T]) FragmentationIndex() float64 {
	return self.kernel.fragmentationIndex()
}

// StorageIDs returns the debugging/export identity of every storage
// segment this snapshot currently aliases, in slice order. Two
// snapshots (or a snapshot and its originating container) that have
// not yet diverged on a given segment report the same ID for it.
func (self *Snapshot[T]) StorageIDs() []string {
	ids := make([]string, len(self.kernel.slices))
	for i, s := range self.kernel.slices {
		ids[i] = s.storage.id.String()
	}
	return ids
}

// String renders the snapshot's storage IDs for quick inspection, not
// its elements -- use Get/Begin to read those.
func (self *Snapshot[T]) String() string {
	return strings.Join(self.StorageIDs(), ",")
}

// Close releases this snapshot's claim on every storage segment it
// aliases. Go has no deterministic destructor to call this from
// automatically; omitting the call is safe, not a correctness bug --
// every kernel mutation already adjusts refcounts correctly regardless
// of whether a long-dead snapshot ever released its own references --
// but it leaves segments marked shared (and therefore non-modifiable)
// longer than necessary, so long-lived processes that take many
// snapshots should call it once a snapshot is no longer needed.
func (self *Snapshot[T]) Close() {
	for i := range self.kernel.slices {
		self.kernel.slices[i].release()
	}
	self.kernel.slices = nil
	self.kernel.cumLengths = nil
}

// CheckIntegrity validates the snapshot's own structural invariants.
func (self *Snapshot[T]) CheckIntegrity() error {
	return self.kernel.checkIntegrity()
}
