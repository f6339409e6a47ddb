package snapcontainer

// Container is a temporal, sequentially-indexed sequence of T backed
// by the slice-graph kernel: O(log num_slices) random access by
// container index, amortized-cheap insert/erase near either end of a
// slice, and an O(num_slices) CreateSnapshot that defers any copying of
// elements until the snapshot or the container diverges from it.
type Container[T any] struct {
	kernel *iteratorKernel[T]
}

// NewContainer returns an empty Container backed by the default
// in-memory Storage implementation and spec.md's default COW tunables.
func NewContainer[T any]() *Container[T] {
	return NewContainerWithConfig[T](NewSliceStorageCreator[T](), DefaultCOWConfig())
}

// NewContainerWithConfig returns an empty Container using creator for
// new storage segments and config for its COW tunables -- the
// constructor test harnesses use to exercise non-default thresholds.
func NewContainerWithConfig[T any](creator StorageCreator[T], config COWConfig) *Container[T] {
	return &Container[T]{kernel: newKernel[T](creator, config)}
}

// NewContainerFromRandom builds a Container from an O(1)-addressable
// source, sized up front into a single slice.
func NewContainerFromRandom[T any](creator StorageCreator[T], config COWConfig, r RandomRange[T]) *Container[T] {
	return &Container[T]{kernel: newKernelFromRandom[T](creator, config, r)}
}

// NewContainerFromForward builds a Container from a single-pass
// source, draining it into a buffer before sizing the first slice.
func NewContainerFromForward[T any](creator StorageCreator[T], config COWConfig, r ForwardRange[T]) *Container[T] {
	return &Container[T]{kernel: newKernelFromForward[T](creator, config, r)}
}

// NewContainerFromSnapshot reconstitutes a mutable Container aliasing
// snap's current slices: the same shared, sole-ownership-gated storage
// snap holds, wrapped in a fresh kernel of its own. Writing through the
// resulting Container triggers copy-on-write exactly like writing
// through any other container that shares storage with a snapshot --
// snap itself is never mutated by anything done to the result.
func NewContainerFromSnapshot[T any](snap *Snapshot[T]) *Container[T] {
	k := &iteratorKernel[T]{}
	k.snapshotFrom(snap.kernel)
	return &Container[T]{kernel: k}
}

func (self *Container[T]) Size() int {
	return self.kernel.size()
}

func (self *Container[T]) Empty() bool {
	return self.kernel.size() == 0
}

func (self *Container[T]) NumSlices() int {
	return self.kernel.numSlices()
}

func (self *Container[T]) Clear() {
	self.kernel.clear()
}

// Swap exchanges contents with other in O(1). Live iterators stay bound
// to their own container and re-resolve against its new contents.
func (self *Container[T]) Swap(other *Container[T]) {
	self.kernel.swap(other.kernel)
}

// Clone returns a new Container holding a fully independent deep copy
// of self's elements: no storage segment is shared with self afterward.
func (self *Container[T]) Clone() *Container[T] {
	clone := NewContainerWithConfig[T](self.kernel.creator, self.kernel.config)
	clone.kernel.deepCopyFrom(self.kernel)
	return clone
}

func (self *Container[T]) checkIndex(index int) {
	if index < 0 || index >= self.kernel.size() {
		panicKernelError(OutOfRange, "index %d out of range [0, %d)", index, self.kernel.size())
	}
}

func (self *Container[T]) Get(index int) (val T, err error) {
	defer recoverKernelError(&err)
	self.checkIndex(index)
	return self.kernel.readAt(index), nil
}

func (self *Container[T]) Set(index int, value T) (err error) {
	defer recoverKernelError(&err)
	self.checkIndex(index)
	self.kernel.writeAt(index, value)
	return nil
}

func (self *Container[T]) Begin() Iterator[T] {
	return newIterator[T](self.kernel, 0, true)
}

func (self *Container[T]) End() Iterator[T] {
	return newIterator[T](self.kernel, self.kernel.size(), true)
}

func (self *Container[T]) CBegin() Iterator[T] {
	return newIterator[T](self.kernel, 0, false)
}

func (self *Container[T]) CEnd() Iterator[T] {
	return newIterator[T](self.kernel, self.kernel.size(), false)
}

func (self *Container[T]) requireOwnIterator(it Iterator[T]) {
	if it.kernel != self.kernel {
		panicKernelError(InvalidIteratorOp, "iterator does not belong to this container")
	}
}

// Insert places value immediately before pos, returning an iterator to
// the inserted element.
func (self *Container[T]) Insert(pos Iterator[T], value T) (result Iterator[T], err error) {
	defer recoverKernelError(&err)
	self.requireOwnIterator(pos)
	point := self.kernel.insert(self.kernel.sliceIndex(pos.containerIndex()), value)
	return newIterator[T](self.kernel, self.kernel.containerIndex(point), true), nil
}

// InsertRange places every element of values immediately before pos.
func (self *Container[T]) InsertRange(pos Iterator[T], values RandomRange[T]) (result Iterator[T], err error) {
	defer recoverKernelError(&err)
	self.requireOwnIterator(pos)
	buf := make([]T, values.Len())
	for i := range buf {
		buf[i] = values.At(i)
	}
	point := self.kernel.insertRange(self.kernel.sliceIndex(pos.containerIndex()), buf)
	return newIterator[T](self.kernel, self.kernel.containerIndex(point), true), nil
}

// InsertForward places every element drawn from a single-pass source
// immediately before pos.
func (self *Container[T]) InsertForward(pos Iterator[T], values ForwardRange[T]) (result Iterator[T], err error) {
	return self.InsertRange(pos, FromSlice(collect(values)))
}

// Erase removes the element pos addresses, returning an iterator to
// the element that took its place.
func (self *Container[T]) Erase(pos Iterator[T]) (result Iterator[T], err error) {
	defer recoverKernelError(&err)
	self.requireOwnIterator(pos)
	point := self.kernel.erase(self.kernel.sliceIndex(pos.containerIndex()))
	return newIterator[T](self.kernel, self.kernel.containerIndex(point), true), nil
}

// EraseRange removes [first, last).
func (self *Container[T]) EraseRange(first, last Iterator[T]) (result Iterator[T], err error) {
	defer recoverKernelError(&err)
	self.requireOwnIterator(first)
	self.requireOwnIterator(last)
	start := self.kernel.sliceIndex(first.containerIndex())
	end := self.kernel.sliceIndex(last.containerIndex())
	point := self.kernel.eraseRange(start, end)
	return newIterator[T](self.kernel, self.kernel.containerIndex(point), true), nil
}

// Append attaches values as a new trailing segment in O(len(values)),
// never invoking copy-on-write on existing slices.
func (self *Container[T]) Append(values RandomRange[T]) (err error) {
	defer recoverKernelError(&err)
	buf := make([]T, values.Len())
	for i := range buf {
		buf[i] = values.At(i)
	}
	self.kernel.append(buf)
	return nil
}

// AppendForward attaches a single-pass source as a new trailing segment.
func (self *Container[T]) AppendForward(values ForwardRange[T]) error {
	return self.Append(FromSlice(collect(values)))
}

func (self *Container[T]) PushBack(value T) (err error) {
	defer recoverKernelError(&err)
	self.kernel.pushBack(value)
	return nil
}

func (self *Container[T]) PopBack() (err error) {
	defer recoverKernelError(&err)
	if self.kernel.size() == 0 {
		panicKernelError(OutOfRange, "pop_back on an empty container")
	}
	self.kernel.popBack()
	return nil
}

// CreateSnapshot returns an independent, read-only view of self's
// current elements in O(num_slices): every slice is aliased, not
// copied, and diverges lazily the first time either side mutates a
// shared segment.
func (self *Container[T]) CreateSnapshot() *Snapshot[T] {
	return newSnapshot(self.kernel)
}

// FragmentationIndex reports the current scalar proxy for wasted
// capacity across the slice graph (spec.md's glossary definition).
func (self *Container[T]) FragmentationIndex() float64 {
	return self.kernel.fragmentationIndex()
}

// CheckIntegrity validates the kernel's structural invariants; exposed
// for tests and the snapctl fuzz driver, not part of normal operation.
func (self *Container[T]) CheckIntegrity() error {
	return self.kernel.checkIntegrity()
}
