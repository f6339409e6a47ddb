package snapcontainer

import "sort"

// iteratorKernel is the ordered list of slices plus a parallel
// cumulative-length index, and owns the copy-on-write policies that
// decide, at each mutation, whether to mutate a segment in place,
// merge it into a neighbor, partially copy it, or split-and-copy it.
// It is the ~55% of the system spec.md attributes to this layer.
//
// A kernel is single-threaded: nothing here is safe for concurrent
// use, by design (see spec.md's Concurrency & Resource Model).
type iteratorKernel[T any] struct {
	slices     []slice[T]
	cumLengths []int
	creator    StorageCreator[T]
	config     COWConfig
	generation uint64
}

func newKernel[T any](creator StorageCreator[T], config COWConfig) *iteratorKernel[T] {
	k := &iteratorKernel[T]{creator: creator, config: config}
	k.slices = []slice[T]{newSlice(newStorageHandle[T](creator.New()), 0)}
	k.cumLengths = []int{0}
	return k
}

func newKernelFromRandom[T any](creator StorageCreator[T], config COWConfig, r RandomRange[T]) *iteratorKernel[T] {
	buf := make([]T, r.Len())
	for i := range buf {
		buf[i] = r.At(i)
	}
	return newKernelFromBuf(creator, config, buf)
}

func newKernelFromForward[T any](creator StorageCreator[T], config COWConfig, r ForwardRange[T]) *iteratorKernel[T] {
	return newKernelFromBuf(creator, config, collect(r))
}

func newKernelFromBuf[T any](creator StorageCreator[T], config COWConfig, buf []T) *iteratorKernel[T] {
	k := &iteratorKernel[T]{creator: creator, config: config}
	k.slices = []slice[T]{newSlice(newStorageHandle[T](creator.NewFromSlice(buf)), 0)}
	k.cumLengths = []int{len(buf)}
	return k
}

func (self *iteratorKernel[T]) size() int {
	return self.cumLengths[len(self.cumLengths)-1]
}

func (self *iteratorKernel[T]) numSlices() int {
	return len(self.slices)
}

func (self *iteratorKernel[T]) incrGeneration() {
	self.generation++
}

// ---- index mapping (spec.md 4.3) ----

func (self *iteratorKernel[T]) containerIndex(p slicePoint) int {
	if p.slice() >= len(self.slices) {
		return self.cumLengths[len(self.cumLengths)-1]
	}
	sz := self.slices[p.slice()].size()
	return self.cumLengths[p.slice()] - sz + p.index()
}

func (self *iteratorKernel[T]) sliceIndex(containerIndex int) slicePoint {
	if containerIndex < self.slices[0].size() {
		return newSlicePoint(0, self.slices[0].size()+containerIndex-self.cumLengths[0])
	}
	last := len(self.cumLengths) - 1
	if containerIndex >= self.cumLengths[last] {
		return self.end()
	}
	return self.sliceIndexBinary(containerIndex)
}

func (self *iteratorKernel[T]) sliceIndexBinary(containerIndex int) slicePoint {
	i := sort.Search(len(self.cumLengths), func(i int) bool {
		return self.cumLengths[i] > containerIndex
	})
	if i == len(self.cumLengths) {
		return self.end()
	}
	sz := self.slices[i].size()
	return newSlicePoint(i, sz+containerIndex-self.cumLengths[i])
}

func (self *iteratorKernel[T]) begin() slicePoint {
	if self.cumLengths[0] > 0 {
		return newSlicePoint(0, 0)
	}
	return self.end()
}

func (self *iteratorKernel[T]) end() slicePoint {
	last := len(self.slices) - 1
	return newSlicePoint(last, self.slices[last].size())
}

func (self *iteratorKernel[T]) next(current slicePoint, incr int) slicePoint {
	if current.slice() >= len(self.slices) {
		return self.end()
	}
	if incr == 1 && current.index() < self.slices[current.slice()].size() {
		if current.index()+1 == self.slices[current.slice()].size() {
			if current.slice() < len(self.slices)-1 {
				return newSlicePoint(current.slice()+1, 0)
			}
			return self.end()
		}
		return newSlicePoint(current.slice(), current.index()+1)
	}
	idx := self.containerIndex(current)
	if idx+incr < self.size() {
		return self.sliceIndex(idx + incr)
	}
	return self.end()
}

func (self *iteratorKernel[T]) prev(current slicePoint, decr int) (slicePoint, bool) {
	if current.slice() >= len(self.slices) {
		return slicePoint{}, false
	}
	if decr == 1 {
		if current.index() == 0 && current.slice() == 0 {
			return slicePoint{}, false
		}
		if current.index() == 0 {
			return newSlicePoint(current.slice()-1, self.slices[current.slice()-1].size()-1), true
		}
		return newSlicePoint(current.slice(), current.index()-1), true
	}
	idx := self.containerIndex(current)
	if idx < decr {
		return slicePoint{}, false
	}
	return self.sliceIndex(idx - decr), true
}

func (self *iteratorKernel[T]) distance(lhs, rhs slicePoint) int {
	return self.containerIndex(rhs) - self.containerIndex(lhs)
}

// ---- COW policy support ----

func (self *iteratorKernel[T]) isPrevModifiable(sliceIdx int) bool {
	return sliceIdx > 0 && self.slices[sliceIdx-1].isModifiable()
}

func (self *iteratorKernel[T]) replaceSlice(idx int, next slice[T]) {
	self.slices[idx].release()
	self.slices[idx] = next
}

// insertCOWOps returns a slice-point pointing at a modifiable slice at
// a position efficient for a subsequent insert, per spec.md 4.4.
func (self *iteratorKernel[T]) insertCOWOps(point slicePoint) slicePoint {
	if point.slice() >= len(self.slices) {
		panicKernelError(InvalidSlicePoint, "insert point slice %d out of range (have %d)", point.slice(), len(self.slices))
	}

	cfg := self.config
	i := point.slice()
	s := self.slices[i]
	size := s.size()
	offset := point.index()

	if s.isModifiable() {
		nearEdge := offset <= size/cfg.CopyFractionDenom || offset+size/cfg.CopyFractionDenom >= size
		if len(self.slices) > cfg.NumSlicesHWM || nearEdge {
			return point
		}
	}

	if len(self.slices) > cfg.NumSlicesHWM || size <= cfg.MaxInsertionCopySize {
		self.replaceSlice(i, s.copyAll(self.creator))
		traceDivergence(self.slices[i].storage.id.String())
		return point
	}

	copyIndex := offset
	if copyIndex < cfg.SliceEdgeOffset {
		copyIndex = cfg.SliceEdgeOffset
	} else if copyIndex+cfg.SliceEdgeOffset >= size {
		copyIndex = size - cfg.SliceEdgeOffset
	}

	if size/2 > copyIndex {
		// copy the left portion
		if self.isPrevModifiable(i) {
			prev := &self.slices[i-1]
			prevSizeBefore := prev.size()
			prev.appendFrom(s, 0, copyIndex)
			self.cumLengths[i-1] += copyIndex
			s.start += copyIndex
			self.slices[i] = s
			return newSlicePoint(i-1, prevSizeBefore+offset)
		}

		newLeft := s.copyRange(0, copyIndex, self.creator)
		self.cumLengths = insertInt(self.cumLengths, i+1, self.cumLengths[i])
		self.cumLengths[i] = self.cumLengths[i] - s.size() + copyIndex
		self.slices = insertSlice(self.slices, i, newLeft)
		self.slices[i+1].start += copyIndex
		traceSplit(i, copyIndex, size-copyIndex)
		return newSlicePoint(i, offset)
	}

	// copy the right portion
	itemsToCopy := size - copyIndex
	newRight := s.copyRange(size-itemsToCopy, size, self.creator)
	self.cumLengths = insertInt(self.cumLengths, i, self.cumLengths[i]-itemsToCopy)
	s.end -= itemsToCopy
	self.slices[i] = s
	self.slices = insertSlice(self.slices, i+1, newRight)
	traceSplit(i, size-itemsToCopy, itemsToCopy)
	return newSlicePoint(i+1, offset-copyIndex)
}

// iterationCOWOps returns a slice-point safe for a modifying
// dereference, preferring to merge small slices backward over
// creating new ones, per spec.md 4.4.
func (self *iteratorKernel[T]) iterationCOWOps(point slicePoint) slicePoint {
	// Every call is a potential structural mutation (split/merge), which
	// can invalidate any other iterator's cached slice-point -- bump the
	// generation unconditionally rather than try to detect a no-op.
	self.incrGeneration()

	// past-end normalization
	for point.slice() < len(self.slices)-1 && point.index() == self.slices[point.slice()].size() {
		point = newSlicePoint(point.slice()+1, 0)
	}

	cfg := self.config
	i := point.slice()
	s := self.slices[i]
	size := s.size()
	offset := point.index()

	if s.isModifiable() && len(self.slices) <= cfg.NumSlicesLWM {
		return point
	}

	if self.isPrevModifiable(i) {
		prev := &self.slices[i-1]
		prevSizeBefore := prev.size()

		if size <= cfg.MaxMergeSize {
			prev.appendFrom(s, 0, size)
			self.cumLengths[i-1] = self.cumLengths[i]
			self.dropSliceAt(i)
			traceMerge(i-1, size)
			return newSlicePoint(i-1, prevSizeBefore+offset)
		}

		if offset <= size/cfg.CopyFractionDenom {
			itemsToCopy := size/cfg.CopyFractionDenom + 1
			if itemsToCopy+offset >= size {
				itemsToCopy = size - offset
			}
			absorbed := offset + itemsToCopy
			prev.appendFrom(s, 0, absorbed)
			self.cumLengths[i-1] += absorbed
			traceMerge(i-1, absorbed)

			if absorbed == size {
				self.dropSliceAt(i)
			} else {
				s.start += absorbed
				self.slices[i] = s
			}
			return newSlicePoint(i-1, prevSizeBefore+offset)
		}
	}

	if len(self.slices) > cfg.NumSlicesHWM || size <= cfg.MaxInsertionCopySize {
		self.replaceSlice(i, s.copyAll(self.creator))
		traceDivergence(self.slices[i].storage.id.String())
		return point
	}

	if offset < size/2 {
		extra := size / cfg.CopyFractionDenom
		newFront := s.copyRange(0, min(offset+extra, size), self.creator)
		var cum int
		if i == 0 {
			cum = newFront.size()
		} else {
			cum = self.cumLengths[i-1] + newFront.size()
		}
		self.cumLengths = insertInt(self.cumLengths, i, cum)
		s.start += offset + extra
		if s.start > s.end {
			s.start = s.end
		}
		self.slices[i] = s
		self.slices = insertSlice(self.slices, i, newFront)
		traceSplit(i, newFront.size(), s.size())
		return newSlicePoint(i, offset)
	}

	itemsToCopy := size - offset
	if itemsToCopy < cfg.SliceEdgeOffset {
		itemsToCopy = cfg.SliceEdgeOffset
	}
	if itemsToCopy > size {
		itemsToCopy = size
	}
	newBack := s.copyRange(size-itemsToCopy, size, self.creator)
	cum := self.cumLengths[i] - itemsToCopy
	self.cumLengths = insertInt(self.cumLengths, i, cum)
	s.end -= itemsToCopy
	self.slices[i] = s
	self.slices = insertSlice(self.slices, i+1, newBack)
	traceSplit(i, size-itemsToCopy, itemsToCopy)
	return newSlicePoint(i+1, offset-(size-itemsToCopy))
}

// ---- mutating primitives (spec.md 4.5) ----

func (self *iteratorKernel[T]) updateSliceLengths(beginIdx int, adjustment int) {
	for i := beginIdx; i < len(self.cumLengths); i++ {
		self.cumLengths[i] += adjustment
	}
}

// dropSliceAt removes slices[idx] unconditionally, releasing its
// storage reference, and re-installs a single empty slice if the
// kernel would otherwise be left with none (bootstrap invariant 3).
func (self *iteratorKernel[T]) dropSliceAt(idx int) {
	self.slices[idx].release()
	self.slices = removeSlice(self.slices, idx)
	self.cumLengths = removeInt(self.cumLengths, idx)
	if len(self.slices) == 0 {
		self.slices = []slice[T]{newSlice(newStorageHandle[T](self.creator.New()), 0)}
		self.cumLengths = []int{0}
	}
}

func (self *iteratorKernel[T]) insert(point slicePoint, value T) slicePoint {
	self.incrGeneration()
	p := self.insertCOWOps(point)
	s := self.slices[p.slice()]
	s.insert(p.index(), value)
	self.slices[p.slice()] = s
	self.updateSliceLengths(p.slice(), 1)
	return p
}

func (self *iteratorKernel[T]) insertRange(point slicePoint, values []T) slicePoint {
	self.incrGeneration()
	if len(values) == 0 {
		return point
	}
	p := self.insertCOWOps(point)
	s := self.slices[p.slice()]
	before := s.size()
	s.insertRange(p.index(), values)
	self.slices[p.slice()] = s
	inserted := s.size() - before
	self.updateSliceLengths(p.slice(), inserted)
	return p
}

func (self *iteratorKernel[T]) erase(point slicePoint) slicePoint {
	self.incrGeneration()
	if point.slice() >= len(self.slices) {
		panicKernelError(InvalidSlicePoint, "erase point slice %d out of range (have %d)", point.slice(), len(self.slices))
	}
	s := self.slices[point.slice()]
	if point.index() >= s.size() {
		panicKernelError(InvalidSlicePoint, "erase point index %d out of range (slice size %d)", point.index(), s.size())
	}

	self.updateSliceLengths(point.slice(), -1)

	if s.size() == 1 {
		return self.dropSliceReturning(point.slice())
	}
	if s.storage.soleOwner() {
		s.remove(point.index())
		self.slices[point.slice()] = s
		return point
	}
	copied := s.copyAll(self.creator)
	copied.remove(point.index())
	self.replaceSlice(point.slice(), copied)
	return point
}

func (self *iteratorKernel[T]) dropSliceReturning(idx int) slicePoint {
	self.dropSliceAt(idx)
	return newSlicePoint(idx, 0)
}

func (self *iteratorKernel[T]) removeWithinSlice(start, end slicePoint) slicePoint {
	s := self.slices[start.slice()]
	self.updateSliceLengths(start.slice(), -(end.index() - start.index()))

	if start.index() == 0 && end.index() == s.size() {
		return self.dropSliceReturning(start.slice())
	}

	if !s.storage.soleOwner() {
		s = s.copyAll(self.creator)
		self.replaceSlice(start.slice(), s)
	}
	s.removeRange(start.index(), end.index())
	self.slices[start.slice()] = s
	return start
}

func (self *iteratorKernel[T]) eraseRange(start, end slicePoint) slicePoint {
	self.incrGeneration()
	if start.slice() >= len(self.slices) || end.slice() >= len(self.slices) {
		panicKernelError(InvalidSlicePoint, "erase range slice out of bounds")
	}
	if start.index() > self.slices[start.slice()].size() || end.index() > self.slices[end.slice()].size() {
		panicKernelError(InvalidSlicePoint, "erase range index out of bounds")
	}

	if start.slice() > end.slice() || (start.slice() == end.slice() && start.index() >= end.index()) {
		return end
	}

	if start.slice() == end.slice() {
		return self.removeWithinSlice(start, end)
	}

	endSlice := end.slice()
	currentSlice := start.slice()
	currentIndex := start.index()
	for currentSlice < endSlice {
		if currentIndex == 0 {
			self.dropSliceAt(currentSlice)
			endSlice--
		} else {
			self.removeWithinSlice(newSlicePoint(currentSlice, currentIndex), newSlicePoint(currentSlice, self.slices[currentSlice].size()))
			currentIndex = 0
			currentSlice++
		}
	}

	self.removeWithinSlice(newSlicePoint(endSlice, 0), newSlicePoint(endSlice, end.index()))
	return start
}

func (self *iteratorKernel[T]) append(values []T) slicePoint {
	self.incrGeneration()
	if len(values) == 0 {
		return self.end()
	}

	preAppendSize := self.size()
	if preAppendSize == 0 {
		for i := range self.slices {
			self.slices[i].release()
		}
		self.slices = nil
		self.cumLengths = nil
	}

	tail := newSlice(newStorageHandle[T](self.creator.NewFromSlice(values)), 0)
	self.slices = append(self.slices, tail)
	self.cumLengths = append(self.cumLengths, preAppendSize+tail.size())
	return self.sliceIndex(preAppendSize)
}

func (self *iteratorKernel[T]) pushBack(value T) {
	self.incrGeneration()
	last := len(self.slices) - 1
	s := self.slices[last]
	if !s.isModifiable() {
		p := self.insertCOWOps(newSlicePoint(last, s.size()))
		last = p.slice()
		sl := self.slices[last]
		sl.append(value)
		self.slices[last] = sl
		self.updateSliceLengths(last, 1)
		return
	}
	s.append(value)
	self.slices[last] = s
	self.updateSliceLengths(last, 1)
}

func (self *iteratorKernel[T]) popBack() {
	self.erase(self.sliceIndex(self.size() - 1))
}

func (self *iteratorKernel[T]) clear() {
	self.incrGeneration()
	for i := range self.slices {
		self.slices[i].release()
	}
	self.slices = []slice[T]{newSlice(newStorageHandle[T](self.creator.New()), 0)}
	self.cumLengths = []int{0}
}

func (self *iteratorKernel[T]) swap(other *iteratorKernel[T]) {
	self.slices, other.slices = other.slices, self.slices
	self.cumLengths, other.cumLengths = other.cumLengths, self.cumLengths
	self.incrGeneration()
	other.incrGeneration()
}

// deepCopyFrom replaces this kernel's contents with a disjoint,
// fully-copied graph over other's elements: no storage is shared
// after this call.
func (self *iteratorKernel[T]) deepCopyFrom(other *iteratorKernel[T]) {
	self.incrGeneration()
	for i := range self.slices {
		self.slices[i].release()
	}
	newSlices := make([]slice[T], len(other.slices))
	newCum := make([]int, len(other.cumLengths))
	for i, s := range other.slices {
		newSlices[i] = s.copyAll(self.creator)
		newCum[i] = other.cumLengths[i]
	}
	self.slices = newSlices
	self.cumLengths = newCum
}

// snapshotFrom aliases every slice in other, bumping each storage's
// reference count -- the O(N) shallow copy at the heart of
// create_snapshot. The two kernels' slice lists are independent from
// this point on; only the underlying storages are shared.
func (self *iteratorKernel[T]) snapshotFrom(other *iteratorKernel[T]) {
	self.creator = other.creator
	self.config = other.config
	self.slices = make([]slice[T], len(other.slices))
	self.cumLengths = make([]int, len(other.cumLengths))
	for i, s := range other.slices {
		self.slices[i] = s.clone()
		self.cumLengths[i] = other.cumLengths[i]
	}
}

// ---- read/write access ----

func (self *iteratorKernel[T]) readAt(containerIndex int) T {
	p := self.sliceIndex(containerIndex)
	return self.slices[p.slice()].at(p.index())
}

// resolveForWrite applies iterationCOWOps to guarantee the returned
// slice-point targets a modifiable slice.
func (self *iteratorKernel[T]) resolveForWrite(containerIndex int) slicePoint {
	p := self.sliceIndex(containerIndex)
	return self.iterationCOWOps(p)
}

func (self *iteratorKernel[T]) writeAt(containerIndex int, value T) {
	p := self.resolveForWrite(containerIndex)
	s := self.slices[p.slice()]
	s.setAt(p.index(), value)
}

func (self *iteratorKernel[T]) fragmentationIndex() float64 {
	var elements, capacity int
	for _, s := range self.slices {
		elements += s.size()
		capacity += s.storage.engine.Size()
	}
	if capacity == 0 {
		return 0
	}
	idx := float64(len(self.slices)) * (1 - float64(elements)/float64(capacity))
	traceFragmentation(idx, len(self.slices))
	return idx
}

// checkIntegrity verifies invariants 1-4 hold; used by tests and by
// the snapctl fuzz driver.
func (self *iteratorKernel[T]) checkIntegrity() error {
	if len(self.slices) != len(self.cumLengths) || len(self.slices) == 0 {
		return newKernelError(InvalidSlicePoint, "slice/cum-length length mismatch: %d vs %d", len(self.slices), len(self.cumLengths))
	}
	running := 0
	for i, s := range self.slices {
		running += s.size()
		if self.cumLengths[i] != running {
			return newKernelError(InvalidSlicePoint, "cum-length[%d] = %d, expected %d", i, self.cumLengths[i], running)
		}
		if s.size() == 0 && !(len(self.slices) == 1 && self.cumLengths[0] == 0) {
			return newKernelError(InvalidSlicePoint, "empty slice at %d in a kernel of size %d", i, len(self.slices))
		}
		if s.isModifiable() && s.storage.refs != 1 {
			return newKernelError(InvalidSlicePoint, "slice %d reports modifiable with refcount %d", i, s.storage.refs)
		}
	}
	return nil
}

func insertInt(s []int, at, v int) []int {
	s = append(s, 0)
	copy(s[at+1:], s[at:])
	s[at] = v
	return s
}

func removeInt(s []int, at int) []int {
	return append(s[:at], s[at+1:]...)
}

func insertSlice[T any](s []slice[T], at int, v slice[T]) []slice[T] {
	var zero slice[T]
	s = append(s, zero)
	copy(s[at+1:], s[at:])
	s[at] = v
	return s
}

func removeSlice[T any](s []slice[T], at int) []slice[T] {
	return append(s[:at], s[at+1:]...)
}
