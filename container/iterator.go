package snapcontainer

// Iterator walks a Container or Snapshot by logical container position.
// Its position is container-index-stable: once obtained, an iterator's
// slot does not follow elements inserted ahead of it -- Get/Set always
// resolve against whatever element currently occupies that container
// index, the same way a plain array index would, not against "the
// element this iterator originally pointed at". This is the contract
// pinned for the ambiguous case of a mutation occurring between two
// iterators that addressed neighboring positions before the mutation.
//
// An Iterator's slice-point is cached and lazily re-resolved against
// the owning kernel's generation counter: any kernel mutation -- not
// just ones on this iterator's own path -- invalidates every other
// iterator's cache, since copy-on-write can restructure the slice list
// out from under them. Resolving a mutable iterator's position always
// runs the iteration-COW policy first, on the assumption that the caller
// may write through it, and a mutable iterator reuses its cached
// position only while that slice's storage is still sole-owned (taking
// a snapshot shares it without bumping the generation); a const
// iterator never runs iteration-COW, since it cannot write.
type Iterator[T any] struct {
	kernel     *iteratorKernel[T]
	mutable    bool
	index      uint64
	point      slicePoint
	generation uint64
	resolved   bool
}

func newIterator[T any](k *iteratorKernel[T], containerIndex int, mutable bool) Iterator[T] {
	return Iterator[T]{kernel: k, mutable: mutable, index: uint64(containerIndex)}
}

func singularIterator[T any](mutable bool) Iterator[T] {
	return Iterator[T]{mutable: mutable, index: npos}
}

// IsValid reports whether the iterator is bound to a kernel and not
// sitting at the pre-begin sentinel position.
func (self Iterator[T]) IsValid() bool {
	return self.kernel != nil && self.index != npos
}

// IsEnd reports whether the iterator sits at the one-past-the-end position.
func (self Iterator[T]) IsEnd() bool {
	return self.kernel != nil && self.index == uint64(self.kernel.size())
}

func (self *Iterator[T]) requireBound() {
	if self.kernel == nil {
		panicKernelError(InvalidIteratorOp, "operation on a singular iterator")
	}
}

func (self *Iterator[T]) requireDereferenceable() {
	self.requireBound()
	if self.index == npos || self.index >= uint64(self.kernel.size()) {
		panicKernelError(InvalidDereference, "dereference of a non-dereferenceable iterator at index %d (size %d)", self.index, self.kernel.size())
	}
}

func (self *Iterator[T]) ensureResolved() {
	if self.resolved && self.generation == self.kernel.generation &&
		(!self.mutable || self.kernel.slices[self.point.slice()].storage.soleOwner()) {
		return
	}
	if self.mutable {
		self.point = self.kernel.iterationCOWOps(self.kernel.sliceIndex(int(self.index)))
	} else {
		self.point = self.kernel.sliceIndex(int(self.index))
	}
	self.generation = self.kernel.generation
	self.resolved = true
}

// Get returns the element this iterator currently addresses.
func (self *Iterator[T]) Get() (val T, err error) {
	defer recoverKernelError(&err)
	self.requireDereferenceable()
	self.ensureResolved()
	val = self.kernel.slices[self.point.slice()].at(self.point.index())
	return val, nil
}

// Set writes through a mutable iterator. It panics at the kernel
// boundary (returned as an error here) if called on a const iterator.
func (self *Iterator[T]) Set(value T) (err error) {
	defer recoverKernelError(&err)
	if !self.mutable {
		panicKernelError(InvalidIteratorOp, "cannot write through a const iterator")
	}
	self.requireDereferenceable()
	self.ensureResolved()
	s := self.kernel.slices[self.point.slice()]
	s.setAt(self.point.index(), value)
	return nil
}

// Next advances the iterator by one position, returning false once it
// passes the end (mirroring operator++ on an end iterator being
// undefined -- callers check the return instead of dereferencing end()).
func (self *Iterator[T]) Next() bool {
	self.requireBound()
	if self.index == npos {
		self.index = 0
	} else if self.index < uint64(self.kernel.size()) {
		self.index++
	}
	self.resolved = false
	return self.index < uint64(self.kernel.size())
}

// Prev steps the iterator back by one position, returning false if it
// was already at the beginning (leaving it at the pre-begin sentinel).
func (self *Iterator[T]) Prev() bool {
	self.requireBound()
	if self.index == npos || self.index == 0 {
		self.index = npos
		self.resolved = false
		return false
	}
	self.index--
	self.resolved = false
	return true
}

// Add advances the iterator by n (n may be negative); clamps to the
// end sentinel rather than overshooting.
func (self *Iterator[T]) Add(n int) {
	self.requireBound()
	if n < 0 {
		self.Sub(-n)
		return
	}
	next := int(self.index) + n
	if self.index == npos {
		next = n - 1
	}
	size := self.kernel.size()
	if next > size {
		next = size
	}
	self.index = uint64(next)
	self.resolved = false
}

// Sub steps the iterator back by n; clamps to the pre-begin sentinel
// rather than undershooting.
func (self *Iterator[T]) Sub(n int) {
	self.requireBound()
	if n < 0 {
		self.Add(-n)
		return
	}
	if self.index == npos {
		return
	}
	if int(self.index) < n {
		self.index = npos
	} else {
		self.index -= uint64(n)
	}
	self.resolved = false
}

// Distance returns rhs - self in container-index terms: the number of
// positions self would have to advance to reach rhs. Panics with
// invalid-iterator-op if either iterator is singular or the two
// iterators belong to different kernels -- subtracting across unrelated
// kernels is meaningless, not just across-container sloppiness.
func (self Iterator[T]) Distance(rhs Iterator[T]) int {
	self.requireBound()
	if rhs.kernel == nil {
		panicKernelError(InvalidIteratorOp, "distance against a singular iterator")
	}
	if self.kernel != rhs.kernel {
		panicKernelError(InvalidIteratorOp, "distance between iterators of different kernels")
	}
	return int(rhs.index) - int(self.index)
}

// Equal compares two iterators by kernel identity and container index.
// A singular iterator (nil kernel) never compares equal to anything,
// including another singular iterator.
func (self Iterator[T]) Equal(rhs Iterator[T]) bool {
	if self.kernel == nil || rhs.kernel == nil {
		return false
	}
	return self.kernel == rhs.kernel && self.index == rhs.index
}

// Less orders two iterators over the same kernel by container index. A
// singular iterator (nil kernel) never orders before or after anything.
func (self Iterator[T]) Less(rhs Iterator[T]) bool {
	if self.kernel == nil || rhs.kernel == nil {
		return false
	}
	if self.index == npos {
		return rhs.index != npos
	}
	if rhs.index == npos {
		return false
	}
	return self.index < rhs.index
}

// AsConst returns a read-only view of this iterator's current
// position; dereferencing the result never triggers iteration-COW.
func (self Iterator[T]) AsConst() Iterator[T] {
	self.mutable = false
	self.resolved = false
	return self
}

func (self Iterator[T]) containerIndex() int {
	return int(self.index)
}
