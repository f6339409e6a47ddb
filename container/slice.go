package snapcontainer

// slice is a half-open window [start, end) into a shared storage
// handle. Multiple slices may reference the same storageHandle; a
// slice is modifiable when it is the sole holder of that handle and
// covers it in full -- see isModifiable. Copying a slice (via clone)
// is shallow and mirrors shared_ptr copy-construction in the original
// implementation: it yields a second handle onto the same storage and
// bumps the storage's reference count. Use copyRange for a deep copy.
type slice[T any] struct {
	storage *storageHandle[T]
	start   int
	end     int
}

func newSlice[T any](storage *storageHandle[T], start int) slice[T] {
	return slice[T]{storage: storage, start: start, end: storage.engine.Size()}
}

func newSliceRange[T any](storage *storageHandle[T], start, end int) slice[T] {
	return slice[T]{storage: storage, start: start, end: end}
}

func (self slice[T]) size() int {
	return self.end - self.start
}

// clone returns a second handle onto the same storage, incrementing
// its reference count. Every call site that duplicates a slice into a
// second, independently-mutable slice list (snapshot creation is the
// canonical example) must go through clone, never a bare struct copy,
// or the reference count used to decide isModifiable will lie.
func (self slice[T]) clone() slice[T] {
	self.storage.retain()
	return self
}

// release drops this slice's claim on its storage. Called whenever a
// slice is removed from a kernel's slice list (dropped, replaced,
// merged away) so the storage's reference count keeps reflecting how
// many live slice lists still alias it.
func (self slice[T]) release() {
	self.storage.release()
}

func (self slice[T]) isModifiable() bool {
	return self.start == 0 && self.end == self.storage.engine.Size() && self.storage.soleOwner()
}

// append is only safe to call once the kernel has established that
// self is modifiable and, for a slice mid-list, only extends the
// slice that is co-terminus with the end of its storage.
func (self *slice[T]) append(value T) {
	self.storage.engine.Append(value)
	self.end++
}

func (self *slice[T]) appendRange(values []T) {
	self.storage.engine.AppendRange(values)
	self.end = self.storage.engine.Size()
}

func (self *slice[T]) appendFrom(other slice[T], from, to int) {
	n := to - from
	buf := make([]T, n)
	other.storage.engine.BulkCopy(buf, other.start+from)
	self.storage.engine.AppendRange(buf)
	self.end = self.storage.engine.Size()
}

// copyRange returns a brand-new slice over a freshly allocated storage
// holding a deep copy of [start+a, start+b) -- the workhorse of every
// COW split/copy decision. Goes through the storage engine's own Copy
// method rather than draining through BulkCopy and re-wrapping via a
// creator, so a non-default Storage implementation controls how its
// own deep copies are allocated. creator is unused here and kept only
// so callers don't need to special-case copyRange/copyAll against the
// rest of the COW call sites, all of which do need one.
func (self slice[T]) copyRange(a, b int, creator StorageCreator[T]) slice[T] {
	if a > b {
		a = b
	}
	newEngine := self.storage.engine.Copy(self.start+a, self.start+b)
	return newSlice(newStorageHandle(newEngine), 0)
}

// copyAll deep-copies the slice's own window into fresh, sole-owned storage.
func (self slice[T]) copyAll(creator StorageCreator[T]) slice[T] {
	return self.copyRange(0, self.size(), creator)
}

func (self *slice[T]) insert(index int, value T) {
	self.storage.engine.Insert(self.start+index, value)
	self.end++
}

func (self *slice[T]) insertRange(index int, values []T) {
	self.storage.engine.InsertRange(self.start+index, values)
	self.end = self.storage.engine.Size()
}

// remove may only be called on a slice that solely owns its storage
// (storage.soleOwner); callers must copy first otherwise.
func (self *slice[T]) remove(index int) {
	self.storage.engine.Erase(self.start + index)
	self.end--
}

func (self *slice[T]) removeRange(start, end int) {
	self.storage.engine.EraseRange(self.start+start, self.start+end)
	self.end -= end - start
}

func (self slice[T]) at(index int) T {
	return self.storage.engine.At(self.start + index)
}

func (self slice[T]) setAt(index int, value T) {
	self.storage.engine.SetAt(self.start+index, value)
}

func (self slice[T]) equal(rhs slice[T]) bool {
	return self.storage == rhs.storage && self.start == rhs.start && self.end == rhs.end
}
