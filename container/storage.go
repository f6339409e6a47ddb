package snapcontainer

import (
	cryptorand "crypto/rand"

	"github.com/oklog/ulid/v2"
)

// entropySource backs the debugging/export identity stamped on every
// storageHandle. The kernel is single-threaded by design (see
// spec.md's Concurrency & Resource Model), so a single package-level
// monotonic source is safe -- there is never a concurrent caller to
// race against it.
var entropySource = ulid.Monotonic(cryptorand.Reader, 0)

// Storage is the interface the kernel requires of any contiguous,
// randomly-addressable backing engine for a run of T. It is
// deliberately narrow: append, insert-at, erase-at, erase-range,
// random indexing, a deep copy of a sub-range, and bulk read
// operations. Any type satisfying this interface may back a slice --
// an in-memory Go slice, a memory-mapped file, or a remote-backed
// buffer are all valid implementations. The kernel never assumes
// anything about Storage's internal representation beyond this
// contract, and it never calls a mutating method on a Storage it does
// not solely own (see slice.isModifiable).
type Storage[T any] interface {
	Append(value T)
	AppendRange(values []T)
	Insert(index int, value T)
	InsertRange(index int, values []T)
	Erase(index int)
	EraseRange(start, end int)

	// Copy returns a new Storage owning a deep copy of [start, end).
	Copy(start, end int) Storage[T]

	Size() int
	At(index int) T
	SetAt(index int, value T)

	// BulkCopy writes up to len(out) elements starting at start into
	// out and returns the count written -- used for efficient range
	// export without per-element interface dispatch.
	BulkCopy(out []T, start int) int

	// Visit calls f with each element in [start, end) in order,
	// stopping early if f returns false.
	Visit(start, end int, f func(T) bool)
}

// StorageCreator is a stateful factory for Storage instances, stored
// as an ordinary field on the kernel rather than as global/static
// state -- see DESIGN NOTES in spec.md on avoiding a per-type static
// iterator-erasure adapter.
type StorageCreator[T any] interface {
	New() Storage[T]
	NewFromSlice(values []T) Storage[T]
}

// sliceStorage is the default Storage[T] implementation: a reference
// example only, per spec.md's own framing of the storage engine as an
// external collaborator. It is a thin wrapper over a Go slice; nothing
// in the kernel depends on this particular representation.
type sliceStorage[T any] struct {
	data []T
}

func newSliceStorage[T any]() *sliceStorage[T] {
	return &sliceStorage[T]{data: []T{}}
}

func newSliceStorageFrom[T any](values []T) *sliceStorage[T] {
	data := make([]T, len(values))
	copy(data, values)
	return &sliceStorage[T]{data: data}
}

func (self *sliceStorage[T]) Append(value T) {
	self.data = append(self.data, value)
}

func (self *sliceStorage[T]) AppendRange(values []T) {
	self.data = append(self.data, values...)
}

func (self *sliceStorage[T]) Insert(index int, value T) {
	self.mustIndex(index, len(self.data)+1)
	self.data = append(self.data, value)
	copy(self.data[index+1:], self.data[index:len(self.data)-1])
	self.data[index] = value
}

func (self *sliceStorage[T]) InsertRange(index int, values []T) {
	self.mustIndex(index, len(self.data)+1)
	n := len(values)
	if n == 0 {
		return
	}
	self.data = append(self.data, values...)
	copy(self.data[index+n:], self.data[index:len(self.data)-n])
	copy(self.data[index:index+n], values)
}

func (self *sliceStorage[T]) Erase(index int) {
	self.mustIndex(index, len(self.data))
	self.data = append(self.data[:index], self.data[index+1:]...)
}

func (self *sliceStorage[T]) EraseRange(start, end int) {
	self.mustIndex(start, len(self.data)+1)
	self.mustIndex(end, len(self.data)+1)
	if end < start {
		panicKernelError(OutOfRange, "erase range end %d precedes start %d", end, start)
	}
	self.data = append(self.data[:start], self.data[end:]...)
}

func (self *sliceStorage[T]) Copy(start, end int) Storage[T] {
	self.mustIndex(start, len(self.data)+1)
	self.mustIndex(end, len(self.data)+1)
	if end < start {
		panicKernelError(OutOfRange, "copy range end %d precedes start %d", end, start)
	}
	return newSliceStorageFrom(self.data[start:end])
}

func (self *sliceStorage[T]) Size() int {
	return len(self.data)
}

func (self *sliceStorage[T]) At(index int) T {
	self.mustIndex(index, len(self.data))
	return self.data[index]
}

func (self *sliceStorage[T]) SetAt(index int, value T) {
	self.mustIndex(index, len(self.data))
	self.data[index] = value
}

func (self *sliceStorage[T]) BulkCopy(out []T, start int) int {
	n := copy(out, self.data[start:])
	return n
}

func (self *sliceStorage[T]) Visit(start, end int, f func(T) bool) {
	self.mustIndex(start, len(self.data)+1)
	self.mustIndex(end, len(self.data)+1)
	for i := start; i < end; i++ {
		if !f(self.data[i]) {
			return
		}
	}
}

func (self *sliceStorage[T]) mustIndex(index int, limit int) {
	if index < 0 || index >= limit {
		panicKernelError(OutOfRange, "index %d out of range [0, %d)", index, limit)
	}
}

// sliceStorageCreator is the default StorageCreator[T], analogous to
// deque_storage_creator<T> in the original implementation.
type sliceStorageCreator[T any] struct{}

func NewSliceStorageCreator[T any]() StorageCreator[T] {
	return sliceStorageCreator[T]{}
}

func (sliceStorageCreator[T]) New() Storage[T] {
	return newSliceStorage[T]()
}

func (sliceStorageCreator[T]) NewFromSlice(values []T) Storage[T] {
	return newSliceStorageFrom(values)
}

// storageHandle wraps a Storage engine with an explicit strong-count
// and a debugging/export identity. Go has no shared_ptr with a
// queryable use_count, so the kernel maintains this count itself,
// bumping it at every point a second slice is made to alias the same
// storage (see slice.clone) and dropping it wherever a slice
// referencing it is removed from a kernel's slice list (see
// slice.release). The count is meaningful only because the kernel is
// single-threaded and every retain/release is paired explicitly by
// the code that creates or discards a slice -- there is no concurrent
// writer to race with.
type storageHandle[T any] struct {
	id     ulid.ULID
	engine Storage[T]
	refs   int
}

func newStorageHandle[T any](engine Storage[T]) *storageHandle[T] {
	return &storageHandle[T]{
		id:     ulid.MustNew(ulid.Now(), entropySource),
		engine: engine,
		refs:   1,
	}
}

func (self *storageHandle[T]) retain() {
	self.refs++
}

func (self *storageHandle[T]) release() {
	self.refs--
}

func (self *storageHandle[T]) soleOwner() bool {
	return self.refs == 1
}
