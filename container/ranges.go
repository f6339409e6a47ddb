package snapcontainer

import "golang.org/x/exp/slices"

// ForwardRange is a single-pass source of values, consumed once from
// front to back. It is the Go analogue of the original implementation's
// forward-only iterator overload (fwd_iter_type): callers that only
// have a single-pass source (a channel drain, a file scan) implement
// this instead of building a random-access buffer first.
type ForwardRange[T any] interface {
	// Next returns the next value and true, or the zero value and
	// false once exhausted.
	Next() (T, bool)
}

// RandomRange is an O(1)-addressable, O(1)-length source of values --
// the Go analogue of rand_iter_type. The kernel prefers this overload
// when available since it can size a destination buffer up front
// instead of growing one incrementally.
type RandomRange[T any] interface {
	Len() int
	At(i int) T
}

// sliceRange adapts a plain Go slice to RandomRange, grounded on the
// same "wrap a plain slice as a range" shape the teacher's util.go
// uses golang.org/x/exp/slices for (CallbackList.add/remove clone
// their backing slice via slices.Clone/slices.Index).
type sliceRange[T any] struct {
	values []T
}

// FromSlice adapts s into a RandomRange without copying it -- the
// kernel deep-copies whatever it reads out of a RandomRange before
// storing it, so aliasing the caller's backing array here is safe.
func FromSlice[T any](s []T) RandomRange[T] {
	return sliceRange[T]{values: s}
}

func (self sliceRange[T]) Len() int {
	return len(self.values)
}

func (self sliceRange[T]) At(i int) T {
	return self.values[i]
}

// collect drains a ForwardRange into a freshly allocated slice, used
// wherever the kernel needs a RandomRange-shaped buffer (e.g. to hand
// to Storage.InsertRange) but was only given a forward source.
func collect[T any](r ForwardRange[T]) []T {
	out := []T{}
	for {
		v, ok := r.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return slices.Clip(out)
}

// forwardOverRandom lets any RandomRange also be consumed as a
// ForwardRange, so a single append/insert code path can accept either.
type forwardOverRandom[T any] struct {
	r   RandomRange[T]
	pos int
}

func asForward[T any](r RandomRange[T]) ForwardRange[T] {
	return &forwardOverRandom[T]{r: r}
}

func (self *forwardOverRandom[T]) Next() (T, bool) {
	if self.pos >= self.r.Len() {
		var zero T
		return zero, false
	}
	v := self.r.At(self.pos)
	self.pos++
	return v, true
}
