// Package snapcontainer implements a temporal, sequentially-indexed
// container of values of an element type T. Its defining feature is
// the cheap snapshot: a holder of a live Container may capture an
// immutable, point-in-time Snapshot of the whole sequence in time
// proportional to its slice count, without eagerly copying any element
// data. The snapshot and the container it came
// from diverge lazily, on first write to either side, through a
// structural copy-on-write discipline over shared storage segments
// ("slices").
//
// The package is single-threaded by design: no Container, Snapshot or
// Iterator is safe for concurrent use.
package snapcontainer
