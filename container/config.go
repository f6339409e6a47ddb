package snapcontainer

// COWConfig tunes the insertion-COW and iteration-COW policies. The
// field names and defaults mirror _iterator_kernel_config_traits from
// the original implementation's cow_ops struct.
type COWConfig struct {
	// below this slice count, favor creating new slices over copying.
	NumSlicesLWM int

	// above this slice count, favor copying over creating new slices.
	NumSlicesHWM int

	// minimum slice size considered for splitting. Neither
	// insertCOWOps nor iterationCOWOps reads this field.
	MinSplitSize int

	// slices at or below this size are preferred merged into the prior slice.
	MaxMergeSize int

	// 1/CopyFractionDenom of a slice's size is its "near-edge" zone.
	CopyFractionDenom int

	// slices at or below this size are wholly copied for an insertion.
	MaxInsertionCopySize int

	// near-edge guard band, in elements.
	SliceEdgeOffset int
}

// DefaultCOWConfig returns the tunables from spec.md's table.
func DefaultCOWConfig() COWConfig {
	return COWConfig{
		NumSlicesLWM:         128,
		NumSlicesHWM:         256,
		MinSplitSize:         2048,
		MaxMergeSize:         1024,
		CopyFractionDenom:    8,
		MaxInsertionCopySize: 32,
		SliceEdgeOffset:      4,
	}
}
