package snapcontainer

import (
	"github.com/golang/glog"
)

// Logging convention for the snapcontainer package:
// V(0) (glog.Info/glog.Error):
//     essential events for abnormal behavior -- silent on normal operation.
//     this includes:
//     - a kernel invariant that had to be repaired defensively
//     - errors recovered at a public boundary
// V(1):
//     infrequent structural events useful for monitoring COW behavior:
//     - a slice split or merge
//     - a snapshot divergence copy
//     - a fragmentation sweep crossing logTraceFragmentationThreshold
// V(2):
//     per-operation trace for debugging COW decisions -- insert/erase
//     slice-point resolutions. Expected to be silent by default.

const logTraceFragmentationThreshold = 0.5

func traceSplit(sliceIdx int, leftSize int, rightSize int) {
	if glog.V(1) {
		glog.Infof("[snapcontainer] split slice %d into sizes %d/%d", sliceIdx, leftSize, rightSize)
	}
}

func traceMerge(intoSlice int, absorbedSize int) {
	if glog.V(1) {
		glog.Infof("[snapcontainer] merged %d elements into slice %d", absorbedSize, intoSlice)
	}
}

func traceDivergence(storageID string) {
	if glog.V(1) {
		glog.Infof("[snapcontainer] storage %s diverged via copy-on-write", storageID)
	}
}

func traceOp(format string, a ...any) {
	if glog.V(2) {
		glog.Infof(format, a...)
	}
}

func traceFragmentation(index float64, numSlices int) {
	if glog.V(1) && index >= logTraceFragmentationThreshold {
		glog.Infof("[snapcontainer] fragmentation index %.3f across %d slices", index, numSlices)
	}
}
