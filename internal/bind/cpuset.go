package bind

import (
	"math"

	"taskbind/internal/unitset"
)

// BuildCpuset computes the task's unit-set: the union of its contiguous
// proportional slice of the pool, reduced to one unit per thread.
//
// share is real-valued so that slices span the whole pool even when the
// pool size does not divide evenly by the task count; a share below one
// unit means oversubscription, where tasks reuse units and each task
// still gets at least one.
func BuildCpuset(pool []*unitset.Set, localRank, localSize, numThreads int) *unitset.Set {
	cpuset := unitset.New()
	if len(pool) == 0 || localSize <= 0 {
		return cpuset
	}

	share := float64(len(pool)) / float64(localSize)
	start := int(float64(localRank) * share)
	if share < 1.0 {
		share = 1.0
	}

	for i := start; i < start+int(math.Ceil(share)) && i < len(pool); i++ {
		cpuset.Union(pool[i])
	}

	if numThreads <= 1 {
		cpuset.Singlify()
	} else {
		cpuset.Decimate(numThreads)
	}
	return cpuset
}
