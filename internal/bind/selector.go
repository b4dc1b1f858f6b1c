// Package bind computes a task's processing-unit slice and accelerator
// assignment from the topology and the launch session. Every function is
// a deterministic pure function of its inputs: the tasks of a job never
// communicate, so each process must reach the same pools independently.
package bind

import (
	"fmt"

	"taskbind/internal/logging"
	"taskbind/internal/session"
	"taskbind/internal/topology"
	"taskbind/internal/unitset"
)

// SelectUnits builds the ordered pool of per-unit sets that the local
// tasks later slice up.
//
// With an explicit user unit restriction the pool holds the unit-sets of
// exactly the named cores, ascending; naming more units than the machine
// has shrinks the pool to what exists rather than failing. Otherwise the
// shallowest topology depth with at least one object per local thread
// supplies the pool, falling through to the deepest depth.
func SelectUnits(topo *topology.Topology, sess *session.Session) ([]*unitset.Set, error) {
	if sess.Units != nil && !sess.Units.IsEmpty() {
		return selectExplicit(topo, sess)
	}

	needed := sess.LocalSize
	if sess.NumThreads > 0 {
		needed *= sess.NumThreads
	}

	depth := 0
	for ; depth < topo.NumLevels(); depth++ {
		if topo.CountAtDepth(depth) >= needed {
			break
		}
	}
	if depth == topo.NumLevels() {
		depth--
	}

	levelSize := topo.CountAtDepth(depth)
	pool := make([]*unitset.Set, 0, levelSize)
	for i := 0; i < levelSize; i++ {
		obj, err := topo.ObjectAt(depth, i)
		if err != nil {
			return nil, fmt.Errorf("object %d at depth %d: %w", i, depth, err)
		}
		pool = append(pool, obj.Units.Clone())
	}

	logging.Log().Debugf("selected depth %d, level size %d", depth, levelSize)
	return pool, nil
}

func selectExplicit(topo *topology.Topology, sess *session.Session) ([]*unitset.Set, error) {
	coreCount := topo.NumCores()
	pool := make([]*unitset.Set, 0, sess.UnitCount)
	for i := 0; i < coreCount; i++ {
		if !sess.Units.Has(i) {
			continue
		}
		obj, err := topo.ObjectByType(topology.TypeCore, i)
		if err != nil {
			return nil, fmt.Errorf("core %d: %w", i, err)
		}
		pool = append(pool, obj.Units.Clone())
	}

	if len(pool) < sess.UnitCount {
		// The user named more units than the machine has. Documented
		// under-provisioning: use what exists.
		logging.Log().Warnf("requested %d units, found %d", sess.UnitCount, len(pool))
	}
	return pool, nil
}
