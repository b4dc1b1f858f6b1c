package bind

import (
	"fmt"

	"taskbind/internal/logging"
	"taskbind/internal/session"
	"taskbind/internal/topology"
	"taskbind/internal/unitset"
)

// Plan is the complete binding decision for one task.
type Plan struct {
	Cpuset      *unitset.Set
	ThreadUnits string // comma-joined unit list for per-thread affinity
	Devices     string // comma-joined device ids, empty when none apply
	NumThreads  int    // resolved thread count
	// ExportThreads is set when OMP_NUM_THREADS was absent and the
	// resolved count must be exported for the task.
	ExportThreads bool
	LevelSize     int
}

// Compute derives the task's plan from the topology and session. Device
// assignment failures degrade to a CPU-only plan; unit selection failures
// are fatal to the plan (the task then runs unbound).
func Compute(topo *topology.Topology, sess *session.Session) (*Plan, error) {
	// A node runs at least one task; hand-built sessions may not carry
	// a task count.
	if sess.LocalSize < 1 {
		clone := *sess
		clone.LocalSize = 1
		sess = &clone
	}

	pool, err := SelectUnits(topo, sess)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: empty unit pool", topology.ErrTopologyUnavailable)
	}

	threads := sess.NumThreads
	exportThreads := false
	if threads == 0 {
		threads = topo.NumCores() / sess.LocalSize
		if threads == 0 {
			threads = 1
		}
		exportThreads = true
	}

	cpuset := BuildCpuset(pool, sess.LocalRank, sess.LocalSize, threads)

	// A task with threads should not span more NUMA domains than the
	// node runs tasks.
	if threads > 1 {
		if spanned := topo.UnitsInside(cpuset, topology.TypeNUMANode); sess.LocalSize < spanned {
			logging.WithRank(sess.GlobalRank).Warnf("rank %d spans %d NUMA domains", sess.LocalRank, spanned)
		}
	}

	plan := &Plan{
		Cpuset:        cpuset,
		ThreadUnits:   cpuset.Join(threads),
		NumThreads:    threads,
		ExportThreads: exportThreads,
		LevelSize:     len(pool),
	}

	if len(topo.Devices()) > 0 {
		devices, err := AssignDevices(topo, sess)
		if err != nil {
			logging.WithRank(sess.GlobalRank).Errorf("device assignment skipped: %v", err)
		} else {
			plan.Devices = devices
		}
	}

	return plan, nil
}

// RankPlan pairs a local rank with its computed plan, for node-wide plan
// previews.
type RankPlan struct {
	Rank int
	Plan *Plan
	Err  error
}

// ComputeAll computes the plan of every local rank from a shared base
// session, as each task's own process would. All ranks derive from the
// same inputs, so the preview matches what the tasks will decide.
func ComputeAll(topo *topology.Topology, base *session.Session) []RankPlan {
	plans := make([]RankPlan, 0, base.LocalSize)
	for rank := 0; rank < base.LocalSize; rank++ {
		s := *base
		s.LocalRank = rank
		plan, err := Compute(topo, &s)
		plans = append(plans, RankPlan{Rank: rank, Plan: plan, Err: err})
	}
	return plans
}
