package bind

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbind/internal/session"
	"taskbind/internal/topology"
	"taskbind/internal/unitset"
)

func flatTopo(numas, coresPerNUMA, pusPerCore int, devices ...int) *topology.Topology {
	return topology.Synthetic(topology.SyntheticSpec{
		NUMANodes:    numas,
		CoresPerNUMA: coresPerNUMA,
		PUsPerCore:   pusPerCore,
		Devices:      devices,
	})
}

func TestSelectUnitsStopsAtSufficientDepth(t *testing.T) {
	topo := flatTopo(4, 2, 2) // levels: 1 machine, 4 numa, 8 core, 16 pu
	sess := &session.Session{LocalSize: 4}

	pool, err := SelectUnits(topo, sess)
	require.NoError(t, err)
	require.Len(t, pool, 4)
	assert.Equal(t, "0-3", pool[0].String())
	assert.Equal(t, "12-15", pool[3].String())
}

func TestSelectUnitsDescendsForThreads(t *testing.T) {
	topo := flatTopo(4, 2, 2)

	// 4 tasks x 2 threads need 8 units: the core depth.
	sess := &session.Session{LocalSize: 4, NumThreads: 2}
	pool, err := SelectUnits(topo, sess)
	require.NoError(t, err)
	require.Len(t, pool, 8)
	assert.Equal(t, "0-1", pool[0].String())

	// More threads than any depth supplies: deepest depth wins.
	sess = &session.Session{LocalSize: 32, NumThreads: 2}
	pool, err = SelectUnits(topo, sess)
	require.NoError(t, err)
	assert.Len(t, pool, 16)
}

func TestSelectUnitsExplicitRange(t *testing.T) {
	topo := flatTopo(2, 4, 2) // 8 cores of 2 units each
	sess := &session.Session{
		LocalSize: 2,
		Units:     unitset.FromMembers(1, 2, 5),
		UnitCount: 3,
	}

	pool, err := SelectUnits(topo, sess)
	require.NoError(t, err)
	require.Len(t, pool, 3)
	assert.Equal(t, "2-3", pool[0].String())
	assert.Equal(t, "4-5", pool[1].String())
	assert.Equal(t, "10-11", pool[2].String())
}

func TestSelectUnitsExplicitRangeShrinks(t *testing.T) {
	topo := flatTopo(1, 4, 1) // 4 cores
	sess := &session.Session{
		LocalSize: 1,
		Units:     unitset.FromMembers(1, 3, 9, 11),
		UnitCount: 4,
	}

	// Units beyond the core count simply do not contribute.
	pool, err := SelectUnits(topo, sess)
	require.NoError(t, err)
	assert.Len(t, pool, 2)
}

func poolOfSingles(n int) []*unitset.Set {
	pool := make([]*unitset.Set, n)
	for i := range pool {
		pool[i] = unitset.FromMembers(i)
	}
	return pool
}

func TestBuildCpusetSingleThread(t *testing.T) {
	// 8 units, 4 tasks, 1 thread: share 2.0, raw slices collapse to one
	// unit each.
	pool := poolOfSingles(8)

	cpuset := BuildCpuset(pool, 0, 4, 1)
	assert.Equal(t, []int{0}, cpuset.Members())

	cpuset = BuildCpuset(pool, 3, 4, 1)
	assert.Equal(t, []int{6}, cpuset.Members())
}

func TestBuildCpusetDecimates(t *testing.T) {
	pool := poolOfSingles(8)

	// 2 tasks, 2 threads: raw slice of 4 units reduced to 2.
	cpuset := BuildCpuset(pool, 0, 2, 2)
	assert.Equal(t, []int{0, 1}, cpuset.Members())

	cpuset = BuildCpuset(pool, 1, 2, 2)
	assert.Equal(t, []int{4, 5}, cpuset.Members())

	// Raw cardinality below the thread count stays as-is.
	cpuset = BuildCpuset(pool, 0, 2, 8)
	assert.Equal(t, []int{0, 1, 2, 3}, cpuset.Members())
}

func TestBuildCpusetOversubscription(t *testing.T) {
	// More tasks than units: every task still gets one unit, reused.
	pool := poolOfSingles(2)

	rank0 := BuildCpuset(pool, 0, 4, 1)
	rank1 := BuildCpuset(pool, 1, 4, 1)
	rank2 := BuildCpuset(pool, 2, 4, 1)
	rank3 := BuildCpuset(pool, 3, 4, 1)

	assert.Equal(t, []int{0}, rank0.Members())
	assert.Equal(t, []int{0}, rank1.Members())
	assert.Equal(t, []int{1}, rank2.Members())
	assert.Equal(t, []int{1}, rank3.Members())
}

func TestBuildCpusetFractionalShareSpansPool(t *testing.T) {
	// 6 units over 4 tasks: share 1.5, slices cover the whole pool.
	pool := poolOfSingles(6)
	covered := unitset.New()
	for rank := 0; rank < 4; rank++ {
		covered.Union(BuildCpuset(pool, rank, 4, 2))
	}
	assert.Equal(t, 6, covered.Weight())
}

func TestBuildCpusetEmptyPool(t *testing.T) {
	cpuset := BuildCpuset(nil, 0, 4, 1)
	assert.True(t, cpuset.IsEmpty())
}

func TestAssignDevicesOneDevicePerNUMA(t *testing.T) {
	topo := flatTopo(4, 1, 1, 0, 1, 2, 3)

	for rank := 0; rank < 4; rank++ {
		sess := &session.Session{LocalRank: rank, LocalSize: 4}
		devices, err := AssignDevices(topo, sess)
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(rank), devices)
	}
}

func TestAssignDevicesTasksShareDevice(t *testing.T) {
	// 2 NUMA domains, one device each, 4 tasks: two tasks per device.
	topo := flatTopo(2, 2, 1, 0, 1)

	for rank := 0; rank < 4; rank++ {
		sess := &session.Session{LocalRank: rank, LocalSize: 4}
		devices, err := AssignDevices(topo, sess)
		require.NoError(t, err)
		want := "0"
		if rank >= 2 {
			want = "1"
		}
		assert.Equal(t, want, devices)
	}
}

func TestAssignDevicesTaskOwnsSeveral(t *testing.T) {
	// 1 NUMA domain, 4 devices, 2 tasks: two devices per task.
	topo := flatTopo(1, 2, 1, 0, 0, 0, 0)

	sess := &session.Session{LocalRank: 0, LocalSize: 2}
	devices, err := AssignDevices(topo, sess)
	require.NoError(t, err)
	assert.Equal(t, "0,1", devices)

	sess = &session.Session{LocalRank: 1, LocalSize: 2}
	devices, err = AssignDevices(topo, sess)
	require.NoError(t, err)
	assert.Equal(t, "2,3", devices)
}

func TestAssignDevicesGroupFallback(t *testing.T) {
	// Two groups of two NUMA domains. Devices sit on numa 0 and numa 2,
	// so numa 1 borrows from its group (device 0) and numa 3 from its
	// group (device 1).
	topo := topology.Synthetic(topology.SyntheticSpec{
		Groups:       2,
		NUMANodes:    4,
		CoresPerNUMA: 1,
		PUsPerCore:   1,
		Devices:      []int{0, 2},
	})

	want := []string{"0", "0", "1", "1"}
	for rank := 0; rank < 4; rank++ {
		sess := &session.Session{LocalRank: rank, LocalSize: 4}
		devices, err := AssignDevices(topo, sess)
		require.NoError(t, err)
		assert.Equal(t, want[rank], devices, "rank %d", rank)
	}
}

func TestAssignDevicesFirstOwnerFallback(t *testing.T) {
	// Both devices live in group 0 (numa 0 and 1). NUMA domains 2 and 3
	// have an empty group aggregate and borrow the device list of the
	// first domain in enumeration order owning a device: domain 0.
	topo := topology.Synthetic(topology.SyntheticSpec{
		Groups:       2,
		NUMANodes:    4,
		CoresPerNUMA: 1,
		PUsPerCore:   1,
		Devices:      []int{0, 1},
	})

	sess := &session.Session{LocalRank: 2, LocalSize: 4}
	devices, err := AssignDevices(topo, sess)
	require.NoError(t, err)
	assert.Equal(t, "0", devices)

	sess = &session.Session{LocalRank: 3, LocalSize: 4}
	devices, err = AssignDevices(topo, sess)
	require.NoError(t, err)
	assert.Equal(t, "0", devices)
}

func TestAssignDevicesMachineAttached(t *testing.T) {
	// A device with no NUMA ancestor lands on the first NUMA domain.
	topo := flatTopo(2, 1, 1, -1)

	sess := &session.Session{LocalRank: 0, LocalSize: 2}
	devices, err := AssignDevices(topo, sess)
	require.NoError(t, err)
	assert.Equal(t, "0", devices)

	// The second domain borrows it through fallback.
	sess = &session.Session{LocalRank: 1, LocalSize: 2}
	devices, err = AssignDevices(topo, sess)
	require.NoError(t, err)
	assert.Equal(t, "0", devices)
}

func TestAssignDevicesNoDevices(t *testing.T) {
	topo := flatTopo(2, 1, 1)
	sess := &session.Session{LocalRank: 0, LocalSize: 2}
	devices, err := AssignDevices(topo, sess)
	require.NoError(t, err)
	assert.Equal(t, "", devices)
}

func TestDeviceReconciliationRoundTrip(t *testing.T) {
	shapes := []struct {
		tasks   int
		devices int
	}{
		{4, 2}, {6, 3}, {3, 3}, {2, 5}, {1, 4},
	}

	for _, shape := range shapes {
		devs := make([]int, shape.devices)
		topo := flatTopo(1, shape.tasks+shape.devices, 1, devs...)

		referenced := make(map[string]int)
		for rank := 0; rank < shape.tasks; rank++ {
			sess := &session.Session{LocalRank: rank, LocalSize: shape.tasks}
			devices, err := AssignDevices(topo, sess)
			require.NoError(t, err)
			require.NotEmpty(t, devices, "tasks=%d devices=%d rank=%d", shape.tasks, shape.devices, rank)

			ids := strings.Split(devices, ",")
			if shape.devices <= shape.tasks {
				assert.Len(t, ids, 1, "each task gets exactly one device")
			}
			for _, id := range ids {
				referenced[id]++
			}
		}

		// Every device is referenced; with more devices than tasks each
		// device has exactly one owner.
		assert.Len(t, referenced, shape.devices, "tasks=%d devices=%d", shape.tasks, shape.devices)
		if shape.devices > shape.tasks {
			for id, owners := range referenced {
				assert.Equal(t, 1, owners, "device %s", id)
			}
		}
	}
}

func TestComputeDerivesThreadCount(t *testing.T) {
	// 16 cores, 4 tasks, OMP_NUM_THREADS unset: export 4 threads.
	topo := flatTopo(4, 4, 1)
	sess := &session.Session{LocalRank: 0, LocalSize: 4}

	plan, err := Compute(topo, sess)
	require.NoError(t, err)
	assert.Equal(t, 4, plan.NumThreads)
	assert.True(t, plan.ExportThreads)

	// An explicit thread count is honored and not exported.
	sess = &session.Session{LocalRank: 0, LocalSize: 4, NumThreads: 2}
	plan, err = Compute(topo, sess)
	require.NoError(t, err)
	assert.Equal(t, 2, plan.NumThreads)
	assert.False(t, plan.ExportThreads)
}

func TestComputeThreadListMatchesCpuset(t *testing.T) {
	topo := flatTopo(2, 4, 1)
	sess := &session.Session{LocalRank: 1, LocalSize: 2, NumThreads: 3}

	plan, err := Compute(topo, sess)
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Cpuset.Weight())
	assert.Equal(t, plan.Cpuset.Join(3), plan.ThreadUnits)
}

func TestComputeDeterminism(t *testing.T) {
	topo := flatTopo(4, 2, 2, 0, 1, 3)
	sess := &session.Session{LocalRank: 2, LocalSize: 6, NumThreads: 2}

	first, err := Compute(topo, sess)
	require.NoError(t, err)
	second, err := Compute(topo, sess)
	require.NoError(t, err)

	assert.True(t, first.Cpuset.Equal(second.Cpuset))
	assert.Equal(t, first.ThreadUnits, second.ThreadUnits)
	assert.Equal(t, first.Devices, second.Devices)
	assert.Equal(t, first.NumThreads, second.NumThreads)
}

func TestComputeWithoutTaskCount(t *testing.T) {
	topo := flatTopo(2, 2, 1)

	plan, err := Compute(topo, &session.Session{})
	require.NoError(t, err)
	assert.False(t, plan.Cpuset.IsEmpty())
	assert.GreaterOrEqual(t, plan.NumThreads, 1)
}

func TestComputeAllCoversEveryRank(t *testing.T) {
	topo := flatTopo(2, 4, 2)
	base := &session.Session{LocalSize: 4, NumThreads: 1}

	plans := ComputeAll(topo, base)
	require.Len(t, plans, 4)
	for i, rp := range plans {
		assert.Equal(t, i, rp.Rank)
		require.NoError(t, rp.Err)
		assert.Equal(t, 1, rp.Plan.Cpuset.Weight())
	}
}
