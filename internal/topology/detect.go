package topology

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"taskbind/internal/unitset"
)

var ErrTopologyUnavailable = errors.New("topology unavailable")

// Load reads the hardware tree once from sysfs. The result is immutable
// for the lifetime of the task launch.
func Load() (*Topology, error) {
	info, err := os.Stat(SysfsCPUBasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: sysfs base path not found", ErrTopologyUnavailable)
		}
		if os.IsPermission(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrTopologyUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: sysfs base path not a directory", ErrTopologyUnavailable)
	}

	cpuIDs, err := ListCPUs()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTopologyUnavailable, err)
	}
	if len(cpuIDs) == 0 {
		return nil, fmt.Errorf("%w: no CPUs found", ErrTopologyUnavailable)
	}

	packages := make(map[int]int, len(cpuIDs))
	coreKeys := make(map[int]int, len(cpuIDs))
	for _, id := range cpuIDs {
		pkg, err := readOptionalInt(cpuPath(id, "physical_package_id"), 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTopologyUnavailable, err)
		}
		core, err := readOptionalInt(cpuPath(id, "core_id"), id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTopologyUnavailable, err)
		}
		packages[id] = pkg
		coreKeys[id] = core
	}

	nodeCPUs, err := loadNUMAMembership(cpuIDs)
	if err != nil {
		return nil, err
	}

	devices, err := ListRenderDevices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTopologyUnavailable, err)
	}

	return assemble(cpuIDs, packages, coreKeys, nodeCPUs, devices), nil
}

// loadNUMAMembership maps NUMA node id to its sorted CPU list. Machines
// without NUMA information get a single node 0 covering every CPU.
func loadNUMAMembership(cpuIDs []int) (map[int][]int, error) {
	nodeIDs, err := ListNUMANodes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTopologyUnavailable, err)
	}

	membership := make(map[int][]int)
	claimed := make(map[int]bool, len(cpuIDs))
	for _, nodeID := range nodeIDs {
		cpus, err := NodeCPUs(nodeID)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrTopologyUnavailable, err)
		}
		if len(cpus) == 0 {
			// Memory-only node, carries no processing units.
			continue
		}
		membership[nodeID] = cpus
		for _, cpu := range cpus {
			claimed[cpu] = true
		}
	}

	if len(membership) == 0 {
		all := make([]int, len(cpuIDs))
		copy(all, cpuIDs)
		membership[0] = all
		return membership, nil
	}

	// CPUs sysfs did not attribute to any node land on the lowest node.
	lowest := -1
	for nodeID := range membership {
		if lowest < 0 || nodeID < lowest {
			lowest = nodeID
		}
	}
	for _, cpu := range cpuIDs {
		if !claimed[cpu] {
			membership[lowest] = append(membership[lowest], cpu)
		}
	}
	sort.Ints(membership[lowest])
	return membership, nil
}

// assemble builds the immutable tree: machine, one group per physical
// package when more than one exists, NUMA nodes, cores, processing units,
// with accelerator devices attached to their local NUMA node (or the
// machine when sysfs reports none).
func assemble(cpuIDs []int, packages, coreKeys map[int]int, nodeCPUs map[int][]int, renderDevs []RenderDevice) *Topology {
	machine := &Object{Type: TypeMachine, OSIndex: 0, Name: "machine", Units: unitset.New()}
	for _, id := range cpuIDs {
		machine.Units.Add(id)
	}

	packageIDs := distinctValues(packages)
	withGroups := len(packageIDs) > 1

	groupByPkg := make(map[int]*Object)
	var groups []*Object
	if withGroups {
		for _, pkg := range packageIDs {
			group := &Object{Type: TypeGroup, OSIndex: pkg, Name: "package " + strconv.Itoa(pkg), Units: unitset.New(), Parent: machine}
			machine.Children = append(machine.Children, group)
			groupByPkg[pkg] = group
			groups = append(groups, group)
		}
	}

	nodeIDs := make([]int, 0, len(nodeCPUs))
	for id := range nodeCPUs {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Ints(nodeIDs)

	var numas, cores, pus []*Object
	for _, nodeID := range nodeIDs {
		cpus := nodeCPUs[nodeID]
		parent := machine
		if withGroups && len(cpus) > 0 {
			if group, ok := groupByPkg[packages[cpus[0]]]; ok {
				parent = group
			}
		}
		numa := &Object{Type: TypeNUMANode, OSIndex: nodeID, Name: "numa " + strconv.Itoa(nodeID), Units: unitset.New(), Parent: parent}
		parent.Children = append(parent.Children, numa)
		numas = append(numas, numa)

		for _, core := range groupCores(cpus, packages, coreKeys) {
			coreObj := &Object{Type: TypeCore, OSIndex: core.id, Name: "core " + strconv.Itoa(core.id), Units: unitset.New(), Parent: numa}
			numa.Children = append(numa.Children, coreObj)
			cores = append(cores, coreObj)
			for _, cpu := range core.cpus {
				pu := &Object{Type: TypePU, OSIndex: cpu, Name: "pu " + strconv.Itoa(cpu), Units: unitset.FromMembers(cpu), Parent: coreObj}
				coreObj.Children = append(coreObj.Children, pu)
				coreObj.Units.Add(cpu)
				pus = append(pus, pu)
			}
			numa.Units.Union(coreObj.Units)
		}
		if parent != machine {
			parent.Units.Union(numa.Units)
		}
	}

	levels := [][]*Object{{machine}}
	if withGroups {
		levels = append(levels, groups)
	}
	levels = append(levels, numas, cores, pus)
	for depth, level := range levels {
		for _, obj := range level {
			obj.Depth = depth
		}
	}

	numaByOSIndex := make(map[int]*Object, len(numas))
	for _, numa := range numas {
		numaByOSIndex[numa.OSIndex] = numa
	}

	devices := make([]*Object, 0, len(renderDevs))
	for i, rd := range renderDevs {
		parent := machine
		if numa, ok := numaByOSIndex[rd.NUMANode]; ok {
			parent = numa
		}
		dev := &Object{Type: TypeDevice, OSIndex: i, Depth: -1, Name: rd.Name, Units: unitset.New(), Parent: parent}
		parent.Children = append(parent.Children, dev)
		devices = append(devices, dev)
	}

	return &Topology{root: machine, levels: levels, devices: devices}
}

type coreBucket struct {
	id   int
	cpus []int
}

// groupCores buckets a NUMA node's CPUs into physical cores keyed by
// (package, core id), enumerated by lowest member CPU.
func groupCores(cpus []int, packages, coreKeys map[int]int) []coreBucket {
	type key struct {
		pkg  int
		core int
	}
	buckets := make(map[key]*coreBucket)
	order := make([]key, 0, len(cpus))
	for _, cpu := range cpus {
		k := key{pkg: packages[cpu], core: coreKeys[cpu]}
		bucket, exists := buckets[k]
		if !exists {
			bucket = &coreBucket{id: coreKeys[cpu]}
			buckets[k] = bucket
			order = append(order, k)
		}
		bucket.cpus = append(bucket.cpus, cpu)
	}

	result := make([]coreBucket, 0, len(order))
	for _, k := range order {
		bucket := buckets[k]
		sort.Ints(bucket.cpus)
		result = append(result, *bucket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].cpus[0] < result[j].cpus[0]
	})
	return result
}

func distinctValues(m map[int]int) []int {
	seen := make(map[int]bool)
	var values []int
	for _, v := range m {
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Ints(values)
	return values
}

func readOptionalInt(path string, defaultValue int) (int, error) {
	value, err := ReadIntFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultValue, nil
		}
		return 0, err
	}
	return value, nil
}
