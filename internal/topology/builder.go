package topology

import (
	"strconv"

	"taskbind/internal/unitset"
)

// SyntheticSpec describes a regular machine shape for Synthetic. Device
// entries name the owning NUMA node by os index, -1 for machine-attached
// devices; slice order is the device enumeration order.
type SyntheticSpec struct {
	Groups       int
	NUMANodes    int
	CoresPerNUMA int
	PUsPerCore   int
	Devices      []int
}

// Synthetic builds an in-memory topology with the given shape. It backs
// tests and plan previews for machines other than the local one; the
// resulting tree answers the same queries as a sysfs-loaded one.
func Synthetic(spec SyntheticSpec) *Topology {
	if spec.NUMANodes <= 0 {
		spec.NUMANodes = 1
	}
	if spec.CoresPerNUMA <= 0 {
		spec.CoresPerNUMA = 1
	}
	if spec.PUsPerCore <= 0 {
		spec.PUsPerCore = 1
	}

	machine := &Object{Type: TypeMachine, OSIndex: 0, Name: "machine", Units: unitset.New()}

	withGroups := spec.Groups > 1
	var groups []*Object
	if withGroups {
		for g := 0; g < spec.Groups; g++ {
			group := &Object{Type: TypeGroup, OSIndex: g, Name: "group " + strconv.Itoa(g), Units: unitset.New(), Parent: machine}
			machine.Children = append(machine.Children, group)
			groups = append(groups, group)
		}
	}

	var numas, cores, pus []*Object
	nextPU := 0
	nextCore := 0
	for n := 0; n < spec.NUMANodes; n++ {
		parent := machine
		if withGroups {
			parent = groups[n*spec.Groups/spec.NUMANodes]
		}
		numa := &Object{Type: TypeNUMANode, OSIndex: n, Name: "numa " + strconv.Itoa(n), Units: unitset.New(), Parent: parent}
		parent.Children = append(parent.Children, numa)
		numas = append(numas, numa)

		for c := 0; c < spec.CoresPerNUMA; c++ {
			core := &Object{Type: TypeCore, OSIndex: nextCore, Name: "core " + strconv.Itoa(nextCore), Units: unitset.New(), Parent: numa}
			nextCore++
			numa.Children = append(numa.Children, core)
			cores = append(cores, core)

			for p := 0; p < spec.PUsPerCore; p++ {
				pu := &Object{Type: TypePU, OSIndex: nextPU, Name: "pu " + strconv.Itoa(nextPU), Units: unitset.FromMembers(nextPU), Parent: core}
				nextPU++
				core.Children = append(core.Children, pu)
				core.Units.Union(pu.Units)
				pus = append(pus, pu)
			}
			numa.Units.Union(core.Units)
		}
		if withGroups {
			parent.Units.Union(numa.Units)
		}
		machine.Units.Union(numa.Units)
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

	var devices []*Object
	for i, owner := range spec.Devices {
		parent := machine
		if owner >= 0 && owner < len(numas) {
			parent = numas[owner]
		}
		dev := &Object{Type: TypeDevice, OSIndex: i, Depth: -1, Name: "renderD" + strconv.Itoa(128+i), Units: unitset.New(), Parent: parent}
		parent.Children = append(parent.Children, dev)
		devices = append(devices, dev)
	}

	return &Topology{root: machine, levels: levels, devices: devices}
}
