package bind

import (
	"fmt"
	"strconv"
	"strings"

	"taskbind/internal/logging"
	"taskbind/internal/partition"
	"taskbind/internal/session"
	"taskbind/internal/topology"
)

// deviceOwnership maps each NUMA domain (by enumeration index) to the
// devices it owns, directly or through fallback.
type deviceOwnership struct {
	byNUMA [][]int
}

// AssignDevices computes this task's accelerator list as a comma-joined
// string of ascending device ids. Only call when the topology holds at
// least one device; the empty string with a nil error means the task owns
// no device.
//
// Tasks sharing a NUMA domain split that domain's devices: with at least
// as many tasks as devices each task gets exactly one, otherwise each
// device is given to exactly one task and a task may own several.
func AssignDevices(topo *topology.Topology, sess *session.Session) (string, error) {
	devices := topo.Devices()
	if len(devices) == 0 {
		return "", nil
	}
	numaCount := topo.NumNUMANodes()
	if numaCount == 0 {
		return "", fmt.Errorf("%w: devices present but no NUMA domains", topology.ErrTopologyUnavailable)
	}

	owned, err := buildOwnership(topo, numaCount)
	if err != nil {
		return "", err
	}

	place, err := partition.Assign(sess.LocalRank, sess.LocalSize, numaCount)
	if err != nil {
		return "", fmt.Errorf("%w: mapping tasks to NUMA domains: %v", topology.ErrTopologyUnavailable, err)
	}

	domainDevs := owned.byNUMA[place.Domain]
	if len(domainDevs) == 0 {
		return "", fmt.Errorf("%w: NUMA domain %d has no devices after fallback", topology.ErrTopologyUnavailable, place.Domain)
	}

	if place.SizeInDomain >= len(domainDevs) {
		// More tasks than devices: every task gets exactly one device,
		// possibly shared with other tasks.
		devPlace, err := partition.Assign(place.PositionInDomain, place.SizeInDomain, len(domainDevs))
		if err != nil {
			return "", fmt.Errorf("%w: mapping tasks to devices: %v", topology.ErrTopologyUnavailable, err)
		}
		return strconv.Itoa(domainDevs[devPlace.Domain]), nil
	}

	// More devices than tasks: collect every device whose owning task is
	// this one, in ascending device-id order.
	var ids []string
	for i := range domainDevs {
		taskPlace, err := partition.Assign(i, len(domainDevs), place.SizeInDomain)
		if err != nil {
			return "", fmt.Errorf("%w: mapping devices to tasks: %v", topology.ErrTopologyUnavailable, err)
		}
		if taskPlace.Domain == place.PositionInDomain {
			ids = append(ids, strconv.Itoa(domainDevs[i]))
		}
	}
	return strings.Join(ids, ","), nil
}

// buildOwnership assigns every device to its nearest NUMA ancestor and
// to that NUMA's enclosing group, then fills device-less NUMA domains:
// first from the group aggregate, then from the first NUMA domain in
// enumeration order that owns a device. The second fallback is an
// observed order-dependent policy and is kept as-is.
func buildOwnership(topo *topology.Topology, numaCount int) (*deviceOwnership, error) {
	owned := &deviceOwnership{byNUMA: make([][]int, numaCount)}
	byGroup := make(map[*topology.Object][]int)
	groupOfNUMA := make([]*topology.Object, numaCount)

	numaIndex := make(map[*topology.Object]int, numaCount)
	for i := 0; i < numaCount; i++ {
		numa, err := topo.ObjectByType(topology.TypeNUMANode, i)
		if err != nil {
			return nil, fmt.Errorf("NUMA domain %d: %w", i, err)
		}
		numaIndex[numa] = i
		group := topology.Ancestor(numa, topology.TypeGroup)
		if group == nil {
			group = topo.Root()
		}
		groupOfNUMA[i] = group
	}

	for _, dev := range topo.Devices() {
		numa := topology.Ancestor(dev, topology.TypeNUMANode)
		idx := 0
		if numa != nil {
			found, ok := numaIndex[numa]
			if !ok {
				return nil, fmt.Errorf("%w: device %s has an unindexed NUMA ancestor", topology.ErrTopologyUnavailable, dev.Name)
			}
			idx = found
		}
		// Machine-attached devices land on the first NUMA domain.
		owned.byNUMA[idx] = append(owned.byNUMA[idx], dev.OSIndex)
		group := groupOfNUMA[idx]
		byGroup[group] = append(byGroup[group], dev.OSIndex)
	}

	for i := 0; i < numaCount; i++ {
		if len(owned.byNUMA[i]) > 0 {
			continue
		}
		if groupDevs := byGroup[groupOfNUMA[i]]; len(groupDevs) > 0 {
			owned.byNUMA[i] = append([]int(nil), groupDevs...)
			continue
		}
		borrowed := false
		for k := 0; k < numaCount; k++ {
			if len(owned.byNUMA[k]) > 0 && k != i {
				owned.byNUMA[i] = append([]int(nil), owned.byNUMA[k]...)
				borrowed = true
				logging.Log().Debugf("NUMA domain %d borrows devices from domain %d", i, k)
				break
			}
		}
		if !borrowed {
			return nil, fmt.Errorf("%w: no NUMA domain owns a device", topology.ErrTopologyUnavailable)
		}
	}

	return owned, nil
}
