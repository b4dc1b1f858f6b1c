package topology

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	SysfsCPUBasePath  = "/sys/devices/system/cpu"
	SysfsNodeBasePath = "/sys/devices/system/node"
	SysfsDRMBasePath  = "/sys/class/drm"
)

func ReadIntFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return 0, errors.New("empty file")
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

// ReadListFile parses a sysfs cpulist file, e.g. "0-3,8,10-11".
func ReadListFile(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return []int{}, nil
	}

	parts := strings.Split(raw, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if strings.Contains(item, "-") {
			bounds := strings.SplitN(item, "-", 2)
			if len(bounds) != 2 {
				return nil, errors.New("invalid range")
			}
			start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
			if err != nil {
				return nil, err
			}
			end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, errors.New("range end before start")
			}
			for i := start; i <= end; i++ {
				values = append(values, i)
			}
			continue
		}
		parsed, err := strconv.Atoi(item)
		if err != nil {
			return nil, err
		}
		values = append(values, parsed)
	}

	sort.Ints(values)
	return dedupeSorted(values), nil
}

// ListCPUs returns the online CPU ids found under the sysfs CPU base path.
func ListCPUs() ([]int, error) {
	return listNumberedDirs(SysfsCPUBasePath, "cpu")
}

// ListNUMANodes returns the NUMA node ids found under the sysfs node base
// path. A machine without the node directory reports no NUMA nodes.
func ListNUMANodes() ([]int, error) {
	nodes, err := listNumberedDirs(SysfsNodeBasePath, "node")
	if err != nil {
		if os.IsNotExist(err) {
			return []int{}, nil
		}
		return nil, err
	}
	return nodes, nil
}

// NodeCPUs returns the CPU ids belonging to a NUMA node.
func NodeCPUs(nodeID int) ([]int, error) {
	path := filepath.Join(SysfsNodeBasePath, "node"+strconv.Itoa(nodeID), "cpulist")
	return ReadListFile(path)
}

// RenderDevice is a DRM render node as discovered under sysfs. Render
// nodes are the one-per-GPU handle; card* entries may also cover the
// display controller and are skipped.
type RenderDevice struct {
	Minor    int
	Name     string
	NUMANode int // -1 when sysfs does not report a local node
}

// ListRenderDevices enumerates renderD* entries in ascending minor order.
func ListRenderDevices() ([]RenderDevice, error) {
	entries, err := os.ReadDir(SysfsDRMBasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []RenderDevice{}, nil
		}
		return nil, err
	}

	devices := make([]RenderDevice, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "renderD") {
			continue
		}
		minor, err := strconv.Atoi(strings.TrimPrefix(name, "renderD"))
		if err != nil {
			continue
		}
		node := -1
		nodePath := filepath.Join(SysfsDRMBasePath, name, "device", "numa_node")
		if value, err := ReadIntFile(nodePath); err == nil {
			node = value
		}
		devices = append(devices, RenderDevice{Minor: minor, Name: name, NUMANode: node})
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Minor < devices[j].Minor
	})
	return devices, nil
}

func listNumberedDirs(base, prefix string) ([]int, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(name, prefix)
		if suffix == "" {
			continue
		}
		id, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	sort.Ints(ids)
	return ids, nil
}

func cpuPath(cpuID int, element string) string {
	return filepath.Join(SysfsCPUBasePath, "cpu"+strconv.Itoa(cpuID), "topology", element)
}

func dedupeSorted(values []int) []int {
	if len(values) == 0 {
		return values
	}
	result := make([]int, 0, len(values))
	last := values[0] - 1
	for _, value := range values {
		if value == last {
			continue
		}
		result = append(result, value)
		last = value
	}
	return result
}
