package topology

// Summary is a flat, serializable view of the tree for -topology output.
type Summary struct {
	Levels  []LevelSummary  `json:"levels"`
	Devices []DeviceSummary `json:"devices"`
}

type LevelSummary struct {
	Depth   int             `json:"depth"`
	Type    ObjectType      `json:"type"`
	Objects []ObjectSummary `json:"objects"`
}

type ObjectSummary struct {
	OSIndex int    `json:"os_index"`
	Name    string `json:"name"`
	Units   string `json:"units"`
}

type DeviceSummary struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	NUMANode int    `json:"numa_node"`
}

func (t *Topology) Summarize() Summary {
	summary := Summary{}
	for depth, level := range t.levels {
		if len(level) == 0 {
			continue
		}
		ls := LevelSummary{Depth: depth, Type: level[0].Type}
		for _, obj := range level {
			ls.Objects = append(ls.Objects, ObjectSummary{
				OSIndex: obj.OSIndex,
				Name:    obj.Name,
				Units:   obj.Units.String(),
			})
		}
		summary.Levels = append(summary.Levels, ls)
	}
	for _, dev := range t.devices {
		node := -1
		if numa := Ancestor(dev, TypeNUMANode); numa != nil {
			node = numa.OSIndex
		}
		summary.Devices = append(summary.Devices, DeviceSummary{
			Index:    dev.OSIndex,
			Name:     dev.Name,
			NUMANode: node,
		})
	}
	return summary
}
