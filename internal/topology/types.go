package topology

import (
	"fmt"

	"taskbind/internal/unitset"
)

type ObjectType string

const (
	TypeMachine  ObjectType = "machine"
	TypeGroup    ObjectType = "group"
	TypeNUMANode ObjectType = "numa"
	TypeCore     ObjectType = "core"
	TypePU       ObjectType = "pu"
	TypeDevice   ObjectType = "device"
)

// Object is one node of the hardware tree. CPU-side objects live at a
// depth; accelerator devices hang off their closest CPU-side parent with
// Depth set to -1.
type Object struct {
	Type     ObjectType
	OSIndex  int
	Depth    int
	Name     string
	Units    *unitset.Set
	Parent   *Object
	Children []*Object
}

// Topology is the immutable tree built once per task launch. All query
// methods enumerate objects in a stable order so that every process on
// the node sees identical sequences.
type Topology struct {
	root    *Object
	levels  [][]*Object
	devices []*Object
}

func (t *Topology) Root() *Object {
	return t.root
}

// NumLevels returns the number of CPU-side depths, root included.
func (t *Topology) NumLevels() int {
	return len(t.levels)
}

// CountAtDepth returns the object count at a depth, zero when the depth
// does not exist.
func (t *Topology) CountAtDepth(depth int) int {
	if depth < 0 || depth >= len(t.levels) {
		return 0
	}
	return len(t.levels[depth])
}

// ObjectAt retrieves the index-th object at a depth in enumeration order.
func (t *Topology) ObjectAt(depth, index int) (*Object, error) {
	if depth < 0 || depth >= len(t.levels) {
		return nil, fmt.Errorf("%w: no depth %d", ErrTopologyUnavailable, depth)
	}
	level := t.levels[depth]
	if index < 0 || index >= len(level) {
		return nil, fmt.Errorf("%w: no object %d at depth %d", ErrTopologyUnavailable, index, depth)
	}
	return level[index], nil
}

// CountByType returns the number of CPU-side objects of the given type.
func (t *Topology) CountByType(objType ObjectType) int {
	if objType == TypeDevice {
		return len(t.devices)
	}
	count := 0
	for _, level := range t.levels {
		for _, obj := range level {
			if obj.Type == objType {
				count++
			}
		}
	}
	return count
}

// ObjectByType retrieves the index-th object of a type in enumeration order.
func (t *Topology) ObjectByType(objType ObjectType, index int) (*Object, error) {
	if objType == TypeDevice {
		if index < 0 || index >= len(t.devices) {
			return nil, fmt.Errorf("%w: no device %d", ErrTopologyUnavailable, index)
		}
		return t.devices[index], nil
	}
	seen := 0
	for _, level := range t.levels {
		for _, obj := range level {
			if obj.Type != objType {
				continue
			}
			if seen == index {
				return obj, nil
			}
			seen++
		}
	}
	return nil, fmt.Errorf("%w: no %s object %d", ErrTopologyUnavailable, objType, index)
}

// Devices returns accelerator devices in enumeration order. The returned
// slice must not be modified.
func (t *Topology) Devices() []*Object {
	return t.devices
}

// Ancestor walks up from obj to the nearest enclosing object of the given
// type, or nil when none exists.
func Ancestor(obj *Object, objType ObjectType) *Object {
	for cur := obj; cur != nil; cur = cur.Parent {
		if cur != obj && cur.Type == objType {
			return cur
		}
	}
	return nil
}

// NumUnits returns the number of addressable processing units.
func (t *Topology) NumUnits() int {
	return t.CountByType(TypePU)
}

// NumCores returns the number of physical cores.
func (t *Topology) NumCores() int {
	return t.CountByType(TypeCore)
}

// NumNUMANodes returns the number of NUMA domains.
func (t *Topology) NumNUMANodes() int {
	return t.CountByType(TypeNUMANode)
}

// UnitsInside counts how many objects of a type have at least one unit
// in common with the given set. Used to warn about tasks spanning more
// NUMA domains than intended.
func (t *Topology) UnitsInside(set *unitset.Set, objType ObjectType) int {
	if set == nil {
		return 0
	}
	count := 0
	total := t.CountByType(objType)
	for i := 0; i < total; i++ {
		obj, err := t.ObjectByType(objType, i)
		if err != nil {
			break
		}
		if intersects(obj.Units, set) {
			count++
		}
	}
	return count
}

func intersects(a, b *unitset.Set) bool {
	if a == nil || b == nil {
		return false
	}
	for u := a.First(); u >= 0; u = a.Next(u) {
		if b.Has(u) {
			return true
		}
	}
	return false
}
