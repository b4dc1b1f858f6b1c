// Package partition balances N items over D ordered domains. The same
// bucketing is used for task-to-NUMA, task-to-device and device-to-task
// mappings, so every process that runs it over identical inputs lands on
// identical assignments.
package partition

import (
	"errors"
	"fmt"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// Placement locates one item inside the balanced bucketing.
type Placement struct {
	Domain           int // bucket that holds the item
	SizeInDomain     int // item count of that bucket
	PositionInDomain int // item's position within the bucket
}

// Assign distributes total items over domainCount buckets so that no two
// bucket sizes differ by more than one, and returns the placement of the
// item at index. Buckets are filled in order 0..domainCount-1 with the
// first total%domainCount buckets holding one extra item.
func Assign(index, total, domainCount int) (Placement, error) {
	if domainCount <= 0 {
		return Placement{}, fmt.Errorf("domain count must be positive, got %d", domainCount)
	}
	if index < 0 || index >= total {
		return Placement{}, fmt.Errorf("%w: index %d with %d items", ErrIndexOutOfRange, index, total)
	}

	base := total / domainCount
	extra := total % domainCount

	cumulative := 0
	for domain := 0; domain < domainCount; domain++ {
		size := base
		if domain < extra {
			size = base + 1
		}
		start := cumulative
		cumulative += size
		if index < cumulative {
			return Placement{
				Domain:           domain,
				SizeInDomain:     size,
				PositionInDomain: (index - start) % size,
			}, nil
		}
	}

	// Unreachable: the buckets sum to total and index < total.
	return Placement{}, fmt.Errorf("%w: index %d not covered", ErrIndexOutOfRange, index)
}

// Sizes returns the bucket sizes for total items over domainCount buckets.
func Sizes(total, domainCount int) []int {
	if domainCount <= 0 {
		return nil
	}
	base := total / domainCount
	extra := total % domainCount
	sizes := make([]int, domainCount)
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}
