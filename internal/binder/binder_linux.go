//go:build linux

package binder

import (
	"fmt"
	"os/exec"

	"golang.org/x/sys/unix"

	"taskbind/internal/unitset"
)

func applyPlatform(set *unitset.Set) error {
	var mask unix.CPUSet
	mask.Zero()
	for u := set.First(); u >= 0; u = set.Next(u) {
		mask.Set(u)
	}
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return fmt.Errorf("%w: sched_setaffinity: %v", ErrApply, err)
	}
	return nil
}

func currentPlatform() (*unitset.Set, error) {
	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(0, &mask); err != nil {
		return nil, fmt.Errorf("%w: sched_getaffinity: %v", ErrApply, err)
	}
	set := unitset.New()
	for u := 0; u < len(mask)*64; u++ {
		if mask.IsSet(u) {
			set.Add(u)
		}
	}
	return set, nil
}

func execPlatform(argv []string, env []string) error {
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("locating %s: %w", argv[0], err)
	}
	return unix.Exec(path, argv, env)
}
