// Package binder applies a computed plan to the operating system: it
// pins the current process to the plan's unit-set, exports the affinity
// environment for threads and devices, and replaces the process with the
// task binary.
package binder

import (
	"errors"
	"fmt"
	"os"

	"taskbind/internal/bind"
	"taskbind/internal/logging"
	"taskbind/internal/unitset"
)

var ErrApply = errors.New("binding apply failed")

// Apply pins the calling process to the plan's unit-set. A failure
// leaves the process running with whatever affinity it already had.
func Apply(set *unitset.Set) error {
	if set == nil || set.IsEmpty() {
		return fmt.Errorf("%w: empty unit-set", ErrApply)
	}
	return applyPlatform(set)
}

// CurrentAffinity reports the process's present unit-set, for verbose
// before/after output.
func CurrentAffinity() (*unitset.Set, error) {
	return currentPlatform()
}

// Export publishes the plan to the environment consumed by OpenMP and
// CUDA runtimes. OMP_NUM_THREADS is only written when it was absent on
// entry.
func Export(plan *bind.Plan) {
	if plan.ExportThreads {
		value := fmt.Sprintf("%d", plan.NumThreads)
		if err := os.Setenv("OMP_NUM_THREADS", value); err != nil {
			logging.Log().Warnf("failed to set OMP_NUM_THREADS: %v", err)
		} else {
			logging.Log().Debugf("setting OMP_NUM_THREADS to %s", value)
		}
	}
	if plan.ThreadUnits != "" {
		if err := os.Setenv("GOMP_CPU_AFFINITY", plan.ThreadUnits); err != nil {
			logging.Log().Warnf("failed to set GOMP_CPU_AFFINITY: %v", err)
		} else {
			logging.Log().Infof("GOMP_CPU_AFFINITY=%s", plan.ThreadUnits)
		}
	}
	if plan.Devices != "" {
		if err := os.Setenv("CUDA_VISIBLE_DEVICES", plan.Devices); err != nil {
			logging.Log().Warnf("failed to set CUDA_VISIBLE_DEVICES: %v", err)
		} else {
			logging.Log().Infof("CUDA_VISIBLE_DEVICES=%s", plan.Devices)
		}
	}
}

// Exec replaces the current process with the task command, inheriting
// the exported environment. It only returns on failure.
func Exec(argv []string) error {
	if len(argv) == 0 {
		return errors.New("no command to execute")
	}
	return execPlatform(argv, os.Environ())
}
