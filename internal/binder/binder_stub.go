//go:build !linux

package binder

import (
	"fmt"
	"os"
	"os/exec"

	"taskbind/internal/unitset"
)

func applyPlatform(set *unitset.Set) error {
	return fmt.Errorf("%w: processor binding is not supported on this platform", ErrApply)
}

func currentPlatform() (*unitset.Set, error) {
	return nil, fmt.Errorf("%w: processor binding is not supported on this platform", ErrApply)
}

// Without exec semantics the child runs as a subprocess and its exit
// status is forwarded.
func execPlatform(argv []string, env []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = env
	return cmd.Run()
}
