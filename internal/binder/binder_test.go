package binder

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbind/internal/bind"
	"taskbind/internal/unitset"
)

func TestApplyRejectsEmptySet(t *testing.T) {
	err := Apply(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrApply)

	err = Apply(unitset.New())
	assert.ErrorIs(t, err, ErrApply)
}

func TestExportThreadEnvironment(t *testing.T) {
	t.Setenv("OMP_NUM_THREADS", "")
	t.Setenv("GOMP_CPU_AFFINITY", "")
	t.Setenv("CUDA_VISIBLE_DEVICES", "")
	os.Unsetenv("OMP_NUM_THREADS")

	plan := &bind.Plan{
		ThreadUnits:   "0,2,4,6",
		Devices:       "0,1",
		NumThreads:    4,
		ExportThreads: true,
	}
	Export(plan)

	assert.Equal(t, "4", os.Getenv("OMP_NUM_THREADS"))
	assert.Equal(t, "0,2,4,6", os.Getenv("GOMP_CPU_AFFINITY"))
	assert.Equal(t, "0,1", os.Getenv("CUDA_VISIBLE_DEVICES"))
}

func TestExportHonorsExistingThreadCount(t *testing.T) {
	t.Setenv("OMP_NUM_THREADS", "7")
	t.Setenv("GOMP_CPU_AFFINITY", "")
	t.Setenv("CUDA_VISIBLE_DEVICES", "")
	os.Unsetenv("CUDA_VISIBLE_DEVICES")

	plan := &bind.Plan{
		ThreadUnits: "3",
		NumThreads:  7,
	}
	Export(plan)

	assert.Equal(t, "7", os.Getenv("OMP_NUM_THREADS"))
	assert.Equal(t, "3", os.Getenv("GOMP_CPU_AFFINITY"))
	_, present := os.LookupEnv("CUDA_VISIBLE_DEVICES")
	assert.False(t, present, "no device list, no export")
}

func TestExecRequiresCommand(t *testing.T) {
	err := Exec(nil)
	assert.Error(t, err)
}
