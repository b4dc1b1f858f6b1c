// Package session holds the per-task-launch context: placement
// parameters read from the scheduler environment plus user-supplied
// overrides. A Session is built once at launch, fixed before any
// assignment runs, and never shared between tasks.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"taskbind/internal/logging"
	"taskbind/internal/unitset"
)

var ErrEnvLookup = errors.New("environment variable not found")

// batchStepID marks batch-script steps in SLURM_STEP_ID.
const batchStepID = 0xfffffffe

// Session is the fixed launch context of one task.
type Session struct {
	Disabled      bool
	HelpRequested bool
	Verbose       int // 0 silent, 1 warnings, 2 info, 3 debug

	GlobalRank int
	LocalRank  int
	LocalSize  int
	NumThreads int // 0 means OMP_NUM_THREADS was not set

	// Explicit user unit restriction from the option grammar.
	Units     *unitset.Set
	UnitCount int

	// OnlineUnits bounds user-specified unit values.
	OnlineUnits int

	// AllocatedCPUs is the parsed per-node CPU allocation descriptor,
	// -1 when absent or ambiguous.
	AllocatedCPUs int

	BatchStep bool

	// remote marks option parsing done on behalf of a wrapped task
	// launch, where "help" is not a valid option.
	remote bool
}

type environment struct {
	Options          string `envconfig:"TASKBIND"`
	NumThreads       string `envconfig:"OMP_NUM_THREADS"`
	OpenMPILocalRank string `envconfig:"OMPI_COMM_WORLD_LOCAL_RANK"`
	SlurmLocalRank   string `envconfig:"SLURM_LOCALID"`
	GlobalRank       string `envconfig:"SLURM_PROCID"`
	TasksPerNode     string `envconfig:"SLURM_TASKS_PER_NODE"`
	CPUsPerNode      string `envconfig:"SLURM_JOB_CPUS_PER_NODE"`
	StepID           string `envconfig:"SLURM_STEP_ID"`
}

// New builds a session from the scheduler environment. Missing variables
// degrade to documented defaults and are only reported at elevated
// verbosity; a malformed TASKBIND option string rejects the whole string
// and leaves option defaults in place. Neither outcome is an error for
// the caller.
//
// remote marks that a task command is being wrapped: the environment
// then cannot request "help", which would replace every task of the job
// with a usage printout.
func New(onlineUnits int, remote bool) *Session {
	s := &Session{
		LocalSize:     1,
		OnlineUnits:   onlineUnits,
		AllocatedCPUs: -1,
	}

	var env environment
	if err := envconfig.Process("", &env); err != nil {
		logging.Log().Warnf("reading environment: %v", err)
		return s
	}

	if env.Options != "" {
		s.remote = remote
		if err := s.ParseOptions(env.Options); err != nil {
			logging.Log().Errorf("rejecting TASKBIND=%q: %v", env.Options, err)
		}
		// Options given on the command line are always a local request.
		s.remote = false
	}

	if rank, err := lookupInt(env.GlobalRank, "SLURM_PROCID"); err == nil {
		s.GlobalRank = rank
	} else {
		logging.Log().Infof("%v, assuming rank 0", err)
	}

	localRank, err := lookupInt(env.OpenMPILocalRank, "OMPI_COMM_WORLD_LOCAL_RANK")
	if err != nil {
		localRank, err = lookupInt(env.SlurmLocalRank, "SLURM_LOCALID")
	}
	if err == nil {
		s.LocalRank = localRank
	} else {
		logging.Log().Infof("%v, assuming local rank 0", err)
	}

	if env.TasksPerNode != "" {
		if size := ParseCountDescriptor(env.TasksPerNode); size > 0 {
			s.LocalSize = size
		} else {
			logging.Log().Warnf("unusable SLURM_TASKS_PER_NODE=%q, assuming 1 task", env.TasksPerNode)
		}
	} else {
		logging.Log().Infof("%v, assuming 1 task", fmt.Errorf("%w: SLURM_TASKS_PER_NODE", ErrEnvLookup))
	}

	if env.NumThreads != "" {
		if threads, err := strconv.Atoi(strings.TrimSpace(env.NumThreads)); err == nil && threads >= 0 {
			s.NumThreads = threads
			logging.Log().Debugf("found OMP_NUM_THREADS=%d", threads)
		} else {
			logging.Log().Warnf("ignoring malformed OMP_NUM_THREADS=%q", env.NumThreads)
		}
	} else {
		logging.Log().Infof("OMP_NUM_THREADS not defined")
	}

	s.AllocatedCPUs = ParseCountDescriptor(env.CPUsPerNode)
	s.BatchStep = isBatchStep(env.StepID)

	// Only rank 0 reports; other ranks would repeat the same lines.
	if s.GlobalRank != 0 && s.Verbose < 3 {
		s.Verbose = 0
	}

	return s
}

// IsExclusive reports whether the job was allocated enough CPUs on this
// node to bind safely. An absent or combined allocation descriptor means
// the answer is unknown, and unknown disables binding.
func (s *Session) IsExclusive() bool {
	if s.AllocatedCPUs < 0 {
		return false
	}
	return s.AllocatedCPUs >= s.OnlineUnits
}

// ParseCountDescriptor parses a scheduler per-node count of the form
// "N" or "N(xK)". The comma-joined combined form means the nodes differ,
// in which case no single count applies and -1 is returned.
func ParseCountDescriptor(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return -1
	}
	digits := 0
	for digits < len(value) && value[digits] >= '0' && value[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return -1
	}
	rest := value[digits:]
	if rest != "" && !strings.HasPrefix(rest, "(") {
		return -1
	}
	if strings.Contains(rest, ",") {
		return -1
	}
	n, err := strconv.Atoi(value[:digits])
	if err != nil {
		return -1
	}
	return n
}

func isBatchStep(stepID string) bool {
	stepID = strings.TrimSpace(stepID)
	if stepID == "batch" {
		return true
	}
	if id, err := strconv.ParseUint(stepID, 10, 32); err == nil {
		return id == batchStepID
	}
	return false
}

func lookupInt(value, name string) (int, error) {
	if strings.TrimSpace(value) == "" {
		return 0, fmt.Errorf("%w: %s", ErrEnvLookup, name)
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("malformed %s=%q: %v", name, value, err)
	}
	return parsed, nil
}
