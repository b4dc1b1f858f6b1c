package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"taskbind/cmd"
	"taskbind/internal/bind"
	"taskbind/internal/binder"
	"taskbind/internal/logging"
	"taskbind/internal/session"
	"taskbind/internal/topology"
	"taskbind/internal/ui"
)

func main() {
	opts := cmd.ParseFlags()
	if err := cmd.Validate(opts); err != nil {
		exitWithError(err)
	}

	topo, err := topology.Load()
	if err != nil {
		if len(opts.Command) > 0 {
			// Fail open: the task runs unbound rather than not at all.
			runUnbound(opts.Command, err)
		}
		exitWithError(err)
	}

	sess := session.New(topo.NumUnits(), len(opts.Command) > 0)
	if opts.OptionString != "" {
		if err := sess.ParseOptions(opts.OptionString); err != nil {
			// The whole option string is rejected; defaults remain.
			ui.PrintError(err)
		}
	}
	logging.Configure(sess.Verbose)

	if sess.HelpRequested {
		fmt.Print(session.Usage)
		return
	}

	if opts.Tasks > 0 {
		sess.LocalSize = opts.Tasks
	}
	if opts.Threads > 0 {
		sess.NumThreads = opts.Threads
	}

	switch {
	case opts.ShowTopology:
		if opts.JSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(topo.Summarize()); err != nil {
				exitWithError(err)
			}
			return
		}
		ui.PrintTopology(topo)

	case opts.Plan:
		ui.PrintPlan(bind.ComputeAll(topo, sess), sess.LocalSize)

	case opts.DryRun:
		plan, err := bind.Compute(topo, sess)
		if err != nil {
			exitWithError(err)
		}
		ui.PrintDryRun(plan, sess.LocalRank)

	case len(opts.Command) > 0:
		runTask(topo, sess, opts.Command)

	default:
		if err := ui.Run(topo, sess); err != nil {
			exitWithError(err)
		}
	}
}

// runTask binds the current process per the session and replaces it with
// the task command. Every failure degrades to running the command
// unbound; only a failed exec itself is fatal.
func runTask(topo *topology.Topology, sess *session.Session, command []string) {
	log := logging.WithRank(sess.GlobalRank)

	switch {
	case sess.Disabled:
		log.Debugf("binding disabled by option")
		runUnbound(command, nil)
	case sess.BatchStep:
		// Batch scripts look like they requested explicit CPU counts;
		// binding them causes surprises.
		log.Debugf("skipping batch step")
		runUnbound(command, nil)
	case !sess.IsExclusive():
		log.Warnf("disabling: job does not have exclusive access to this node")
		runUnbound(command, nil)
	}

	if before, err := binder.CurrentAffinity(); err == nil {
		log.Debugf("starting binding %s", before)
	}

	plan, err := bind.Compute(topo, sess)
	if err != nil {
		log.Errorf("binding skipped: %v", err)
		runUnbound(command, nil)
	}

	if err := binder.Apply(plan.Cpuset); err != nil {
		log.Warnf("could not bind to units %s: %v", plan.Cpuset, err)
	} else if sess.Verbose >= 2 {
		ui.PrintApplied(plan.Cpuset.String())
	} else {
		log.Debugf("bound to units %s", plan.Cpuset)
	}
	binder.Export(plan)

	if after, err := binder.CurrentAffinity(); err == nil {
		log.Debugf("resulting binding %s", after)
	}

	if err := binder.Exec(command); err != nil {
		exitWithError(err)
	}
}

// runUnbound executes the task without touching its affinity. Does not
// return except through exit.
func runUnbound(command []string, cause error) {
	if cause != nil {
		logging.Log().Errorf("running unbound: %v", cause)
	}
	if err := binder.Exec(command); err != nil {
		exitWithError(err)
	}
	os.Exit(0)
}

func exitWithError(err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, cmd.ErrInvalidArguments):
		ui.PrintError(err)
		os.Exit(2)
	case errors.Is(err, topology.ErrTopologyUnavailable):
		ui.PrintError(errors.New("cannot read the hardware topology. Are you running on a Linux system?"))
		os.Exit(3)
	case errors.Is(err, os.ErrPermission):
		ui.PrintError(errors.New("permission denied reading the hardware topology"))
		os.Exit(5)
	default:
		ui.PrintError(err)
		os.Exit(1)
	}
}
