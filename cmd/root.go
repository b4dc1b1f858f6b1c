package cmd

import (
	"errors"
	"flag"
	"fmt"
)

type Options struct {
	ShowTopology bool
	JSON         bool
	Plan         bool
	DryRun       bool
	OptionString string
	Tasks        int
	Threads      int
	Command      []string
}

var ErrInvalidArguments = errors.New("invalid arguments")

func ParseFlags() *Options {
	opts := &Options{}
	flag.BoolVar(&opts.ShowTopology, "topology", false, "Show hardware topology and exit")
	flag.BoolVar(&opts.JSON, "json", false, "Output in JSON format (with -topology)")
	flag.BoolVar(&opts.Plan, "plan", false, "Show the binding plan for every local rank and exit")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "Compute this task's binding without applying it")
	flag.StringVar(&opts.OptionString, "options", "", "Dot-separated binding options, e.g. w.0-7 (also via TASKBIND)")
	flag.IntVar(&opts.Tasks, "tasks", 0, "Override the local task count (with -plan or interactive mode)")
	flag.IntVar(&opts.Threads, "threads", 0, "Override the per-task thread count (with -plan or interactive mode)")
	flag.Parse()
	opts.Command = flag.Args()
	return opts
}

func Validate(opts *Options) error {
	if opts == nil {
		return fmt.Errorf("%w: options are required", ErrInvalidArguments)
	}

	if opts.JSON && !opts.ShowTopology {
		return fmt.Errorf("%w: -json requires -topology", ErrInvalidArguments)
	}
	if opts.ShowTopology && (opts.Plan || len(opts.Command) > 0) {
		return fmt.Errorf("%w: -topology cannot be combined with -plan or a command", ErrInvalidArguments)
	}
	if opts.Plan && len(opts.Command) > 0 {
		return fmt.Errorf("%w: -plan cannot be combined with a command", ErrInvalidArguments)
	}
	if opts.DryRun && len(opts.Command) > 0 {
		return fmt.Errorf("%w: -dry-run computes the binding without running a command", ErrInvalidArguments)
	}
	if opts.Tasks < 0 {
		return fmt.Errorf("%w: -tasks must not be negative", ErrInvalidArguments)
	}
	if opts.Threads < 0 {
		return fmt.Errorf("%w: -threads must not be negative", ErrInvalidArguments)
	}
	if (opts.Tasks > 0 || opts.Threads > 0) && len(opts.Command) > 0 {
		return fmt.Errorf("%w: -tasks and -threads are preview overrides; the scheduler environment drives wrapped commands", ErrInvalidArguments)
	}

	return nil
}
