package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"taskbind/internal/logging"
	"taskbind/internal/unitset"
)

var ErrInvalidOption = errors.New("invalid option")

const Usage = `taskbind: assign CPU and GPU affinity using best-guess defaults.

The default behavior binds each task of a parallel job to specific
processing units. If OMP_NUM_THREADS is set, each thread is similarly
bound to a processing unit.

Usage: taskbind [flags] [--] command [args...]
  Options below form a period (.) separated list passed via -options
  or the TASKBIND environment variable, e.g. TASKBIND=w.0-9

  help              Display this message
  w                 Show warnings of potential problems
  v(erbose)         Show warnings and more verbose info
  vv                Show warnings and verbose debugging info
  <range>           Restrict the tasks to specific units, e.g. 0-7
  off               Disable binding
  on                Enable binding (when the system default is off)
`

// ParseOptions applies a dot-separated option string to the session.
// One invalid token rejects the whole string: the session is left
// exactly as it was before the call.
func (s *Session) ParseOptions(arg string) error {
	if strings.TrimSpace(arg) == "" {
		return nil
	}

	scratch := *s
	if s.Units != nil {
		scratch.Units = s.Units.Clone()
	}
	for _, token := range strings.Split(arg, ".") {
		if err := scratch.parseOption(token); err != nil {
			return err
		}
	}
	*s = scratch

	logging.Configure(s.Verbose)
	return nil
}

func (s *Session) parseOption(opt string) error {
	switch {
	case opt == "on":
		s.Disabled = false
	case opt == "off":
		s.Disabled = true
	case opt == "vv":
		s.Verbose = 3
	case opt == "v" || opt == "verbose":
		s.Verbose = 2
	case opt == "w":
		s.Verbose = 1
	case opt == "help":
		if s.remote {
			// A wrapped task must run; it cannot be swapped for a usage
			// printout by the launch environment.
			return fmt.Errorf("%w: %q is only valid in a local invocation", ErrInvalidOption, opt)
		}
		s.HelpRequested = true
	case opt != "" && opt[0] >= '0' && opt[0] <= '9':
		return s.parseUnitToken(opt)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOption, opt)
	}
	return nil
}

// parseUnitToken parses "<int>", "<int>-<int>" or comma-joined
// combinations thereof into the explicit unit restriction. Endpoints are
// bounded by the online unit count; ranges must not be inverted.
func (s *Session) parseUnitToken(token string) error {
	units := unitset.New()
	count := 0

	rest := token
	for rest != "" {
		start, tail, err := s.parseUnitValue(rest)
		if err != nil {
			return err
		}
		switch {
		case tail == "":
			units.Add(start)
			count++
			rest = ""
		case tail[0] == '-':
			if len(tail) == 1 {
				return fmt.Errorf("%w: end value missing from range %q", ErrInvalidOption, token)
			}
			end, after, err := s.parseUnitValue(tail[1:])
			if err != nil {
				return err
			}
			if start > end {
				return fmt.Errorf("%w: end unit %d must not precede start unit %d", ErrInvalidOption, end, start)
			}
			units.AddRange(start, end)
			count += end - start + 1
			if after == "" {
				rest = ""
			} else if after[0] == ',' {
				rest = after[1:]
			} else {
				return fmt.Errorf("%w: invalid delimiter %q", ErrInvalidOption, after[:1])
			}
		case tail[0] == ',':
			units.Add(start)
			count++
			rest = tail[1:]
		default:
			return fmt.Errorf("%w: invalid delimiter %q", ErrInvalidOption, tail[:1])
		}
	}

	s.Units = units
	s.UnitCount = count
	logging.Log().Debugf("explicit unit restriction %s (%d units)", units, count)
	return nil
}

// parseUnitValue splits a leading integer off value and bounds it by the
// online unit count.
func (s *Session) parseUnitValue(value string) (int, string, error) {
	digits := 0
	for digits < len(value) && value[digits] >= '0' && value[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return 0, "", fmt.Errorf("%w: expected unit number in %q", ErrInvalidOption, value)
	}
	unit, err := strconv.Atoi(value[:digits])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	if unit > s.OnlineUnits {
		return 0, "", fmt.Errorf("%w: unit %d exceeds %d available units", ErrInvalidOption, unit, s.OnlineUnits)
	}
	return unit, value[digits:], nil
}
