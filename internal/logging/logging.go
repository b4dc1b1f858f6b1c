// Package logging configures the process-wide logger. Verbosity follows
// the option grammar: silent by default, "w" shows warnings, "v" adds
// informational output, "vv" adds debug output.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.ErrorLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
}

// Configure maps the session verbosity level onto the logger.
func Configure(verbose int) {
	switch {
	case verbose >= 3:
		logger.SetLevel(logrus.DebugLevel)
	case verbose == 2:
		logger.SetLevel(logrus.InfoLevel)
	case verbose == 1:
		logger.SetLevel(logrus.WarnLevel)
	default:
		logger.SetLevel(logrus.ErrorLevel)
	}
}

// Log returns the configured logger.
func Log() *logrus.Logger {
	return logger
}

// WithRank tags entries with the task's global rank.
func WithRank(rank int) *logrus.Entry {
	return logger.WithField("rank", rank)
}
