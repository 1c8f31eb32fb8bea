// Package logger configures the process-wide logrus logger and hands out
// namespaced entries to the other packages.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const namespaceField = "nspace"

// Setup sets the level and output of the standard logger. An empty level
// keeps the current one.
func Setup(level string, out io.Writer) error {
	if out == nil {
		out = os.Stderr
	}
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	return nil
}

// WithNamespace returns a logger tagged with the given namespace.
func WithNamespace(ns string) *logrus.Entry {
	return logrus.WithField(namespaceField, ns)
}

// IsDebug reports whether debug logging is enabled.
func IsDebug() bool {
	return logrus.IsLevelEnabled(logrus.DebugLevel)
}
