// Package logging provides the structured logger used across dispatch,
// configured through environment variables.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// NewWithWriter creates a logger on the given writer.
func NewWithWriter(w io.Writer) *log.Logger {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	switch os.Getenv("DISPATCH_LOG_LEVEL") {
	case "debug":
		lg.SetLevel(log.DebugLevel)
	case "warn":
		lg.SetLevel(log.WarnLevel)
	case "error":
		lg.SetLevel(log.ErrorLevel)
	default:
		lg.SetLevel(log.InfoLevel)
	}

	prefix := os.Getenv("DISPATCH_LOG_PREFIX")
	if prefix == "" {
		prefix = "dispatch"
	}
	return lg.WithPrefix(prefix)
}

// New creates the default stderr logger.
// DISPATCH_LOG_LEVEL: debug, info, warn, error (default: info).
// DISPATCH_LOG_PREFIX: prefix for log messages (default: "dispatch").
func New() *log.Logger {
	return NewWithWriter(os.Stderr)
}

// IsDebug reports whether debug logging is enabled.
func IsDebug() bool {
	return os.Getenv("DISPATCH_LOG_LEVEL") == "debug"
}
