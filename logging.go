package qdispatch

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

/*
NewLogger builds the pool's structured logger. Unknown levels fall back to
info so a typo in configuration never silences errors.
*/
func NewLogger(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{
		Prefix:          "qdispatch",
		ReportTimestamp: true,
		Level:           lvl,
	})
}

// discardLogger is used by tests and by callers that want a silent pool.
func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
