// Package logging wraps charmbracelet/log for the careers server.
package logging

import (
	"bytes"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger is a wrapper around the log.Logger from the charmbracelet/log package.
type Logger struct {
	*log.Logger
	Buffer *bytes.Buffer
}

// New creates a logger writing to stderr. Debug enables caller reporting and
// the debug level.
func New(debug bool) *Logger {
	return newLogger(os.Stderr, debug)
}

func newLogger(w io.Writer, debug bool) *Logger {
	opts := log.Options{
		ReportTimestamp: true,
		Prefix:          "polypop",
		Level:           log.InfoLevel,
	}
	if debug {
		opts.ReportCaller = true
		opts.Level = log.DebugLevel
	}
	return &Logger{Logger: log.NewWithOptions(w, opts)}
}

// NewTestLogger returns a debug logger that writes into an in-memory buffer.
func NewTestLogger() *Logger {
	buf := new(bytes.Buffer)
	l := log.NewWithOptions(buf, log.Options{Level: log.DebugLevel})
	return &Logger{Logger: l, Buffer: buf}
}

// GetOutput returns everything written to a test logger so far.
func (l *Logger) GetOutput() string {
	if l.Buffer == nil {
		return ""
	}
	return l.Buffer.String()
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(keyvals...), Buffer: l.Buffer}
}
