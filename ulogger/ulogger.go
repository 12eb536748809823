// Package ulogger is the leveled logger used across the module.
package ulogger

import (
	"io"
	"os"
)

// Logger is the logging surface the library depends on.
type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	New(service string) Logger
}

// Options configures a logger created with New.
type Options struct {
	writer   io.Writer
	logLevel string
	pretty   bool
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions logs INFO and above as pretty console output on stderr.
func DefaultOptions() *Options {
	return &Options{
		writer:   os.Stderr,
		logLevel: "INFO",
		pretty:   true,
	}
}

// WithWriter sets the output writer.
func WithWriter(w io.Writer) Option {
	return func(o *Options) {
		o.writer = w
	}
}

// WithLevel sets the minimum level (DEBUG, INFO, WARN, ERROR).
func WithLevel(level string) Option {
	return func(o *Options) {
		o.logLevel = level
	}
}

// WithJSON switches from console formatting to one JSON object per line.
func WithJSON() Option {
	return func(o *Options) {
		o.pretty = false
	}
}

// New creates a zerolog-backed logger for service.
func New(service string, options ...Option) Logger {
	return NewZeroLogger(service, options...)
}
