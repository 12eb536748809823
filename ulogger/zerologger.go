package ulogger

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZLoggerWrapper adapts zerolog.Logger to Logger.
type ZLoggerWrapper struct {
	zerolog.Logger
	service string
	w       io.Writer
	pretty  bool
}

// NewZeroLogger builds a zerolog logger tagged with service.
func NewZeroLogger(service string, options ...Option) *ZLoggerWrapper {
	if service == "" {
		service = "twist"
	}

	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	z := &ZLoggerWrapper{
		Logger:  build(opts.writer, service, opts.pretty),
		service: service,
		w:       opts.writer,
		pretty:  opts.pretty,
	}
	z.SetLogLevel(opts.logLevel)

	return z
}

func build(w io.Writer, service string, pretty bool) zerolog.Logger {
	if !pretty {
		return zerolog.New(w).With().Timestamp().Str("service", service).Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}

	output.FormatLevel = func(i interface{}) string {
		return fmt.Sprintf("| %-6s|", strings.ToUpper(fmt.Sprintf("%s", i)))
	}

	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("| %-6s| %s", service, i)
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// LogLevel returns the zerolog level as an int.
func (z *ZLoggerWrapper) LogLevel() int {
	return int(z.Logger.GetLevel())
}

// SetLogLevel parses level case-insensitively; unknown values select INFO.
func (z *ZLoggerWrapper) SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	z.Logger = z.Logger.Level(lvl)
}

func (z *ZLoggerWrapper) Debugf(format string, args ...interface{}) {
	z.Logger.Debug().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Infof(format string, args ...interface{}) {
	z.Logger.Info().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Warnf(format string, args ...interface{}) {
	z.Logger.Warn().Msgf(format, args...)
}

func (z *ZLoggerWrapper) Errorf(format string, args ...interface{}) {
	z.Logger.Error().Msgf(format, args...)
}

// New returns a logger for another service sharing writer and level.
func (z *ZLoggerWrapper) New(service string) Logger {
	child := &ZLoggerWrapper{
		Logger:  build(z.w, service, z.pretty).Level(z.Logger.GetLevel()),
		service: service,
		w:       z.w,
		pretty:  z.pretty,
	}
	return child
}
