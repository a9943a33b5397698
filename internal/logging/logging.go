// Package logging builds the process-wide zerolog logger and carries it
// through context.Context.
//
// Diagnostics always go to stderr: stdout is reserved for command
// output (progress lines, reports, JSON documents). Human runs get the
// console format; --json runs keep the raw structured stream so log
// lines stay machine-parseable alongside the stdout document.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Options configures the root logger.
type Options struct {
	// Verbose lowers the level to debug and renders full error chains.
	Verbose bool

	// Quiet raises the level to error. Verbose wins if both are set.
	Quiet bool

	// JSON keeps the structured stream instead of the console format.
	JSON bool
}

// New constructs the root logger writing to w.
func New(w io.Writer, opts Options) zerolog.Logger {
	// Errors attached with .Err() render as their full wrap chain, with
	// traces when verbose.
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, opts.Verbose)
	}

	level := zerolog.InfoLevel
	switch {
	case opts.Verbose:
		level = zerolog.DebugLevel
	case opts.Quiet:
		level = zerolog.ErrorLevel
	}

	out := w
	if !opts.JSON {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
			NoColor:    noColor(w),
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// noColor disables ANSI colors for non-terminal writers and when the
// NO_COLOR convention is in effect.
func noColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return true
	}
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	return !isatty.IsTerminal(f.Fd())
}

// WithContext returns a copy of ctx carrying the logger.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext returns the logger carried by ctx, or a disabled logger
// if none was attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
