// Package cli — printer.go centralizes user-facing progress output.
//
// Progress lines use colorstring markup. Bracket sequences that are not
// color names, such as the "[1/4]" phase counter, pass through untouched,
// so counters and colors coexist on one line. Color is disabled when the
// writer is not a terminal or when NO_COLOR is set, which also keeps the
// output stable under test and in CI logs.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mitchellh/colorstring"

	"macpack/internal/bundler"
)

// Printer writes phase progress and advisory lines for build-style
// commands. It is writer-injectable so command tests can capture output.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	color  colorstring.Colorize
	quiet  bool
}

// NewPrinter creates a Printer. Progress goes to out, warnings to errOut.
// quiet suppresses progress lines but never warnings.
func NewPrinter(out, errOut io.Writer, quiet bool) *Printer {
	return &Printer{
		out:    out,
		errOut: errOut,
		color: colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: !colorEnabled(out),
			Reset:   true,
		},
		quiet: quiet,
	}
}

// colorEnabled reports whether w is an interactive terminal that should
// receive ANSI color codes.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// Phase prints one numbered progress line: "[2/4] Installing project
// dependencies". The counter renders verbatim; only the color tags are
// interpreted.
func (p *Printer) Phase(n, total int, msg string) {
	if p.quiet {
		return
	}
	line := fmt.Sprintf("[cyan][bold][%d/%d][reset] %s", n, total, msg)
	fmt.Fprintln(p.out, p.color.Color(line))
}

// Infof prints a plain informational line.
func (p *Printer) Infof(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Successf prints a highlighted completion line.
func (p *Printer) Successf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(p.out, p.color.Color("[green][bold]  ->[reset] "+msg))
}

// Warnf prints a warning to the error stream. Warnings are shown even in
// quiet mode.
func (p *Printer) Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(p.errOut, p.color.Color("[yellow]warning:[reset] "+msg))
}

// Advisory prints the post-build guidance: where the bundle landed and
// the ad-hoc codesign command to run if Gatekeeper blocks the app.
func (p *Printer) Advisory(bundlePath string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "App bundle created under %s\n", bundlePath)
	fmt.Fprintf(p.out, "If macOS blocks the app, try: %s\n", bundler.AdvisoryCommand(bundlePath))
}
