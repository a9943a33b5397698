package pyenv

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"macpack/internal/logging"
)

// errorTailLines is how many trailing output lines a failed command
// contributes to its error message. The full stream has already been
// shown live; the tail only gives the error text its context.
const errorTailLines = 8

// Runner executes external commands for the environment layer.
// Subprocess output streams through Stdout/Stderr as it arrives, so
// pip and the bundler stay as chatty as they are when run by hand.
type Runner struct {
	// Stdout and Stderr receive the subprocess streams. Nil values
	// default to the process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner creates a Runner streaming to the given writers.
func NewRunner(stdout, stderr io.Writer) *Runner {
	return &Runner{Stdout: stdout, Stderr: stderr}
}

func (r *Runner) out() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) errOut() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

// Run executes name with args in dir, streaming output live. env nil
// means inherit the process environment. On a non-zero exit the error
// carries the command line and the tail of its stderr.
func (r *Runner) Run(ctx context.Context, dir string, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}

	tail := &lineTail{max: errorTailLines}
	cmd.Stdout = r.out()
	cmd.Stderr = io.MultiWriter(r.errOut(), tail)

	logging.FromContext(ctx).Debug().
		Str("command", name).
		Strs("args", args).
		Str("dir", dir).
		Msg("running")

	if err := cmd.Run(); err != nil {
		return wrapRunError(err, name, args, tail.String())
	}
	return nil
}

// RunOutput executes name with args in dir and returns its captured
// stdout. Nothing is streamed; this is for quick probes like version
// queries where the output is the result.
func (r *Runner) RunOutput(ctx context.Context, dir string, env []string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}

	var stdout strings.Builder
	tail := &lineTail{max: errorTailLines}
	cmd.Stdout = &stdout
	cmd.Stderr = tail

	if err := cmd.Run(); err != nil {
		return "", wrapRunError(err, name, args, tail.String())
	}
	return stdout.String(), nil
}

// wrapRunError builds the failure error for a command, folding in the
// stderr tail when there is one.
func wrapRunError(err error, name string, args []string, tail string) error {
	cmdline := filepath.Base(name)
	if len(args) > 0 {
		cmdline += " " + strings.Join(args, " ")
	}
	if tail != "" {
		return eris.Wrapf(err, "%s: %s", cmdline, tail)
	}
	return eris.Wrapf(err, "%s", cmdline)
}

// lineTail is an io.Writer keeping only the last few lines written to
// it. Failed subprocesses can emit screens of output; the error message
// needs just the end of it.
type lineTail struct {
	max     int
	partial strings.Builder
	lines   []string
}

func (t *lineTail) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			t.push(t.partial.String())
			t.partial.Reset()
			continue
		}
		t.partial.WriteByte(b)
	}
	return len(p), nil
}

func (t *lineTail) push(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

// String returns the retained tail, including any unterminated final line.
func (t *lineTail) String() string {
	lines := t.lines
	if p := t.partial.String(); p != "" {
		lines = append(append([]string(nil), t.lines...), p)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
