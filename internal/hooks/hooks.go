// Package hooks runs user-defined build hook scripts.
//
// Hooks are short shell fragments declared in the manifest (pre_build,
// post_build). They execute through an embedded POSIX shell interpreter
// rather than /bin/sh, so behavior does not depend on the host shell, and
// they inherit the activated build environment of the virtualenv.
package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"macpack/internal/logging"
	"macpack/internal/model"
)

// Hook names as they appear in the manifest.
const (
	PreBuild  = "pre_build"
	PostBuild = "post_build"
)

// Options configures hook execution.
type Options struct {
	// Dir is the working directory for every hook line, normally the
	// project root.
	Dir string

	// Env is the full process environment for the hooks, normally the
	// activated virtualenv environment. Nil means os.Environ().
	Env []string

	// Stdout and Stderr receive hook output. Nil means the process
	// streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the named hook's lines sequentially with `set -e` semantics.
// Interpreter state (variables, cwd) carries across the lines of one hook.
// An `exit 0` stops the hook cleanly; any failure aborts it with a
// packaging error.
func Run(ctx context.Context, name string, lines []string, opts Options) error {
	if len(lines) == 0 {
		return nil
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	env := opts.Env
	if env == nil {
		env = os.Environ()
	}

	runner, err := interp.New(
		interp.Dir(opts.Dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, stdout, stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return model.WrapCLIError(model.ExitPackaging,
			fmt.Sprintf("failed to initialize %s hook interpreter", name), err)
	}

	logger := logging.FromContext(ctx)
	parser := syntax.NewParser()

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		file, err := parser.Parse(strings.NewReader(line), fmt.Sprintf("%s[%d]", name, i))
		if err != nil {
			return model.WrapCLIError(model.ExitPackaging,
				fmt.Sprintf("%s hook line %d is not valid shell", name, i+1),
				eris.Wrap(err, line))
		}

		logger.Debug().
			Str("hook", name).
			Int("line", i+1).
			Msg(line)

		if err := runner.Run(ctx, file); err != nil {
			return model.WrapCLIError(model.ExitPackaging,
				fmt.Sprintf("%s hook failed on line %d: %s", name, i+1, line), err)
		}
		if runner.Exited() {
			logger.Debug().
				Str("hook", name).
				Msg("hook exited early")
			return nil
		}
	}
	return nil
}
