package pyenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"macpack/internal/model"
)

// EnvPythonBin is the environment variable that overrides which
// interpreter provisions the virtualenv.
const EnvPythonBin = "PYTHON_BIN"

// DefaultInterpreter is the conventional system interpreter name used
// when nothing overrides it.
const DefaultInterpreter = "python3"

// ResolveInterpreter picks the provisioning interpreter and resolves it
// to an absolute path. Precedence: the --python flag value, then
// PYTHON_BIN, then the manifest's python field, then python3.
//
// A name that cannot be found on PATH (or an explicit path that is not
// executable) fails with the environment creation class: provisioning
// is impossible without its tool.
func ResolveInterpreter(flagValue, manifestValue string) (string, error) {
	name := DefaultInterpreter
	switch {
	case flagValue != "":
		name = flagValue
	case os.Getenv(EnvPythonBin) != "":
		name = os.Getenv(EnvPythonBin)
	case manifestValue != "":
		name = manifestValue
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitEnvCreation,
			fmt.Sprintf("python interpreter %q not found", name),
			err,
		)
	}
	return path, nil
}

// InterpreterVersion asks the interpreter for its version string
// (e.g. "Python 3.12.1").
func InterpreterVersion(ctx context.Context, runner *Runner, interpreter string) (string, error) {
	out, err := runner.RunOutput(ctx, "", nil, interpreter, "--version")
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitEnvCreation,
			fmt.Sprintf("interpreter %s is not runnable", interpreter),
			err,
		)
	}
	return strings.TrimSpace(out), nil
}
