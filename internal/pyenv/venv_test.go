package pyenv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macpack/internal/model"
)

// recordingScript writes the stub's arguments to the file named by the
// MACPACK_TEST_LOG environment variable, one invocation per line.
const recordingScript = `printf '%s\n' "$*" >> "$MACPACK_TEST_LOG"`

// newTestVenv builds a fake but consistent venv tree whose python
// records its invocations, returning the Venv and the log path.
func newTestVenv(t *testing.T) (*Venv, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, ".venv-build")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0o755))

	writeStub(t, filepath.Join(dir, "bin"), "python", recordingScript)
	writeStub(t, filepath.Join(dir, "bin"), "pip", "exit 0")

	logPath := filepath.Join(t.TempDir(), "calls.log")
	t.Setenv("MACPACK_TEST_LOG", logPath)

	return NewVenv(root, dir, NewRunner(nil, nil)), logPath
}

// readCalls returns the recorded stub invocations.
func readCalls(t *testing.T, logPath string) []string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// TestVenv_ToolPaths verifies the venv exposes its own interpreter,
// pip and bundler under the platform bin directory.
func TestVenv_ToolPaths(t *testing.T) {
	v := NewVenv("/proj", "/proj/.venv-build", NewRunner(nil, nil))

	assert.Equal(t, filepath.Join("/proj/.venv-build", "bin", "python"), v.Python())
	assert.Equal(t, filepath.Join("/proj/.venv-build", "bin", "pip"), v.Pip())
	assert.Equal(t, filepath.Join("/proj/.venv-build", "bin", "pyinstaller"), v.PyInstaller())
}

// TestVenv_Create verifies provisioning invokes the interpreter's venv
// module against the venv directory.
func TestVenv_Create(t *testing.T) {
	root := t.TempDir()
	interpreter := writeStub(t, t.TempDir(), "python3", recordingScript)
	logPath := filepath.Join(t.TempDir(), "calls.log")
	t.Setenv("MACPACK_TEST_LOG", logPath)

	v := NewVenv(root, filepath.Join(root, ".venv-build"), NewRunner(nil, nil))
	require.NoError(t, v.Create(context.Background(), interpreter))

	calls := readCalls(t, logPath)
	require.Len(t, calls, 1)
	assert.Equal(t, "-m venv "+filepath.Join(root, ".venv-build"), calls[0])
}

// TestVenv_Create_Failure verifies provisioning failures carry the
// environment creation class and the tool's stderr.
func TestVenv_Create_Failure(t *testing.T) {
	root := t.TempDir()
	interpreter := writeStub(t, t.TempDir(), "python3", `echo "Error: unable to create venv" 1>&2; exit 1`)

	v := NewVenv(root, filepath.Join(root, ".venv-build"), NewRunner(nil, new(strings.Builder)))
	err := v.Create(context.Background(), interpreter)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitEnvCreation, cliErr.Code)
	assert.Contains(t, err.Error(), "unable to create venv")
}

// TestVenv_Validate verifies the activation consistency check.
func TestVenv_Validate(t *testing.T) {
	t.Run("complete venv", func(t *testing.T) {
		v, _ := newTestVenv(t)
		assert.NoError(t, v.Validate())
	})

	t.Run("missing pip", func(t *testing.T) {
		v, _ := newTestVenv(t)
		require.NoError(t, os.Remove(v.Pip()))

		err := v.Validate()
		require.Error(t, err)

		var cliErr *model.CLIError
		require.True(t, errors.As(err, &cliErr))
		assert.Equal(t, model.ExitActivation, cliErr.Code)
	})

	t.Run("non-executable python", func(t *testing.T) {
		v, _ := newTestVenv(t)
		require.NoError(t, os.Chmod(v.Python(), 0o644))

		err := v.Validate()
		require.Error(t, err)

		var cliErr *model.CLIError
		require.True(t, errors.As(err, &cliErr))
		assert.Equal(t, model.ExitActivation, cliErr.Code)
	})
}

// TestVenv_Environ verifies the constructed environment binds the venv
// the way shell activation would.
func TestVenv_Environ(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	t.Setenv("PYTHONHOME", "/somewhere/else")
	t.Setenv("VIRTUAL_ENV", "/stale/venv")
	t.Setenv("MACPACK_KEEP", "kept")

	v := NewVenv("/proj", "/proj/.venv-build", NewRunner(nil, nil))
	env := v.Environ()

	joined := strings.Join(env, "\n")
	assert.Contains(t, env, "PATH="+filepath.Join("/proj/.venv-build", "bin")+string(os.PathListSeparator)+"/usr/bin")
	assert.Contains(t, env, "VIRTUAL_ENV=/proj/.venv-build")
	assert.Contains(t, env, "MACPACK_KEEP=kept")
	assert.NotContains(t, joined, "PYTHONHOME=")
	assert.NotContains(t, joined, "VIRTUAL_ENV=/stale/venv")
}

// TestVenv_PipOperations verifies the exact pip command lines for the
// three install steps.
func TestVenv_PipOperations(t *testing.T) {
	tests := []struct {
		name string
		op   func(*Venv) error
		want string
	}{
		{
			"upgrade tooling",
			func(v *Venv) error { return v.UpgradeTooling(context.Background()) },
			"-m pip install --upgrade pip wheel",
		},
		{
			"install project with extras",
			func(v *Venv) error { return v.InstallProject(context.Background(), []string{"gui"}) },
			"-m pip install -e .[gui]",
		},
		{
			"install project without extras",
			func(v *Venv) error { return v.InstallProject(context.Background(), nil) },
			"-m pip install -e .",
		},
		{
			"install bundler",
			func(v *Venv) error { return v.InstallPyInstaller(context.Background(), "") },
			"-m pip install pyinstaller",
		},
		{
			"install pinned bundler",
			func(v *Venv) error { return v.InstallPyInstaller(context.Background(), "6.11.1") },
			"-m pip install pyinstaller==6.11.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, logPath := newTestVenv(t)
			require.NoError(t, tt.op(v))

			calls := readCalls(t, logPath)
			require.Len(t, calls, 1)
			assert.Equal(t, tt.want, calls[0])
		})
	}
}

// TestVenv_PipFailureClass verifies pip failures map to the dependency
// install class.
func TestVenv_PipFailureClass(t *testing.T) {
	v, _ := newTestVenv(t)
	writeStub(t, filepath.Join(v.Dir, "bin"), "python", `echo "No matching distribution" 1>&2; exit 1`)

	v.runner = NewRunner(nil, new(strings.Builder))
	err := v.InstallProject(context.Background(), []string{"gui"})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitDependencyInstall, cliErr.Code)
	assert.Contains(t, err.Error(), "No matching distribution")
}
