package pyenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"macpack/internal/model"
)

// Venv represents the build virtualenv rooted inside a project.
//
// Venv is stateless with respect to the filesystem: every method
// inspects or mutates the directory tree when called, so a Venv value
// can be constructed before the virtualenv exists.
type Venv struct {
	// Root is the absolute project root all operations run from.
	Root string

	// Dir is the absolute virtualenv directory.
	Dir string

	runner *Runner
}

// NewVenv creates a Venv handle for the virtualenv at dir, operating
// from the project root.
func NewVenv(root, dir string, runner *Runner) *Venv {
	return &Venv{Root: root, Dir: dir, runner: runner}
}

// binDir returns the venv's executable directory, which the platform's
// venv layout names differently.
func (v *Venv) binDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(v.Dir, "Scripts")
	}
	return filepath.Join(v.Dir, "bin")
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// Python returns the venv's own interpreter path.
func (v *Venv) Python() string {
	return filepath.Join(v.binDir(), exeName("python"))
}

// Pip returns the venv's own pip path.
func (v *Venv) Pip() string {
	return filepath.Join(v.binDir(), exeName("pip"))
}

// Create provisions the virtualenv with the given interpreter. Running
// it against an existing directory refreshes the venv in place.
func (v *Venv) Create(ctx context.Context, interpreter string) error {
	if err := v.runner.Run(ctx, v.Root, nil, interpreter, "-m", "venv", v.Dir); err != nil {
		return model.WrapCLIError(
			model.ExitEnvCreation,
			fmt.Sprintf("failed to create virtualenv at %s", v.Dir),
			err,
		)
	}
	return nil
}

// Validate checks that provisioning left a usable virtualenv: its
// interpreter and pip must both exist and be executable. This is the
// activation consistency check.
func (v *Venv) Validate() error {
	for _, tool := range []string{v.Python(), v.Pip()} {
		info, err := os.Stat(tool)
		if err != nil {
			return model.WrapCLIError(
				model.ExitActivation,
				fmt.Sprintf("virtualenv at %s is inconsistent: missing %s", v.Dir, filepath.Base(tool)),
				err,
			)
		}
		if info.IsDir() || (runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0) {
			return model.NewCLIError(
				model.ExitActivation,
				fmt.Sprintf("virtualenv at %s is inconsistent: %s is not executable", v.Dir, filepath.Base(tool)),
			)
		}
	}
	return nil
}

// Environ returns the process environment with the virtualenv bound
// in: VIRTUAL_ENV set, the venv's bin directory first on PATH, and any
// inherited PYTHONHOME dropped. This is what shell activation scripts
// do, without mutating the process.
func (v *Venv) Environ() []string {
	env := os.Environ()
	out := make([]string, 0, len(env)+2)

	pathSet := false
	for _, kv := range env {
		key, _, _ := cutEnv(kv)
		switch key {
		case "PYTHONHOME", "VIRTUAL_ENV":
			continue
		case "PATH":
			out = append(out, "PATH="+v.binDir()+string(os.PathListSeparator)+kv[len("PATH="):])
			pathSet = true
		default:
			out = append(out, kv)
		}
	}
	if !pathSet {
		out = append(out, "PATH="+v.binDir())
	}
	out = append(out, "VIRTUAL_ENV="+v.Dir)
	return out
}

// cutEnv splits a KEY=value environment entry.
func cutEnv(kv string) (key, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return kv, "", false
}

// Run executes a command inside the activated environment: the project
// root as working directory, Environ as the environment.
func (v *Venv) Run(ctx context.Context, name string, args ...string) error {
	return v.runner.Run(ctx, v.Root, v.Environ(), name, args...)
}

// pip runs a pip subcommand inside the venv via python -m pip, which
// stays correct even when the pip launcher script is stale.
func (v *Venv) pip(ctx context.Context, args ...string) error {
	full := append([]string{"-m", "pip"}, args...)
	return v.runner.Run(ctx, v.Root, v.Environ(), v.Python(), full...)
}

// UpgradeTooling upgrades the venv's package installer and wheel
// support before anything else is installed into it.
func (v *Venv) UpgradeTooling(ctx context.Context) error {
	if err := v.pip(ctx, "install", "--upgrade", "pip", "wheel"); err != nil {
		return model.WrapCLIError(
			model.ExitDependencyInstall,
			"failed to upgrade pip and wheel",
			err,
		)
	}
	return nil
}

// InstallProject installs the project at Root in editable mode with the
// given optional-dependency groups, e.g. pip install -e ".[gui]".
func (v *Venv) InstallProject(ctx context.Context, extras []string) error {
	requirement := "." + model.FormatExtras(extras)
	if err := v.pip(ctx, "install", "-e", requirement); err != nil {
		return model.WrapCLIError(
			model.ExitDependencyInstall,
			fmt.Sprintf("failed to install project %s", requirement),
			err,
		)
	}
	return nil
}

// InstallPyInstaller installs the bundler into the venv, optionally
// pinned to a version.
func (v *Venv) InstallPyInstaller(ctx context.Context, version string) error {
	requirement := "pyinstaller"
	if version != "" {
		requirement += "==" + version
	}
	if err := v.pip(ctx, "install", requirement); err != nil {
		return model.WrapCLIError(
			model.ExitDependencyInstall,
			fmt.Sprintf("failed to install %s", requirement),
			err,
		)
	}
	return nil
}

// PyInstaller returns the bundler executable the install step placed
// into the venv.
func (v *Venv) PyInstaller() string {
	return filepath.Join(v.binDir(), exeName("pyinstaller"))
}
