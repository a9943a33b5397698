// Package cli — doctor.go implements the "macpack doctor" command.
//
// The doctor command checks everything a build needs before anything is
// written to disk: the platform, the project layout, the Python toolchain
// and the signing tool. Each check reports ok, warn or fail; any failing
// check makes the command exit non-zero so CI can gate on it.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"macpack/internal/manifest"
	"macpack/internal/model"
	"macpack/internal/pyenv"
)

// NewDoctorCommand creates the "doctor" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the build environment",
		Long: `Check that the host can build the project's macOS app bundle.

The checks cover the platform, the packaging anchor and manifest, the
Python interpreter and its venv module, the project metadata, the
PyInstaller spec file, and the codesign tool.

A warn result does not fail the command; a fail result does.

Examples:
  macpack doctor
  macpack doctor --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd)
		},
	}

	return cmd
}

// runDoctor executes all environment checks and prints the results.
// It returns a CLIError when at least one check fails.
func runDoctor(cmd *cobra.Command) error {
	ctx := cmd.Context()
	checks := collectChecks(ctx)

	printDoctorResult(cmd.OutOrStdout(), checks)

	failed := 0
	for _, c := range checks {
		if c.Status == model.CheckFail {
			failed++
		}
	}
	if failed > 0 {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("%d of %d checks failed", failed, len(checks)))
	}
	return nil
}

// collectChecks runs every check in a fixed order. Checks that need a
// resolved project are skipped when resolution fails, because their
// results would only repeat the project failure.
func collectChecks(ctx context.Context) []model.Check {
	var checks []model.Check

	// Platform. Building elsewhere works for smoke tests, but the
	// resulting bundle is only meaningful on macOS.
	if runtime.GOOS == "darwin" {
		checks = append(checks, model.Check{Name: "platform", Status: model.CheckOK, Detail: "darwin"})
	} else {
		checks = append(checks, model.Check{
			Name:   "platform",
			Status: model.CheckWarn,
			Detail: fmt.Sprintf("app bundles require macOS (running on %s)", runtime.GOOS),
		})
	}

	// Project anchor and manifest.
	var m *manifest.Manifest
	root := ""
	proj, err := resolveProject()
	if err != nil {
		checks = append(checks, model.Check{Name: "project", Status: model.CheckFail, Detail: err.Error()})
	} else {
		m = proj.Manifest
		root = proj.Root
		checks = append(checks, model.Check{Name: "project", Status: model.CheckOK, Detail: root})
	}

	// Interpreter resolution works without a project: PYTHON_BIN and
	// python3 do not depend on the manifest.
	manifestPython := ""
	if m != nil {
		manifestPython = m.Python
	}
	runner := pyenv.NewRunner(io.Discard, io.Discard)
	interpreter, err := pyenv.ResolveInterpreter("", manifestPython)
	if err != nil {
		checks = append(checks, model.Check{Name: "python", Status: model.CheckFail, Detail: err.Error()})
	} else {
		version, verr := pyenv.InterpreterVersion(ctx, runner, interpreter)
		if verr != nil {
			checks = append(checks, model.Check{Name: "python", Status: model.CheckFail, Detail: verr.Error()})
		} else {
			checks = append(checks, model.Check{
				Name:   "python",
				Status: model.CheckOK,
				Detail: fmt.Sprintf("%s (%s)", interpreter, version),
			})
		}

		// The venv module ships with CPython but is split out by some
		// distro packagings, so probe it explicitly.
		if _, verr := runner.RunOutput(ctx, "", nil, interpreter, "-m", "venv", "--help"); verr != nil {
			checks = append(checks, model.Check{
				Name:   "venv module",
				Status: model.CheckFail,
				Detail: fmt.Sprintf("%s -m venv is not usable", interpreter),
			})
		} else {
			checks = append(checks, model.Check{Name: "venv module", Status: model.CheckOK, Detail: "available"})
		}
	}

	// Project-dependent checks.
	if root != "" {
		checks = append(checks, checkProjectMetadata(root))

		specPath := m.SpecPath(root)
		if info, serr := os.Stat(specPath); serr == nil && info.Mode().IsRegular() {
			checks = append(checks, model.Check{Name: "spec file", Status: model.CheckOK, Detail: specPath})
		} else {
			checks = append(checks, model.Check{
				Name:   "spec file",
				Status: model.CheckFail,
				Detail: fmt.Sprintf("%s not found", specPath),
			})
		}
	}

	// codesign is only needed by the sign command, so its absence warns.
	if path, err := exec.LookPath("codesign"); err == nil {
		checks = append(checks, model.Check{Name: "codesign", Status: model.CheckOK, Detail: path})
	} else {
		checks = append(checks, model.Check{
			Name:   "codesign",
			Status: model.CheckWarn,
			Detail: "codesign not found; the sign command will not work",
		})
	}

	return checks
}

// checkProjectMetadata verifies the root has installable project
// metadata: pip install -e needs a pyproject.toml or setup.py.
func checkProjectMetadata(root string) model.Check {
	for _, name := range []string{"pyproject.toml", "setup.py"} {
		if info, err := os.Stat(filepath.Join(root, name)); err == nil && info.Mode().IsRegular() {
			return model.Check{Name: "project metadata", Status: model.CheckOK, Detail: name}
		}
	}
	return model.Check{
		Name:   "project metadata",
		Status: model.CheckFail,
		Detail: "no pyproject.toml or setup.py at the project root",
	}
}

// printDoctorResult outputs the checks in text or JSON format.
func printDoctorResult(out io.Writer, checks []model.Check) {
	if IsJSONOutput() {
		printDoctorResultJSON(out, checks)
	} else {
		printDoctorResultText(out, checks)
	}
}

// printDoctorResultJSON outputs the checks as structured JSON with an
// aggregate ok field.
func printDoctorResultJSON(out io.Writer, checks []model.Check) {
	type resultJSON struct {
		Checks []model.Check `json:"checks"`
		OK     bool          `json:"ok"`
	}

	result := resultJSON{Checks: checks, OK: true}
	for _, c := range checks {
		if c.Status == model.CheckFail {
			result.OK = false
			break
		}
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(out, string(data))
}

// printDoctorResultText outputs the checks as a text table with aligned
// columns:
//
//	STATUS  CHECK              DETAIL
//	ok      platform           darwin
//	warn    codesign           codesign not found; the sign command will not work
func printDoctorResultText(out io.Writer, checks []model.Check) {
	fmt.Fprintf(out, "%-7s %-18s %s\n", "STATUS", "CHECK", "DETAIL")
	for _, c := range checks {
		fmt.Fprintf(out, "%-7s %-18s %s\n", c.Status.String(), c.Name, c.Detail)
	}
}
