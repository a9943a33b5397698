// Package cli — build.go implements the "macpack build" command.
//
// The build command is the primary user-facing operation. It reproduces the
// packaging pipeline end to end: provision an isolated virtualenv, install
// the project and PyInstaller into it, then drive PyInstaller with the
// project's spec file to produce the .app bundle.
//
// Orchestration steps:
//  1. Locate the project root via the packaging anchor and load the manifest
//  2. Apply command-line overrides on top of the manifest
//  3. Pick the provisioning Python interpreter
//  4. Create the build virtualenv and validate its layout
//  5. Upgrade pip/wheel, install the project in editable mode with extras
//  6. Install PyInstaller
//  7. Run pre_build hooks inside the activated environment
//  8. Invoke PyInstaller and confirm the bundle exists
//  9. Run post_build hooks, record provenance, print the advisory
//
// Any failing step aborts the build; later steps never run after a failure.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"macpack/internal/bundler"
	"macpack/internal/hooks"
	"macpack/internal/logging"
	"macpack/internal/manifest"
	"macpack/internal/model"
	"macpack/internal/pyenv"
)

// totalPhases is the number of user-visible progress phases. The nine
// pipeline steps collapse into four lines, matching the historical output.
const totalPhases = 4

// buildFlags holds the flag values for the build command.
// These are bound to cobra flags in NewBuildCommand.
type buildFlags struct {
	python    string   // --python: interpreter that provisions the virtualenv
	spec      string   // --spec: PyInstaller spec file, relative to the root
	venv      string   // --venv: virtualenv directory, relative to the root
	extras    []string // --extras: optional-dependency groups for the install
	skipHooks bool     // --skip-hooks: do not run pre_build/post_build hooks
}

// NewBuildCommand creates the "build" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewBuildCommand() *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the macOS app bundle",
		Long: `Build the project's macOS .app bundle with PyInstaller.

The command provisions a dedicated build virtualenv, installs the project
in editable mode together with its GUI extras and PyInstaller, and runs
PyInstaller against the spec file under packaging/macos.

The interpreter that seeds the virtualenv is chosen in this order:
--python flag, PYTHON_BIN environment variable, the manifest's python
field, then python3 from PATH.

Examples:
  macpack build
  macpack build --python /opt/python/3.12/bin/python3
  macpack build --extras gui,dev
  macpack build --skip-hooks --json`,

		// No positional arguments: everything comes from the manifest
		// and flags.
		Args: cobra.NoArgs,

		// RunE is used instead of Run so we can return errors. Cobra will
		// pass them to the Execute error handler in root.go.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().StringVar(&flags.python, "python", "", "Python interpreter for the build virtualenv (default: PYTHON_BIN or python3)")
	cmd.Flags().StringVar(&flags.spec, "spec", "", "PyInstaller spec file, relative to the project root")
	cmd.Flags().StringVar(&flags.venv, "venv", "", "Virtualenv directory, relative to the project root")
	cmd.Flags().StringSliceVar(&flags.extras, "extras", nil, "Optional-dependency groups to install (default: gui)")
	cmd.Flags().BoolVar(&flags.skipHooks, "skip-hooks", false, "Skip pre_build and post_build hooks")

	return cmd
}

// runBuild is the main orchestration function for the build command.
// It coordinates all the steps needed to produce the app bundle.
func runBuild(cmd *cobra.Command, flags *buildFlags) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)
	started := time.Now()

	// Step 1: Locate the project root and load the manifest.
	proj, err := resolveProject()
	if err != nil {
		return err // resolveProject already returns CLIError
	}
	m := proj.Manifest
	logger.Debug().
		Str("root", proj.Root).
		Str("anchor", proj.AnchorPath).
		Msg("project resolved")

	// Step 2: Apply flag overrides on top of the manifest, then re-check
	// the result so overrides obey the same rules as manifest values.
	if flags.spec != "" {
		m.Spec = flags.spec
	}
	if flags.venv != "" {
		m.Venv = flags.venv
	}
	if cmd.Flags().Changed("extras") {
		m.Extras = flags.extras
	}
	if verrs := manifest.Validate(m); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i := range verrs {
			msgs[i] = verrs[i].Error()
		}
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid build configuration: %s", strings.Join(msgs, "; ")))
	}

	// Step 3: Pick the provisioning interpreter. This happens before any
	// subprocess runs so a bad PYTHON_BIN fails without side effects.
	interpreter, err := pyenv.ResolveInterpreter(flags.python, m.Python)
	if err != nil {
		return err
	}

	// Output wiring: in JSON mode stdout carries only the report document,
	// so progress and tool output shift to stderr.
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	progressOut, toolOut := out, out
	if jsonOutput {
		progressOut, toolOut = errOut, errOut
	}
	printer := NewPrinter(progressOut, errOut, quiet)
	runner := pyenv.NewRunner(toolOut, errOut)

	version, err := pyenv.InterpreterVersion(ctx, runner, interpreter)
	if err != nil {
		return err
	}
	logger.Debug().
		Str("interpreter", interpreter).
		Str("version", version).
		Msg("interpreter selected")

	report := model.NewBuildReport(m.Name)
	report.Root = proj.Root
	report.Python = interpreter
	report.PythonVersion = version
	report.SpecFile = m.SpecPath(proj.Root)
	report.VenvDir = m.VenvPath(proj.Root)

	// Step 4: Create the build virtualenv and validate its layout.
	// python -m venv is idempotent, so an existing directory is reused.
	printer.Phase(1, totalPhases, "Creating build virtualenv")
	venv := pyenv.NewVenv(proj.Root, m.VenvPath(proj.Root), runner)
	phaseStart := time.Now()
	if err := venv.Create(ctx, interpreter); err != nil {
		return err
	}
	if err := venv.Validate(); err != nil {
		return err
	}
	report.AddPhase("venv", time.Since(phaseStart))

	// Step 5: Upgrade the installer tooling, then install the project in
	// editable mode with its extras.
	printer.Phase(2, totalPhases, "Installing project dependencies")
	phaseStart = time.Now()
	if err := venv.UpgradeTooling(ctx); err != nil {
		return err
	}
	if err := venv.InstallProject(ctx, m.Extras); err != nil {
		return err
	}
	report.AddPhase("deps", time.Since(phaseStart))

	// Step 6: Install PyInstaller into the same environment.
	printer.Phase(3, totalPhases, "Installing PyInstaller")
	phaseStart = time.Now()
	if err := venv.InstallPyInstaller(ctx, m.PyInstaller); err != nil {
		return err
	}
	report.AddPhase("pyinstaller", time.Since(phaseStart))

	// Step 7: pre_build hooks run with the environment fully installed
	// but before PyInstaller, so they can generate assets the spec picks up.
	if !flags.skipHooks {
		if err := runHook(ctx, hooks.PreBuild, m.Hooks.PreBuild, proj.Root, venv, toolOut, errOut); err != nil {
			return err
		}
	}

	// Step 8: Invoke PyInstaller with the spec file and confirm the
	// bundle landed where the manifest says it should.
	printer.Phase(4, totalPhases, "Building macOS app bundle")
	phaseStart = time.Now()
	bundlePath, err := bundler.Build(ctx, venv, bundler.Options{
		SpecPath:   m.SpecPath(proj.Root),
		DistDir:    m.DistPath(proj.Root),
		WorkDir:    m.WorkPath(proj.Root),
		BundleName: m.Name,
	})
	if err != nil {
		return err
	}
	report.AddPhase("bundle", time.Since(phaseStart))
	report.BundlePath = bundlePath

	if !flags.skipHooks {
		if err := runHook(ctx, hooks.PostBuild, m.Hooks.PostBuild, proj.Root, venv, toolOut, errOut); err != nil {
			return err
		}
	}

	// Step 9: Record build provenance next to the bundle. The build has
	// already succeeded at this point, so a write failure only warns.
	report.Duration = time.Since(started)
	if err := bundler.WriteSidecar(bundlePath, report); err != nil {
		printer.Warnf("could not write build report: %v", err)
		logger.Warn().Err(err).Msg("sidecar write failed")
	}

	printBuildResult(out, printer, report)
	return nil
}

// runHook executes one hook inside the activated build environment:
// project root as working directory, virtualenv variables in the
// environment.
func runHook(ctx context.Context, name string, lines []string, root string, venv *pyenv.Venv, stdout, stderr io.Writer) error {
	return hooks.Run(ctx, name, lines, hooks.Options{
		Dir:    root,
		Env:    venv.Environ(),
		Stdout: stdout,
		Stderr: stderr,
	})
}

// printBuildResult outputs the build result in text or JSON format.
// Text mode prints the advisory lines; JSON mode emits the full report.
func printBuildResult(out io.Writer, printer *Printer, report *model.BuildReport) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}
	printer.Advisory(report.BundlePath)
}
