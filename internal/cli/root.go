// Package cli implements the cobra-based CLI commands for macpack.
//
// Each subcommand (build, doctor, clean, init, sign, verify) is defined in
// its own file within this package. This file defines the root command that
// serves as the parent for all subcommands and handles global flags.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"macpack/internal/logging"
	"macpack/internal/manifest"
	"macpack/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, result documents go to stdout as JSON and progress
	// lines move to stderr.
	jsonOutput bool

	// verbose enables debug-level logging on stderr.
	verbose bool

	// quiet suppresses progress lines and raises the log level to
	// errors only. verbose wins when both are set.
	quiet bool

	// chdir switches the working directory before the command runs,
	// like make -C or git -C.
	chdir string
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action — it only provides
// help text and global flags. Actual functionality is provided by
// subcommands (build, doctor, clean, init, sign, verify).
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "macpack",
		Short: "PyInstaller-based macOS app bundler for Python projects",
		Long: `macpack packages a Python GUI application into a standalone macOS .app
bundle. It provisions an isolated build virtualenv, installs the project
with its GUI extras plus PyInstaller, and drives PyInstaller with the
project's spec file.

Commands locate the project root through the packaging anchor
(packaging/macos/macpack.yml or a PyInstaller spec file two directory
levels below the root), so they work from any directory inside the
project.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// PersistentPreRunE runs before every subcommand: it applies
		// --chdir and installs the logger into the command context so
		// all packages can retrieve it with logging.FromContext.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if chdir != "" {
				if err := os.Chdir(chdir); err != nil {
					return model.WrapCLIError(model.ExitGeneralError,
						fmt.Sprintf("cannot change directory to %s", chdir), err)
				}
			}

			logger := logging.New(cmd.ErrOrStderr(), logging.Options{
				Verbose: verbose,
				Quiet:   quiet,
				JSON:    jsonOutput,
			})
			cmd.SetContext(logging.WithContext(cmd.Context(), logger))
			return nil
		},
	}

	// PersistentFlags are inherited by all subcommands. This is the cobra
	// mechanism for global flags — any flag defined here is automatically
	// available in every subcommand without re-declaration.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVarP(&chdir, "chdir", "C", "", "Run as if started in this directory")

	// Register subcommands. Each subcommand is defined in its own file
	// (build.go, doctor.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewDoctorCommand())
	rootCmd.AddCommand(NewCleanCommand())
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewSignCommand())
	rootCmd.AddCommand(NewVerifyCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// It inspects errors returned by cobra commands and translates them
// into appropriate OS exit codes. CLIError types carry their own
// exit codes; other errors default to exit code 1.
func Execute(ctx context.Context, rootCmd *cobra.Command) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// errors.As rather than a type assertion: command errors may
		// arrive wrapped with call-site context.
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		// Generic error — exit with code 1.
		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// We write to stderr for errors, even in JSON mode, because stdout
		// is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		// Text format: "Error: <message>" on stderr.
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// resolveProject locates the packaging anchor starting from the current
// working directory and loads the project context with defaults applied.
// This is a shared helper used by every command that operates on a project.
func resolveProject() (*manifest.Project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}
	return manifest.Resolve(cwd)
}
