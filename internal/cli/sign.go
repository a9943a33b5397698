// Package cli — sign.go implements the "macpack sign" command.
//
// The sign command codesigns a built app bundle. The default identity is
// the ad-hoc "-", which is the documented remedy when Gatekeeper blocks
// an unsigned bundle; a real signing identity can be passed instead.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"macpack/internal/bundler"
	"macpack/internal/manifest"
	"macpack/internal/model"
	"macpack/internal/pyenv"
)

// signFlags holds the flag values for the sign command.
type signFlags struct {
	// identity is the codesign identity; "-" means ad-hoc.
	identity string

	// bundle optionally points at an app bundle directly, bypassing
	// project resolution.
	bundle string
}

// NewSignCommand creates the "sign" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewSignCommand() *cobra.Command {
	flags := &signFlags{}

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Codesign the built app bundle",
		Long: `Codesign the project's built .app bundle.

Without --bundle, the bundle is located through the project manifest
(dist/<Name>.app by default). The default identity "-" produces an
ad-hoc signature, which is enough to clear Gatekeeper's blocked-app
dialog for local use.

Examples:
  macpack sign
  macpack sign --identity "Developer ID Application: Example Corp"
  macpack sign --bundle dist/WhisperLiveKit.app`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSign(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.identity, "identity", "i", bundler.AdHocIdentity, "Codesign identity (\"-\" for ad-hoc)")
	cmd.Flags().StringVarP(&flags.bundle, "bundle", "b", "", "App bundle path (default: located via the manifest)")

	return cmd
}

// runSign locates the bundle and codesigns it.
func runSign(cmd *cobra.Command, flags *signFlags) error {
	ctx := cmd.Context()

	bundlePath, _, err := locateBundleArg(flags.bundle, model.ExitSigning)
	if err != nil {
		return err
	}

	// codesign's own output streams through; in JSON mode it moves to
	// stderr like all tool output.
	toolOut := cmd.OutOrStdout()
	if jsonOutput {
		toolOut = cmd.ErrOrStderr()
	}
	runner := pyenv.NewRunner(toolOut, cmd.ErrOrStderr())

	if err := bundler.Sign(ctx, runner, bundlePath, flags.identity); err != nil {
		return err
	}

	printSignResult(cmd.OutOrStdout(), bundlePath, flags.identity)
	return nil
}

// locateBundleArg resolves the target bundle for sign and verify: an
// explicit --bundle path when given, otherwise the manifest's bundle
// location. Failures carry the caller's exit class. The returned project
// is nil when the bundle was named directly outside any project.
func locateBundleArg(flagValue string, code model.ExitCode) (string, *manifest.Project, error) {
	if flagValue != "" {
		abs, err := filepath.Abs(flagValue)
		if err != nil {
			return "", nil, model.WrapCLIError(code,
				fmt.Sprintf("cannot resolve bundle path %s", flagValue), err)
		}
		if _, err := os.Stat(abs); err != nil {
			return "", nil, model.WrapCLIError(code,
				fmt.Sprintf("app bundle not found at %s", abs), err)
		}
		// Project settings still apply when the command runs inside one.
		proj, _ := resolveProject()
		return abs, proj, nil
	}

	proj, err := resolveProject()
	if err != nil {
		return "", nil, err
	}
	bundlePath, err := bundler.LocateBundle(proj.Manifest.DistPath(proj.Root), proj.Manifest.Name)
	if err != nil {
		return "", nil, model.WrapCLIError(code, "no built app bundle", err)
	}
	return bundlePath, proj, nil
}

// printSignResult outputs the sign result in text or JSON format.
func printSignResult(out io.Writer, bundlePath, identity string) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"bundle":   bundlePath,
			"identity": identity,
			"action":   "signed",
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	if identity == bundler.AdHocIdentity {
		fmt.Fprintf(out, "Signed %s (ad-hoc)\n", bundlePath)
	} else {
		fmt.Fprintf(out, "Signed %s (identity %q)\n", bundlePath, identity)
	}
}
