// Package cli — clean.go implements the "macpack clean" command.
//
// The clean command removes build byproducts: the build virtualenv and
// PyInstaller's scratch directory by default, plus the dist directory
// (bundle and provenance sidecar included) with --dist. Every target is
// checked to lie strictly inside the project root before removal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"macpack/internal/logging"
	"macpack/internal/model"
)

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	// dist additionally removes the bundle output directory.
	dist bool

	// dryRun prints what would be removed without removing anything.
	dryRun bool
}

// NewCleanCommand creates the "clean" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build byproducts",
		Long: `Remove the build virtualenv and PyInstaller's scratch directory.

With --dist, the bundle output directory is removed as well, including
the built .app and its build report sidecar. Paths outside the project
root are never touched.

Examples:
  macpack clean
  macpack clean --dist
  macpack clean --dry-run`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.dist, "dist", false, "Also remove the bundle output directory")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Show what would be removed without removing it")

	return cmd
}

// runClean resolves the project and removes the selected targets.
func runClean(cmd *cobra.Command, flags *cleanFlags) error {
	logger := logging.FromContext(cmd.Context())

	proj, err := resolveProject()
	if err != nil {
		return err
	}
	m := proj.Manifest

	targets := []string{
		m.VenvPath(proj.Root),
		m.WorkPath(proj.Root),
	}
	if flags.dist {
		targets = append(targets, m.DistPath(proj.Root))
	}

	var removed []string
	for _, target := range targets {
		if _, statErr := os.Stat(target); statErr != nil {
			continue // nothing there, nothing to do
		}

		// Targets must stay strictly inside the project root. Manifest
		// validation already enforces this for configured paths; the
		// check here keeps the invariant local to the destructive call.
		if err := ensureInsideRoot(proj.Root, target); err != nil {
			return err
		}

		if flags.dryRun {
			removed = append(removed, target)
			continue
		}

		logger.Debug().Str("path", target).Msg("removing")
		if err := os.RemoveAll(target); err != nil {
			return model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("failed to remove %s", target), err)
		}
		removed = append(removed, target)
	}

	printCleanResult(cmd.OutOrStdout(), proj.Root, removed, flags.dryRun)
	return nil
}

// ensureInsideRoot rejects targets at or outside the project root.
func ensureInsideRoot(root, target string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return model.NewCLIError(model.ExitPathResolution,
			fmt.Sprintf("refusing to remove %s: outside the project root %s", target, root))
	}
	return nil
}

// printCleanResult outputs the clean result in text or JSON format.
func printCleanResult(out io.Writer, root string, removed []string, dryRun bool) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"root":   root,
			"dryRun": dryRun,
			// Empty slice instead of nil so JSON shows [] rather than null.
			"removed": append([]string{}, removed...),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	if len(removed) == 0 {
		fmt.Fprintln(out, "Nothing to clean.")
		return
	}
	for _, p := range removed {
		if dryRun {
			fmt.Fprintf(out, "would remove %s\n", p)
		} else {
			fmt.Fprintf(out, "removed %s\n", p)
		}
	}
}
