// Package cli — init.go implements the "macpack init" command.
//
// The init command scaffolds the packaging anchor for a project that has
// none yet: packaging/macos/macpack.yml plus a starter PyInstaller spec
// file. The generated manifest carries the defaults explicitly so users
// can see what is tunable, and the spec file is a minimal onedir/BUNDLE
// layout pointed at the project's entry script.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"macpack/internal/manifest"
	"macpack/internal/model"
)

// initFlags holds the flag values for the init command.
type initFlags struct {
	name  string // --name: app bundle name (default: directory name)
	entry string // --entry: entry script, relative to the project root
	force bool   // --force: overwrite existing scaffold files
}

// NewInitCommand creates the "init" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold the packaging configuration",
		Long: `Create packaging/macos/macpack.yml and a starter PyInstaller spec
file in the current directory, which becomes the project root.

Existing files are never overwritten unless --force is given.

Examples:
  macpack init
  macpack init --name WhisperLiveKit --entry whisperlivekit/gui_app.py
  macpack init --force`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "App bundle name (default: current directory name)")
	cmd.Flags().StringVar(&flags.entry, "entry", "main.py", "Entry script, relative to the project root")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Overwrite existing files")

	return cmd
}

// runInit writes the manifest and spec scaffold under packaging/macos.
func runInit(cmd *cobra.Command, flags *initFlags) error {
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	name := flags.name
	if name == "" {
		name = sanitizeAppName(filepath.Base(cwd))
	}
	if err := model.ValidateAppName(name); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid app name", err)
	}

	anchorDir := filepath.Join(cwd, "packaging", "macos")
	manifestPath := filepath.Join(anchorDir, "macpack.yml")
	specPath := filepath.Join(anchorDir, name+".spec")

	// Refuse to clobber an existing scaffold unless --force is given.
	if !flags.force {
		for _, p := range []string{manifestPath, specPath} {
			if _, statErr := os.Stat(p); statErr == nil {
				return model.NewCLIError(model.ExitGeneralError,
					fmt.Sprintf("%s already exists (use --force to overwrite)", p))
			}
		}
	}

	if err := os.MkdirAll(anchorDir, 0o755); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to create %s", anchorDir), err)
	}

	manifestData, err := renderManifest(name)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to render manifest", err)
	}
	if err := os.WriteFile(manifestPath, manifestData, 0o644); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to write %s", manifestPath), err)
	}

	if err := os.WriteFile(specPath, renderSpec(name, flags.entry), 0o644); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to write %s", specPath), err)
	}

	printInitResult(cmd.OutOrStdout(), name, cwd, []string{manifestPath, specPath})
	return nil
}

// sanitizeAppName converts a directory name to a valid app bundle name.
// Invalid characters are dropped and separator runs trimmed.
func sanitizeAppName(dir string) string {
	var result strings.Builder
	for _, r := range dir {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-' {
			result.WriteRune(r)
		}
	}
	name := strings.Trim(result.String(), "._-")

	if name == "" {
		name = "app"
	}
	return name
}

// renderManifest serializes the starter manifest with yaml.v3 and
// prepends a header comment plus a commented block of optional settings.
func renderManifest(name string) ([]byte, error) {
	scaffold := manifest.Manifest{
		Name:   name,
		Spec:   path.Join("packaging", "macos", name+".spec"),
		Extras: append([]string(nil), manifest.DefaultExtras...),
	}

	yamlBytes, err := yaml.Marshal(&scaffold)
	if err != nil {
		return nil, err
	}

	header := fmt.Sprintf("# macpack manifest for %s\n# Paths are relative to the project root.\n", name)
	footer := `
# Optional settings:
# python: /usr/local/bin/python3.12
# pyinstaller: "6.11"
# venv: .venv-build
# dist: dist
# work: build
# hooks:
#   pre_build:
#     - python -m compileall .
# verify:
#   host: 127.0.0.1
#   port: 8000
#   timeout_seconds: 30
`

	return []byte(header + string(yamlBytes) + footer), nil
}

// specTemplate is the starter PyInstaller spec. Analysis paths are
// relative to the spec file, which sits two directory levels below the
// project root, hence the ../../ prefix on the entry script.
const specTemplate = `# -*- mode: python ; coding: utf-8 -*-
# PyInstaller spec for %[1]s.

a = Analysis(
    ['../../%[2]s'],
    pathex=[],
    binaries=[],
    datas=[],
    hiddenimports=[],
    hookspath=[],
    runtime_hooks=[],
    excludes=[],
    noarchive=False,
)
pyz = PYZ(a.pure)

exe = EXE(
    pyz,
    a.scripts,
    [],
    exclude_binaries=True,
    name='%[1]s',
    debug=False,
    strip=False,
    upx=False,
    console=False,
)

coll = COLLECT(
    exe,
    a.binaries,
    a.datas,
    strip=False,
    upx=False,
    name='%[1]s',
)

app = BUNDLE(
    coll,
    name='%[1]s.app',
    icon=None,
    bundle_identifier=None,
)
`

// renderSpec fills the spec template with the app name and entry script.
func renderSpec(name, entry string) []byte {
	return []byte(fmt.Sprintf(specTemplate, name, path.Clean(filepath.ToSlash(entry))))
}

// printInitResult outputs the init result in text or JSON format.
func printInitResult(out io.Writer, name, root string, created []string) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"name":    name,
			"root":    root,
			"created": created,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	fmt.Fprintf(out, "Initialized macpack project %q\n", name)
	for _, p := range created {
		fmt.Fprintf(out, "  created %s\n", p)
	}
	fmt.Fprintln(out, "\nNext: review the spec file, then run \"macpack build\".")
}
