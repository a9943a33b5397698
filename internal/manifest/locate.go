package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"macpack/internal/model"
)

// manifestNames lists the accepted manifest filenames under
// packaging/macos, in priority order.
var manifestNames = []string{
	"macpack.yml",
	"macpack.yaml",
	"macpack.jsonc",
	"macpack.json",
}

// Project is the resolved execution context shared by every command.
type Project struct {
	// Root is the absolute working root: two directory levels above
	// the anchor's directory.
	Root string

	// AnchorPath is the file that fixed Root — the manifest, or a bare
	// PyInstaller spec file when no manifest exists.
	AnchorPath string

	// Manifest is the loaded configuration with defaults applied.
	Manifest *Manifest
}

// Locate walks from startDir toward the filesystem root looking for a
// packaging anchor: packaging/macos/<manifest> first, then any
// packaging/macos/*.spec. The first directory level with a hit wins.
func Locate(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitPathResolution,
			fmt.Sprintf("cannot resolve start directory %s", startDir),
			err,
		)
	}

	for {
		anchorDir := filepath.Join(dir, "packaging", "macos")

		for _, name := range manifestNames {
			candidate := filepath.Join(anchorDir, name)
			if info, statErr := os.Stat(candidate); statErr == nil && info.Mode().IsRegular() {
				return candidate, nil
			}
		}

		if specs, _ := filepath.Glob(filepath.Join(anchorDir, "*.spec")); len(specs) > 0 {
			sort.Strings(specs)
			return specs[0], nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", model.NewCLIError(
		model.ExitPathResolution,
		fmt.Sprintf("no packaging anchor found: searched packaging/macos/{%s} and packaging/macos/*.spec from %s upward",
			strings.Join(manifestNames, ","), startDir),
	)
}

// RootFromAnchor returns the working root for an anchor path: two
// directory levels above the anchor's directory. For an anchor at
// <root>/packaging/macos/X this is <root>, wherever the caller stood
// when the anchor was found.
func RootFromAnchor(anchorPath string) string {
	return filepath.Dir(filepath.Dir(filepath.Dir(anchorPath)))
}

// isManifestName reports whether path names a macpack manifest rather
// than a bare spec file.
func isManifestName(path string) bool {
	base := filepath.Base(path)
	for _, name := range manifestNames {
		if base == name {
			return true
		}
	}
	return false
}

// Resolve builds the full project context from startDir: locate the
// anchor, derive the root, load the manifest (pure defaults when the
// anchor is a bare spec file), apply defaults and validate.
func Resolve(startDir string) (*Project, error) {
	anchor, err := Locate(startDir)
	if err != nil {
		return nil, err
	}
	root := RootFromAnchor(anchor)

	var m *Manifest
	if isManifestName(anchor) {
		m, err = Load(anchor)
		if err != nil {
			if cliErr, ok := err.(*model.CLIError); ok {
				return nil, cliErr
			}
			return nil, model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("failed to load manifest %s", anchor), err)
		}
	} else {
		rel, relErr := filepath.Rel(root, anchor)
		if relErr != nil {
			return nil, model.WrapCLIError(model.ExitPathResolution,
				fmt.Sprintf("cannot relativize anchor %s", anchor), relErr)
		}
		m = &Manifest{Spec: rel}
	}

	m.ApplyDefaults(root)

	if verrs := Validate(m); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i := range verrs {
			msgs[i] = verrs[i].Error()
		}
		return nil, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid manifest %s: %s", anchor, strings.Join(msgs, "; ")))
	}

	return &Project{Root: root, AnchorPath: anchor, Manifest: m}, nil
}
