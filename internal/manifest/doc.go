// Package manifest resolves the project a command operates on and loads
// its packaging manifest.
//
// The anchor for resolution is a file under packaging/macos/: either a
// macpack manifest (macpack.yml, .yaml, .jsonc or .json) or, absent one,
// a PyInstaller spec file. The working root is always two directory
// levels above the anchor's directory, independent of where the caller
// invoked the command from.
//
// Manifests come in YAML (gopkg.in/yaml.v3) and JSONC
// (github.com/tidwall/jsonc) flavors. Every field is optional; the
// zero manifest reproduces the historical packaging defaults
// (.venv-build, the gui extra, dist/ output, non-interactive bundling).
package manifest
