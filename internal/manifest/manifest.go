package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"macpack/internal/model"
)

// Default values reproducing the historical packaging behavior. An
// absent or empty manifest builds exactly like the original procedure.
const (
	// DefaultVenvDir is the virtualenv directory, relative to the root.
	DefaultVenvDir = ".venv-build"

	// DefaultDistDir receives the built bundle.
	DefaultDistDir = "dist"

	// DefaultWorkDir receives PyInstaller's intermediate build files.
	DefaultWorkDir = "build"

	// DefaultVerifyHost and DefaultVerifyPort locate the packaged app's
	// readiness endpoint, the embedded web server it serves its UI from.
	DefaultVerifyHost = "127.0.0.1"
	DefaultVerifyPort = 8000

	// DefaultVerifyTimeout bounds how long verify waits for readiness.
	DefaultVerifyTimeout = 30 * time.Second
)

// DefaultExtras is the optional-dependency group installed alongside
// the project. The GUI group pulls in the windowing toolkit the bundle
// needs at runtime.
var DefaultExtras = []string{"gui"}

// Manifest is the declarative packaging configuration, read from
// packaging/macos/macpack.{yml,yaml,jsonc,json}. All fields are
// optional; see the Default* constants for what empty values mean.
type Manifest struct {
	// Name is the app bundle's base name (the bundle becomes
	// <dist>/<Name>.app). Defaults to the spec file's stem.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Spec is the PyInstaller spec file path, relative to the root.
	// Defaults to packaging/macos/<Name>.spec.
	Spec string `yaml:"spec,omitempty" json:"spec,omitempty"`

	// Venv is the build virtualenv directory, relative to the root.
	Venv string `yaml:"venv,omitempty" json:"venv,omitempty"`

	// Python names the interpreter that provisions the virtualenv.
	// The --python flag and the PYTHON_BIN environment variable both
	// take precedence over this field.
	Python string `yaml:"python,omitempty" json:"python,omitempty"`

	// Extras lists the optional-dependency groups for the editable
	// project install. Empty means DefaultExtras.
	Extras []string `yaml:"extras,omitempty" json:"extras,omitempty"`

	// PyInstaller optionally pins the bundler version (e.g. "6.11.1").
	// Empty installs the latest release.
	PyInstaller string `yaml:"pyinstaller,omitempty" json:"pyinstaller,omitempty"`

	// Dist and Work are PyInstaller's output and scratch directories,
	// relative to the root.
	Dist string `yaml:"dist,omitempty" json:"dist,omitempty"`
	Work string `yaml:"work,omitempty" json:"work,omitempty"`

	// Hooks are shell script lines run around the packaging step.
	Hooks Hooks `yaml:"hooks,omitempty" json:"hooks,omitempty"`

	// Verify configures the post-build smoke test.
	Verify VerifySettings `yaml:"verify,omitempty" json:"verify,omitempty"`
}

// Hooks holds the shell script lines run inside the activated build
// environment. A non-zero exit from any line aborts the build.
type Hooks struct {
	// PreBuild runs after the environment is fully installed, before
	// PyInstaller.
	PreBuild []string `yaml:"pre_build,omitempty" json:"pre_build,omitempty"`

	// PostBuild runs after the bundle exists.
	PostBuild []string `yaml:"post_build,omitempty" json:"post_build,omitempty"`
}

// VerifySettings configures the verify command: where the launched
// bundle announces readiness and how long to wait for it.
type VerifySettings struct {
	// Host and Port form the TCP readiness endpoint.
	Host string `yaml:"host,omitempty" json:"host,omitempty"`
	Port int    `yaml:"port,omitempty" json:"port,omitempty"`

	// Args are extra arguments passed to the bundle's executable.
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`

	// TimeoutSeconds bounds the readiness wait.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// Timeout returns the readiness deadline as a duration.
func (v VerifySettings) Timeout() time.Duration {
	if v.TimeoutSeconds <= 0 {
		return DefaultVerifyTimeout
	}
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// Load reads a manifest file, picking the parser by extension:
// .yml/.yaml via yaml.v3, .json/.jsonc via comment-stripping JSONC.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitPathResolution,
				fmt.Sprintf("manifest not found: %s", path),
				err,
			)
		}
		return nil, eris.Wrapf(err, "reading manifest %s", path)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, eris.Wrapf(err, "parsing manifest %s", path)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
			return nil, eris.Wrapf(err, "parsing manifest %s", path)
		}
	default:
		return nil, eris.Errorf("unsupported manifest format %q (expected .yml, .yaml, .json or .jsonc)", filepath.Ext(path))
	}

	return &m, nil
}

// ApplyDefaults fills empty fields with the historical defaults. Name
// and Spec resolve against each other: a named manifest gets the
// conventional spec path, a bare spec file names the app after itself,
// and when neither is set the first spec file under packaging/macos
// (or, failing that, the root directory's base name) decides both.
func (m *Manifest) ApplyDefaults(root string) {
	if m.Venv == "" {
		m.Venv = DefaultVenvDir
	}
	if m.Dist == "" {
		m.Dist = DefaultDistDir
	}
	if m.Work == "" {
		m.Work = DefaultWorkDir
	}
	if len(m.Extras) == 0 {
		m.Extras = append([]string(nil), DefaultExtras...)
	}
	if m.Verify.Host == "" {
		m.Verify.Host = DefaultVerifyHost
	}
	if m.Verify.Port == 0 {
		m.Verify.Port = DefaultVerifyPort
	}
	if m.Verify.TimeoutSeconds == 0 {
		m.Verify.TimeoutSeconds = int(DefaultVerifyTimeout / time.Second)
	}

	if m.Name == "" && m.Spec != "" {
		m.Name = stem(m.Spec)
	}
	if m.Name == "" {
		if spec, ok := firstSpecFile(root); ok {
			m.Spec = spec
			m.Name = stem(spec)
		} else {
			m.Name = filepath.Base(root)
		}
	}
	if m.Spec == "" {
		m.Spec = filepath.Join("packaging", "macos", m.Name+".spec")
	}
}

// stem returns the path's base name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// firstSpecFile looks under <root>/packaging/macos for spec files and
// returns the lexically first one as a root-relative path.
func firstSpecFile(root string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(root, "packaging", "macos", "*.spec"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	rel, err := filepath.Rel(root, matches[0])
	if err != nil {
		return "", false
	}
	return rel, true
}

// Absolute path accessors. All manifest paths are relative to the
// resolved root; these join them without cleaning away the root prefix.

// SpecPath returns the absolute PyInstaller spec file path.
func (m *Manifest) SpecPath(root string) string {
	return filepath.Join(root, m.Spec)
}

// VenvPath returns the absolute virtualenv directory.
func (m *Manifest) VenvPath(root string) string {
	return filepath.Join(root, m.Venv)
}

// DistPath returns the absolute bundle output directory.
func (m *Manifest) DistPath(root string) string {
	return filepath.Join(root, m.Dist)
}

// WorkPath returns the absolute PyInstaller scratch directory.
func (m *Manifest) WorkPath(root string) string {
	return filepath.Join(root, m.Work)
}

// BundlePath returns the absolute path the built .app lands at.
func (m *Manifest) BundlePath(root string) string {
	return filepath.Join(m.DistPath(root), m.Name+".app")
}
