package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macpack/internal/model"
)

// writeFile creates a file with parent directories, failing the test on error.
func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// TestLoad_YAML verifies YAML manifests parse with all field kinds.
func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macpack.yml")
	writeFile(t, path, `
name: WhisperLiveKit
spec: packaging/macos/WhisperLiveKit.spec
venv: .venv-build
python: python3.11
extras: [gui, dev]
pyinstaller: "6.11.1"
hooks:
  pre_build:
    - echo pre
  post_build:
    - echo post
verify:
  host: localhost
  port: 9000
  timeout_seconds: 5
  args: ["--no-browser"]
`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "WhisperLiveKit", m.Name)
	assert.Equal(t, "packaging/macos/WhisperLiveKit.spec", m.Spec)
	assert.Equal(t, "python3.11", m.Python)
	assert.Equal(t, []string{"gui", "dev"}, m.Extras)
	assert.Equal(t, "6.11.1", m.PyInstaller)
	assert.Equal(t, []string{"echo pre"}, m.Hooks.PreBuild)
	assert.Equal(t, []string{"echo post"}, m.Hooks.PostBuild)
	assert.Equal(t, "localhost", m.Verify.Host)
	assert.Equal(t, 9000, m.Verify.Port)
	assert.Equal(t, []string{"--no-browser"}, m.Verify.Args)
}

// TestLoad_JSONC verifies the JSONC flavor: comments and trailing commas
// are stripped before parsing.
func TestLoad_JSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macpack.jsonc")
	writeFile(t, path, `{
	// app identity
	"name": "WhisperLiveKit",
	"extras": ["gui"],
	/* verify block */
	"verify": {
		"port": 8123,
	},
}`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "WhisperLiveKit", m.Name)
	assert.Equal(t, []string{"gui"}, m.Extras)
	assert.Equal(t, 8123, m.Verify.Port)
}

// TestLoad_Missing verifies a missing manifest maps to the path
// resolution exit code.
func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "macpack.yml"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitPathResolution, cliErr.Code)
}

// TestLoad_UnsupportedExtension verifies unknown formats are rejected.
func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macpack.toml")
	writeFile(t, path, "name = 'x'")

	_, err := Load(path)
	assert.Error(t, err)
}

// TestLoad_BadYAML verifies parse failures surface as errors.
func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macpack.yml")
	writeFile(t, path, "name: [unclosed")

	_, err := Load(path)
	assert.Error(t, err)
}

// TestApplyDefaults_Empty verifies a zero manifest reproduces the
// historical packaging behavior.
func TestApplyDefaults_Empty(t *testing.T) {
	root := filepath.Join(t.TempDir(), "myapp")
	require.NoError(t, os.MkdirAll(root, 0o755))

	m := &Manifest{}
	m.ApplyDefaults(root)

	assert.Equal(t, ".venv-build", m.Venv)
	assert.Equal(t, "dist", m.Dist)
	assert.Equal(t, "build", m.Work)
	assert.Equal(t, []string{"gui"}, m.Extras)
	assert.Equal(t, "127.0.0.1", m.Verify.Host)
	assert.Equal(t, 8000, m.Verify.Port)
	assert.Equal(t, 30, m.Verify.TimeoutSeconds)

	// No spec file on disk: the root's base name decides both.
	assert.Equal(t, "myapp", m.Name)
	assert.Equal(t, filepath.Join("packaging", "macos", "myapp.spec"), m.Spec)
}

// TestApplyDefaults_NameFromSpec verifies the app is named after an
// explicitly configured spec file.
func TestApplyDefaults_NameFromSpec(t *testing.T) {
	m := &Manifest{Spec: "packaging/macos/WhisperLiveKit.spec"}
	m.ApplyDefaults(t.TempDir())

	assert.Equal(t, "WhisperLiveKit", m.Name)
}

// TestApplyDefaults_SpecDiscovery verifies an on-disk spec file is
// picked up when the manifest names neither app nor spec.
func TestApplyDefaults_SpecDiscovery(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "packaging", "macos", "Whisper.spec"), "# spec")

	m := &Manifest{}
	m.ApplyDefaults(root)

	assert.Equal(t, "Whisper", m.Name)
	assert.Equal(t, filepath.Join("packaging", "macos", "Whisper.spec"), m.Spec)
}

// TestVerifySettings_Timeout verifies the duration conversion and its
// fallback for unset values.
func TestVerifySettings_Timeout(t *testing.T) {
	assert.Equal(t, 5*time.Second, VerifySettings{TimeoutSeconds: 5}.Timeout())
	assert.Equal(t, DefaultVerifyTimeout, VerifySettings{}.Timeout())
}

// TestPathAccessors verifies the root-joined path helpers.
func TestPathAccessors(t *testing.T) {
	root := "/projects/app"
	m := &Manifest{
		Name: "Whisper",
		Spec: "packaging/macos/Whisper.spec",
		Venv: ".venv-build",
		Dist: "dist",
		Work: "build",
	}

	assert.Equal(t, filepath.Join(root, "packaging", "macos", "Whisper.spec"), m.SpecPath(root))
	assert.Equal(t, filepath.Join(root, ".venv-build"), m.VenvPath(root))
	assert.Equal(t, filepath.Join(root, "dist"), m.DistPath(root))
	assert.Equal(t, filepath.Join(root, "build"), m.WorkPath(root))
	assert.Equal(t, filepath.Join(root, "dist", "Whisper.app"), m.BundlePath(root))
}

// TestValidate exercises the field checks on defaulted manifests.
func TestValidate(t *testing.T) {
	valid := func() *Manifest {
		m := &Manifest{Name: "Whisper"}
		m.ApplyDefaults(t.TempDir())
		return m
	}

	tests := []struct {
		name      string
		mutate    func(*Manifest)
		wantField string
	}{
		{"valid", func(m *Manifest) {}, ""},
		{"bad name", func(m *Manifest) { m.Name = "-bad" }, "name"},
		{"bad extra", func(m *Manifest) { m.Extras = []string{"g ui"} }, "extras"},
		{"absolute venv", func(m *Manifest) { m.Venv = "/tmp/venv" }, "venv"},
		{"escaping spec", func(m *Manifest) { m.Spec = "../other/x.spec" }, "spec"},
		{"escaping dist", func(m *Manifest) { m.Dist = ".." }, "dist"},
		{"port too large", func(m *Manifest) { m.Verify.Port = 70000 }, "verify.port"},
		{"negative timeout", func(m *Manifest) { m.Verify.TimeoutSeconds = -1 }, "verify.timeout_seconds"},
		{"pin with operator", func(m *Manifest) { m.PyInstaller = "==6.11" }, "pyinstaller"},
		{"pin with space", func(m *Manifest) { m.PyInstaller = "6 .11" }, "pyinstaller"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)

			errs := Validate(m)
			if tt.wantField == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.wantField, errs[0].Field)
			assert.NotEmpty(t, errs[0].Error())
		})
	}
}
