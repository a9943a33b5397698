package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macpack/internal/model"
)

// populateBuildOutputs creates the directories a finished build leaves
// behind: the virtualenv, the PyInstaller work dir and the dist dir with
// a bundle and its sidecar.
func populateBuildOutputs(t *testing.T, root string) (venv, work, dist string) {
	t.Helper()

	venv = filepath.Join(root, ".venv-build")
	work = filepath.Join(root, "build")
	dist = filepath.Join(root, "dist")

	writeFile(t, filepath.Join(venv, "bin", "python"), "stub\n")
	writeFile(t, filepath.Join(work, "Demo", "warn-Demo.txt"), "")
	writeFile(t, filepath.Join(dist, "Demo.app", "Contents", "MacOS", "Demo"), "stub\n")
	writeFile(t, filepath.Join(dist, "Demo.app.macpack.json"), "{}\n")
	return venv, work, dist
}

func TestClean_RemovesVenvAndWorkKeepsDist(t *testing.T) {
	f := newBuildFixture(t, "")
	venv, work, dist := populateBuildOutputs(t, f.root)
	testChdir(t, f.root)

	stdout, _, err := runCommand(t, "clean")
	require.NoError(t, err)

	assert.NoDirExists(t, venv)
	assert.NoDirExists(t, work)
	assert.DirExists(t, dist)
	assert.Contains(t, stdout, "removed ")
}

func TestClean_DistFlagRemovesBundles(t *testing.T) {
	f := newBuildFixture(t, "")
	venv, work, dist := populateBuildOutputs(t, f.root)
	testChdir(t, f.root)

	_, _, err := runCommand(t, "clean", "--dist")
	require.NoError(t, err)

	assert.NoDirExists(t, venv)
	assert.NoDirExists(t, work)
	assert.NoDirExists(t, dist)
}

func TestClean_DryRunTouchesNothing(t *testing.T) {
	f := newBuildFixture(t, "")
	venv, work, dist := populateBuildOutputs(t, f.root)
	testChdir(t, f.root)

	stdout, _, err := runCommand(t, "clean", "--dist", "--dry-run")
	require.NoError(t, err)

	assert.DirExists(t, venv)
	assert.DirExists(t, work)
	assert.DirExists(t, dist)
	assert.Contains(t, stdout, "would remove ")
	assert.NotContains(t, stdout, "removed "+venv)
}

func TestClean_NothingToClean(t *testing.T) {
	f := newBuildFixture(t, "")
	testChdir(t, f.root)

	stdout, _, err := runCommand(t, "clean")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Nothing to clean.")
}

func TestClean_JSONOutput(t *testing.T) {
	f := newBuildFixture(t, "")
	populateBuildOutputs(t, f.root)
	testChdir(t, f.root)

	stdout, _, err := runCommand(t, "--json", "clean", "--dist")
	require.NoError(t, err)

	var result struct {
		Root    string   `json:"root"`
		DryRun  bool     `json:"dryRun"`
		Removed []string `json:"removed"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.False(t, result.DryRun)
	assert.Len(t, result.Removed, 3)
}

func TestEnsureInsideRoot(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, ensureInsideRoot(root, filepath.Join(root, ".venv-build")))
	require.NoError(t, ensureInsideRoot(root, filepath.Join(root, "dist", "Demo.app")))

	cases := []struct {
		name   string
		target string
	}{
		{"root itself", root},
		{"parent", filepath.Dir(root)},
		{"sibling", filepath.Join(filepath.Dir(root), "elsewhere")},
		{"escape via dotdot", filepath.Join(root, "..", "elsewhere")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ensureInsideRoot(root, tc.target)
			requireCLIError(t, err, model.ExitPathResolution)
		})
	}
}

func TestClean_MissingTargetIsSkipped(t *testing.T) {
	f := newBuildFixture(t, "")
	venv := filepath.Join(f.root, ".venv-build")
	writeFile(t, filepath.Join(venv, "bin", "python"), "stub\n")
	testChdir(t, f.root)

	stdout, _, err := runCommand(t, "clean")
	require.NoError(t, err)

	assert.NoDirExists(t, venv)
	assert.NotContains(t, stdout, filepath.Join(f.root, "build"))
	_, statErr := os.Stat(filepath.Join(f.root, "build"))
	assert.True(t, os.IsNotExist(statErr))
}
