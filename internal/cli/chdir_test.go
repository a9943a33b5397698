package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// chdir is a stand-in for testing.T.Chdir (Go 1.24+) so the suite builds
// with older toolchains: it enters dir, updates PWD, and restores the
// original working directory when the test ends.
func testChdir(t *testing.T, dir string) {
	t.Helper()

	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))

	abs := dir
	if !filepath.IsAbs(abs) {
		abs, err = os.Getwd()
		require.NoError(t, err)
	}
	t.Setenv("PWD", abs)

	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			panic("chdir cleanup: " + err.Error())
		}
	})
}
