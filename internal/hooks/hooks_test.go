package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macpack/internal/model"
)

// The tests stick to shell builtins (echo, printf, false, exit) so they run
// entirely inside the embedded interpreter without touching host binaries.

func TestRun_WritesRelativeToDir(t *testing.T) {
	dir := t.TempDir()

	err := Run(context.Background(), PreBuild, []string{
		"echo hello > out.txt",
	}, Options{Dir: dir})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestRun_StateCarriesAcrossLines(t *testing.T) {
	dir := t.TempDir()

	err := Run(context.Background(), PreBuild, []string{
		"GREETING=hi",
		`printf '%s' "$GREETING" > out.txt`,
	}, Options{Dir: dir})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestRun_FailFast(t *testing.T) {
	dir := t.TempDir()

	err := Run(context.Background(), PostBuild, []string{
		"false",
		"echo should-not-run > marker.txt",
	}, Options{Dir: dir})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitPackaging, cliErr.Code)
	assert.Contains(t, cliErr.Message, PostBuild)
	assert.Contains(t, cliErr.Message, "line 1")

	assert.NoFileExists(t, filepath.Join(dir, "marker.txt"),
		"lines after a failure must not run")
}

func TestRun_ExitStopsHookCleanly(t *testing.T) {
	dir := t.TempDir()

	err := Run(context.Background(), PreBuild, []string{
		"exit 0",
		"echo should-not-run > marker.txt",
	}, Options{Dir: dir})
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "marker.txt"))
}

func TestRun_EnvPassesThrough(t *testing.T) {
	dir := t.TempDir()
	env := append(os.Environ(), "MACPACK_HOOK_VALUE=42")

	err := Run(context.Background(), PreBuild, []string{
		`printf '%s' "$MACPACK_HOOK_VALUE" > env.txt`,
	}, Options{Dir: dir, Env: env})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "env.txt"))
	require.NoError(t, err)
	assert.Equal(t, "42", string(data))
}

func TestRun_ParseError(t *testing.T) {
	err := Run(context.Background(), PreBuild, []string{
		"if then fi",
	}, Options{Dir: t.TempDir()})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitPackaging, cliErr.Code)
	assert.Contains(t, cliErr.Message, "not valid shell")
}

func TestRun_SkipsBlankLines(t *testing.T) {
	err := Run(context.Background(), PreBuild, []string{"", "   "}, Options{Dir: t.TempDir()})
	assert.NoError(t, err)
}

func TestRun_NoLinesIsNoop(t *testing.T) {
	assert.NoError(t, Run(context.Background(), PreBuild, nil, Options{Dir: t.TempDir()}))
}
