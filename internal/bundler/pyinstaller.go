package bundler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"macpack/internal/model"
	"macpack/internal/pyenv"
)

// Options configures one PyInstaller invocation. All paths are absolute.
type Options struct {
	// SpecPath is the PyInstaller spec file. It must exist before the
	// bundler is invoked.
	SpecPath string

	// DistDir receives the bundle; WorkDir receives scratch files.
	DistDir string
	WorkDir string

	// BundleName is the expected app name: the build must end with
	// <DistDir>/<BundleName>.app on disk to count as a success.
	BundleName string
}

// Build invokes the venv's PyInstaller non-interactively against the
// spec file and returns the produced bundle's path.
//
// Three conditions fail with the packaging class: a missing spec file
// (checked before invoking), a non-zero bundler exit, and a bundler
// that reports success without producing the expected bundle.
func Build(ctx context.Context, venv *pyenv.Venv, opts Options) (string, error) {
	if _, err := os.Stat(opts.SpecPath); err != nil {
		return "", model.WrapCLIError(
			model.ExitPackaging,
			fmt.Sprintf("packaging spec file not found: %s", opts.SpecPath),
			err,
		)
	}

	args := []string{
		"--noconfirm",
		"--distpath", opts.DistDir,
		"--workpath", opts.WorkDir,
		opts.SpecPath,
	}
	if err := venv.Run(ctx, venv.PyInstaller(), args...); err != nil {
		return "", model.WrapCLIError(
			model.ExitPackaging,
			fmt.Sprintf("pyinstaller failed for %s", filepath.Base(opts.SpecPath)),
			err,
		)
	}

	bundle := filepath.Join(opts.DistDir, opts.BundleName+".app")
	if _, err := os.Stat(bundle); err != nil {
		return "", model.WrapCLIError(
			model.ExitPackaging,
			fmt.Sprintf("pyinstaller completed but produced no bundle at %s", bundle),
			err,
		)
	}
	return bundle, nil
}

// LocateBundle returns the bundle path for an app if it exists on disk.
// The error is unclassified; callers wrap it with their own exit class.
func LocateBundle(distDir, appName string) (string, error) {
	bundle := filepath.Join(distDir, appName+".app")
	info, err := os.Stat(bundle)
	if err != nil {
		return "", eris.Wrapf(err, "no bundle at %s (run \"macpack build\" first)", bundle)
	}
	if !info.IsDir() {
		return "", eris.Errorf("%s exists but is not an app bundle directory", bundle)
	}
	return bundle, nil
}

// ExecutablePath returns the bundle's main executable. PyInstaller
// names it after the app, so Contents/MacOS/<name> is tried first; a
// lone file in Contents/MacOS wins otherwise.
func ExecutablePath(bundlePath string) (string, error) {
	name := strings.TrimSuffix(filepath.Base(bundlePath), ".app")
	macosDir := filepath.Join(bundlePath, "Contents", "MacOS")

	candidate := filepath.Join(macosDir, name)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}

	entries, err := os.ReadDir(macosDir)
	if err != nil {
		return "", eris.Wrapf(err, "bundle %s has no Contents/MacOS directory", bundlePath)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	if len(files) != 1 {
		return "", eris.Errorf("cannot identify the executable in %s: expected %s or a single file, found %d entries",
			macosDir, name, len(files))
	}
	return filepath.Join(macosDir, files[0]), nil
}
