// sign.go wraps the codesign follow-up. The build itself never signs;
// it only prints the advisory. The sign command runs it for real.
package bundler

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"macpack/internal/model"
	"macpack/internal/pyenv"
)

// AdHocIdentity is the codesign identity for locally-generated,
// unverified signatures.
const AdHocIdentity = "-"

// AdvisoryCommand renders the follow-up command line printed after a
// successful build, for first-run permission issues on macOS.
func AdvisoryCommand(bundlePath string) string {
	return fmt.Sprintf("codesign --force --deep -s - %s", bundlePath)
}

// Sign applies a deep, forced signature to the bundle. An empty
// identity means ad-hoc.
func Sign(ctx context.Context, runner *pyenv.Runner, bundlePath, identity string) error {
	if identity == "" {
		identity = AdHocIdentity
	}

	if _, err := exec.LookPath("codesign"); err != nil {
		return model.WrapCLIError(
			model.ExitSigning,
			"codesign not found (install the Xcode command line tools)",
			err,
		)
	}

	args := []string{"--force", "--deep", "-s", identity, bundlePath}
	if err := runner.Run(ctx, filepath.Dir(bundlePath), nil, "codesign", args...); err != nil {
		return model.WrapCLIError(
			model.ExitSigning,
			fmt.Sprintf("codesign failed for %s", filepath.Base(bundlePath)),
			err,
		)
	}
	return nil
}
