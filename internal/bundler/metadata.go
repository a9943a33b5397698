// metadata.go persists build provenance on the artifact itself. Every
// successful build writes a sidecar JSON next to the bundle; verify
// reads it back instead of consulting any state file.
package bundler

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"macpack/internal/model"
)

// SidecarSuffix is appended to the bundle path to name its provenance
// record, e.g. dist/Whisper.app.macpack.json.
const SidecarSuffix = ".macpack.json"

// SidecarPath returns the provenance file path for a bundle.
func SidecarPath(bundlePath string) string {
	return bundlePath + SidecarSuffix
}

// WriteSidecar persists the build report next to the bundle.
func WriteSidecar(bundlePath string, report *model.BuildReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encoding build report")
	}
	path := SidecarPath(bundlePath)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "writing sidecar %s", path)
	}
	return nil
}

// ReadSidecar loads the provenance record written by the build that
// produced the bundle. A missing sidecar is an error the caller can
// test with os.IsNotExist via errors.Is.
func ReadSidecar(bundlePath string) (*model.BuildReport, error) {
	path := SidecarPath(bundlePath)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reading sidecar %s", path)
	}
	var report model.BuildReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, eris.Wrapf(err, "parsing sidecar %s", path)
	}
	return &report, nil
}
