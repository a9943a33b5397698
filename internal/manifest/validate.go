// validate.go provides consistency checks for loaded manifests. The
// checks run after ApplyDefaults, so every field can be assumed filled.
package manifest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"macpack/internal/model"
)

// ValidationError represents a specific validation failure in a manifest.
type ValidationError struct {
	// Field is the manifest field path that failed (e.g. "verify.port").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// versionRegex loosely matches bundler version pins ("6.11.1",
// "6.0.0rc2"). The manifest field carries a version only; pip operators
// like "==" or ">=" belong to macpack, not the manifest.
var versionRegex = regexp.MustCompile(`^[0-9][A-Za-z0-9._+!-]*$`)

// Validate performs consistency checks on a defaulted manifest and
// returns a list of validation errors (empty list = valid).
//
// Checks performed:
//   - the app name is usable as a bundle and executable name
//   - every extras entry is a valid optional-dependency group name
//   - all path fields are relative and stay inside the root
//   - the verify endpoint has a valid port and non-negative timeout
//   - a PyInstaller pin, if present, is a plain version string
func Validate(m *Manifest) []ValidationError {
	var errs []ValidationError

	if err := model.ValidateAppName(m.Name); err != nil {
		errs = append(errs, ValidationError{Field: "name", Message: err.Error()})
	}

	for _, extra := range m.Extras {
		if err := model.ValidateExtraName(extra); err != nil {
			errs = append(errs, ValidationError{Field: "extras", Message: err.Error()})
		}
	}

	pathFields := []struct {
		field string
		value string
	}{
		{"spec", m.Spec},
		{"venv", m.Venv},
		{"dist", m.Dist},
		{"work", m.Work},
	}
	for _, pf := range pathFields {
		if escapesRoot(pf.value) {
			errs = append(errs, ValidationError{
				Field:   pf.field,
				Message: fmt.Sprintf("path %q must be relative and stay inside the project root", pf.value),
			})
		}
	}

	if m.Verify.Port < 0 || m.Verify.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "verify.port",
			Message: fmt.Sprintf("port %d out of range (0-65535)", m.Verify.Port),
		})
	}
	if m.Verify.TimeoutSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "verify.timeout_seconds",
			Message: "timeout must not be negative",
		})
	}

	if m.PyInstaller != "" && !versionRegex.MatchString(m.PyInstaller) {
		errs = append(errs, ValidationError{
			Field:   "pyinstaller",
			Message: fmt.Sprintf("%q is not a plain version string", m.PyInstaller),
		})
	}

	return errs
}

// escapesRoot reports whether a manifest path field would leave the
// project root: absolute paths and ".."-escaping relatives are refused.
func escapesRoot(rel string) bool {
	if rel == "" || filepath.IsAbs(rel) {
		return true
	}
	clean := filepath.Clean(rel)
	return clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))
}
