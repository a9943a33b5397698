// Package model defines the domain types for the macpack CLI.
//
// All values in this package are transient, built up during a single
// run. The one record that outlives a run, BuildReport, is persisted
// only as the bundle's sidecar file and reloaded from there.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CheckStatus represents the outcome of a single doctor preflight check.
type CheckStatus string

const (
	// CheckOK indicates the check passed.
	CheckOK CheckStatus = "ok"

	// CheckWarn indicates a non-fatal finding. Warnings alone do not
	// fail the doctor command.
	CheckWarn CheckStatus = "warn"

	// CheckFail indicates a finding that makes a build impossible.
	CheckFail CheckStatus = "fail"
)

// String returns the string representation of CheckStatus.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (s CheckStatus) String() string {
	return string(s)
}

// IsValid checks whether the CheckStatus value is one of the
// predefined valid states.
func (s CheckStatus) IsValid() bool {
	switch s {
	case CheckOK, CheckWarn, CheckFail:
		return true
	default:
		return false
	}
}

// Check is the result of one doctor preflight probe.
type Check struct {
	// Name identifies the probe (e.g. "interpreter", "spec-file").
	Name string `json:"name"`

	// Status is the probe outcome.
	Status CheckStatus `json:"status"`

	// Detail carries the probe's human-readable finding, such as the
	// resolved interpreter path or the reason for a failure.
	Detail string `json:"detail,omitempty"`
}

// nameRegex validates app bundle names: they must start and end with an
// alphanumeric character; dots, underscores and hyphens are allowed in
// between. Spaces are rejected because the name doubles as the bundle's
// executable name under Contents/MacOS.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

// ValidateAppName checks if the given name is usable as an app bundle name.
func ValidateAppName(name string) error {
	if name == "" {
		return fmt.Errorf("app name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid app name %q: must contain only alphanumerics, dots, underscores and hyphens, and start/end with an alphanumeric", name)
	}
	return nil
}

// extraRegex validates optional-dependency group names per the packaging
// ecosystem's naming rules (letters, digits, separated runs of ._-).
var extraRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._-]*[a-zA-Z0-9])?$`)

// ValidateExtraName checks if the given string is a valid optional
// dependency group name for an editable project install.
func ValidateExtraName(extra string) error {
	if extra == "" {
		return fmt.Errorf("extra name must not be empty")
	}
	if !extraRegex.MatchString(extra) {
		return fmt.Errorf("invalid extra name %q: must contain only alphanumerics, dots, underscores and hyphens", extra)
	}
	return nil
}

// FormatExtras renders an extras list into the install-requirement
// suffix form, e.g. ["gui", "dev"] → "[gui,dev]". An empty list yields
// the empty string so the requirement degrades to a plain ".".
func FormatExtras(extras []string) string {
	if len(extras) == 0 {
		return ""
	}
	return "[" + strings.Join(extras, ",") + "]"
}

// PhaseResult records one completed pipeline phase for reporting.
type PhaseResult struct {
	// Name is the phase's short identifier (e.g. "virtualenv").
	Name string `json:"name"`

	// Duration is the wall-clock time the phase took.
	Duration time.Duration `json:"durationNs"`
}

// BuildReport is the provenance record of one build run. On success it
// is printed as the --json document and persisted as the bundle's
// sidecar file, where a later verify run reads it back.
type BuildReport struct {
	// RunID uniquely identifies this build invocation.
	RunID string `json:"runId"`

	// AppName is the bundle's base name without the .app suffix.
	AppName string `json:"appName"`

	// Root is the absolute project root the build ran against.
	Root string `json:"root"`

	// Python is the absolute path of the interpreter that provisioned
	// the virtualenv; PythonVersion is the version string it reported.
	Python        string `json:"python"`
	PythonVersion string `json:"pythonVersion,omitempty"`

	// SpecFile is the absolute path of the PyInstaller spec file the
	// build ran with.
	SpecFile string `json:"specFile"`

	// VenvDir is the absolute path of the build virtualenv.
	VenvDir string `json:"venvDir"`

	// BundlePath is the absolute path of the produced .app directory.
	BundlePath string `json:"bundlePath"`

	// Phases holds per-phase timings in execution order.
	Phases []PhaseResult `json:"phases,omitempty"`

	// StartedAt and Duration frame the whole run.
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"durationNs"`
}

// NewBuildReport creates a report seeded with a fresh run ID and the
// current UTC start time.
func NewBuildReport(appName string) *BuildReport {
	return &BuildReport{
		RunID:     uuid.NewString(),
		AppName:   appName,
		StartedAt: time.Now().UTC(),
	}
}

// AddPhase appends a completed phase timing to the report.
func (r *BuildReport) AddPhase(name string, d time.Duration) {
	r.Phases = append(r.Phases, PhaseResult{Name: name, Duration: d})
}

// ExitCode defines standard CLI exit codes. Each failure class from the
// build pipeline maps to its own code so scripts and CI systems can
// tell the failing step from the process status alone.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates flag misuse, failed doctor checks, or
	// an otherwise unclassified error.
	ExitGeneralError ExitCode = 1

	// ExitPathResolution indicates the project root could not be
	// resolved from the packaging anchor, or a configured path escapes
	// the resolved root.
	ExitPathResolution ExitCode = 2

	// ExitEnvCreation indicates the build virtualenv could not be
	// provisioned: the interpreter is missing, the venv module is
	// unavailable, or the target location is unwritable.
	ExitEnvCreation ExitCode = 3

	// ExitActivation indicates provisioning left an inconsistent
	// virtualenv (missing interpreter or pip inside it).
	ExitActivation ExitCode = 4

	// ExitDependencyInstall indicates a pip step failed: the tooling
	// upgrade, the editable project install, or the bundler install.
	ExitDependencyInstall ExitCode = 5

	// ExitPackaging indicates the packaging step failed: the spec file
	// is missing, PyInstaller exited non-zero, the expected bundle was
	// not produced, or a build hook aborted.
	ExitPackaging ExitCode = 6

	// ExitSigning indicates codesign is unavailable or exited non-zero.
	ExitSigning ExitCode = 7

	// ExitVerify indicates the bundle smoke test failed: the app exited
	// early or never opened its readiness port within the deadline.
	ExitVerify ExitCode = 8
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
