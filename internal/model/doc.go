// Package model defines the domain types and value objects for the
// macpack CLI.
//
// This package contains pure data structures with no behavior beyond
// validation and formatting. Nothing here persists between runs on its
// own: a build's durable traces are its filesystem artifacts (the build
// virtualenv, the app bundle, the provenance sidecar written next to
// the bundle), and the sidecar is simply a serialized BuildReport.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
