// Package bundler drives PyInstaller and codesign: the packaging step
// that turns the installed project into a macOS .app bundle, the
// provenance sidecar written next to it, and the signing follow-up.
//
// PyInstaller and codesign are opaque external commands. This package
// sequences them, checks their preconditions (spec file present) and
// postconditions (bundle directory produced), and classifies failures;
// it never reimplements any bundling or signing logic.
//
// The sidecar is the only state macpack keeps between runs, and it
// travels with the artifact itself: <bundle>.macpack.json holds the
// serialized BuildReport of the run that produced the bundle.
package bundler
