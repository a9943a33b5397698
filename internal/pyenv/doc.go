// Package pyenv provides the Python environment layer: interpreter
// resolution, build virtualenv provisioning and the pip operations that
// populate it.
//
// All Python operations shell out to the interpreter binary (python -m
// venv, python -m pip) rather than reimplementing any packaging logic.
// "Activation" is never a sourced shell script: the venv binds itself
// to subprocesses through an environment constructed by Environ
// (VIRTUAL_ENV set, the venv's bin directory first on PATH, PYTHONHOME
// dropped) plus direct paths to the venv's own tools.
//
// Failures carry the exit class of the pipeline step they belong to:
// provisioning maps to environment creation, the consistency check to
// activation, every pip operation to dependency installation.
package pyenv
