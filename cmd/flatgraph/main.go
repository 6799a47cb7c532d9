package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flatgraph:", err)
		os.Exit(exitCode(err))
	}
}

const (
	exitSuccess      = 0
	exitFailure      = 1 // invalid schema or documents
	exitCommandError = 2 // bad flags, config or I/O
)

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func failure(err error) error      { return &exitError{code: exitFailure, err: err} }
func commandError(err error) error { return &exitError{code: exitCommandError, err: err} }

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitCommandError
}
