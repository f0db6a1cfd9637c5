package main

import (
	"errors"

	"github.com/fcanata061/pbuild/internal/pkgerr"
)

// exitCancelled is returned when a command fails after SIGINT/SIGTERM
// canceled its context, and immediately on a second signal (§6's
// cancellation path; not part of the pipeline error table, so it lives
// outside pkgerr's own numbering).
const exitCancelled = 130

// commandError overrides the exit code pkgerr.ExitCode would otherwise
// produce for a given error kind. Used where the same Kind maps to a
// different code depending on which subcommand raised it (§6: an
// unknown package is exit code 7 on "remove" but 8 on "info").
type commandError struct {
	err  error
	code int
}

func (e *commandError) Error() string { return e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

func withExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &commandError{err: err, code: code}
}

// exitForErr resolves the process exit code for an error returned from
// a subcommand's RunE, per the CLI surface table in §6.
func exitForErr(err error) int {
	var ce *commandError
	if errors.As(err, &ce) {
		return ce.code
	}
	var pe *pkgerr.Error
	if errors.As(err, &pe) {
		return pkgerr.ExitCode(pe.Kind)
	}
	return 1
}
