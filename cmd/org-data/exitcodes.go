package main

import "errors"

// Process exit codes. Scripts branch on these; keep them stable.
const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitUsage      = 3
	exitSource     = 4
	exitWrite      = 5
)

var exitKinds = map[int]string{
	exitFailure:    "error",
	exitValidation: "invalid input",
	exitUsage:      "usage",
	exitSource:     "org source unavailable",
	exitWrite:      "write failed",
}

// cliError attaches an exit code to err.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }

func (e *cliError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	var existing *cliError
	if errors.As(err, &existing) {
		// The innermost classification is the most specific one.
		return err
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitFailure
}

// describe prefixes err with the kind of failure its exit code stands for.
func describe(err error) string {
	kind, ok := exitKinds[exitCode(err)]
	if !ok {
		return err.Error()
	}
	return kind + ": " + err.Error()
}
