package main

import (
	"errors"

	"github.com/demoseed/treeseed/pkg/nestedset"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
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
	return 1
}

// dbCode classifies an error coming back from a database-backed run: input
// problems found by the indexer are validation failures, everything else is
// a read or write failure depending on whether the run writes.
func dbCode(err error, write bool) int {
	if nestedset.ErrorCode(err) != "" {
		return exitValidation
	}
	if write {
		return exitDBWrite
	}
	return exitDB
}
