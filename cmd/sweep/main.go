package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess = 0 // Selected model beat the baseline
	ExitSuspect = 1 // Sweep finished but the selected model did not beat the baseline
	ExitError   = 2 // Configuration or runtime error
)

// SuspectResultError indicates that the sweep ran successfully, but the
// selected model failed to beat the trivial baseline.
type SuspectResultError struct {
	Message string
}

func (e *SuspectResultError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var suspectErr *SuspectResultError
		if errors.As(err, &suspectErr) {
			os.Exit(ExitSuspect)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
