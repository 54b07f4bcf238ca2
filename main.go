package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Process exit statuses.
const (
	exitOK      = 0
	exitError   = 1
	exitNoMatch = 2
)

// errNoMatch is returned by lookup commands when the provider answered but
// the data did not match or the lookup was rejected. The result has already
// been printed, so main only sets the exit status.
var errNoMatch = errors.New("no match")

func main() {
	ctx := interruptContext(context.Background(), bootstrapLogger(), exitNow)

	err := newRootCmd().ExecuteContext(ctx)
	os.Exit(reportError(os.Stderr, err))
}

// reportError prints err for the user and returns the process exit status.
func reportError(w io.Writer, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errNoMatch):
		return exitNoMatch
	default:
		fmt.Fprintf(w, "Error: %v\n", err)

		return exitError
	}
}
