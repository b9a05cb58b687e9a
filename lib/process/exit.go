// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitInterrupted is the exit code for a run cancelled by a signal,
// following the shell convention of 128+SIGINT.
const ExitInterrupted = 130

// Fatal writes "error: err" to stderr and exits. A cancelled context
// exits with [ExitInterrupted], anything else with 1.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

// report writes err to w and returns the exit code Fatal uses.
func report(w io.Writer, err error) int {
	fmt.Fprintf(w, "error: %v\n", err)
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	return 1
}
