// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// recordingTB captures Fatalf instead of stopping the goroutine.
type recordingTB struct {
	failed  bool
	message string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
}

func TestRequireReceive(t *testing.T) {
	t.Parallel()

	ch := make(chan string, 1)
	ch <- "Ana"
	if got := RequireReceive(t, ch, time.Second, "speaker"); got != "Ana" {
		t.Errorf("got %q, want Ana", got)
	}
}

func TestRequireClosed(t *testing.T) {
	t.Parallel()

	ch := make(chan struct{})
	close(ch)
	RequireClosed(t, ch, time.Second, "closed channel")
}

func TestRequireClosedTimeout(t *testing.T) {
	t.Parallel()

	recorder := &recordingTB{}
	RequireClosed(recorder, make(chan struct{}), 10*time.Millisecond, "turn %d", 3)
	if !recorder.failed {
		t.Fatal("expected failure on a channel that never closes")
	}
	if want := "timed out after 10ms waiting for channel close: turn 3"; recorder.message != want {
		t.Errorf("message = %q, want %q", recorder.message, want)
	}
}

func TestFormatMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []any
		want string
	}{
		{nil, "(no message)"},
		{[]any{"stop signal"}, "stop signal"},
		{[]any{"speaker %s", "Ana"}, "speaker Ana"},
		{[]any{42, 7}, "42 7"},
	}
	for _, test := range tests {
		if got := formatMessage(test.args); got != test.want {
			t.Errorf("formatMessage(%v) = %q, want %q", test.args, got, test.want)
		}
	}
}
