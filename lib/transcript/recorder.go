// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/ensemble/lib/clock"
	"github.com/bureau-foundation/ensemble/lib/history"
)

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Recorder accumulates every committed message of a run for the
// archive. Unlike History it never evicts.
type Recorder struct {
	clock     clock.Clock
	runID     string
	title     string
	guide     string
	cast      []CastMember
	startedAt time.Time

	mu       sync.Mutex
	messages []history.Message
}

// NewRecorder starts recording a run.
func NewRecorder(runID, title, guide string, cast []CastMember, clk clock.Clock) *Recorder {
	if clk == nil {
		clk = clock.Real()
	}
	return &Recorder{
		clock:     clk,
		runID:     runID,
		title:     title,
		guide:     guide,
		cast:      slices.Clone(cast),
		startedAt: clk.Now(),
	}
}

// Committed records one message.
func (recorder *Recorder) Committed(message history.Message) error {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.messages = append(recorder.messages, message)
	return nil
}

// Len returns the number of recorded messages.
func (recorder *Recorder) Len() int {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return len(recorder.messages)
}

// Archive returns the run so far with the given outcome.
func (recorder *Recorder) Archive(outcome Outcome) *Archive {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return &Archive{
		RunID:      recorder.runID,
		Title:      recorder.title,
		Guide:      recorder.guide,
		Cast:       slices.Clone(recorder.cast),
		Messages:   slices.Clone(recorder.messages),
		Outcome:    outcome,
		StartedAt:  recorder.startedAt,
		FinishedAt: recorder.clock.Now(),
	}
}
