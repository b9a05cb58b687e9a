// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/ensemble/lib/scene"
	"github.com/bureau-foundation/ensemble/lib/transcript"
	"github.com/bureau-foundation/ensemble/lib/voice"
)

// sceneRun holds what must be settled after the conversation ends.
type sceneRun struct {
	logger      *slog.Logger
	sessionLog  *transcript.Log
	recorder    *transcript.Recorder
	archivePath string
	compression transcript.Compression
	speech      *voice.Player
}

// finish drains speech, closes the session log with the outcome, and
// writes the archive. It runs on a context detached from cancellation
// so an interrupted run is still recorded.
func (run *sceneRun) finish(ctx context.Context, outcome scene.Outcome, runErr error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	recorded := transcript.Outcome{
		Reason:  string(outcome.Reason),
		Turns:   outcome.Turns,
		Evicted: outcome.Evicted,
	}
	if runErr != nil {
		recorded.Error = runErr.Error()
	}
	run.logger.Info("conversation ended",
		"reason", recorded.Reason,
		"turns", outcome.Turns,
		"evicted", outcome.Evicted,
		"messages", run.recorder.Len(),
	)

	var errs []error
	run.closeSpeech(ctx)
	if run.sessionLog != nil {
		if err := run.sessionLog.End(recorded); err != nil {
			errs = append(errs, fmt.Errorf("closing session log: %w", err))
		}
	}
	if run.archivePath != "" {
		if err := transcript.WriteArchive(run.archivePath, run.recorder.Archive(recorded), run.compression); err != nil {
			errs = append(errs, err)
		} else {
			run.logger.Info("archive written", "path", run.archivePath, "compression", run.compression.String())
		}
	}
	return errors.Join(errs...)
}

// closeSpeech lets queued lines finish, giving up when ctx ends.
func (run *sceneRun) closeSpeech(ctx context.Context) {
	if run.speech == nil {
		return
	}
	if err := run.speech.Close(ctx); err != nil {
		run.logger.Warn("speech abandoned", "error", err)
	}
	run.speech = nil
}
