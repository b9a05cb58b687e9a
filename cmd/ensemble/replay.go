// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/ensemble/lib/config"
	"github.com/bureau-foundation/ensemble/lib/present"
	"github.com/bureau-foundation/ensemble/lib/scene"
	"github.com/bureau-foundation/ensemble/lib/transcript"
)

// replay presents a recorded run. No model is called and nothing is
// recorded.
func replay(ctx context.Context, stop <-chan struct{}, logger *slog.Logger, flags options, mode config.Mode) error {
	var pace time.Duration
	if flags.pace != "" {
		parsed, err := time.ParseDuration(flags.pace)
		if err != nil {
			return fmt.Errorf("--pace: %w", err)
		}
		pace = parsed
	}

	archive, err := transcript.ReadArchive(flags.replay)
	if err != nil {
		return err
	}
	logger.Info("replaying run",
		"run", archive.RunID,
		"title", archive.Title,
		"messages", len(archive.Messages),
		"recorded_at", archive.StartedAt,
	)
	if archive.Outcome.Error != "" {
		logger.Info("recorded run failed", "error", archive.Outcome.Error)
	}

	return presentWith(ctx, stop, logger, mode, archive.Title, pace,
		func(ctx context.Context, presenter scene.Presenter, stop <-chan struct{}) (scene.Outcome, error) {
			turns, err := present.Replay(ctx, presenter, archive.Messages, stop)
			if err != nil {
				return scene.Outcome{Reason: scene.StopReasonFailed, Turns: turns}, err
			}
			if turns < archive.Outcome.Turns {
				return scene.Outcome{Reason: scene.StopReasonStopped, Turns: turns}, nil
			}
			return scene.Outcome{
				Reason:  scene.StopReason(archive.Outcome.Reason),
				Turns:   archive.Outcome.Turns,
				Evicted: archive.Outcome.Evicted,
			}, nil
		})
}
