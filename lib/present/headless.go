// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package present

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/ensemble/lib/scene"
)

// Headless presents a conversation as log records only. Streamed chunks
// are discarded.
type Headless struct {
	logger *slog.Logger
}

// NewHeadless returns a presenter that logs to logger.
func NewHeadless(logger *slog.Logger) *Headless {
	return &Headless{logger: logger}
}

func (h *Headless) Chunk(scene.Chunk) {}

func (h *Headless) Present(ctx context.Context, presentation scene.TurnPresentation) error {
	h.logger.Info("narration",
		"turn", presentation.Turn,
		"sequence", presentation.Narration.Sequence,
		"text", presentation.Narration.Text,
	)
	if line := presentation.Line; line != nil {
		h.logger.Info("line",
			"turn", presentation.Turn,
			"sequence", line.Sequence,
			"speaker", line.Speaker,
			"text", line.Text,
		)
	} else if presentation.Turn > 0 {
		h.logger.Info("nobody speaks",
			"turn", presentation.Turn,
			"candidates", presentation.Candidates,
		)
	}
	return nil
}

// Finish logs the outcome.
func (h *Headless) Finish(outcome scene.Outcome, err error) {
	if err != nil {
		h.logger.Error("conversation failed",
			"turns", outcome.Turns,
			"evicted", outcome.Evicted,
			"error", err,
		)
		return
	}
	h.logger.Info("conversation finished",
		"reason", string(outcome.Reason),
		"turns", outcome.Turns,
		"evicted", outcome.Evicted,
	)
}
