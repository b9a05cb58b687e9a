// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"log/slog"
	"time"
)

// EventSink receives everything observable about a running
// conversation. Implementations must be safe for concurrent use; poll
// calls report from parallel goroutines.
type EventSink interface {
	// CallFinished reports one model call. err is nil on success.
	CallFinished(agent string, operation Operation, duration time.Duration, reply string, err error)

	// StateChanged reports a coordinator state transition.
	StateChanged(turn int, state TurnState)

	// Anomaly reports a narrator answer naming no candidate.
	Anomaly(turn int, anomaly *SelectionAnomaly)

	// Evicted reports messages dropped from History to fit the budget.
	Evicted(turn int, count, remaining int)
}

// LogSink is the default EventSink, writing structured records to a
// slog.Logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns an EventSink that logs to logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (sink *LogSink) CallFinished(agent string, operation Operation, duration time.Duration, reply string, err error) {
	if err != nil {
		sink.logger.Error("agent call failed",
			"agent", agent,
			"operation", operation,
			"duration", duration,
			"error", err,
		)
		return
	}
	sink.logger.Debug("agent call",
		"agent", agent,
		"operation", operation,
		"duration", duration,
		"length", len(reply),
		"reply", reply,
	)
}

func (sink *LogSink) StateChanged(turn int, state TurnState) {
	sink.logger.Debug("turn state", "turn", turn, "state", state.String())
}

func (sink *LogSink) Anomaly(turn int, anomaly *SelectionAnomaly) {
	sink.logger.Warn("narrator named no candidate, nobody speaks",
		"turn", turn,
		"answer", anomaly.Answer,
		"candidates", anomaly.Candidates,
	)
}

func (sink *LogSink) Evicted(turn int, count, remaining int) {
	sink.logger.Info("history truncated to fit budget",
		"turn", turn,
		"evicted", count,
		"remaining", remaining,
	)
}

// nopSink discards events.
type nopSink struct{}

func (nopSink) CallFinished(string, Operation, time.Duration, string, error) {}
func (nopSink) StateChanged(int, TurnState)                                 {}
func (nopSink) Anomaly(int, *SelectionAnomaly)                              {}
func (nopSink) Evicted(int, int, int)                                       {}
