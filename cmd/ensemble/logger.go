// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// newLogger builds the process logger. With a log file every record
// goes there as JSON. Otherwise records go to stderr: text on a
// terminal, JSON when redirected. While the full-screen viewer owns
// the terminal, stderr output would corrupt it, so records without a
// log file are discarded.
func newLogger(level slog.Level, logFile string, fullScreen bool) (*slog.Logger, func(), error) {
	options := &slog.HandlerOptions{Level: level}
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		return slog.New(slog.NewJSONHandler(file, options)), func() { file.Close() }, nil
	}
	if fullScreen {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler), func() {}, nil
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("--log-level: %w", err)
	}
	return level, nil
}
