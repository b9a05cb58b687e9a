// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/bureau-foundation/ensemble/lib/config"
	"github.com/bureau-foundation/ensemble/lib/present"
	"github.com/bureau-foundation/ensemble/lib/scene"
)

// display is a presenter that can also show how the run ended.
type display interface {
	scene.Presenter
	Finish(outcome scene.Outcome, err error)
}

// driver runs a conversation (or a replay) against presenter until it
// ends or stop closes.
type driver func(ctx context.Context, presenter scene.Presenter, stop <-chan struct{}) (scene.Outcome, error)

// presentWith runs drive with the presenter for mode and shows the
// outcome. In tui mode the viewer owns this goroutine and drive runs
// on another; leaving the viewer cancels whatever turn is in flight.
func presentWith(ctx context.Context, stop <-chan struct{}, logger *slog.Logger, mode config.Mode, title string, pace time.Duration, drive driver) error {
	stdout := int(os.Stdout.Fd())
	color := term.IsTerminal(stdout)

	var presenter display
	switch mode {
	case config.ModeTUI:
		return presentTUI(ctx, stop, title, pace, color, drive)
	case config.ModeHeadless:
		presenter = present.NewHeadless(logger.With("component", "present"))
	default:
		width := 0
		if color {
			if columns, _, err := term.GetSize(stdout); err == nil {
				width = columns
			}
		}
		presenter = present.NewPlain(present.PlainOptions{
			Output:   os.Stdout,
			Renderer: present.NewRenderer(os.Stdout, color),
			Width:    width,
			Pace:     pace,
		})
	}

	outcome, err := drive(ctx, presenter, stop)
	presenter.Finish(outcome, err)
	return err
}

func presentTUI(ctx context.Context, stop <-chan struct{}, title string, pace time.Duration, color bool, drive driver) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ui := present.NewTUI(present.TUIOptions{
		Title:    title,
		Renderer: present.NewRenderer(os.Stdout, color),
		Pace:     pace,
	})

	var driveErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		var outcome scene.Outcome
		outcome, driveErr = drive(ctx, ui, either(ctx, stop, ui.Stop()))
		ui.Finish(outcome, driveErr)
	}()

	uiErr := ui.Run()
	cancel()
	<-done
	if uiErr != nil {
		return errors.Join(driveErr, fmt.Errorf("running viewer: %w", uiErr))
	}
	return driveErr
}

// either returns a channel closed when first or second closes.
func either(ctx context.Context, first, second <-chan struct{}) <-chan struct{} {
	merged := make(chan struct{})
	go func() {
		defer close(merged)
		select {
		case <-first:
		case <-second:
		case <-ctx.Done():
		}
	}()
	return merged
}
