// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package present

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/ensemble/lib/clock"
	"github.com/bureau-foundation/ensemble/lib/scene"
	"github.com/bureau-foundation/ensemble/lib/tui"
)

// TUIOptions configures a TUI presenter.
type TUIOptions struct {
	// Title is shown in the header.
	Title string

	// Renderer styles the output. Defaults to lipgloss's renderer for
	// standard output.
	Renderer *lipgloss.Renderer

	// Theme defaults to tui.DefaultTheme.
	Theme *tui.Theme

	// Keys defaults to DefaultKeyMap.
	Keys *KeyMap

	// Pace is how long Present waits after showing a turn.
	Pace time.Duration

	// Clock drives pacing. Defaults to clock.Real().
	Clock clock.Clock

	// ProgramOptions are appended to the bubbletea program's options.
	ProgramOptions []tea.ProgramOption
}

// TUI presents the conversation in a full-screen bubbletea program.
// The program runs on the caller's goroutine via Run; the conversation
// runs on another and reaches the program through Program.Send.
//
// Typical use:
//
//	ui := present.NewTUI(options)
//	go func() {
//		outcome, err := conversation.Run(ctx, ui.Stop())
//		ui.Finish(outcome, err)
//	}()
//	err := ui.Run()
type TUI struct {
	program *tea.Program
	control *control
	pace    time.Duration
	clock   clock.Clock
}

// NewTUI creates the program without starting it.
func NewTUI(options TUIOptions) *TUI {
	if options.Renderer == nil {
		options.Renderer = lipgloss.DefaultRenderer()
	}
	theme := tui.DefaultTheme
	if options.Theme != nil {
		theme = *options.Theme
	}
	keys := DefaultKeyMap
	if options.Keys != nil {
		keys = *options.Keys
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}

	control := newControl()
	viewer := newViewer(options.Title, keys, newStyles(theme, options.Renderer), control)
	programOptions := append([]tea.ProgramOption{tea.WithAltScreen()}, options.ProgramOptions...)
	return &TUI{
		program: tea.NewProgram(viewer, programOptions...),
		control: control,
		pace:    options.Pace,
		clock:   options.Clock,
	}
}

// Stop returns the channel closed when the user asks to stop, or when
// the program exits.
func (t *TUI) Stop() <-chan struct{} {
	return t.control.stop
}

// Run runs the program until the user exits. Exiting before the
// conversation ends requests a stop.
func (t *TUI) Run() error {
	_, err := t.program.Run()
	t.control.requestStop()
	return err
}

// Chunk shows streamed text live.
func (t *TUI) Chunk(chunk scene.Chunk) {
	t.program.Send(chunkMsg(chunk))
}

// Present shows a committed turn, waits out the pace, and then holds
// the conversation for as long as the user has it paused. A stop
// request ends both waits early.
func (t *TUI) Present(ctx context.Context, presentation scene.TurnPresentation) error {
	t.program.Send(presentMsg(presentation))
	if t.pace > 0 && !t.control.stopRequested() {
		select {
		case <-t.clock.After(t.pace):
		case <-t.control.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return t.control.wait(ctx)
}

// Finish shows the outcome. If the user already asked to stop, the
// program exits; otherwise it stays open until they press quit.
func (t *TUI) Finish(outcome scene.Outcome, err error) {
	t.program.Send(finishMsg{outcome: outcome, err: err})
}
