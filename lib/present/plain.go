// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package present

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/ensemble/lib/clock"
	"github.com/bureau-foundation/ensemble/lib/history"
	"github.com/bureau-foundation/ensemble/lib/scene"
	"github.com/bureau-foundation/ensemble/lib/tui"
)

// PlainOptions configures a Plain presenter.
type PlainOptions struct {
	// Output receives the transcript. Required.
	Output io.Writer

	// Renderer styles the output. Defaults to an uncolored renderer
	// for Output.
	Renderer *lipgloss.Renderer

	// Theme defaults to tui.DefaultTheme.
	Theme *tui.Theme

	// Width wraps committed text. Zero disables wrapping. Streamed
	// text is never wrapped.
	Width int

	// Pace is how long Present waits after showing a turn, giving a
	// reader time to keep up. Zero disables pacing.
	Pace time.Duration

	// Clock drives pacing. Defaults to clock.Real().
	Clock clock.Clock
}

// Plain writes the conversation to a writer as it happens.
type Plain struct {
	output io.Writer
	styles styles
	width  int
	pace   time.Duration
	clock  clock.Clock

	mu sync.Mutex

	// streamSpeaker is the speaker whose text is being written inline,
	// or empty when no stream is open.
	streamSpeaker string

	// streamed holds the raw text streamed per speaker since the last
	// Present. A committed message matching it is already on screen.
	streamed map[string]string

	writeErr error
}

// NewPlain creates a Plain presenter.
func NewPlain(options PlainOptions) *Plain {
	if options.Renderer == nil {
		options.Renderer = NewRenderer(options.Output, false)
	}
	theme := tui.DefaultTheme
	if options.Theme != nil {
		theme = *options.Theme
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	return &Plain{
		output:   options.Output,
		styles:   newStyles(theme, options.Renderer),
		width:    options.Width,
		pace:     options.Pace,
		clock:    options.Clock,
		streamed: make(map[string]string),
	}
}

// Chunk writes streamed text inline, opening a new paragraph whenever
// the speaker changes.
func (p *Plain) Chunk(chunk scene.Chunk) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if chunk.Speaker != p.streamSpeaker {
		p.closeStream()
		p.streamSpeaker = chunk.Speaker
		if chunk.Speaker != history.SpeakerNarrator {
			p.write(p.styles.speakerLabel(chunk.Speaker) + " ")
		}
	}
	p.streamed[chunk.Speaker] += chunk.Text
	p.write(p.styles.body(chunk.Speaker, chunk.Text))
}

// Present writes whatever of the turn has not already been streamed,
// then the turn's notes, then waits out the pace. A line committed in a
// cleaned form (label or stage directions removed) is written again so
// the transcript shows what was kept.
func (p *Plain) Present(ctx context.Context, presentation scene.TurnPresentation) error {
	p.mu.Lock()
	p.closeStream()
	for _, message := range committedMessages(presentation) {
		if streamed, ok := p.streamed[message.Speaker]; ok && strings.TrimSpace(streamed) == message.Text {
			continue
		}
		p.write(p.styles.message(message, p.width) + "\n\n")
	}
	for _, note := range p.styles.notes(presentation, p.width) {
		p.write(note + "\n\n")
	}
	clear(p.streamed)
	err := p.writeErr
	p.mu.Unlock()

	if err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	if p.pace <= 0 {
		return nil
	}
	select {
	case <-p.clock.After(p.pace):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish writes the run's outcome. Text streamed by a turn that never
// committed is closed off first.
func (p *Plain) Finish(outcome scene.Outcome, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeStream()
	p.write(p.styles.outcome(outcome, err) + "\n")
}

// closeStream ends an open inline paragraph. Caller holds mu.
func (p *Plain) closeStream() {
	if p.streamSpeaker == "" {
		return
	}
	p.streamSpeaker = ""
	p.write("\n\n")
}

// write remembers the first error so a broken pipe surfaces once from
// Present instead of from every chunk. Caller holds mu.
func (p *Plain) write(text string) {
	if p.writeErr != nil {
		return
	}
	_, p.writeErr = io.WriteString(p.output, text)
}
