// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/ensemble/lib/history"
	"github.com/bureau-foundation/ensemble/lib/scene"
	"github.com/bureau-foundation/ensemble/lib/tui"
)

// wrapBreakpoints are the characters besides spaces where a long word
// may be split.
const wrapBreakpoints = " ,.;-"

// NewRenderer returns a lipgloss renderer for output. With color false
// every style renders as plain text.
func NewRenderer(output io.Writer, color bool) *lipgloss.Renderer {
	profile := termenv.Ascii
	if color {
		profile = termenv.ANSI256
	}
	// The option alone is not enough: lipgloss re-detects the profile
	// from the writer unless it is set explicitly.
	renderer := lipgloss.NewRenderer(output, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return renderer
}

// styles renders transcript entries with one theme and renderer.
type styles struct {
	theme    tui.Theme
	renderer *lipgloss.Renderer

	narration lipgloss.Style
	faint     lipgloss.Style
	warning   lipgloss.Style
}

func newStyles(theme tui.Theme, renderer *lipgloss.Renderer) styles {
	return styles{
		theme:     theme,
		renderer:  renderer,
		narration: renderer.NewStyle().Foreground(theme.NarratorText).Italic(true),
		faint:     renderer.NewStyle().Foreground(theme.FaintText),
		warning:   renderer.NewStyle().Foreground(theme.WarningText),
	}
}

// speakerLabel renders "Name:" in the character's color.
func (s styles) speakerLabel(name string) string {
	return s.renderer.NewStyle().Bold(true).Foreground(s.theme.SpeakerColor(name)).Render(name + ":")
}

// body styles streamed or committed text for its speaker, without
// wrapping.
func (s styles) body(speaker, text string) string {
	if speaker == history.SpeakerNarrator {
		return s.narration.Render(text)
	}
	return s.renderer.NewStyle().Foreground(s.theme.NormalText).Render(text)
}

// message renders one committed message wrapped to width. A width of
// zero or less disables wrapping.
func (s styles) message(message history.Message, width int) string {
	var text string
	if message.IsNarration() {
		text = s.narration.Render(message.Text)
	} else {
		text = s.speakerLabel(message.Speaker) + " " + s.body(message.Speaker, message.Text)
	}
	return wrap(text, width)
}

// notes renders the turn's side information: who wanted to speak when
// nobody did, selection anomalies, and evictions.
func (s styles) notes(presentation scene.TurnPresentation, width int) []string {
	var notes []string
	if presentation.Turn > 0 && presentation.Line == nil {
		switch {
		case presentation.Anomaly != nil:
			notes = append(notes, s.warning.Render(fmt.Sprintf(
				"(the narrator answered %q; nobody speaks)", truncate(presentation.Anomaly.Answer, 60))))
		case len(presentation.Candidates) > 0:
			notes = append(notes, s.faint.Render(fmt.Sprintf(
				"(%s held back)", strings.Join(presentation.Candidates, ", "))))
		default:
			notes = append(notes, s.faint.Render("(nobody speaks)"))
		}
	}
	if presentation.Evicted > 0 {
		noun := "messages"
		if presentation.Evicted == 1 {
			noun = "message"
		}
		notes = append(notes, s.faint.Render(fmt.Sprintf(
			"(%d earlier %s forgotten)", presentation.Evicted, noun)))
	}
	for index, note := range notes {
		notes[index] = wrap(note, width)
	}
	return notes
}

// outcome renders the closing line of a run.
func (s styles) outcome(outcome scene.Outcome, err error) string {
	turns := "turns"
	if outcome.Turns == 1 {
		turns = "turn"
	}
	line := fmt.Sprintf("[%s after %d %s", describeReason(outcome.Reason), outcome.Turns, turns)
	if outcome.Evicted > 0 {
		line += fmt.Sprintf(", %d forgotten", outcome.Evicted)
	}
	line += "]"
	if err != nil {
		return s.warning.Render(line + " " + err.Error())
	}
	return s.faint.Render(line)
}

func describeReason(reason scene.StopReason) string {
	switch reason {
	case scene.StopReasonMaxTurns:
		return "the scene ends"
	case scene.StopReasonQuiet:
		return "the room falls silent"
	case scene.StopReasonStopped:
		return "stopped"
	case scene.StopReasonFailed:
		return "failed"
	default:
		return string(reason)
	}
}

func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return ansi.Wrap(text, width, wrapBreakpoints)
}

func truncate(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if ansi.StringWidth(text) <= limit {
		return text
	}
	return ansi.Truncate(text, limit, "…")
}
