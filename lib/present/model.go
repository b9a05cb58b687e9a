// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package present

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/ensemble/lib/history"
	"github.com/bureau-foundation/ensemble/lib/scene"
	"github.com/bureau-foundation/ensemble/lib/tui"
)

// chunkMsg carries streamed text into the program.
type chunkMsg scene.Chunk

// presentMsg carries a committed turn into the program.
type presentMsg scene.TurnPresentation

// finishMsg reports that the conversation has ended.
type finishMsg struct {
	outcome scene.Outcome
	err     error
}

// viewer is the bubbletea model of the conversation TUI: a header, a
// scrolling transcript with a scrollbar, and a status line.
type viewer struct {
	keys    KeyMap
	styles  styles
	control *control
	title   string

	width  int
	height int
	ready  bool

	viewport viewport.Model
	// follow keeps the viewport pinned to the newest text. Scrolling
	// up releases it; scrolling back to the bottom restores it.
	follow bool

	turns []scene.TurnPresentation
	// live holds text streamed since the last committed turn, one
	// entry per consecutive speaker.
	live []scene.Chunk

	turn     int
	speaker  string
	evicted  int
	paused   bool
	stopping bool
	done     bool
	closing  string
}

func newViewer(title string, keys KeyMap, styles styles, control *control) viewer {
	return viewer{
		keys:    keys,
		styles:  styles,
		control: control,
		title:   title,
		follow:  true,
	}
}

// Init implements tea.Model.
func (model viewer) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (model viewer) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		bodyWidth, bodyHeight := model.bodySize()
		if !model.ready {
			model.viewport = viewport.New(bodyWidth, bodyHeight)
			model.ready = true
		} else {
			model.viewport.Width = bodyWidth
			model.viewport.Height = bodyHeight
		}
		model.refresh()

	case chunkMsg:
		if count := len(model.live); count > 0 && model.live[count-1].Speaker == message.Speaker {
			model.live[count-1].Text += message.Text
		} else {
			model.live = append(model.live, scene.Chunk(message))
		}
		model.speaker = message.Speaker
		model.refresh()

	case presentMsg:
		presentation := scene.TurnPresentation(message)
		model.turns = append(model.turns, presentation)
		model.live = nil
		model.turn = presentation.Turn
		model.evicted += presentation.Evicted
		if presentation.Line != nil {
			model.speaker = presentation.Line.Speaker
		} else {
			model.speaker = ""
		}
		model.refresh()

	case finishMsg:
		model.done = true
		model.paused = false
		model.live = nil
		model.closing = model.styles.outcome(message.outcome, message.err)
		model.refresh()
		if model.stopping {
			return model, tea.Quit
		}
	}
	return model, nil
}

func (model viewer) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		if model.done || model.stopping {
			return model, tea.Quit
		}
		model.stopping = true
		model.control.requestStop()

	case key.Matches(message, model.keys.Pause):
		if !model.done && !model.stopping {
			model.paused = model.control.togglePause()
		}

	case key.Matches(message, model.keys.Up):
		model.viewport.LineUp(1)
		model.follow = false

	case key.Matches(message, model.keys.Down):
		model.viewport.LineDown(1)
		model.follow = model.viewport.AtBottom()

	case key.Matches(message, model.keys.PageUp):
		model.viewport.LineUp(model.viewport.Height)
		model.follow = false

	case key.Matches(message, model.keys.PageDown):
		model.viewport.LineDown(model.viewport.Height)
		model.follow = model.viewport.AtBottom()

	case key.Matches(message, model.keys.Bottom):
		model.viewport.GotoBottom()
		model.follow = true
	}
	return model, nil
}

// bodySize is the viewport size: the full window less the header and
// status lines and one column for the scrollbar.
func (model viewer) bodySize() (int, int) {
	return max(model.width-1, 1), max(model.height-2, 1)
}

// refresh re-renders the transcript into the viewport.
func (model *viewer) refresh() {
	if !model.ready {
		return
	}
	model.viewport.SetContent(model.transcript(model.viewport.Width))
	if model.follow {
		model.viewport.GotoBottom()
	}
}

// transcript renders every committed turn, then any live text, then
// the closing line.
func (model viewer) transcript(width int) string {
	var blocks []string
	for _, presentation := range model.turns {
		for _, message := range committedMessages(presentation) {
			blocks = append(blocks, model.styles.message(message, width))
		}
		blocks = append(blocks, model.styles.notes(presentation, width)...)
	}
	for _, chunk := range model.live {
		text := model.styles.body(chunk.Speaker, chunk.Text)
		if chunk.Speaker != history.SpeakerNarrator {
			text = model.styles.speakerLabel(chunk.Speaker) + " " + text
		}
		blocks = append(blocks, wrap(text, width))
	}
	if model.closing != "" {
		blocks = append(blocks, wrap(model.closing, width))
	}
	return strings.Join(blocks, "\n\n")
}

// View implements tea.Model.
func (model viewer) View() string {
	if !model.ready {
		return ""
	}
	theme := model.styles.theme
	renderer := model.styles.renderer

	header := renderer.NewStyle().
		Bold(true).
		Foreground(theme.HeaderForeground).
		Background(theme.HeaderBackground).
		Width(model.width).
		MaxWidth(model.width).
		Render(model.headerText())

	scrollbar := tui.Scrollbar{
		Height: model.viewport.Height,
		Lines:  model.viewport.TotalLineCount(),
		Offset: model.viewport.YOffset,
	}.Render(renderer, theme, !model.follow)
	body := lipgloss.JoinHorizontal(lipgloss.Top, model.viewport.View(), scrollbar)

	status := renderer.NewStyle().MaxWidth(model.width).Render(model.statusText())
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (model viewer) headerText() string {
	parts := []string{model.title}
	if model.turn > 0 {
		parts = append(parts, fmt.Sprintf("turn %d", model.turn))
	}
	if model.speaker != "" {
		parts = append(parts, model.speaker)
	}
	if model.evicted > 0 {
		parts = append(parts, fmt.Sprintf("%d forgotten", model.evicted))
	}
	return " " + strings.Join(parts, " · ")
}

func (model viewer) statusText() string {
	theme := model.styles.theme
	renderer := model.styles.renderer
	help := renderer.NewStyle().Foreground(theme.HelpText)

	var state string
	switch {
	case model.done:
		return help.Render("finished · q exit")
	case model.stopping:
		state = renderer.NewStyle().Foreground(theme.WarningText).Render("stopping after this turn")
	case model.paused:
		state = renderer.NewStyle().Foreground(theme.PausedText).Render("paused")
	default:
		state = renderer.NewStyle().Foreground(theme.FaintText).Render("running")
	}
	var bindings []string
	for _, binding := range []key.Binding{model.keys.Pause, model.keys.PageUp, model.keys.PageDown, model.keys.Bottom, model.keys.Quit} {
		helpText := binding.Help()
		bindings = append(bindings, helpText.Key+" "+helpText.Desc)
	}
	return state + help.Render(" · "+strings.Join(bindings, " · "))
}
