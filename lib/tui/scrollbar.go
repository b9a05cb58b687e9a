// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	thumbGlyph = "┃"
	trackGlyph = "│"
)

// Scrollbar describes a one-column bar beside a pane Height rows tall
// that shows Lines of content starting at Offset.
type Scrollbar struct {
	Height int
	Lines  int
	Offset int
}

// Thumb returns the first row of the thumb and its length. Content
// that fits the pane yields a thumb covering every row. The thumb is
// never shorter than one row and never runs past the bottom.
func (bar Scrollbar) Thumb() (start, size int) {
	if bar.Height <= 0 {
		return 0, 0
	}
	hidden := bar.Lines - bar.Height
	if hidden <= 0 {
		return 0, bar.Height
	}
	size = max(1, bar.Height*bar.Height/bar.Lines)
	travel := bar.Height - size
	offset := min(max(bar.Offset, 0), hidden)
	return offset * travel / hidden, size
}

// Render draws the bar top to bottom, one glyph per line. The thumb
// takes the accent color while active is set and the border color
// otherwise. A nil renderer uses the lipgloss default.
func (bar Scrollbar) Render(renderer *lipgloss.Renderer, theme Theme, active bool) string {
	if bar.Height <= 0 {
		return ""
	}
	if renderer == nil {
		renderer = lipgloss.DefaultRenderer()
	}
	thumbColor := theme.BorderColor
	if active {
		thumbColor = theme.AccentColor
	}
	thumb := renderer.NewStyle().Foreground(thumbColor).Render(thumbGlyph)
	track := renderer.NewStyle().Foreground(theme.BorderColor).Render(trackGlyph)

	start, size := bar.Thumb()
	rows := make([]string, bar.Height)
	for row := range rows {
		if row >= start && row < start+size {
			rows[row] = thumb
		} else {
			rows[row] = track
		}
	}
	return strings.Join(rows, "\n")
}
