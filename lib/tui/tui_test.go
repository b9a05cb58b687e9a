// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestSpeakerColorStable(t *testing.T) {
	t.Parallel()

	first := DefaultTheme.SpeakerColor("Leonardo")
	if again := DefaultTheme.SpeakerColor("leonardo"); again != first {
		t.Errorf("SpeakerColor is case sensitive: %q vs %q", first, again)
	}
	found := false
	for _, color := range DefaultTheme.SpeakerColors {
		if color == first {
			found = true
		}
	}
	if !found {
		t.Errorf("SpeakerColor(Leonardo) = %q, not in the palette", first)
	}
}

func TestSpeakerColorEmptyPalette(t *testing.T) {
	t.Parallel()

	theme := DefaultTheme
	theme.SpeakerColors = nil
	if color := theme.SpeakerColor("Ana"); color != theme.NormalText {
		t.Errorf("SpeakerColor with no palette = %q, want NormalText", color)
	}
}

func scrollbarRows(t *testing.T, bar Scrollbar) string {
	t.Helper()
	rendered := ansi.Strip(bar.Render(nil, DefaultTheme, false))
	return strings.ReplaceAll(strings.ReplaceAll(rendered, thumbGlyph, "#"), trackGlyph, "|")
}

func TestScrollbarRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bar  Scrollbar
		want string
	}{
		{"fits", Scrollbar{Height: 4, Lines: 3}, "#\n#\n#\n#"},
		{"top", Scrollbar{Height: 4, Lines: 8}, "#\n#\n|\n|"},
		{"bottom", Scrollbar{Height: 4, Lines: 8, Offset: 4}, "|\n|\n#\n#"},
		{"past the end", Scrollbar{Height: 4, Lines: 8, Offset: 40}, "|\n|\n#\n#"},
		{"minimum thumb", Scrollbar{Height: 4, Lines: 100, Offset: 96}, "|\n|\n|\n#"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := scrollbarRows(t, test.bar); got != test.want {
				t.Errorf("scrollbar = %q, want %q", got, test.want)
			}
		})
	}
	if got := (Scrollbar{Lines: 10}).Render(nil, DefaultTheme, true); got != "" {
		t.Errorf("zero height = %q, want empty", got)
	}
}

func TestScrollbarThumb(t *testing.T) {
	t.Parallel()

	start, size := Scrollbar{Height: 10, Lines: 40, Offset: 15}.Thumb()
	// A quarter of the content is visible; halfway down the hidden part.
	if start != 4 || size != 2 {
		t.Errorf("Thumb = (%d, %d), want (4, 2)", start, size)
	}
	if start, size := (Scrollbar{Height: 5, Lines: 20, Offset: -3}).Thumb(); start != 0 || size != 1 {
		t.Errorf("negative offset Thumb = (%d, %d), want (0, 1)", start, size)
	}
}
