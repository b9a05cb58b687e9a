// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"hash/fnv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for ensemble's terminal output. All
// colors use lipgloss ANSI 256-color codes for broad terminal
// compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Narration is rendered in its own color, distinct from every
	// character.
	NarratorText lipgloss.Color

	// SpeakerColors is the palette characters are assigned from.
	SpeakerColors []lipgloss.Color

	// Notices.
	WarningText lipgloss.Color
	PausedText  lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	HeaderBackground lipgloss.Color
	BorderColor      lipgloss.Color
	AccentColor      lipgloss.Color
	HelpText         lipgloss.Color
}

// SpeakerColor returns a stable color for a character name. The same
// name maps to the same color across runs, independent of cast order.
func (theme Theme) SpeakerColor(name string) lipgloss.Color {
	if len(theme.SpeakerColors) == 0 {
		return theme.NormalText
	}
	hasher := fnv.New32a()
	hasher.Write([]byte(strings.ToLower(name)))
	return theme.SpeakerColors[hasher.Sum32()%uint32(len(theme.SpeakerColors))]
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	NarratorText: lipgloss.Color("180"), // parchment

	SpeakerColors: []lipgloss.Color{
		lipgloss.Color("75"),  // blue
		lipgloss.Color("114"), // green
		lipgloss.Color("141"), // light purple
		lipgloss.Color("208"), // orange
		lipgloss.Color("44"),  // teal
		lipgloss.Color("211"), // pink
		lipgloss.Color("220"), // amber
		lipgloss.Color("150"), // sage
	},

	WarningText: lipgloss.Color("208"),
	PausedText:  lipgloss.Color("220"),

	HeaderForeground: lipgloss.Color("255"),
	HeaderBackground: lipgloss.Color("236"),
	BorderColor:      lipgloss.Color("240"),
	AccentColor:      lipgloss.Color("220"),
	HelpText:         lipgloss.Color("241"),
}
