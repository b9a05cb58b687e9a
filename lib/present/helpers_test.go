// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package present

import (
	"io"
	"time"

	"github.com/bureau-foundation/ensemble/lib/history"
	"github.com/bureau-foundation/ensemble/lib/scene"
	"github.com/bureau-foundation/ensemble/lib/tui"
)

var testEpoch = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

func narration(sequence int64, text string) history.Message {
	return history.Message{
		Speaker:  history.SpeakerNarrator,
		Text:     text,
		Sequence: sequence,
		Time:     testEpoch.Add(time.Duration(sequence) * time.Second),
	}
}

func line(sequence int64, speaker, text string) *history.Message {
	return &history.Message{
		Speaker:  speaker,
		Text:     text,
		Sequence: sequence,
		Time:     testEpoch.Add(time.Duration(sequence) * time.Second),
	}
}

// plainStyles renders without any escape sequences.
func plainStyles() styles {
	return newStyles(tui.DefaultTheme, NewRenderer(io.Discard, false))
}

// opening, spoken, and quiet are three consecutive presentations.
var (
	opening = scene.TurnPresentation{
		Turn:      0,
		Narration: narration(1, "Rain drums on the roof of the Gilded Lantern."),
	}
	spoken = scene.TurnPresentation{
		Turn:       1,
		Narration:  narration(2, "The door swings open."),
		Line:       line(3, "Ana", "Shut that, it's freezing."),
		Candidates: []string{"Ana"},
	}
	quiet = scene.TurnPresentation{
		Turn:      2,
		Narration: narration(4, "The fire crackles."),
	}
)
