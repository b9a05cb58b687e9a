// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package present

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/ensemble/lib/history"
	"github.com/bureau-foundation/ensemble/lib/scene"
)

// Replay presents recorded messages as the turns they were committed
// in: each narration begins a turn and a character line directly after
// it completes that turn. The first narration is the opening scene.
// Replay checks stop between turns and returns the number of turns
// presented, not counting the opening.
func Replay(ctx context.Context, presenter scene.Presenter, messages []history.Message, stop <-chan struct{}) (int, error) {
	turns := Turns(messages)
	for index, presentation := range turns {
		select {
		case <-stop:
			return max(index-1, 0), nil
		case <-ctx.Done():
			return max(index-1, 0), ctx.Err()
		default:
		}
		if err := presenter.Present(ctx, presentation); err != nil {
			return max(index-1, 0), fmt.Errorf("replaying turn %d: %w", presentation.Turn, err)
		}
	}
	return max(len(turns)-1, 0), nil
}

// Turns groups messages into presentations. A line with no narration
// before it gets a turn of its own with an empty narration.
func Turns(messages []history.Message) []scene.TurnPresentation {
	var turns []scene.TurnPresentation
	for _, message := range messages {
		if message.IsNarration() {
			turns = append(turns, scene.TurnPresentation{
				Turn:      len(turns),
				Narration: message,
			})
			continue
		}
		if count := len(turns); count > 0 && turns[count-1].Line == nil && turns[count-1].Turn > 0 {
			line := message
			turns[count-1].Line = &line
			turns[count-1].Candidates = []string{message.Speaker}
			continue
		}
		line := message
		turns = append(turns, scene.TurnPresentation{
			Turn:       len(turns),
			Narration:  history.Message{Speaker: history.SpeakerNarrator},
			Line:       &line,
			Candidates: []string{message.Speaker},
		})
	}
	return turns
}

// committedMessages returns the presentation's messages that carry
// text, narration first.
func committedMessages(presentation scene.TurnPresentation) []history.Message {
	var messages []history.Message
	if presentation.Narration.Text != "" {
		messages = append(messages, presentation.Narration)
	}
	if presentation.Line != nil && presentation.Line.Text != "" {
		messages = append(messages, *presentation.Line)
	}
	return messages
}
