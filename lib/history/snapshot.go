// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package history

import "strings"

// Snapshot is a read-only view of the transcript at one instant.
// Appends made after it was taken are never visible through it. The
// zero Snapshot is an empty transcript.
type Snapshot struct {
	messages []Message
}

// NewSnapshot builds a Snapshot from messages, copying the slice.
// Used by replay and by tests that need a transcript without a History.
func NewSnapshot(messages []Message) Snapshot {
	return Snapshot{messages: append([]Message(nil), messages...)}
}

// Len returns the number of messages.
func (s Snapshot) Len() int {
	return len(s.messages)
}

// Messages returns a copy of the messages, oldest first.
func (s Snapshot) Messages() []Message {
	return append([]Message(nil), s.messages...)
}

// Last returns the newest message, or false for an empty snapshot.
func (s Snapshot) Last() (Message, bool) {
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Render formats the transcript as "speaker: text" lines, the form
// agents read it in.
func (s Snapshot) Render() string {
	var builder strings.Builder
	for i, message := range s.messages {
		if i > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(messageText(message.Speaker, message.Text))
	}
	return builder.String()
}

// With returns a new Snapshot with an unsequenced message appended.
// The coordinator uses it to show a character the narration it is
// responding to before that narration is committed.
func (s Snapshot) With(speaker, text string) Snapshot {
	messages := make([]Message, len(s.messages), len(s.messages)+1)
	copy(messages, s.messages)
	return Snapshot{messages: append(messages, Message{Speaker: speaker, Text: text})}
}
