// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

// Role identifies the author of a message in a completion request.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the prompt sent to a provider.
type Message struct {
	Role Role
	Text string
}

// UserMessage returns a user-role message with the given text.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantMessage returns an assistant-role message with the given text.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}

// Request is a provider-agnostic completion request.
type Request struct {
	// Model is the vendor model identifier.
	Model string

	// System is the system prompt. Empty means none.
	System string

	// Messages is the prompt, oldest first. Must end with a user
	// message for both supported vendors.
	Messages []Message

	// MaxTokens caps the length of the generated reply.
	MaxTokens int

	// Temperature overrides the provider default when non-nil.
	Temperature *float64

	// StopSequences end generation early when produced.
	StopSequences []string
}

// StopReason is why the model stopped generating. Vendor reasons
// without a constant here are carried through unchanged.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
)

// Usage reports token consumption for one request.
type Usage struct {
	InputTokens     int64
	OutputTokens    int64
	CacheReadTokens int64
}

// Response is the complete result of a completion request.
type Response struct {
	Text       string
	StopReason StopReason
	Model      string
	Usage      Usage
}

// EventType discriminates [StreamEvent] values.
type EventType int

const (
	// EventTextDelta carries an incremental piece of generated text.
	EventTextDelta EventType = iota

	// EventDone marks the end of the message. StopReason and Usage
	// are available from [EventStream.Response] after this event.
	EventDone

	// EventPing is a keepalive with no payload.
	EventPing

	// EventError carries an error reported inside the stream.
	EventError
)

// StreamEvent is one event from a streaming response.
type StreamEvent struct {
	Type  EventType
	Text  string
	Error error
}
