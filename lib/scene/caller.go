// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bureau-foundation/ensemble/lib/history"
	"github.com/bureau-foundation/ensemble/lib/llm"
)

// Chunk is a piece of streamed text from one speaker.
type Chunk struct {
	Speaker string
	Text    string
}

// ChunkSink receives streamed text while a narration or line is being
// generated. Chunks are display-only; nothing reaches History until the
// turn commits.
type ChunkSink interface {
	Chunk(chunk Chunk)
}

// ChunkSinkFunc adapts a function to ChunkSink.
type ChunkSinkFunc func(Chunk)

func (f ChunkSinkFunc) Chunk(chunk Chunk) { f(chunk) }

// CallRequest is one model invocation on behalf of an agent.
type CallRequest struct {
	// Agent is the character name or "narrator"; it labels streamed
	// chunks.
	Agent string

	// Operation is the capability making the call.
	Operation Operation

	// Role is the system instruction: who the agent is and how it
	// behaves.
	Role string

	// Transcript is the conversation the agent reacts to.
	Transcript history.Snapshot

	// Instruction is the request for this call, placed after the
	// transcript.
	Instruction string

	// MaxTokens caps the reply.
	MaxTokens int

	// Sink, when non-nil, receives the reply as it streams.
	Sink ChunkSink
}

// Prompt renders the transcript followed by the instruction, the
// single user message a Caller sends.
func (request CallRequest) Prompt() string {
	transcript := request.Transcript.Render()
	if transcript == "" {
		return request.Instruction
	}
	return "Conversation so far:\n" + transcript + "\n\n" + request.Instruction
}

// Caller performs model calls. Implementations must be safe for
// concurrent use: characters are polled in parallel.
type Caller interface {
	Call(ctx context.Context, request CallRequest) (string, error)
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, request CallRequest) (string, error)

func (f CallerFunc) Call(ctx context.Context, request CallRequest) (string, error) {
	return f(ctx, request)
}

// ProviderCaller implements Caller over an [llm.Provider]. Requests
// with a Sink are streamed; all others use a blocking completion.
type ProviderCaller struct {
	provider llm.Provider
	model    string
}

// NewProviderCaller returns a Caller that sends requests for model to
// provider.
func NewProviderCaller(provider llm.Provider, model string) *ProviderCaller {
	return &ProviderCaller{provider: provider, model: model}
}

// Call sends the request and returns the reply text.
func (caller *ProviderCaller) Call(ctx context.Context, request CallRequest) (string, error) {
	llmRequest := llm.Request{
		Model:     caller.model,
		System:    request.Role,
		Messages:  []llm.Message{llm.UserMessage(request.Prompt())},
		MaxTokens: request.MaxTokens,
	}

	if request.Sink == nil {
		response, err := caller.provider.Complete(ctx, llmRequest)
		if err != nil {
			return "", err
		}
		return response.Text, nil
	}

	stream, err := caller.provider.Stream(ctx, llmRequest)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var text strings.Builder
	for {
		event, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading stream: %w", err)
		}
		switch event.Type {
		case llm.EventTextDelta:
			text.WriteString(event.Text)
			request.Sink.Chunk(Chunk{Speaker: request.Agent, Text: event.Text})
		case llm.EventError:
			return "", event.Error
		}
	}
	return text.String(), nil
}
