// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// DefaultOpenAIBaseURL is the public OpenAI API origin.
const DefaultOpenAIBaseURL = "https://api.openai.com"

const openaiLabel = "llm/openai"

// OpenAI talks to the Chat Completions API and the many servers that
// copy its wire format (vLLM, Ollama, llama.cpp, OpenRouter).
type OpenAI struct {
	api apiClient
}

// NewOpenAI creates an OpenAI-compatible provider. An empty baseURL
// selects [DefaultOpenAIBaseURL]. A non-empty apiKey is sent as a
// bearer token; local servers usually need none.
func NewOpenAI(httpClient *http.Client, baseURL, apiKey string) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}
	return &OpenAI{api: apiClient{
		httpClient: httpClient,
		url:        strings.TrimRight(baseURL, "/") + "/v1/chat/completions",
		header:     header,
		label:      openaiLabel,
	}}
}

// Complete sends a non-streaming request.
func (provider *OpenAI) Complete(ctx context.Context, request Request) (*Response, error) {
	return complete[openaiResponse](ctx, provider.api, newOpenAIRequest(request, false))
}

// Stream sends a streaming request with usage reporting switched on.
//
// There is no per-message stop event: finish_reason rides on the last
// content chunk, usage on a later chunk with no choices, and the
// "[DONE]" sentinel closes the stream. EventDone is emitted there.
func (provider *OpenAI) Stream(ctx context.Context, request Request) (*EventStream, error) {
	body, err := provider.api.post(ctx, newOpenAIRequest(request, true), true)
	if err != nil {
		return nil, err
	}
	return newEventStream(sseReader(body, openaiLabel, decodeOpenAIChunk), body), nil
}

func newOpenAIRequest(request Request, stream bool) openaiRequest {
	wire := openaiRequest{
		Model:       request.Model,
		MaxTokens:   request.MaxTokens,
		Temperature: request.Temperature,
		Stop:        request.StopSequences,
		Messages:    make([]openaiMessage, 0, len(request.Messages)+1),
	}
	if stream {
		wire.Stream = true
		wire.StreamOptions = &openaiStreamOptions{IncludeUsage: true}
	}
	if request.System != "" {
		wire.Messages = append(wire.Messages, openaiMessage{Role: "system", Content: request.System})
	}
	for _, message := range request.Messages {
		wire.Messages = append(wire.Messages, openaiMessage{Role: string(message.Role), Content: message.Text})
	}
	return wire
}

func decodeOpenAIChunk(event SSEEvent, partial *Response) (StreamEvent, bool, error) {
	if event.Data == "[DONE]" {
		return StreamEvent{Type: EventDone}, true, nil
	}

	var chunk openaiStreamChunk
	if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
		return StreamEvent{}, false, fmt.Errorf("%s: parsing stream chunk: %w", openaiLabel, err)
	}
	// Errors arrive as ordinary data lines carrying an "error" object.
	if chunk.Error != nil && chunk.Error.Message != "" {
		err := fmt.Errorf("%s: stream error: %s: %s", openaiLabel, chunk.Error.Type, chunk.Error.Message)
		return StreamEvent{Type: EventError, Error: err}, true, nil
	}

	if partial.Model == "" {
		partial.Model = chunk.Model
	}
	if chunk.Usage != nil {
		partial.Usage = chunk.Usage.toUsage()
	}
	if len(chunk.Choices) == 0 {
		return StreamEvent{}, false, nil
	}
	choice := chunk.Choices[0]
	if choice.FinishReason != nil {
		partial.StopReason = mapOpenAIFinishReason(*choice.FinishReason)
	}
	if choice.Delta.Content == "" {
		return StreamEvent{}, false, nil
	}
	return StreamEvent{Type: EventTextDelta, Text: choice.Delta.Content}, true, nil
}

type openaiRequest struct {
	Model         string               `json:"model"`
	Messages      []openaiMessage      `json:"messages"`
	MaxTokens     int                  `json:"max_tokens"`
	Temperature   *float64             `json:"temperature,omitempty"`
	Stop          []string             `json:"stop,omitempty"`
	Stream        bool                 `json:"stream,omitempty"`
	StreamOptions *openaiStreamOptions `json:"stream_options,omitempty"`
}

type openaiStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens        int64                      `json:"prompt_tokens"`
	CompletionTokens    int64                      `json:"completion_tokens"`
	PromptTokensDetails *openaiPromptTokensDetails `json:"prompt_tokens_details,omitempty"`
}

type openaiPromptTokensDetails struct {
	CachedTokens int64 `json:"cached_tokens"`
}

func (usage *openaiUsage) toUsage() Usage {
	result := Usage{
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
	}
	if usage.PromptTokensDetails != nil {
		result.CacheReadTokens = usage.PromptTokensDetails.CachedTokens
	}
	return result
}

// openaiStreamChunk carries "delta" where a full response has
// "message". finish_reason stays null until the last content chunk.
type openaiStreamChunk struct {
	Model   string               `json:"model"`
	Choices []openaiStreamChoice `json:"choices"`
	Usage   *openaiUsage         `json:"usage,omitempty"`
	Error   *openaiStreamError   `json:"error,omitempty"`
}

type openaiStreamChoice struct {
	Delta        openaiStreamDelta `json:"delta"`
	FinishReason *string           `json:"finish_reason"`
}

type openaiStreamDelta struct {
	Content string `json:"content,omitempty"`
}

type openaiStreamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (wire *openaiResponse) toResponse() *Response {
	response := &Response{Model: wire.Model, Usage: wire.Usage.toUsage()}
	if len(wire.Choices) > 0 {
		response.Text = wire.Choices[0].Message.Content
		response.StopReason = mapOpenAIFinishReason(wire.Choices[0].FinishReason)
	}
	return response
}

func mapOpenAIFinishReason(reason string) StopReason {
	switch reason {
	case "stop":
		return StopReasonEndTurn
	case "length":
		return StopReasonMaxTokens
	default:
		// content_filter and friends pass through.
		return StopReason(reason)
	}
}
