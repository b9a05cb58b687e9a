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

// DefaultAnthropicBaseURL is the public Anthropic API origin.
const DefaultAnthropicBaseURL = "https://api.anthropic.com"

const (
	anthropicVersion = "2023-06-01"
	anthropicLabel   = "llm/anthropic"
)

// Anthropic talks to the Messages API.
type Anthropic struct {
	api apiClient
}

// NewAnthropic creates an Anthropic provider. An empty baseURL selects
// [DefaultAnthropicBaseURL]. An empty apiKey sends no x-api-key header,
// which suits gateways that add credentials themselves.
func NewAnthropic(httpClient *http.Client, baseURL, apiKey string) *Anthropic {
	if baseURL == "" {
		baseURL = DefaultAnthropicBaseURL
	}
	header := http.Header{}
	header.Set("anthropic-version", anthropicVersion)
	if apiKey != "" {
		header.Set("x-api-key", apiKey)
	}
	return &Anthropic{api: apiClient{
		httpClient: httpClient,
		url:        strings.TrimRight(baseURL, "/") + "/v1/messages",
		header:     header,
		label:      anthropicLabel,
	}}
}

// Complete sends a non-streaming request.
func (provider *Anthropic) Complete(ctx context.Context, request Request) (*Response, error) {
	return complete[anthropicResponse](ctx, provider.api, newAnthropicRequest(request, false))
}

// Stream sends a streaming request. Only text deltas surface as
// events; other content block types are skipped.
func (provider *Anthropic) Stream(ctx context.Context, request Request) (*EventStream, error) {
	body, err := provider.api.post(ctx, newAnthropicRequest(request, true), true)
	if err != nil {
		return nil, err
	}
	return newEventStream(sseReader(body, anthropicLabel, decodeAnthropicEvent), body), nil
}

func newAnthropicRequest(request Request, stream bool) anthropicRequest {
	wire := anthropicRequest{
		Model:         request.Model,
		MaxTokens:     request.MaxTokens,
		System:        request.System,
		Temperature:   request.Temperature,
		StopSequences: request.StopSequences,
		Stream:        stream,
		Messages:      make([]anthropicMessage, 0, len(request.Messages)),
	}
	for _, message := range request.Messages {
		wire.Messages = append(wire.Messages, anthropicMessage{Role: string(message.Role), Content: message.Text})
	}
	return wire
}

// anthropicEnvelope covers every SSE payload shape this client reads.
// Fields absent from a given event type decode as zero.
type anthropicEnvelope struct {
	Message struct {
		Model string         `json:"model"`
		Usage anthropicUsage `json:"usage"`
	} `json:"message"`
	Delta struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage struct {
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeAnthropicEvent(event SSEEvent, partial *Response) (StreamEvent, bool, error) {
	switch event.Type {
	case "message_stop":
		return StreamEvent{Type: EventDone}, true, nil
	case "ping":
		return StreamEvent{Type: EventPing}, true, nil
	case "message_start", "content_block_delta", "message_delta", "error":
	default:
		// content_block_start, content_block_stop, and anything newer.
		return StreamEvent{}, false, nil
	}

	var envelope anthropicEnvelope
	if err := json.Unmarshal([]byte(event.Data), &envelope); err != nil {
		if event.Type == "error" {
			return StreamEvent{Type: EventError, Error: fmt.Errorf("%s: stream error: %s", anthropicLabel, event.Data)}, true, nil
		}
		return StreamEvent{}, false, fmt.Errorf("%s: parsing %s: %w", anthropicLabel, event.Type, err)
	}

	switch event.Type {
	case "message_start":
		partial.Model = envelope.Message.Model
		partial.Usage.InputTokens = envelope.Message.Usage.InputTokens
		partial.Usage.CacheReadTokens = envelope.Message.Usage.CacheReadInputTokens
	case "content_block_delta":
		if envelope.Delta.Type == "text_delta" && envelope.Delta.Text != "" {
			return StreamEvent{Type: EventTextDelta, Text: envelope.Delta.Text}, true, nil
		}
	case "message_delta":
		partial.StopReason = mapAnthropicStopReason(envelope.Delta.StopReason)
		partial.Usage.OutputTokens += envelope.Usage.OutputTokens
	case "error":
		err := fmt.Errorf("%s: stream error: %s: %s", anthropicLabel, envelope.Error.Type, envelope.Error.Message)
		return StreamEvent{Type: EventError, Error: err}, true, nil
	}
	return StreamEvent{}, false, nil
}

type anthropicRequest struct {
	Model         string             `json:"model"`
	MaxTokens     int                `json:"max_tokens"`
	System        string             `json:"system,omitempty"`
	Messages      []anthropicMessage `json:"messages"`
	Temperature   *float64           `json:"temperature,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Stream        bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      anthropicUsage `json:"usage"`
}

type anthropicUsage struct {
	InputTokens          int64 `json:"input_tokens"`
	OutputTokens         int64 `json:"output_tokens"`
	CacheReadInputTokens int64 `json:"cache_read_input_tokens"`
}

func (wire *anthropicResponse) toResponse() *Response {
	var text strings.Builder
	for _, block := range wire.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &Response{
		Text:       text.String(),
		StopReason: mapAnthropicStopReason(wire.StopReason),
		Model:      wire.Model,
		Usage: Usage{
			InputTokens:     wire.Usage.InputTokens,
			OutputTokens:    wire.Usage.OutputTokens,
			CacheReadTokens: wire.Usage.CacheReadInputTokens,
		},
	}
}

// mapAnthropicStopReason passes unknown reasons through unchanged.
func mapAnthropicStopReason(reason string) StopReason {
	return StopReason(reason)
}
