// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bureau-foundation/ensemble/lib/version"
)

// Provider is a completion backend. Complete blocks for the whole
// reply; Stream returns as soon as the response headers arrive and
// the caller must Close the stream.
type Provider interface {
	Complete(ctx context.Context, request Request) (*Response, error)
	Stream(ctx context.Context, request Request) (*EventStream, error)
}

// ProviderError is a non-200 answer from a vendor API.
type ProviderError struct {
	StatusCode int

	// Type is the vendor's error class, such as "rate_limit_error".
	// Empty when the body was not in the usual error envelope.
	Type string

	Message string
}

func (err *ProviderError) Error() string {
	if err.Type == "" {
		return fmt.Sprintf("llm: HTTP %d: %s", err.StatusCode, err.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
}

// IsRateLimited reports a 429.
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == http.StatusTooManyRequests
}

// IsOverloaded reports Anthropic's 529 or the 503 that OpenAI-style
// servers use for the same condition.
func (err *ProviderError) IsOverloaded() bool {
	switch err.StatusCode {
	case 529, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// errorBodyLimit bounds how much of a failed response is read.
const errorBodyLimit = 4 << 10

// apiClient posts JSON to one vendor endpoint.
type apiClient struct {
	httpClient *http.Client
	url        string
	header     http.Header

	// label prefixes every error, e.g. "llm/openai".
	label string
}

// post sends payload and returns the open body of a 200 response.
// Any other status is drained into a *ProviderError.
func (api apiClient) post(ctx context.Context, payload any, streaming bool) (io.ReadCloser, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshaling request: %w", api.label, err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, api.url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", api.label, err)
	}
	for name, values := range api.header {
		request.Header[name] = values
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", version.UserAgent())
	if streaming {
		request.Header.Set("Accept", "text/event-stream")
	}

	response, err := api.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s: sending request: %w", api.label, err)
	}
	if response.StatusCode == http.StatusOK {
		return response.Body, nil
	}
	defer response.Body.Close()
	return nil, parseProviderError(response.StatusCode, response.Body)
}

// wireResponse is a vendor response body that converts to [Response].
type wireResponse[T any] interface {
	*T
	toResponse() *Response
}

// complete posts a non-streaming request and decodes the body as W.
func complete[W any, P wireResponse[W]](ctx context.Context, api apiClient, payload any) (*Response, error) {
	body, err := api.post(ctx, payload, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	decoded := P(new(W))
	if err := json.NewDecoder(body).Decode(decoded); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", api.label, err)
	}
	return decoded.toResponse(), nil
}

// parseProviderError reads the {"error":{"type","message"}} envelope
// that both vendors use, falling back to the raw body text.
func parseProviderError(status int, body io.Reader) *ProviderError {
	raw, _ := io.ReadAll(io.LimitReader(body, errorBodyLimit))

	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return &ProviderError{StatusCode: status, Type: envelope.Error.Type, Message: envelope.Error.Message}
	}
	return &ProviderError{StatusCode: status, Message: string(raw)}
}
