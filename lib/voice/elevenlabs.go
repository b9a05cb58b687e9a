// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/ensemble/lib/version"
)

// DefaultBaseURL is the ElevenLabs API root.
const DefaultBaseURL = "https://api.elevenlabs.io"

// DefaultModel is the synthesis model used when none is configured.
const DefaultModel = "eleven_multilingual_v2"

// ErrNoVoice is returned by FindVoice when the search matches nothing.
var ErrNoVoice = errors.New("voice: no voice matches the description")

// APIError is a non-200 response from ElevenLabs.
type APIError struct {
	StatusCode int

	// Status is the machine-readable status from the error detail,
	// when present (e.g. "quota_exceeded").
	Status string

	Message string
}

func (err *APIError) Error() string {
	if err.Status != "" {
		return fmt.Sprintf("elevenlabs: HTTP %d: %s: %s", err.StatusCode, err.Status, err.Message)
	}
	return fmt.Sprintf("elevenlabs: HTTP %d: %s", err.StatusCode, err.Message)
}

// ElevenLabs is a client for the text-to-speech and voice search
// endpoints. It is safe for concurrent use.
type ElevenLabs struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewElevenLabs creates a client. An empty baseURL uses
// DefaultBaseURL; an empty model uses DefaultModel.
func NewElevenLabs(httpClient *http.Client, baseURL, apiKey, model string) *ElevenLabs {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &ElevenLabs{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize returns MP3 audio of text spoken in voiceID.
func (client *ElevenLabs) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: client.model})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshaling request: %w", err)
	}

	endpoint := client.baseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID) +
		"?output_format=mp3_44100_128"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "audio/mpeg")

	response, err := client.do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	audio, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: reading audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs: empty audio response")
	}
	return audio, nil
}

// FindVoice returns the ID of the best voice matching query, for
// example "gravelly detective, male, mid-40s".
func (client *ElevenLabs) FindVoice(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrNoVoice
	}

	parameters := url.Values{}
	parameters.Set("search", query)
	parameters.Set("page_size", "1")
	request, err := http.NewRequestWithContext(ctx, http.MethodGet,
		client.baseURL+"/v2/voices?"+parameters.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: creating request: %w", err)
	}

	response, err := client.do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	var result struct {
		Voices []struct {
			VoiceID string `json:"voice_id"`
			Name    string `json:"name"`
		} `json:"voices"`
	}
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("elevenlabs: decoding voices: %w", err)
	}
	if len(result.Voices) == 0 || result.Voices[0].VoiceID == "" {
		return "", ErrNoVoice
	}
	return result.Voices[0].VoiceID, nil
}

// do authenticates and sends request. On a non-200 status the body is
// closed and an *APIError returned.
func (client *ElevenLabs) do(request *http.Request) (*http.Response, error) {
	request.Header.Set("User-Agent", version.UserAgent())
	if client.apiKey != "" {
		request.Header.Set("xi-api-key", client.apiKey)
	}
	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: sending request: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		defer response.Body.Close()
		return nil, readAPIError(response)
	}
	return response, nil
}

// readAPIError parses {"detail": {"status": "...", "message": "..."}},
// {"detail": "..."}, or falls back to the raw body.
func readAPIError(response *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(response.Body, 4096))

	var wireError struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &wireError) == nil && len(wireError.Detail) > 0 {
		var detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if json.Unmarshal(wireError.Detail, &detail) == nil && detail.Message != "" {
			return &APIError{StatusCode: response.StatusCode, Status: detail.Status, Message: detail.Message}
		}
		var message string
		if json.Unmarshal(wireError.Detail, &message) == nil && message != "" {
			return &APIError{StatusCode: response.StatusCode, Message: message}
		}
	}
	return &APIError{StatusCode: response.StatusCode, Message: strings.TrimSpace(string(body))}
}
