// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSynthesize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/text-to-speech/voice-ana" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("output_format") != "mp3_44100_128" {
			t.Errorf("output_format = %q", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("xi-api-key = %q", r.Header.Get("xi-api-key"))
		}
		var body synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		if body.Text != "Evening." || body.ModelID != DefaultModel {
			t.Errorf("body = %+v", body)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake-mp3"))
	}))
	defer server.Close()

	client := NewElevenLabs(server.Client(), server.URL+"/", "test-key", "")
	audio, err := client.Synthesize(context.Background(), "voice-ana", "Evening.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3fake-mp3" {
		t.Errorf("audio = %q", audio)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus string
		wantText   string
	}{
		{
			name:       "detail object",
			status:     http.StatusUnauthorized,
			body:       `{"detail":{"status":"quota_exceeded","message":"Quota exceeded."}}`,
			wantStatus: "quota_exceeded",
			wantText:   "Quota exceeded.",
		},
		{
			name:     "detail string",
			status:   http.StatusNotFound,
			body:     `{"detail":"voice not found"}`,
			wantText: "voice not found",
		},
		{
			name:     "plain body",
			status:   http.StatusBadGateway,
			body:     "upstream unavailable\n",
			wantText: "upstream unavailable",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
				w.Write([]byte(test.body))
			}))
			defer server.Close()

			client := NewElevenLabs(server.Client(), server.URL, "k", "")
			_, err := client.Synthesize(context.Background(), "v", "text")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.StatusCode != test.status || apiErr.Status != test.wantStatus || apiErr.Message != test.wantText {
				t.Errorf("APIError = %+v", apiErr)
			}
		})
	}
}

func TestFindVoice(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/voices" {
			t.Errorf("path = %s", r.URL.Path)
		}
		switch r.URL.Query().Get("search") {
		case "gravelly sailor":
			if r.URL.Query().Get("page_size") != "1" {
				t.Errorf("page_size = %q", r.URL.Query().Get("page_size"))
			}
			w.Write([]byte(`{"voices":[{"voice_id":"voice-leo","name":"Leo"}],"has_more":false}`))
		default:
			w.Write([]byte(`{"voices":[]}`))
		}
	}))
	defer server.Close()

	client := NewElevenLabs(server.Client(), server.URL, "k", "")

	voiceID, err := client.FindVoice(context.Background(), " gravelly sailor ")
	if err != nil || voiceID != "voice-leo" {
		t.Errorf("FindVoice = %q, %v", voiceID, err)
	}
	if _, err := client.FindVoice(context.Background(), "choir of robots"); !errors.Is(err, ErrNoVoice) {
		t.Errorf("FindVoice(no match) = %v, want ErrNoVoice", err)
	}
	if _, err := client.FindVoice(context.Background(), "  "); !errors.Is(err, ErrNoVoice) {
		t.Errorf("FindVoice(empty) = %v, want ErrNoVoice", err)
	}
}

func TestNewElevenLabsDefaults(t *testing.T) {
	t.Parallel()

	client := NewElevenLabs(nil, "", "", "")
	if client.baseURL != DefaultBaseURL || client.model != DefaultModel || client.httpClient == nil {
		t.Errorf("client = %+v", client)
	}
}
