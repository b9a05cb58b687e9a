// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/ensemble/lib/config"
	"github.com/bureau-foundation/ensemble/lib/history"
	"github.com/bureau-foundation/ensemble/lib/scene"
	"github.com/bureau-foundation/ensemble/lib/testutil"
	"github.com/bureau-foundation/ensemble/lib/transcript"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"chatty", 0, true},
	}
	for _, test := range tests {
		level, err := parseLevel(test.name)
		if (err != nil) != test.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", test.name, err, test.wantErr)
			continue
		}
		if err == nil && level != test.want {
			t.Errorf("parseLevel(%q) = %v, want %v", test.name, level, test.want)
		}
	}
}

func writeScene(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inn.yaml")
	scene := `
title: Last Orders
opening_scene: The Gilded Lantern is about to close.
characters:
  - name: Ana
    persona: The landlady.
  - name: Bob
    persona: A carter.
run:
  max_turns: 12
  mode: plain
voice:
  enabled: true
`
	if err := os.WriteFile(path, []byte(scene), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigAppliesFlags(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("ELEVENLABS_API_KEY", "")

	cfg, err := loadConfig(options{
		configPath: writeScene(t),
		mode:       "headless",
		maxTurns:   3,
		pace:       "1s",
		transcript: "session.jsonl",
		archive:    "run.ens",
		noVoice:    true,
	})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Run.Mode != config.ModeHeadless || cfg.Run.MaxTurns != 3 || cfg.Run.Pace != "1s" {
		t.Errorf("run = %+v", cfg.Run)
	}
	if cfg.Transcript.Path != "session.jsonl" || cfg.Transcript.ArchivePath != "run.ens" {
		t.Errorf("transcript = %+v", cfg.Transcript)
	}
	if cfg.Voice.Enabled {
		t.Error("--no-voice left voice enabled")
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Errorf("api key = %q, want it from the environment", cfg.LLM.APIKey)
	}
}

func TestLoadConfigKeepsFileValues(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg, err := loadConfig(options{configPath: writeScene(t)})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Run.MaxTurns != 12 || cfg.Run.Mode != config.ModePlain || !cfg.Voice.Enabled {
		t.Errorf("file values overridden by unset flags: %+v", cfg.Run)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("ENSEMBLE_CONFIG", writeScene(t))

	cfg, err := loadConfig(options{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Title != "Last Orders" {
		t.Errorf("title = %q", cfg.Title)
	}
}

func TestLoadConfigPromptOnly(t *testing.T) {
	t.Setenv("ENSEMBLE_CONFIG", "")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg, err := loadConfig(options{prompt: "a heist in a lighthouse"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LLM.APIKey != "test-key" || len(cfg.Characters) != 0 {
		t.Errorf("cfg = %+v, want defaults with the environment key", cfg)
	}
}

func TestLoadConfigNoScene(t *testing.T) {
	t.Setenv("ENSEMBLE_CONFIG", "")

	_, err := loadConfig(options{})
	if err == nil || !strings.Contains(err.Error(), "no scene") {
		t.Errorf("loadConfig = %v, want a no-scene error", err)
	}
}

func TestEither(t *testing.T) {
	ctx := context.Background()

	first := make(chan struct{})
	merged := either(ctx, first, make(chan struct{}))
	close(first)
	testutil.RequireClosed(t, merged, 5*time.Second, "merged after first")

	second := make(chan struct{})
	merged = either(ctx, nil, second)
	close(second)
	testutil.RequireClosed(t, merged, 5*time.Second, "merged after second")

	cancelled, cancel := context.WithCancel(ctx)
	merged = either(cancelled, nil, nil)
	cancel()
	testutil.RequireClosed(t, merged, 5*time.Second, "merged after cancel")
}

func TestGenerateScene(t *testing.T) {
	cfg := config.Default()
	cfg.Narrator.Guide = "Keep it light."
	caller := scene.CallerFunc(func(_ context.Context, request scene.CallRequest) (string, error) {
		if request.Operation != scene.OperationSetup {
			t.Errorf("operation = %v, want setup", request.Operation)
		}
		return `{"title": "Lamp Oil", "opening_scene": "Fog rolls over the rocks.",
			"characters": [
				{"name": " Ida ", "backstory": "The keeper.", "voice_description": "old, Scottish"},
				{"name": "Rook", "backstory": "A smuggler.", "voice_description": "young, nervous"}
			]}`, nil
	})

	err := generateScene(context.Background(), cfg, scene.AgentOptions{Caller: caller}, "a heist in a lighthouse", slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("generateScene: %v", err)
	}
	if cfg.Title != "Lamp Oil" || cfg.OpeningScene != "Fog rolls over the rocks." {
		t.Errorf("scene = %q / %q", cfg.Title, cfg.OpeningScene)
	}
	if names := strings.Join(cfg.CharacterNames(), ","); names != "Ida,Rook" {
		t.Errorf("cast = %s", names)
	}
	if cfg.Characters[0].Persona != "The keeper." || cfg.Characters[0].VoiceDescription != "old, Scottish" {
		t.Errorf("character = %+v", cfg.Characters[0])
	}
	if cfg.Narrator.Guide != "Keep it light." {
		t.Errorf("guide replaced: %q", cfg.Narrator.Guide)
	}
}

func TestNewEstimatorChars(t *testing.T) {
	cfg := config.Default()
	cfg.History.CharactersPerToken = 2
	estimator := newEstimator(cfg, slog.New(slog.DiscardHandler))
	if _, ok := estimator.(*history.CharEstimator); !ok {
		t.Errorf("estimator = %T, want *history.CharEstimator", estimator)
	}
}

func TestCastMembers(t *testing.T) {
	cfg := config.Default()
	cfg.Characters = []config.CharacterConfig{
		{Name: " Ana ", Persona: "The landlady."},
		{Name: "Bob", Persona: "A carter."},
	}
	cast := castMembers(cfg, map[string]string{"Ana": "voice-ana"})
	if len(cast) != 2 || cast[0].Name != "Ana" || cast[0].VoiceID != "voice-ana" || cast[1].VoiceID != "" {
		t.Errorf("cast = %+v", cast)
	}
}

// innServer answers Anthropic Messages requests: Ana always wants to
// speak and Bob never does.
func innServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/messages", func(writer http.ResponseWriter, request *http.Request) {
		var wireRequest struct {
			System   string `json:"system"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(request.Body).Decode(&wireRequest); err != nil || len(wireRequest.Messages) == 0 {
			writer.WriteHeader(http.StatusBadRequest)
			return
		}
		prompt := wireRequest.Messages[len(wireRequest.Messages)-1].Content

		var reply string
		switch {
		case strings.Contains(prompt, "Do you, Ana,"):
			reply = "YES"
		case strings.Contains(prompt, "Do you,"):
			reply = "NO"
		case strings.HasPrefix(wireRequest.System, "You are the narrator"):
			reply = "The fire crackles."
		default:
			reply = "Last orders, gentlemen."
		}
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(map[string]any{
			"id":          "msg_01",
			"model":       "claude-sonnet-4-20250514",
			"content":     []map[string]any{{"type": "text", "text": reply}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 50, "output_tokens": 5},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunSceneHeadless(t *testing.T) {
	server := innServer(t)
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Title = "Last Orders"
	cfg.OpeningScene = "The Gilded Lantern is about to close."
	cfg.Characters = []config.CharacterConfig{
		{Name: "Ana", Persona: "The landlady."},
		{Name: "Bob", Persona: "A carter."},
	}
	cfg.LLM.BaseURL = server.URL
	cfg.LLM.APIKey = "test-key"
	cfg.Run.Mode = config.ModeHeadless
	cfg.Run.MaxTurns = 2
	cfg.Run.Stream = false
	cfg.Transcript.Path = filepath.Join(dir, "session.jsonl")
	cfg.Transcript.ArchivePath = filepath.Join(dir, "run.ens")
	cfg.Transcript.Compression = "lz4"

	err := runScene(context.Background(), nil, slog.New(slog.DiscardHandler), cfg, "")
	if err != nil {
		t.Fatalf("runScene: %v", err)
	}

	archive, err := transcript.ReadArchive(cfg.Transcript.ArchivePath)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if archive.Outcome.Reason != string(scene.StopReasonMaxTurns) || archive.Outcome.Turns != 2 {
		t.Errorf("outcome = %+v", archive.Outcome)
	}
	var speakers []string
	for _, message := range archive.Messages {
		speakers = append(speakers, message.Speaker)
	}
	if got := strings.Join(speakers, ","); got != "narrator,narrator,Ana,narrator,Ana" {
		t.Errorf("speakers = %s", got)
	}

	file, err := os.Open(cfg.Transcript.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	records, err := transcript.ReadLog(file)
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(records) != 7 {
		t.Fatalf("log has %d records, want header, 5 messages, footer", len(records))
	}
	if records[0].Type != transcript.RecordHeader || records[0].RunID != archive.RunID {
		t.Errorf("header = %+v, want run %s", records[0], archive.RunID)
	}
	if records[6].Type != transcript.RecordFooter || records[6].Outcome.Turns != 2 {
		t.Errorf("footer = %+v", records[6])
	}
}
