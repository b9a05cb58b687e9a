// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bureau-foundation/ensemble/lib/clock"
	"github.com/bureau-foundation/ensemble/lib/config"
	"github.com/bureau-foundation/ensemble/lib/history"
	"github.com/bureau-foundation/ensemble/lib/llm"
	"github.com/bureau-foundation/ensemble/lib/scene"
	"github.com/bureau-foundation/ensemble/lib/transcript"
	"github.com/bureau-foundation/ensemble/lib/voice"
)

// runScene wires a conversation from cfg and runs it to the end. With
// a story prompt the narrator first invents the title, opening scene,
// and cast, replacing any from the scene file.
func runScene(ctx context.Context, stop <-chan struct{}, logger *slog.Logger, cfg *config.Config, prompt string) error {
	httpClient := &http.Client{}
	provider, err := newProvider(cfg, httpClient)
	if err != nil {
		return err
	}
	agentOptions := scene.AgentOptions{
		Caller: scene.NewProviderCaller(provider, cfg.LLM.Model),
		Events: scene.NewLogSink(logger.With("component", "scene")),
		Limits: scene.TokenLimits{
			Poll:    cfg.LLM.MaxTokens.Poll,
			Select:  cfg.LLM.MaxTokens.Select,
			Narrate: cfg.LLM.MaxTokens.Narrate,
			Speak:   cfg.LLM.MaxTokens.Speak,
			Setup:   cfg.LLM.MaxTokens.Setup,
		},
	}

	if prompt != "" {
		if err := generateScene(ctx, cfg, agentOptions, prompt, logger); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	pace, err := cfg.PaceDuration()
	if err != nil {
		return err
	}
	compression, err := transcript.ParseCompression(cfg.Transcript.Compression)
	if err != nil {
		return err
	}

	runID := transcript.NewRunID()
	logger = logger.With("run", runID)

	speech, voices, err := newSpeech(ctx, cfg, httpClient, logger)
	if err != nil {
		return err
	}
	cast := castMembers(cfg, voices)

	run := &sceneRun{
		logger:      logger,
		archivePath: cfg.Transcript.ArchivePath,
		compression: compression,
		speech:      speech,
		recorder:    transcript.NewRecorder(runID, cfg.Title, cfg.Narrator.Guide, cast, clock.Real()),
	}
	observers := []scene.Observer{run.recorder}
	if cfg.Transcript.Path != "" {
		sessionLog, err := transcript.CreateLog(cfg.Transcript.Path, clock.Real())
		if err != nil {
			run.closeSpeech(ctx)
			return err
		}
		defer sessionLog.Close()
		if err := sessionLog.Begin(runID, cfg.Title, cast); err != nil {
			run.closeSpeech(ctx)
			return err
		}
		run.sessionLog = sessionLog
		observers = append(observers, sessionLog)
	}

	characters := make([]*scene.Character, len(cfg.Characters))
	for i, character := range cfg.Characters {
		characters[i] = scene.NewCharacter(strings.TrimSpace(character.Name), character.Persona, agentOptions)
	}
	conversationConfig := scene.Config{
		History: history.New(history.Options{
			Clock:     clock.Real(),
			Estimator: newEstimator(cfg, logger),
		}),
		Characters: characters,
		Narrator: scene.NewNarrator(scene.NarratorOptions{
			AgentOptions:   agentOptions,
			Guide:          cfg.Narrator.Guide,
			Cast:           cfg.CharacterNames(),
			FuzzySelection: cfg.Selection.Fuzzy,
		}),
		OpeningScene:   cfg.OpeningScene,
		MaxTurns:       cfg.Run.MaxTurns,
		QuietTurnLimit: cfg.Run.QuietTurnLimit,
		TokenBudget:    cfg.Run.TokenBudget,
		Stream:         cfg.Run.Stream,
		Observers:      observers,
		Events:         agentOptions.Events,
	}
	if speech != nil {
		conversationConfig.Voice = speech
	}

	logger.Info("starting conversation",
		"title", cfg.Title,
		"cast", cfg.CharacterNames(),
		"model", cfg.LLM.Model,
		"max_turns", cfg.Run.MaxTurns,
		"token_budget", cfg.Run.TokenBudget,
		"voice", speech != nil,
	)
	return presentWith(ctx, stop, logger, cfg.Run.Mode, cfg.Title, pace,
		func(ctx context.Context, presenter scene.Presenter, stop <-chan struct{}) (scene.Outcome, error) {
			conversationConfig.Presenter = presenter
			conversation, err := scene.New(conversationConfig)
			if err != nil {
				run.closeSpeech(ctx)
				return scene.Outcome{Reason: scene.StopReasonFailed}, err
			}
			outcome, runErr := conversation.Run(ctx, stop)
			return outcome, errors.Join(runErr, run.finish(ctx, outcome, runErr))
		})
}

func newProvider(cfg *config.Config, httpClient *http.Client) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case config.ProviderAnthropic:
		return llm.NewAnthropic(httpClient, cfg.LLM.BaseURL, cfg.LLM.APIKey), nil
	case config.ProviderOpenAI:
		return llm.NewOpenAI(httpClient, cfg.LLM.BaseURL, cfg.LLM.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// newEstimator returns the configured token estimator. A tiktoken
// encoding that cannot be loaded falls back to the character ratio.
func newEstimator(cfg *config.Config, logger *slog.Logger) history.TokenEstimator {
	fallback := history.NewCharEstimator(cfg.History.CharactersPerToken, -1)
	if cfg.History.Estimator != config.EstimatorTiktoken {
		return fallback
	}
	estimator, err := history.NewTiktokenEstimator(cfg.LLM.Model)
	if err != nil {
		logger.Warn("using character-ratio token estimates", "error", err)
		return fallback
	}
	logger.Debug("using tiktoken estimates", "encoding", estimator.Encoding())
	return estimator
}

// generateScene asks the narrator to invent the story and writes it
// into cfg.
func generateScene(ctx context.Context, cfg *config.Config, agentOptions scene.AgentOptions, prompt string, logger *slog.Logger) error {
	narrator := scene.NewNarrator(scene.NarratorOptions{
		AgentOptions: agentOptions,
		Guide:        cfg.Narrator.Guide,
	})
	logger.Info("generating story", "prompt", prompt)
	setup, err := narrator.GenerateSetup(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generating story: %w", err)
	}

	cfg.Title = setup.Title
	cfg.OpeningScene = setup.OpeningScene
	cfg.Characters = make([]config.CharacterConfig, len(setup.Characters))
	for i, character := range setup.Characters {
		cfg.Characters[i] = config.CharacterConfig{
			Name:             character.Name,
			Persona:          character.Backstory,
			VoiceDescription: character.VoiceDescription,
		}
	}
	logger.Info("story generated", "title", setup.Title, "cast", cfg.CharacterNames())
	return nil
}

// newSpeech starts the voice player when speech is enabled. A machine
// with no audio player runs silently with a warning.
func newSpeech(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (*voice.Player, map[string]string, error) {
	if !cfg.Voice.Enabled {
		return nil, nil, nil
	}
	logger = logger.With("component", "voice")

	var audio voice.AudioPlayer
	if len(cfg.Voice.Player) > 0 {
		audio = &voice.CommandPlayer{Command: cfg.Voice.Player}
	} else {
		detected, err := voice.DetectPlayer()
		if err != nil {
			logger.Warn("speech disabled", "error", err)
			return nil, nil, nil
		}
		audio = detected
	}

	client := voice.NewElevenLabs(httpClient, cfg.Voice.BaseURL, cfg.Voice.APIKey, cfg.Voice.Model)
	explicit := make(map[string]string)
	descriptions := make(map[string]string)
	for _, character := range cfg.Characters {
		name := strings.TrimSpace(character.Name)
		explicit[name] = character.VoiceID
		descriptions[name] = character.VoiceDescription
	}
	voices, err := voice.ResolveVoices(ctx, client, explicit, descriptions, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving voices: %w", err)
	}

	player := voice.NewPlayer(voice.PlayerOptions{
		Synthesizer:     client,
		Audio:           audio,
		Voices:          voices,
		NarratorVoiceID: cfg.Voice.NarratorVoiceID,
		CacheSize:       cfg.Voice.CacheSize,
		Logger:          logger,
	})
	return player, voices, nil
}

func castMembers(cfg *config.Config, voices map[string]string) []transcript.CastMember {
	cast := make([]transcript.CastMember, len(cfg.Characters))
	for i, character := range cfg.Characters {
		name := strings.TrimSpace(character.Name)
		cast[i] = transcript.CastMember{
			Name:    name,
			Persona: character.Persona,
			VoiceID: voices[name],
		}
	}
	return cast
}
