// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// Synthesizer turns text into audio. *ElevenLabs implements it.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

// AudioPlayer plays one clip and returns when playback ends.
type AudioPlayer interface {
	Play(ctx context.Context, audio []byte) error
}

// NarratorSpeaker is the speaker name that selects the narrator voice.
const NarratorSpeaker = "narrator"

// DefaultQueueSize bounds the lines waiting to be spoken.
const DefaultQueueSize = 64

// PlayerOptions configures a Player.
type PlayerOptions struct {
	// Synthesizer produces audio. Required.
	Synthesizer Synthesizer

	// Audio plays clips. Required.
	Audio AudioPlayer

	// Voices maps character names to voice IDs. Characters not in the
	// map are silent.
	Voices map[string]string

	// NarratorVoiceID is used for narration. Empty silences the
	// narrator.
	NarratorVoiceID string

	// CacheSize is the number of clips kept. Zero disables caching.
	CacheSize int

	// QueueSize bounds pending lines; when full, new lines are
	// dropped with a warning. Zero uses DefaultQueueSize.
	QueueSize int

	Logger *slog.Logger
}

type utterance struct {
	speaker string
	voiceID string
	text    string
}

// Player speaks lines in order on a background goroutine.
type Player struct {
	synthesizer Synthesizer
	audio       AudioPlayer
	voices      map[string]string
	narrator    string
	cache       *clipCache
	logger      *slog.Logger

	queue  chan utterance
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewPlayer starts a Player. Call Close to stop it.
func NewPlayer(options PlayerOptions) *Player {
	if options.QueueSize <= 0 {
		options.QueueSize = DefaultQueueSize
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	voices := make(map[string]string, len(options.Voices))
	for name, voiceID := range options.Voices {
		voices[name] = voiceID
	}

	ctx, cancel := context.WithCancel(context.Background())
	player := &Player{
		synthesizer: options.Synthesizer,
		audio:       options.Audio,
		voices:      voices,
		narrator:    options.NarratorVoiceID,
		cache:       newClipCache(options.CacheSize),
		logger:      options.Logger,
		queue:       make(chan utterance, options.QueueSize),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go player.run(ctx)
	return player
}

// Speak queues text for speaker and returns immediately. Speakers
// without a voice, and calls after Close, are ignored.
func (player *Player) Speak(speaker, text string) {
	voiceID := player.voices[speaker]
	if speaker == NarratorSpeaker {
		voiceID = player.narrator
	}
	if voiceID == "" {
		return
	}

	player.mu.Lock()
	defer player.mu.Unlock()
	if player.closed {
		return
	}
	select {
	case player.queue <- utterance{speaker: speaker, voiceID: voiceID, text: text}:
	default:
		player.logger.Warn("speech queue full, dropping line", "speaker", speaker)
	}
}

// Close stops accepting lines and waits for the queue to drain. If ctx
// ends first, playback is abandoned and ctx's error returned.
func (player *Player) Close(ctx context.Context) error {
	player.mu.Lock()
	if !player.closed {
		player.closed = true
		close(player.queue)
	}
	player.mu.Unlock()

	select {
	case <-player.done:
		player.cancel()
		return nil
	case <-ctx.Done():
		player.cancel()
		<-player.done
		return ctx.Err()
	}
}

func (player *Player) run(ctx context.Context) {
	defer close(player.done)
	for item := range player.queue {
		if ctx.Err() != nil {
			continue
		}
		if err := player.speak(ctx, item); err != nil && ctx.Err() == nil {
			player.logger.Error("speech failed",
				"speaker", item.speaker,
				"voice_id", item.voiceID,
				"error", err,
			)
		}
	}
}

func (player *Player) speak(ctx context.Context, item utterance) error {
	text := SpeechText(item.text)
	if text == "" {
		return nil
	}

	key := newClipKey(item.voiceID, text)
	audio, cached := player.cache.get(key)
	if !cached {
		var err error
		audio, err = player.synthesizer.Synthesize(ctx, item.voiceID, text)
		if err != nil {
			return fmt.Errorf("synthesizing: %w", err)
		}
		player.cache.put(key, audio)
	}
	player.logger.Debug("speaking",
		"speaker", item.speaker,
		"bytes", len(audio),
		"cached", cached,
	)

	if err := player.audio.Play(ctx, audio); err != nil {
		return fmt.Errorf("playing: %w", err)
	}
	return nil
}

// CommandPlayer plays clips with an external program. Each clip is
// written to a temporary .mp3 file whose path is appended to Command.
type CommandPlayer struct {
	Command []string
}

// knownPlayers are tried in order by DetectPlayer.
var knownPlayers = [][]string{
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"mpv", "--no-video", "--really-quiet"},
	{"afplay"},
}

// DetectPlayer returns the first known audio player found in PATH.
func DetectPlayer() (*CommandPlayer, error) {
	for _, command := range knownPlayers {
		if path, err := exec.LookPath(command[0]); err == nil {
			resolved := append([]string{path}, command[1:]...)
			return &CommandPlayer{Command: resolved}, nil
		}
	}
	return nil, errors.New("voice: no audio player found in PATH (install ffplay, mpv, or afplay)")
}

// Play writes audio to a temporary file and runs the command on it.
func (player *CommandPlayer) Play(ctx context.Context, audio []byte) error {
	if len(player.Command) == 0 {
		return errors.New("voice: player command is empty")
	}

	file, err := os.CreateTemp("", "ensemble-clip-*.mp3")
	if err != nil {
		return fmt.Errorf("creating clip file: %w", err)
	}
	path := file.Name()
	defer os.Remove(path)

	if _, err := file.Write(audio); err != nil {
		file.Close()
		return fmt.Errorf("writing clip file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing clip file: %w", err)
	}

	arguments := append(append([]string(nil), player.Command[1:]...), path)
	command := exec.CommandContext(ctx, player.Command[0], arguments...)
	if output, err := command.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", player.Command[0], err, output)
	}
	return nil
}

// VoiceFinder searches for a voice by description. *ElevenLabs
// implements it.
type VoiceFinder interface {
	FindVoice(ctx context.Context, query string) (string, error)
}

// ResolveVoices returns a voice ID per character. Explicit IDs are
// kept; otherwise the description is searched. Characters whose
// search fails are left out (silent) and the failure is logged.
// ctx errors end the resolution.
func ResolveVoices(ctx context.Context, finder VoiceFinder, explicit, descriptions map[string]string, logger *slog.Logger) (map[string]string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	voices := make(map[string]string)
	for name, voiceID := range explicit {
		if voiceID != "" {
			voices[name] = voiceID
		}
	}
	for name, description := range descriptions {
		if _, ok := voices[name]; ok || description == "" {
			continue
		}
		voiceID, err := finder.FindVoice(ctx, description)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			logger.Warn("no voice for character, it will be silent",
				"character", name,
				"description", description,
				"error", err,
			)
			continue
		}
		logger.Info("voice resolved", "character", name, "voice_id", voiceID)
		voices[name] = voiceID
	}
	return voices, nil
}
