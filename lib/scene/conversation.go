// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bureau-foundation/ensemble/lib/history"
)

// StopReason is why a conversation ended without error.
type StopReason string

const (
	// StopReasonStopped means the stop channel closed or the context
	// was cancelled.
	StopReasonStopped StopReason = "stopped"

	// StopReasonMaxTurns means the configured number of turns ran.
	StopReasonMaxTurns StopReason = "max_turns"

	// StopReasonQuiet means too many consecutive turns had no
	// character willing to speak.
	StopReasonQuiet StopReason = "quiet"

	// StopReasonFailed accompanies an error from Run.
	StopReasonFailed StopReason = "failed"
)

// Outcome summarizes a finished run.
type Outcome struct {
	Reason StopReason

	// Turns is the number of completed turns, not counting the
	// opening scene.
	Turns int

	// Evicted is the number of messages the budget dropped.
	Evicted int
}

// TurnPresentation is what the presenter shows after a commit.
type TurnPresentation struct {
	// Turn is 0 for the opening scene.
	Turn int

	Narration history.Message
	Line      *history.Message

	Candidates []string
	Anomaly    *SelectionAnomaly
	Evicted    int
}

// Presenter displays the conversation. Present is called once for the
// opening scene and once per committed turn, in order; it may block
// (for pacing or while paused), and the next turn does not start until
// it returns. Chunk receives streamed text when streaming is enabled.
type Presenter interface {
	ChunkSink
	Present(ctx context.Context, presentation TurnPresentation) error
}

// Voice speaks committed text aloud. Speak must not block.
type Voice interface {
	Speak(speaker, text string)
}

// Observer is told about every committed message, including the
// opening scene, in commit order. The session log is an Observer.
type Observer interface {
	Committed(message history.Message) error
}

// Config wires a Conversation.
type Config struct {
	History    *history.History
	Characters []*Character
	Narrator   *Narrator

	// OpeningScene becomes the first narrator message.
	OpeningScene string

	// MaxTurns is the number of turns to run. Must be at least 1.
	MaxTurns int

	// QuietTurnLimit ends the run after that many consecutive turns in
	// which nobody wanted to speak. Zero disables it.
	QuietTurnLimit int

	// TokenBudget bounds History. Zero or less disables it.
	TokenBudget int

	// Stream sends narration and dialogue to the Presenter as they
	// are generated.
	Stream bool

	Presenter Presenter
	Voice     Voice
	Observers []Observer
	Events    EventSink
}

// Conversation drives turns until a termination condition. It is the
// single writer of its History.
type Conversation struct {
	config      Config
	coordinator *Coordinator
	events      EventSink

	mu         sync.Mutex
	started    bool
	turnsTaken int
}

// New validates config and creates a Conversation.
func New(config Config) (*Conversation, error) {
	var errs []error
	if config.History == nil {
		errs = append(errs, errors.New("history is nil"))
	}
	if config.Narrator == nil {
		errs = append(errs, errors.New("narrator is nil"))
	}
	if len(config.Characters) == 0 {
		errs = append(errs, errors.New("no characters"))
	}
	seen := make(map[string]bool)
	for _, character := range config.Characters {
		key := strings.ToLower(character.Name())
		if seen[key] {
			errs = append(errs, fmt.Errorf("character %q appears twice", character.Name()))
		}
		if key == history.SpeakerNarrator {
			errs = append(errs, fmt.Errorf("character may not be named %q", character.Name()))
		}
		seen[key] = true
	}
	if strings.TrimSpace(config.OpeningScene) == "" {
		errs = append(errs, errors.New("opening scene is empty"))
	}
	if config.MaxTurns < 1 {
		errs = append(errs, fmt.Errorf("max turns %d is less than 1", config.MaxTurns))
	}
	if config.QuietTurnLimit < 0 {
		errs = append(errs, fmt.Errorf("quiet turn limit %d is negative", config.QuietTurnLimit))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("scene: invalid conversation: %w", err)
	}

	if config.Events == nil {
		config.Events = nopSink{}
	}
	var sink ChunkSink
	if config.Stream && config.Presenter != nil {
		sink = config.Presenter
	}
	return &Conversation{
		config: config,
		events: config.Events,
		coordinator: NewCoordinator(CoordinatorConfig{
			History:     config.History,
			Characters:  config.Characters,
			Narrator:    config.Narrator,
			TokenBudget: config.TokenBudget,
			Events:      config.Events,
			Sink:        sink,
		}),
	}, nil
}

// TurnsTaken returns the number of completed turns.
func (c *Conversation) TurnsTaken() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnsTaken
}

// Run seeds the opening scene and runs turns until one of:
//   - stop is closed or ctx is cancelled (StopReasonStopped),
//   - MaxTurns turns have completed (StopReasonMaxTurns),
//   - QuietTurnLimit consecutive turns had no candidate (StopReasonQuiet),
//   - a turn fails, in which case the error is returned and History
//     holds everything committed before the failing turn.
//
// The stop channel is checked only between turns; a turn in progress
// always completes or fails as a whole. Run may be called once.
func (c *Conversation) Run(ctx context.Context, stop <-chan struct{}) (Outcome, error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return Outcome{}, errors.New("scene: conversation already ran")
	}
	c.started = true
	c.mu.Unlock()

	opening, err := c.config.History.Append(history.SpeakerNarrator, c.config.OpeningScene)
	if err != nil {
		return Outcome{}, fmt.Errorf("seeding opening scene: %w", err)
	}
	// The opening scene is turn 0: only what came before it may go.
	evicted, err := c.config.History.EnforceBudget(c.config.TokenBudget, 1)
	if err != nil {
		return c.finish(ctx, StopReasonFailed, fmt.Errorf("opening scene: %w", err))
	}
	if evicted > 0 {
		c.events.Evicted(0, evicted, c.config.History.Len())
	}
	if err := c.deliver(ctx, TurnPresentation{Narration: opening, Evicted: evicted}); err != nil {
		return c.finish(ctx, StopReasonFailed, fmt.Errorf("opening scene: %w", err))
	}

	quietStreak := 0
	for {
		if stopped(ctx, stop) {
			return c.finish(ctx, StopReasonStopped, nil)
		}
		turn := c.TurnsTaken() + 1
		if turn > c.config.MaxTurns {
			return c.finish(ctx, StopReasonMaxTurns, nil)
		}

		result, err := c.coordinator.RunTurn(ctx, turn)
		if err != nil {
			return c.finish(ctx, StopReasonFailed, fmt.Errorf("turn %d: %w", turn, err))
		}

		c.mu.Lock()
		c.turnsTaken = turn
		c.mu.Unlock()

		err = c.deliver(ctx, TurnPresentation{
			Turn:       turn,
			Narration:  result.Narration,
			Line:       result.Line,
			Candidates: result.Candidates,
			Anomaly:    result.Anomaly,
			Evicted:    result.Evicted,
		})
		if err != nil {
			return c.finish(ctx, StopReasonFailed, fmt.Errorf("turn %d: %w", turn, err))
		}

		if len(result.Candidates) == 0 {
			quietStreak++
		} else {
			quietStreak = 0
		}
		if c.config.QuietTurnLimit > 0 && quietStreak >= c.config.QuietTurnLimit {
			return c.finish(ctx, StopReasonQuiet, nil)
		}
	}
}

// deliver hands committed messages to observers, the voice, and the
// presenter, in that order.
func (c *Conversation) deliver(ctx context.Context, presentation TurnPresentation) error {
	messages := []history.Message{presentation.Narration}
	if presentation.Line != nil {
		messages = append(messages, *presentation.Line)
	}

	for _, message := range messages {
		for _, observer := range c.config.Observers {
			if err := observer.Committed(message); err != nil {
				return fmt.Errorf("recording message %d: %w", message.Sequence, err)
			}
		}
	}
	if c.config.Voice != nil {
		for _, message := range messages {
			c.config.Voice.Speak(message.Speaker, message.Text)
		}
	}
	if c.config.Presenter != nil {
		if err := c.config.Presenter.Present(ctx, presentation); err != nil {
			return fmt.Errorf("presenting: %w", err)
		}
	}
	return nil
}

// finish builds the Outcome. A failure caused by cancelling ctx is a
// stop, not an error: History is consistent at every turn boundary.
func (c *Conversation) finish(ctx context.Context, reason StopReason, err error) (Outcome, error) {
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		reason, err = StopReasonStopped, nil
	}
	return Outcome{
		Reason:  reason,
		Turns:   c.TurnsTaken(),
		Evicted: c.config.History.EvictedCount(),
	}, err
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
