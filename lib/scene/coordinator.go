// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/ensemble/lib/history"
)

// TurnState is a step of the turn protocol. A turn always moves
// forward through these in order, skipping SELECTING when nobody wants
// to speak and CHARACTER_SPEAKING when nobody was chosen.
type TurnState int

const (
	StatePolling TurnState = iota
	StateSelecting
	StateNarrating
	StateCharacterSpeaking
	StateCommitting
	StateDone
)

func (state TurnState) String() string {
	switch state {
	case StatePolling:
		return "POLLING"
	case StateSelecting:
		return "SELECTING"
	case StateNarrating:
		return "NARRATING"
	case StateCharacterSpeaking:
		return "CHARACTER_SPEAKING"
	case StateCommitting:
		return "COMMITTING"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("TurnState(%d)", int(state))
	}
}

// TurnResult is everything a completed turn produced.
type TurnResult struct {
	// Turn is the 1-based turn number.
	Turn int

	// Candidates are the characters that wanted to speak, in cast order.
	Candidates []string

	// Speaker is the chosen character, or empty for no one.
	Speaker string

	// Narration is the committed narration message.
	Narration history.Message

	// Line is the committed character message, or nil.
	Line *history.Message

	// Anomaly is set when the narrator named a non-candidate.
	Anomaly *SelectionAnomaly

	// Evicted is how many messages the budget dropped after commit.
	Evicted int
}

// Messages returns the messages the turn committed, in order.
func (result TurnResult) Messages() []history.Message {
	messages := []history.Message{result.Narration}
	if result.Line != nil {
		messages = append(messages, *result.Line)
	}
	return messages
}

// CoordinatorConfig wires a Coordinator.
type CoordinatorConfig struct {
	History    *history.History
	Characters []*Character
	Narrator   *Narrator

	// TokenBudget is enforced on History after every commit. Zero or
	// less disables it.
	TokenBudget int

	// Events receives state transitions, anomalies, and evictions.
	Events EventSink

	// Sink, when non-nil, receives narration and dialogue as they
	// stream.
	Sink ChunkSink
}

// Coordinator runs single turns. It keeps no state between turns;
// everything a turn needs is read from History when it starts.
type Coordinator struct {
	history    *history.History
	characters []*Character
	byName     map[string]*Character
	narrator   *Narrator
	budget     int
	events     EventSink
	sink       ChunkSink
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(config CoordinatorConfig) *Coordinator {
	if config.Events == nil {
		config.Events = nopSink{}
	}
	byName := make(map[string]*Character, len(config.Characters))
	for _, character := range config.Characters {
		byName[character.Name()] = character
	}
	return &Coordinator{
		history:    config.History,
		characters: config.Characters,
		byName:     byName,
		narrator:   config.Narrator,
		budget:     config.TokenBudget,
		events:     config.Events,
		sink:       config.Sink,
	}
}

// RunTurn runs one full turn. When an agent fails, the turn stops
// before COMMITTING and History is exactly as it was when the turn
// began. A *history.BudgetViolation, returned when this turn's own
// messages exceed the budget, comes after the commit.
func (c *Coordinator) RunTurn(ctx context.Context, turn int) (TurnResult, error) {
	result := TurnResult{Turn: turn}
	transcript := c.history.Snapshot()

	c.events.StateChanged(turn, StatePolling)
	candidates, err := c.poll(ctx, transcript)
	if err != nil {
		return TurnResult{}, err
	}
	result.Candidates = candidates

	if len(candidates) > 0 {
		c.events.StateChanged(turn, StateSelecting)
		selection, err := c.narrator.ChooseNextSpeaker(ctx, transcript, candidates)
		if err != nil {
			return TurnResult{}, err
		}
		if selection.Anomaly != nil {
			result.Anomaly = selection.Anomaly
			c.events.Anomaly(turn, selection.Anomaly)
		}
		result.Speaker = selection.Speaker
	}

	c.events.StateChanged(turn, StateNarrating)
	narration, err := c.narrator.Narrate(ctx, transcript, narrationCue(result), c.sink)
	if err != nil {
		return TurnResult{}, err
	}

	var line string
	if result.Speaker != "" {
		c.events.StateChanged(turn, StateCharacterSpeaking)
		speaker := c.byName[result.Speaker]
		line, err = speaker.Speak(ctx, transcript.With(history.SpeakerNarrator, narration), "", c.sink)
		if err != nil {
			return TurnResult{}, err
		}
	}

	c.events.StateChanged(turn, StateCommitting)
	if err := c.commit(&result, narration, line); err != nil {
		return TurnResult{}, err
	}

	c.events.StateChanged(turn, StateDone)
	return result, nil
}

// poll asks every character, concurrently, whether it wants to speak.
// All polls must finish; the first failure cancels the rest and fails
// the poll.
func (c *Coordinator) poll(ctx context.Context, transcript history.Snapshot) ([]string, error) {
	verdicts := make([]bool, len(c.characters))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, character := range c.characters {
		group.Go(func() error {
			wants, err := character.WantsToRespond(groupCtx, transcript)
			verdicts[i] = wants
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var candidates []string
	for i, character := range c.characters {
		if verdicts[i] {
			candidates = append(candidates, character.Name())
		}
	}
	return candidates, nil
}

// commit appends the narration and line, then enforces the budget
// without touching what this turn just appended. Both texts were
// checked non-empty by the agents, so the appends cannot fail on input.
func (c *Coordinator) commit(result *TurnResult, narration, line string) error {
	message, err := c.history.Append(history.SpeakerNarrator, narration)
	if err != nil {
		return fmt.Errorf("committing narration: %w", err)
	}
	result.Narration = message

	if line != "" {
		message, err := c.history.Append(result.Speaker, line)
		if err != nil {
			return fmt.Errorf("committing line for %s: %w", result.Speaker, err)
		}
		result.Line = &message
	}

	evicted, err := c.history.EnforceBudget(c.budget, len(result.Messages()))
	result.Evicted = evicted
	if evicted > 0 {
		c.events.Evicted(result.Turn, evicted, c.history.Len())
	}
	return err
}

// narrationCue tells the narrator how the turn resolved so the
// narration leads into it.
func narrationCue(result TurnResult) string {
	if result.Speaker != "" {
		return fmt.Sprintf("%s is about to speak. Lead into that moment without putting words in their mouth.", result.Speaker)
	}
	if len(result.Candidates) == 0 {
		return "Nobody wants to speak right now. Describe the silence or move the scene forward."
	}
	return "Nobody speaks this turn. Move the scene forward."
}
