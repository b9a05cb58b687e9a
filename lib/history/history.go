// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/ensemble/lib/clock"
)

// SpeakerNarrator is the Speaker of every narration message.
const SpeakerNarrator = "narrator"

var (
	// ErrEmptyText is returned by Append for text that is empty after
	// trimming whitespace.
	ErrEmptyText = errors.New("history: message text is empty")

	// ErrEmptySpeaker is returned by Append for an empty speaker.
	ErrEmptySpeaker = errors.New("history: message speaker is empty")
)

// Message is one utterance in the transcript. Messages are values;
// History hands out copies, so a Message never changes once created.
type Message struct {
	// Speaker is SpeakerNarrator or a character name.
	Speaker string `json:"speaker"`

	// Text is the utterance with surrounding whitespace removed.
	Text string `json:"text"`

	// Sequence is assigned on append, starts at 1, and is strictly
	// increasing. Numbers of evicted messages are never reused.
	Sequence int64 `json:"sequence"`

	// Time is when the message was appended. Informational only;
	// ordering is by Sequence.
	Time time.Time `json:"time"`
}

// IsNarration reports whether the narrator produced m.
func (m Message) IsNarration() bool {
	return m.Speaker == SpeakerNarrator
}

// BudgetViolation is returned by EnforceBudget when only protected
// messages remain, there is more than one of them, and together they
// are still over budget. Configuration keeps the budget above one
// turn's output, so this indicates a broken estimator or settings.
type BudgetViolation struct {
	Estimated int
	Limit     int
	Remaining int
}

func (err *BudgetViolation) Error() string {
	return fmt.Sprintf("history: %d messages estimated at %d tokens exceed budget %d",
		err.Remaining, err.Estimated, err.Limit)
}

// Options configures a History. Zero values select defaults.
type Options struct {
	// Clock stamps Message.Time. Defaults to clock.Real().
	Clock clock.Clock

	// Estimator sizes messages for EnforceBudget. Defaults to a
	// CharEstimator with default settings.
	Estimator TokenEstimator
}

// History is the ordered transcript. It is safe for concurrent
// Snapshot calls while one goroutine appends and enforces the budget.
type History struct {
	clock     clock.Clock
	estimator TokenEstimator

	mu           sync.RWMutex
	messages     []Message
	costs        []int // estimated tokens, parallel to messages
	total        int
	nextSequence int64
	evicted      int
}

// New creates an empty History.
func New(options Options) *History {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Estimator == nil {
		options.Estimator = NewCharEstimator(0, -1)
	}
	return &History{
		clock:        options.Clock,
		estimator:    options.Estimator,
		nextSequence: 1,
	}
}

// Append adds a message to the end of the transcript and returns it.
func (h *History) Append(speaker, text string) (Message, error) {
	if speaker == "" {
		return Message{}, ErrEmptySpeaker
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyText
	}

	cost := h.estimator.EstimateTokens(messageText(speaker, text))

	h.mu.Lock()
	defer h.mu.Unlock()

	message := Message{
		Speaker:  speaker,
		Text:     text,
		Sequence: h.nextSequence,
		Time:     h.clock.Now(),
	}
	h.nextSequence++
	h.messages = append(h.messages, message)
	h.costs = append(h.costs, cost)
	h.total += cost
	return message, nil
}

// Snapshot returns an immutable copy of the current transcript.
func (h *History) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Snapshot{messages: append([]Message(nil), h.messages...)}
}

// EnforceBudget evicts messages from the front while the estimated
// size exceeds limit. The newest protect messages are never evicted;
// callers pass the number of messages the current turn committed.
// At least one message is always kept. Returns the number evicted by
// this call. A limit of zero or less disables the budget.
//
// A *BudgetViolation means the protected tail alone, holding more than
// one message, is over limit.
func (h *History) EnforceBudget(limit, protect int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	protect = max(protect, 1)

	h.mu.Lock()
	defer h.mu.Unlock()

	drop := 0
	for h.total > limit && len(h.messages)-drop > protect {
		h.total -= h.costs[drop]
		drop++
	}
	if drop > 0 {
		// Copy so evicted messages do not stay reachable through the
		// backing array.
		h.messages = append([]Message(nil), h.messages[drop:]...)
		h.costs = append([]int(nil), h.costs[drop:]...)
		h.evicted += drop
	}

	if h.total > limit && len(h.messages) > 1 {
		return drop, &BudgetViolation{
			Estimated: h.total,
			Limit:     limit,
			Remaining: len(h.messages),
		}
	}
	return drop, nil
}

// EvictedCount returns the total number of messages evicted over the
// life of the History.
func (h *History) EvictedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.evicted
}

// EstimatedTokens returns the current estimated size of the transcript.
func (h *History) EstimatedTokens() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Len returns the number of messages currently held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// messageText is the form a message takes in a prompt, and therefore
// what the estimator sizes.
func messageText(speaker, text string) string {
	return speaker + ": " + text
}
