// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/ensemble/lib/clock"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// unitEstimator charges one token per message regardless of text.
type unitEstimator struct{}

func (unitEstimator) EstimateTokens(string) int { return 1 }

// lengthEstimator charges one token per byte of the rendered message.
type lengthEstimator struct{}

func (lengthEstimator) EstimateTokens(text string) int { return len(text) }

func newTestHistory(estimator TokenEstimator) (*History, *clock.FakeClock) {
	fake := clock.Fake(epoch)
	return New(Options{Clock: fake, Estimator: estimator}), fake
}

func TestAppendAssignsSequenceAndTime(t *testing.T) {
	t.Parallel()

	store, fake := newTestHistory(unitEstimator{})

	first, err := store.Append(SpeakerNarrator, "  The tavern is quiet.  ")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	fake.Advance(time.Second)
	second, err := store.Append("Ana", "Hello?")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if first.Sequence != 1 || second.Sequence != 2 {
		t.Errorf("sequences = %d, %d, want 1, 2", first.Sequence, second.Sequence)
	}
	if first.Text != "The tavern is quiet." {
		t.Errorf("Text = %q, want trimmed", first.Text)
	}
	if !first.Time.Equal(epoch) || !second.Time.Equal(epoch.Add(time.Second)) {
		t.Errorf("times = %v, %v", first.Time, second.Time)
	}
	if !first.IsNarration() || second.IsNarration() {
		t.Error("IsNarration mismatch")
	}
}

func TestAppendRejectsEmpty(t *testing.T) {
	t.Parallel()

	store, _ := newTestHistory(unitEstimator{})

	if _, err := store.Append("Ana", " \n\t "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("whitespace text: err = %v, want ErrEmptyText", err)
	}
	if _, err := store.Append("", "words"); !errors.Is(err, ErrEmptySpeaker) {
		t.Errorf("empty speaker: err = %v, want ErrEmptySpeaker", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0 after rejected appends", store.Len())
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	t.Parallel()

	store, _ := newTestHistory(unitEstimator{})
	store.Append(SpeakerNarrator, "Night falls.")

	snapshot := store.Snapshot()
	store.Append("Leo", "I'll keep watch.")

	if snapshot.Len() != 1 {
		t.Fatalf("snapshot Len = %d, want 1", snapshot.Len())
	}
	messages := snapshot.Messages()
	messages[0].Text = "mutated"
	if again := snapshot.Messages(); again[0].Text != "Night falls." {
		t.Errorf("snapshot changed through returned slice: %q", again[0].Text)
	}
	last, ok := store.Snapshot().Last()
	if !ok || last.Speaker != "Leo" {
		t.Errorf("Last = %+v, %v", last, ok)
	}
}

func TestSnapshotWith(t *testing.T) {
	t.Parallel()

	store, _ := newTestHistory(unitEstimator{})
	store.Append(SpeakerNarrator, "Night falls.")
	base := store.Snapshot()

	extended := base.With(SpeakerNarrator, "A door opens.")
	if extended.Len() != 2 || base.Len() != 1 {
		t.Fatalf("Len = %d and %d, want 2 and 1", extended.Len(), base.Len())
	}
	last, _ := extended.Last()
	if last.Text != "A door opens." || last.Sequence != 0 {
		t.Errorf("Last = %+v, want the unsequenced message", last)
	}
	if store.Len() != 1 {
		t.Errorf("History Len = %d, With must not append", store.Len())
	}

	// Two extensions of one snapshot do not share storage.
	other := base.With("Leo", "Who's there?")
	if last, _ := extended.Last(); last.Text != "A door opens." {
		t.Errorf("extension overwritten: %q", last.Text)
	}
	if last, _ := other.Last(); last.Speaker != "Leo" {
		t.Errorf("other Last = %+v", last)
	}
}

func TestSnapshotRender(t *testing.T) {
	t.Parallel()

	snapshot := NewSnapshot([]Message{
		{Speaker: SpeakerNarrator, Text: "Rain hammers the roof."},
		{Speaker: "Ana", Text: "We should go."},
	})
	want := "narrator: Rain hammers the roof.\nAna: We should go."
	if got := snapshot.Render(); got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
	if got := (Snapshot{}).Render(); got != "" {
		t.Errorf("empty Render = %q", got)
	}
}

func TestEnforceBudgetEvictsOldestFirst(t *testing.T) {
	t.Parallel()

	store, _ := newTestHistory(unitEstimator{})
	for _, speaker := range []string{SpeakerNarrator, "Ana", SpeakerNarrator, "Leo", SpeakerNarrator} {
		store.Append(speaker, "line")
	}

	evicted, err := store.EnforceBudget(3, 1)
	if err != nil {
		t.Fatalf("EnforceBudget: %v", err)
	}
	if evicted != 2 {
		t.Errorf("evicted = %d, want 2", evicted)
	}
	messages := store.Snapshot().Messages()
	if len(messages) != 3 || messages[0].Sequence != 3 {
		t.Fatalf("remaining = %+v, want sequences 3..5", messages)
	}
	if store.EvictedCount() != 2 {
		t.Errorf("EvictedCount = %d, want 2", store.EvictedCount())
	}

	// Sequence numbers continue after eviction.
	next, _ := store.Append("Ana", "more")
	if next.Sequence != 6 {
		t.Errorf("Sequence after eviction = %d, want 6", next.Sequence)
	}
}

func TestEnforceBudgetKeepsOneOversizedMessage(t *testing.T) {
	t.Parallel()

	store, _ := newTestHistory(lengthEstimator{})
	store.Append(SpeakerNarrator, "short")
	store.Append("Ana", "a monologue far longer than the whole budget allows")

	evicted, err := store.EnforceBudget(10, 1)
	if err != nil {
		t.Fatalf("EnforceBudget: %v", err)
	}
	if evicted != 1 || store.Len() != 1 {
		t.Fatalf("evicted = %d, Len = %d, want 1, 1", evicted, store.Len())
	}
	if last, _ := store.Snapshot().Last(); last.Speaker != "Ana" {
		t.Errorf("kept %q, want the newest message", last.Speaker)
	}
}

func TestEnforceBudgetProtectsCurrentTurn(t *testing.T) {
	t.Parallel()

	store, _ := newTestHistory(unitEstimator{})
	for _, speaker := range []string{SpeakerNarrator, "Ana", SpeakerNarrator, "Leo"} {
		store.Append(speaker, "line")
	}

	// The last two messages are this turn's narration and line.
	evicted, err := store.EnforceBudget(2, 2)
	if err != nil {
		t.Fatalf("EnforceBudget: %v", err)
	}
	if evicted != 2 {
		t.Errorf("evicted = %d, want 2", evicted)
	}
	messages := store.Snapshot().Messages()
	if len(messages) != 2 || !messages[0].IsNarration() || messages[1].Speaker != "Leo" {
		t.Fatalf("remaining = %+v, want the turn's narration and line", messages)
	}
}

func TestEnforceBudgetProtectedTurnOverLimit(t *testing.T) {
	t.Parallel()

	store, _ := newTestHistory(unitEstimator{})
	for _, speaker := range []string{SpeakerNarrator, SpeakerNarrator, "Ana"} {
		store.Append(speaker, "line")
	}

	evicted, err := store.EnforceBudget(1, 2)
	var violation *BudgetViolation
	if !errors.As(err, &violation) {
		t.Fatalf("err = %v, want *BudgetViolation", err)
	}
	if evicted != 1 || violation.Remaining != 2 || violation.Estimated != 2 {
		t.Errorf("evicted = %d, violation = %+v", evicted, violation)
	}
	if store.Len() != 2 {
		t.Errorf("Len = %d, want the protected 2", store.Len())
	}
}

func TestEnforceBudgetDisabled(t *testing.T) {
	t.Parallel()

	store, _ := newTestHistory(lengthEstimator{})
	store.Append(SpeakerNarrator, "a long opening scene")
	store.Append("Ana", "a reply")

	for _, limit := range []int{0, -5} {
		evicted, err := store.EnforceBudget(limit, 1)
		if err != nil || evicted != 0 {
			t.Errorf("EnforceBudget(%d, 1) = %d, %v; want 0, nil", limit, evicted, err)
		}
	}
	if store.Len() != 2 {
		t.Errorf("Len = %d, want 2", store.Len())
	}
}

func TestEnforceBudgetEmpty(t *testing.T) {
	t.Parallel()

	store, _ := newTestHistory(unitEstimator{})
	if evicted, err := store.EnforceBudget(1, 1); evicted != 0 || err != nil {
		t.Errorf("EnforceBudget on empty = %d, %v", evicted, err)
	}
}

func TestBudgetViolationMessage(t *testing.T) {
	t.Parallel()

	err := &BudgetViolation{Estimated: 120, Limit: 100, Remaining: 3}
	want := "history: 3 messages estimated at 120 tokens exceed budget 100"
	if err.Error() != want {
		t.Errorf("Error = %q, want %q", err.Error(), want)
	}
}

func TestConcurrentSnapshotDuringAppend(t *testing.T) {
	t.Parallel()

	store, _ := newTestHistory(unitEstimator{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 200 {
			store.Append("Ana", "line")
			store.EnforceBudget(50, 1)
		}
	}()

	for range 200 {
		messages := store.Snapshot().Messages()
		for i := 1; i < len(messages); i++ {
			if messages[i].Sequence <= messages[i-1].Sequence {
				t.Fatalf("snapshot out of order at %d: %d then %d", i, messages[i-1].Sequence, messages[i].Sequence)
			}
		}
	}
	<-done
}
