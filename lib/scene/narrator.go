// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/ensemble/lib/history"
)

// Narrator describes the scene and decides who speaks when several
// characters want to. There is one per conversation.
type Narrator struct {
	agent
	guide    string
	cast     []string
	selector *selector
}

// NarratorOptions configures a Narrator beyond its AgentOptions.
type NarratorOptions struct {
	AgentOptions

	// Guide is free text steering tone, pacing, and plot.
	Guide string

	// Cast lists every character name, used in the narrator's role.
	Cast []string

	// FuzzySelection accepts an answer that matches exactly one
	// candidate fuzzily when no exact match exists.
	FuzzySelection bool
}

// NewNarrator creates the narrator.
func NewNarrator(options NarratorOptions) *Narrator {
	return &Narrator{
		agent:    newAgent(history.SpeakerNarrator, options.AgentOptions),
		guide:    options.Guide,
		cast:     append([]string(nil), options.Cast...),
		selector: newSelector(options.FuzzySelection),
	}
}

// Guide returns the narrator's guide text.
func (n *Narrator) Guide() string { return n.guide }

func (n *Narrator) role() string {
	var builder strings.Builder
	builder.WriteString("You are the narrator of an unfolding story")
	if len(n.cast) > 0 {
		fmt.Fprintf(&builder, " whose characters are %s", strings.Join(n.cast, ", "))
	}
	builder.WriteString(".\n\n")
	if guide := strings.TrimSpace(n.guide); guide != "" {
		builder.WriteString(guide)
		builder.WriteString("\n\n")
	}
	builder.WriteString("You describe setting, action, and atmosphere in the third person. " +
		"You never write dialogue for the characters.")
	return builder.String()
}

// Selection is the outcome of ChooseNextSpeaker.
type Selection struct {
	// Speaker is the chosen character, or empty for no one.
	Speaker string

	// Anomaly is set when the narrator's answer named nobody in the
	// candidate set. Speaker is then empty.
	Anomaly *SelectionAnomaly
}

// ChooseNextSpeaker picks one of candidates to speak. With no
// candidates nobody speaks, and with one that candidate speaks,
// neither needing a call. Otherwise the narrator is asked; an answer
// of NONE chooses nobody, and an answer naming no candidate chooses
// nobody and reports a SelectionAnomaly. There is no fallback order.
func (n *Narrator) ChooseNextSpeaker(ctx context.Context, transcript history.Snapshot, candidates []string) (Selection, error) {
	switch len(candidates) {
	case 0:
		return Selection{}, nil
	case 1:
		return Selection{Speaker: candidates[0]}, nil
	}

	reply, err := n.call(ctx, OperationSelect, CallRequest{
		Role:       n.role(),
		Transcript: transcript,
		Instruction: fmt.Sprintf("These characters want to speak next: %s. "+
			"Who should speak? Answer with only one of those names, or NONE if nobody should.",
			strings.Join(candidates, ", ")),
		MaxTokens: n.limits.Select,
	})
	if err != nil {
		return Selection{}, err
	}

	speaker, matched := n.selector.match(reply, candidates)
	if !matched {
		return Selection{Anomaly: &SelectionAnomaly{
			Answer:     reply,
			Candidates: append([]string(nil), candidates...),
		}}, nil
	}
	return Selection{Speaker: speaker}, nil
}

// Narrate describes what happens next. extraInstruction, when
// non-empty, is appended to the request; the coordinator uses it to
// say who is about to speak. sink, when non-nil, receives the
// narration as it streams.
func (n *Narrator) Narrate(ctx context.Context, transcript history.Snapshot, extraInstruction string, sink ChunkSink) (string, error) {
	instruction := "Narrate what happens next in two or three sentences. Do not write any dialogue."
	if extraInstruction != "" {
		instruction += "\n\n" + extraInstruction
	}
	reply, err := n.call(ctx, OperationNarrate, CallRequest{
		Role:        n.role(),
		Transcript:  transcript,
		Instruction: instruction,
		MaxTokens:   n.limits.Narrate,
		Sink:        sink,
	})
	if err != nil {
		return "", err
	}
	narration := strings.TrimSpace(reply)
	if narration == "" {
		return "", &AgentCallError{Agent: n.name, Operation: OperationNarrate, Err: ErrEmptyReply}
	}
	return narration, nil
}
