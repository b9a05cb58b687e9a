// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/bureau-foundation/ensemble/lib/clock"
	"github.com/bureau-foundation/ensemble/lib/history"
)

// TokenLimits caps the reply length of each operation.
type TokenLimits struct {
	Poll    int
	Select  int
	Narrate int
	Speak   int
	Setup   int
}

// DefaultTokenLimits returns the limits used when none are configured.
func DefaultTokenLimits() TokenLimits {
	return TokenLimits{
		Poll:    10,
		Select:  20,
		Narrate: 300,
		Speak:   500,
		Setup:   2000,
	}
}

// withDefaults fills zero fields from DefaultTokenLimits.
func (limits TokenLimits) withDefaults() TokenLimits {
	defaults := DefaultTokenLimits()
	if limits.Poll <= 0 {
		limits.Poll = defaults.Poll
	}
	if limits.Select <= 0 {
		limits.Select = defaults.Select
	}
	if limits.Narrate <= 0 {
		limits.Narrate = defaults.Narrate
	}
	if limits.Speak <= 0 {
		limits.Speak = defaults.Speak
	}
	if limits.Setup <= 0 {
		limits.Setup = defaults.Setup
	}
	return limits
}

// AgentOptions carries what every agent needs to make calls.
type AgentOptions struct {
	// Caller performs the model calls. Required.
	Caller Caller

	// Events receives call reports. Defaults to discarding them.
	Events EventSink

	// Limits caps reply lengths. Zero fields use DefaultTokenLimits.
	Limits TokenLimits

	// Clock times calls. Defaults to clock.Real().
	Clock clock.Clock
}

// agent is the call plumbing shared by Character and Narrator.
type agent struct {
	name   string
	caller Caller
	events EventSink
	limits TokenLimits
	clock  clock.Clock
}

func newAgent(name string, options AgentOptions) agent {
	if options.Events == nil {
		options.Events = nopSink{}
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	return agent{
		name:   name,
		caller: options.Caller,
		events: options.Events,
		limits: options.Limits.withDefaults(),
		clock:  options.Clock,
	}
}

// call performs one model call, reports it, and wraps any failure in
// an AgentCallError.
func (a agent) call(ctx context.Context, operation Operation, request CallRequest) (string, error) {
	request.Agent = a.name
	request.Operation = operation
	started := a.clock.Now()
	reply, err := a.caller.Call(ctx, request)
	a.events.CallFinished(a.name, operation, a.clock.Now().Sub(started), reply, err)
	if err != nil {
		return "", &AgentCallError{Agent: a.name, Operation: operation, Err: err}
	}
	return reply, nil
}

// Character is one member of the cast. Name and persona are fixed for
// the life of the conversation.
type Character struct {
	agent
	persona string

	// verdict is the most recent poll answer.
	verdict atomic.Bool
}

// NewCharacter creates a character. The persona is free text: who the
// character is, their history, how they talk.
func NewCharacter(name, persona string, options AgentOptions) *Character {
	return &Character{
		agent:   newAgent(name, options),
		persona: persona,
	}
}

// Name returns the character's name.
func (c *Character) Name() string { return c.name }

// Persona returns the persona text.
func (c *Character) Persona() string { return c.persona }

// LastVerdict returns the answer of the most recent WantsToRespond.
func (c *Character) LastVerdict() bool { return c.verdict.Load() }

func (c *Character) role() string {
	return fmt.Sprintf("You are %s.\n\n%s\n\n"+
		"Stay in character. Speak only as %s: no narration, no stage "+
		"directions, and never speak for anyone else.",
		c.name, strings.TrimSpace(c.persona), c.name)
}

// WantsToRespond asks the character whether it has something to say
// about the transcript. Any reply starting with YES (ignoring case and
// surrounding whitespace) is a yes.
func (c *Character) WantsToRespond(ctx context.Context, transcript history.Snapshot) (bool, error) {
	reply, err := c.call(ctx, OperationPoll, CallRequest{
		Role:       c.role(),
		Transcript: transcript,
		Instruction: fmt.Sprintf("Do you, %s, want to speak next? Answer with only YES or NO, "+
			"depending on whether you have something meaningful to say.", c.name),
		MaxTokens: c.limits.Poll,
	})
	if err != nil {
		return false, err
	}
	wants := strings.HasPrefix(strings.ToUpper(strings.TrimSpace(reply)), "YES")
	c.verdict.Store(wants)
	return wants, nil
}

// Speak produces the character's next line. extraInstruction, when
// non-empty, is appended to the request. sink, when non-nil, receives
// the line as it streams. The result is the line alone: a leading
// "Name:" label and stage directions are removed.
func (c *Character) Speak(ctx context.Context, transcript history.Snapshot, extraInstruction string, sink ChunkSink) (string, error) {
	instruction := fmt.Sprintf("Say %s's next line of dialogue. Reply with the spoken words only.", c.name)
	if extraInstruction != "" {
		instruction += "\n\n" + extraInstruction
	}
	reply, err := c.call(ctx, OperationSpeak, CallRequest{
		Role:        c.role(),
		Transcript:  transcript,
		Instruction: instruction,
		MaxTokens:   c.limits.Speak,
		Sink:        sink,
	})
	if err != nil {
		return "", err
	}

	line := cleanLine(c.name, reply)
	if line == "" {
		return "", &AgentCallError{Agent: c.name, Operation: OperationSpeak, Err: ErrEmptyReply}
	}
	return line, nil
}

var (
	// stageDirection matches *italic actions* and leading (parenthetical) cues.
	stageDirection = regexp.MustCompile(`\*[^*]*\*|^\([^)]*\)`)
	spaceRun       = regexp.MustCompile(`[ \t]{2,}`)
)

// cleanLine strips a speaker label and stage directions from a reply.
func cleanLine(name, reply string) string {
	line := strings.TrimSpace(reply)
	if label, rest, found := strings.Cut(line, ":"); found && strings.EqualFold(strings.TrimSpace(label), name) {
		line = strings.TrimSpace(rest)
	}
	line = stageDirection.ReplaceAllString(line, "")
	line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	if len(line) >= 2 && line[0] == '"' && line[len(line)-1] == '"' && strings.Count(line, `"`) == 2 {
		line = strings.TrimSpace(line[1 : len(line)-1])
	}
	return line
}
