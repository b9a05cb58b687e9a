// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"errors"
	"fmt"
	"strings"
)

// Operation names an agent capability, used in errors and events.
type Operation string

const (
	OperationPoll    Operation = "poll"
	OperationSelect  Operation = "select"
	OperationNarrate Operation = "narrate"
	OperationSpeak   Operation = "speak"
	OperationSetup   Operation = "setup"
)

// ErrEmptyReply is wrapped in an AgentCallError when a model returns
// no usable text for narration or dialogue.
var ErrEmptyReply = errors.New("scene: model returned an empty reply")

// AgentCallError reports a failed model call made on behalf of an
// agent. It always ends the current turn without committing anything.
type AgentCallError struct {
	// Agent is the character name or "narrator".
	Agent string

	// Operation is the capability that failed.
	Operation Operation

	// Err is the underlying failure, for example an *llm.ProviderError.
	Err error
}

func (err *AgentCallError) Error() string {
	return fmt.Sprintf("scene: %s %s: %v", err.Agent, err.Operation, err.Err)
}

func (err *AgentCallError) Unwrap() error {
	return err.Err
}

// SelectionAnomaly reports a narrator answer that named nobody in the
// candidate set. The turn continues with no character speaking.
type SelectionAnomaly struct {
	// Answer is the narrator's raw reply.
	Answer string

	// Candidates are the characters that wanted to speak.
	Candidates []string
}

func (err *SelectionAnomaly) Error() string {
	return fmt.Sprintf("scene: narrator answered %q, not one of [%s]",
		err.Answer, strings.Join(err.Candidates, ", "))
}
