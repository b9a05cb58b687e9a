// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/ensemble/lib/clock"
	"github.com/bureau-foundation/ensemble/lib/history"
)

var testEpoch = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

// scriptedCaller answers each call with a handler and records every
// request it received.
type scriptedCaller struct {
	handler func(ctx context.Context, request CallRequest) (string, error)

	mu    sync.Mutex
	calls []CallRequest
}

func (caller *scriptedCaller) Call(ctx context.Context, request CallRequest) (string, error) {
	caller.mu.Lock()
	caller.calls = append(caller.calls, request)
	caller.mu.Unlock()
	return caller.handler(ctx, request)
}

// callsFor returns the recorded requests for one operation, in order.
func (caller *scriptedCaller) callsFor(operation Operation) []CallRequest {
	caller.mu.Lock()
	defer caller.mu.Unlock()
	var matched []CallRequest
	for _, call := range caller.calls {
		if call.Operation == operation {
			matched = append(matched, call)
		}
	}
	return matched
}

// script is a declarative handler: which characters say YES, what the
// narrator answers when selecting, and optional failures.
type script struct {
	willing    map[string]bool
	choice     string
	failOn     map[Operation]error
	failAgent  string
	narrations int
}

// handle answers a request according to the script. Narrations are
// numbered so tests can tell turns apart.
func (s *script) handle(_ context.Context, request CallRequest) (string, error) {
	if err, ok := s.failOn[request.Operation]; ok && (s.failAgent == "" || s.failAgent == request.Agent) {
		return "", err
	}
	switch request.Operation {
	case OperationPoll:
		if s.willing[request.Agent] {
			return "YES", nil
		}
		return "NO", nil
	case OperationSelect:
		return s.choice, nil
	case OperationNarrate:
		s.narrations++
		return fmt.Sprintf("Narration %d.", s.narrations), nil
	case OperationSpeak:
		return fmt.Sprintf("%s: Line from %s.", request.Agent, request.Agent), nil
	}
	return "", errors.New("unexpected operation " + string(request.Operation))
}

// fixture is a cast wired to one scripted caller and a fresh History.
type fixture struct {
	history    *history.History
	caller     *scriptedCaller
	characters []*Character
	narrator   *Narrator
	events     *recordingSink
}

func newFixture(t *testing.T, names []string, handler func(context.Context, CallRequest) (string, error)) *fixture {
	t.Helper()
	caller := &scriptedCaller{handler: handler}
	events := &recordingSink{}
	options := AgentOptions{Caller: caller, Events: events, Clock: clock.Fake(testEpoch)}

	f := &fixture{
		history: history.New(history.Options{Clock: clock.Fake(testEpoch)}),
		caller:  caller,
		events:  events,
	}
	for _, name := range names {
		f.characters = append(f.characters, NewCharacter(name, name+" is a regular at the inn.", options))
	}
	f.narrator = NewNarrator(NarratorOptions{AgentOptions: options, Cast: names})
	return f
}

func (f *fixture) coordinator(budget int) *Coordinator {
	return NewCoordinator(CoordinatorConfig{
		History:     f.history,
		Characters:  f.characters,
		Narrator:    f.narrator,
		TokenBudget: budget,
		Events:      f.events,
	})
}

// recordingSink is an EventSink that keeps everything it is told.
type recordingSink struct {
	mu        sync.Mutex
	states    []TurnState
	anomalies []*SelectionAnomaly
	evictions []int
	failures  []string
}

func (sink *recordingSink) CallFinished(agent string, operation Operation, _ time.Duration, _ string, err error) {
	if err == nil {
		return
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.failures = append(sink.failures, agent+" "+string(operation))
}

func (sink *recordingSink) StateChanged(_ int, state TurnState) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.states = append(sink.states, state)
}

func (sink *recordingSink) Anomaly(_ int, anomaly *SelectionAnomaly) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.anomalies = append(sink.anomalies, anomaly)
}

func (sink *recordingSink) Evicted(_ int, count, _ int) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.evictions = append(sink.evictions, count)
}

// speakers returns the Speaker of each message.
func speakers(messages []history.Message) []string {
	names := make([]string, len(messages))
	for i, message := range messages {
		names[i] = message.Speaker
	}
	return names
}
