// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSSEScannerEvents(t *testing.T) {
	t.Parallel()

	input := "event: message_start\ndata: {\"type\":\"message_start\"}\n\nevent: ping\ndata: {}\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	want := []SSEEvent{
		{Type: "message_start", Data: `{"type":"message_start"}`},
		{Type: "ping", Data: "{}"},
	}
	for i, expected := range want {
		if !scanner.Next() {
			t.Fatalf("event %d: unexpected end of stream", i)
		}
		if got := scanner.Event(); got != expected {
			t.Errorf("event %d = %+v, want %+v", i, got, expected)
		}
	}
	if scanner.Next() {
		t.Errorf("unexpected extra event %+v", scanner.Event())
	}
	if err := scanner.Err(); err != nil {
		t.Errorf("Err = %v, want nil", err)
	}
}

func TestSSEScannerFieldHandling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  SSEEvent
	}{
		{"multiple data lines", "data: one\ndata: two\ndata: three\n\n", SSEEvent{Data: "one\ntwo\nthree"}},
		{"comments ignored", ": keepalive\nevent: test\ndata: hello\n: another\n\n", SSEEvent{Type: "test", Data: "hello"}},
		{"no space after colon", "event:test\ndata:hello\n\n", SSEEvent{Type: "test", Data: "hello"}},
		{"empty data", "data:\n\n", SSEEvent{}},
		{"unknown fields ignored", "id: 7\nretry: 100\nfoo: bar\ndata: x\n\n", SSEEvent{Data: "x"}},
		{"carriage returns", "event: test\r\ndata: hello\r\n\r\n", SSEEvent{Type: "test", Data: "hello"}},
		{"leading blank lines", "\n\n\ndata: hello\n\n\n\n", SSEEvent{Data: "hello"}},
		{"no trailing newline", "event: final\ndata: last event", SSEEvent{Type: "final", Data: "last event"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			scanner := NewSSEScanner(strings.NewReader(test.input))
			if !scanner.Next() {
				t.Fatalf("expected event, Err = %v", scanner.Err())
			}
			if got := scanner.Event(); got != test.want {
				t.Errorf("event = %+v, want %+v", got, test.want)
			}
			if scanner.Next() {
				t.Errorf("unexpected extra event %+v", scanner.Event())
			}
		})
	}
}

func TestSSEScannerEventTypeWithoutData(t *testing.T) {
	t.Parallel()

	// An event type with no data is dropped and does not leak into
	// the next event.
	input := "event: orphan\n\ndata: plain\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	if !scanner.Next() {
		t.Fatal("expected event")
	}
	if event := scanner.Event(); event.Type != "" || event.Data != "plain" {
		t.Errorf("event = %+v, want untyped plain", event)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSSEScannerReadError(t *testing.T) {
	t.Parallel()

	scanner := NewSSEScanner(io.MultiReader(strings.NewReader("data: partial\n"), failingReader{}))
	if scanner.Next() {
		t.Fatalf("unexpected event %+v", scanner.Event())
	}
	if err := scanner.Err(); err == nil || err.Error() != "connection reset" {
		t.Errorf("Err = %v, want connection reset", err)
	}
}
