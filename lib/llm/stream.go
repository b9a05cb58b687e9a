// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// readFunc produces the next event of a stream. It may record model,
// usage, and stop reason in partial as they appear on the wire.
// It returns io.EOF once the source is exhausted.
type readFunc func(partial *Response) (StreamEvent, error)

// EventStream is an open streaming completion. Text deltas returned
// by Next are also collected so that [EventStream.Response] holds the
// whole reply once Next has returned io.EOF.
//
// An EventStream must be used from a single goroutine.
type EventStream struct {
	read   readFunc
	body   io.Closer
	text   strings.Builder
	result Response
	ended  bool
}

// NewEventStream adapts a plain event source, for example a canned
// sequence in a test. Metadata stays empty; only text is collected.
func NewEventStream(next func() (StreamEvent, error), body io.Closer) *EventStream {
	return newEventStream(func(*Response) (StreamEvent, error) { return next() }, body)
}

func newEventStream(read readFunc, body io.Closer) *EventStream {
	return &EventStream{read: read, body: body}
}

// Next returns the next event, or io.EOF after the last one.
func (stream *EventStream) Next() (StreamEvent, error) {
	if stream.ended {
		return StreamEvent{}, io.EOF
	}
	event, err := stream.read(&stream.result)
	if errors.Is(err, io.EOF) {
		stream.ended = true
		return StreamEvent{}, io.EOF
	}
	if err != nil {
		return StreamEvent{}, err
	}
	if event.Type == EventTextDelta {
		stream.text.WriteString(event.Text)
	}
	return event, nil
}

// Response returns what has been collected so far.
func (stream *EventStream) Response() Response {
	response := stream.result
	response.Text = stream.text.String()
	return response
}

// Close releases the connection. It is safe to call before the stream
// is drained.
func (stream *EventStream) Close() error {
	if stream.body == nil {
		return nil
	}
	return stream.body.Close()
}

// sseReader turns an SSE body into a readFunc. decode maps one SSE
// event to a StreamEvent; ok=false drops the event and reads on.
func sseReader(body io.Reader, label string, decode func(event SSEEvent, partial *Response) (StreamEvent, bool, error)) readFunc {
	scanner := NewSSEScanner(body)
	return func(partial *Response) (StreamEvent, error) {
		for scanner.Next() {
			event, ok, err := decode(scanner.Event(), partial)
			if err != nil {
				return StreamEvent{}, err
			}
			if ok {
				return event, nil
			}
		}
		if err := scanner.Err(); err != nil {
			return StreamEvent{}, fmt.Errorf("%s: reading SSE: %w", label, err)
		}
		return StreamEvent{}, io.EOF
	}
}
