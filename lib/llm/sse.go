// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bufio"
	"io"
	"strings"
)

// SSEEvent is a single Server-Sent Event parsed from an SSE stream.
type SSEEvent struct {
	// Type is the "event:" field, or empty for the default event type.
	Type string

	// Data is the payload. Multiple "data:" lines are joined with
	// newlines.
	Data string
}

// SSEScanner reads Server-Sent Events from an [io.Reader] following
// the W3C event stream format: events end at a blank line, "data:"
// lines carry the payload, "event:" names the type, and comment
// lines (leading ":") and unknown fields are ignored.
//
//	scanner := NewSSEScanner(reader)
//	for scanner.Next() {
//	    event := scanner.Event()
//	}
//	if err := scanner.Err(); err != nil {
//	    ...
//	}
type SSEScanner struct {
	reader  *bufio.Reader
	current SSEEvent
	err     error

	// pending accumulates the event being parsed.
	eventType string
	dataLines []string
	hasData   bool
}

// NewSSEScanner creates a scanner that reads SSE events from reader.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	return &SSEScanner{
		reader: bufio.NewReaderSize(reader, 64*1024),
	}
}

// Next advances to the next event. Returns false at end of stream or
// on a read error; [SSEScanner.Err] tells them apart.
func (scanner *SSEScanner) Next() bool {
	scanner.current = SSEEvent{}
	if scanner.err != nil {
		return false
	}

	for {
		line, err := scanner.reader.ReadString('\n')
		if err != nil && line == "" {
			scanner.err = err
			// A final event without a terminating blank line still counts.
			return err == io.EOF && scanner.flush()
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if scanner.flush() {
				return true
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			scanner.dataLines = append(scanner.dataLines, value)
			scanner.hasData = true
		case "event":
			scanner.eventType = value
		}
	}
}

// flush moves the pending event into current. Returns false, and
// discards any event type, when no data line was seen.
func (scanner *SSEScanner) flush() bool {
	emitted := scanner.hasData
	if emitted {
		scanner.current = SSEEvent{
			Type: scanner.eventType,
			Data: strings.Join(scanner.dataLines, "\n"),
		}
	}
	scanner.eventType = ""
	scanner.dataLines = scanner.dataLines[:0]
	scanner.hasData = false
	return emitted
}

// Event returns the most recently parsed event. Only valid after
// [SSEScanner.Next] returns true.
func (scanner *SSEScanner) Event() SSEEvent {
	return scanner.current
}

// Err returns the first error encountered during scanning, or nil if
// scanning ended at a clean EOF.
func (scanner *SSEScanner) Err() error {
	if scanner.err == io.EOF {
		return nil
	}
	return scanner.err
}
