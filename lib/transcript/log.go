// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/ensemble/lib/clock"
	"github.com/bureau-foundation/ensemble/lib/history"
)

// RecordType distinguishes the lines of a session log.
type RecordType string

const (
	RecordHeader  RecordType = "header"
	RecordMessage RecordType = "message"
	RecordFooter  RecordType = "footer"
)

// Record is one line of a session log. Which optional fields are set
// depends on Type.
type Record struct {
	Type RecordType `json:"type"`
	Time time.Time  `json:"time"`

	// Header fields.
	RunID string       `json:"run_id,omitempty"`
	Title string       `json:"title,omitempty"`
	Cast  []CastMember `json:"cast,omitempty"`

	// Message is set on message records.
	Message *history.Message `json:"message,omitempty"`

	// Outcome is set on the footer.
	Outcome *Outcome `json:"outcome,omitempty"`
}

// Log writes a JSONL session log. Every record is written and flushed
// to the underlying writer before the call returns. Log is safe for
// concurrent use.
type Log struct {
	clock clock.Clock

	mu      sync.Mutex
	encoder *json.Encoder
	closer  io.Closer
	ended   bool
}

// NewLog returns a Log writing to w. The caller owns w.
func NewLog(w io.Writer, clk clock.Clock) *Log {
	if clk == nil {
		clk = clock.Real()
	}
	return &Log{clock: clk, encoder: json.NewEncoder(w)}
}

// CreateLog opens path for appending, creating it if needed, and
// returns a Log that closes the file on Close.
func CreateLog(path string, clk clock.Clock) (*Log, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	log := NewLog(file, clk)
	log.closer = file
	return log, nil
}

// Begin writes the header.
func (log *Log) Begin(runID, title string, cast []CastMember) error {
	return log.write(Record{Type: RecordHeader, RunID: runID, Title: title, Cast: cast})
}

// Committed writes one message. It makes Log usable as a conversation
// observer.
func (log *Log) Committed(message history.Message) error {
	return log.write(Record{Type: RecordMessage, Message: &message})
}

// End writes the footer. Later writes fail.
func (log *Log) End(outcome Outcome) error {
	if err := log.write(Record{Type: RecordFooter, Outcome: &outcome}); err != nil {
		return err
	}
	log.mu.Lock()
	log.ended = true
	log.mu.Unlock()
	return nil
}

// Close closes the file opened by CreateLog. It does not write a
// footer.
func (log *Log) Close() error {
	if log.closer == nil {
		return nil
	}
	return log.closer.Close()
}

func (log *Log) write(record Record) error {
	log.mu.Lock()
	defer log.mu.Unlock()
	if log.ended {
		return errors.New("transcript: session log already ended")
	}
	record.Time = log.clock.Now()
	if err := log.encoder.Encode(record); err != nil {
		return fmt.Errorf("writing %s record: %w", record.Type, err)
	}
	return nil
}

// ReadLog parses a session log. A log cut short by a crash parses up
// to its last complete line.
func ReadLog(r io.Reader) ([]Record, error) {
	decoder := json.NewDecoder(r)
	var records []Record
	for {
		var record Record
		err := decoder.Decode(&record)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("session log record %d: %w", len(records)+1, err)
		}
		records = append(records, record)
	}
}
