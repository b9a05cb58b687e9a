// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/ensemble/lib/clock"
	"github.com/bureau-foundation/ensemble/lib/history"
)

var epoch = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

func sampleMessages(count int) []history.Message {
	messages := make([]history.Message, count)
	for i := range messages {
		speaker := history.SpeakerNarrator
		if i%2 == 1 {
			speaker = "Ana"
		}
		messages[i] = history.Message{
			Speaker:  speaker,
			Text:     strings.Repeat("The rain keeps falling on the old roof. ", 3),
			Sequence: int64(i + 1),
			Time:     epoch.Add(time.Duration(i) * time.Second),
		}
	}
	return messages
}

func sampleArchive() *Archive {
	return &Archive{
		RunID:      "2f1c9f0e-0000-4000-8000-000000000001",
		Title:      "Last Orders",
		Guide:      "Keep it quiet.",
		Cast:       []CastMember{{Name: "Ana", Persona: "The landlady.", VoiceID: "voice-ana"}},
		Messages:   sampleMessages(40),
		Outcome:    Outcome{Reason: "max_turns", Turns: 20, Evicted: 12},
		StartedAt:  epoch,
		FinishedAt: epoch.Add(time.Minute),
	}
}

func assertArchiveEqual(t *testing.T, got, want *Archive) {
	t.Helper()
	if got.RunID != want.RunID || got.Title != want.Title || got.Guide != want.Guide {
		t.Errorf("identity = %q %q %q, want %q %q %q", got.RunID, got.Title, got.Guide, want.RunID, want.Title, want.Guide)
	}
	if len(got.Cast) != len(want.Cast) || got.Cast[0] != want.Cast[0] {
		t.Errorf("cast = %+v, want %+v", got.Cast, want.Cast)
	}
	if got.Outcome != want.Outcome {
		t.Errorf("outcome = %+v, want %+v", got.Outcome, want.Outcome)
	}
	if !got.StartedAt.Equal(want.StartedAt) || !got.FinishedAt.Equal(want.FinishedAt) {
		t.Errorf("times = %v..%v, want %v..%v", got.StartedAt, got.FinishedAt, want.StartedAt, want.FinishedAt)
	}
	if len(got.Messages) != len(want.Messages) {
		t.Fatalf("got %d messages, want %d", len(got.Messages), len(want.Messages))
	}
	for i := range want.Messages {
		g, w := got.Messages[i], want.Messages[i]
		if g.Speaker != w.Speaker || g.Text != w.Text || g.Sequence != w.Sequence || !g.Time.Equal(w.Time) {
			t.Errorf("message %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestArchiveCompression(t *testing.T) {
	t.Parallel()

	var uncompressedSize int
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		var buffer bytes.Buffer
		if err := EncodeArchive(&buffer, sampleArchive(), compression); err != nil {
			t.Fatalf("EncodeArchive(%s): %v", compression, err)
		}
		if compression == CompressionNone {
			uncompressedSize = buffer.Len()
		} else if buffer.Len() >= uncompressedSize {
			t.Errorf("%s archive is %d bytes, not smaller than %d uncompressed", compression, buffer.Len(), uncompressedSize)
		}
		if header := buffer.Bytes()[:6]; string(header[:4]) != "ENSA" || header[5] != byte(compression) {
			t.Errorf("%s header = %v", compression, header)
		}

		decoded, err := DecodeArchive(&buffer)
		if err != nil {
			t.Fatalf("DecodeArchive(%s): %v", compression, err)
		}
		assertArchiveEqual(t, decoded, sampleArchive())
	}
}

func TestEncodeArchiveDeterministic(t *testing.T) {
	t.Parallel()

	var first, second bytes.Buffer
	if err := EncodeArchive(&first, sampleArchive(), CompressionNone); err != nil {
		t.Fatal(err)
	}
	if err := EncodeArchive(&second, sampleArchive(), CompressionNone); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("the same archive encoded to different bytes")
	}
}

func TestDecodeArchiveRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "empty", input: nil, want: ErrNotArchive.Error()},
		{name: "wrong magic", input: []byte("PK\x03\x04\x01\x02"), want: ErrNotArchive.Error()},
		{name: "future version", input: []byte("ENSA\x09\x00"), want: "unsupported archive version 9"},
		{name: "unknown compression", input: []byte("ENSA\x01\x07"), want: "unsupported compression unknown(7)"},
		{name: "truncated payload", input: []byte("ENSA\x01\x00\xa1"), want: "decoding archive"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeArchive(bytes.NewReader(test.input))
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("DecodeArchive = %v, want error containing %q", err, test.want)
			}
		})
	}
}

func TestWriteArchiveAtomic(t *testing.T) {
	t.Parallel()

	directory := filepath.Join(t.TempDir(), "runs")
	path := filepath.Join(directory, "last-orders.ensa")

	if err := WriteArchive(path, sampleArchive(), CompressionZstd); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "last-orders.ensa" {
		t.Errorf("directory holds %v, want only the archive", entries)
	}

	archive, err := ReadArchive(path)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	assertArchiveEqual(t, archive, sampleArchive())
}

func TestReadArchiveNotArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("just some notes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadArchive(path); !errors.Is(err, ErrNotArchive) {
		t.Errorf("ReadArchive = %v, want ErrNotArchive", err)
	}
}

func TestParseCompression(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"none", "lz4", "zstd"} {
		compression, err := ParseCompression(name)
		if err != nil || compression.String() != name {
			t.Errorf("ParseCompression(%q) = %v, %v", name, compression, err)
		}
	}
	if compression, err := ParseCompression(""); err != nil || compression != CompressionZstd {
		t.Errorf("ParseCompression(\"\") = %v, %v; want zstd", compression, err)
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression(gzip) succeeded")
	}
}

func TestLogRecords(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	log := NewLog(&buffer, clock.Fake(epoch))

	if err := log.Begin("run-1", "Last Orders", []CastMember{{Name: "Ana"}}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, message := range sampleMessages(3) {
		if err := log.Committed(message); err != nil {
			t.Fatalf("Committed: %v", err)
		}
	}
	if err := log.End(Outcome{Reason: "quiet", Turns: 1}); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := log.Committed(sampleMessages(1)[0]); err == nil {
		t.Error("Committed after End succeeded")
	}

	if lines := strings.Count(buffer.String(), "\n"); lines != 5 {
		t.Errorf("log has %d lines, want 5", lines)
	}

	records, err := ReadLog(&buffer)
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	if records[0].Type != RecordHeader || records[0].RunID != "run-1" || records[0].Cast[0].Name != "Ana" {
		t.Errorf("header = %+v", records[0])
	}
	if !records[0].Time.Equal(epoch) {
		t.Errorf("header time = %v, want %v", records[0].Time, epoch)
	}
	for i, record := range records[1:4] {
		if record.Type != RecordMessage || record.Message == nil || record.Message.Sequence != int64(i+1) {
			t.Errorf("record %d = %+v", i+1, record)
		}
	}
	if records[4].Type != RecordFooter || records[4].Outcome == nil || records[4].Outcome.Reason != "quiet" {
		t.Errorf("footer = %+v", records[4])
	}
}

func TestReadLogTruncated(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	log := NewLog(&buffer, clock.Fake(epoch))
	if err := log.Begin("run-1", "", nil); err != nil {
		t.Fatal(err)
	}
	if err := log.Committed(sampleMessages(1)[0]); err != nil {
		t.Fatal(err)
	}
	// A crash mid-write leaves half a line.
	buffer.WriteString(`{"type":"message","message":{"speaker":"Ana","te`)

	records, err := ReadLog(&buffer)
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want the 2 complete ones", len(records))
	}
}

func TestCreateLogAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.jsonl")
	for run := range 2 {
		log, err := CreateLog(path, clock.Fake(epoch))
		if err != nil {
			t.Fatalf("CreateLog: %v", err)
		}
		if err := log.Begin("run", "", nil); err != nil {
			t.Fatalf("run %d Begin: %v", run, err)
		}
		if err := log.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("file has %d lines, want 2", lines)
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(epoch)
	cast := []CastMember{{Name: "Ana"}}
	recorder := NewRecorder("run-1", "Last Orders", "Quiet.", cast, fake)
	cast[0].Name = "mutated"

	for _, message := range sampleMessages(4) {
		if err := recorder.Committed(message); err != nil {
			t.Fatal(err)
		}
	}
	fake.Advance(90 * time.Second)

	archive := recorder.Archive(Outcome{Reason: "stopped", Turns: 2})
	if archive.Cast[0].Name != "Ana" {
		t.Errorf("cast shares storage with the caller: %q", archive.Cast[0].Name)
	}
	if len(archive.Messages) != 4 || recorder.Len() != 4 {
		t.Errorf("archive has %d messages, want 4", len(archive.Messages))
	}
	if archive.FinishedAt.Sub(archive.StartedAt) != 90*time.Second {
		t.Errorf("duration = %v, want 90s", archive.FinishedAt.Sub(archive.StartedAt))
	}

	archive.Messages[0].Text = "mutated"
	if again := recorder.Archive(Outcome{}); again.Messages[0].Text == "mutated" {
		t.Error("archive shares message storage with the recorder")
	}
}

func TestNewRunID(t *testing.T) {
	t.Parallel()

	first, second := NewRunID(), NewRunID()
	if first == second {
		t.Error("two run IDs are equal")
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Errorf("run ID %q is not a UUID: %v", first, err)
	}
}
