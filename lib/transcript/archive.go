// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/ensemble/lib/codec"
	"github.com/bureau-foundation/ensemble/lib/history"
)

// archiveMagic opens every archive file, followed by one version byte
// and one Compression byte.
var archiveMagic = []byte("ENSA")

const archiveVersion = 1

// ErrNotArchive is returned when a file does not start with the
// archive header.
var ErrNotArchive = errors.New("transcript: not a run archive")

// CastMember describes one character as the run saw it.
type CastMember struct {
	Name    string `json:"name"`
	Persona string `json:"persona,omitempty"`
	VoiceID string `json:"voice_id,omitempty"`
}

// Outcome is how the run ended.
type Outcome struct {
	// Reason is the conversation's stop reason.
	Reason string `json:"reason"`

	// Turns is the number of completed turns.
	Turns int `json:"turns"`

	// Evicted is how many messages the token budget dropped from the
	// agents' view. They are still in the archive.
	Evicted int `json:"evicted"`

	// Error is the failure that ended the run, if any.
	Error string `json:"error,omitempty"`
}

// Archive is a complete run: the cast, every committed message in
// order, and the outcome.
type Archive struct {
	RunID      string            `json:"run_id"`
	Title      string            `json:"title,omitempty"`
	Guide      string            `json:"guide,omitempty"`
	Cast       []CastMember      `json:"cast"`
	Messages   []history.Message `json:"messages"`
	Outcome    Outcome           `json:"outcome"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// EncodeArchive writes the archive header and the compressed CBOR
// payload to w.
func EncodeArchive(w io.Writer, archive *Archive, compression Compression) error {
	header := append(bytes.Clone(archiveMagic), archiveVersion, byte(compression))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("writing archive header: %w", err)
	}

	stream, err := compressor(w, compression)
	if err != nil {
		return err
	}
	encoder, err := codec.NewEncoder(stream)
	if err == nil {
		err = encoder.Encode(archive)
	}
	if err != nil {
		stream.Close()
		return fmt.Errorf("encoding archive: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("flushing %s stream: %w", compression, err)
	}
	return nil
}

// DecodeArchive reads an archive written by EncodeArchive.
func DecodeArchive(r io.Reader) (*Archive, error) {
	header := make([]byte, len(archiveMagic)+2)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNotArchive
		}
		return nil, fmt.Errorf("reading archive header: %w", err)
	}
	if !bytes.Equal(header[:len(archiveMagic)], archiveMagic) {
		return nil, ErrNotArchive
	}
	if version := header[len(archiveMagic)]; version != archiveVersion {
		return nil, fmt.Errorf("transcript: unsupported archive version %d", version)
	}

	stream, err := decompressor(r, Compression(header[len(archiveMagic)+1]))
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	decoder, err := codec.NewDecoder(stream)
	if err != nil {
		return nil, fmt.Errorf("decoding archive: %w", err)
	}
	var archive Archive
	if err := decoder.Decode(&archive); err != nil {
		return nil, fmt.Errorf("decoding archive: %w", err)
	}
	return &archive, nil
}

// WriteArchive atomically writes the archive to path: it is encoded
// into a temporary file in the same directory and renamed into place,
// so readers never see a partial archive.
func WriteArchive(path string, archive *Archive, compression Compression) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(directory, ".archive-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp archive file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	buffered := bufio.NewWriter(tmpFile)
	if err := EncodeArchive(buffered, archive, compression); err != nil {
		tmpFile.Close()
		return err
	}
	if err := buffered.Flush(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing archive: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp archive file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming archive to %s: %w", path, err)
	}

	success = true
	return nil
}

// ReadArchive loads an archive written by WriteArchive.
func ReadArchive(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	archive, err := DecodeArchive(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return archive, nil
}
