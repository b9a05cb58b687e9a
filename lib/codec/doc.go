// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration used for run archives.
//
// Two serialization formats meet in this repository:
//
//   - JSON for everything a person reads or edits: configuration
//     files, the JSONL session log, CLI output.
//   - CBOR for the compact run archive written at the end of a
//     conversation and read back by replay.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same run always produces the same archive bytes and archives can be
// compared by hash. Timestamps are encoded as RFC 3339 text with
// nanoseconds so a replayed transcript shows the original times.
//
//	data, err := codec.Marshal(record)
//	err = codec.Unmarshal(data, &record)
//
// For streams (the compressor in lib/transcript):
//
//	encoder, err := codec.NewEncoder(zstdWriter)
//	decoder, err := codec.NewDecoder(zstdReader)
//
// # Struct Tags
//
// Types shared with the JSONL log carry only `json` tags; fxamacker/cbor
// falls back to them when no `cbor` tag is present, so one tag names
// the field in both formats. Never put both tags on one field.
package codec
