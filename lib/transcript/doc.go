// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transcript records conversations.
//
// Two records are kept, both outside the bounded history the agents
// see, so nothing is lost when the token budget evicts messages:
//
//   - [Log] is an append-only JSONL session log written as the run
//     progresses: a header line, one line per committed message, and
//     a footer with the outcome. A crashed run leaves a readable log
//     up to its last commit.
//   - [Archive] is the complete run, CBOR-encoded (lib/codec) and
//     compressed with zstd or lz4, written atomically when the run
//     ends. [ReadArchive] loads it back for replay.
//
// Both [Log] and [Recorder] receive messages through a Committed
// method, so a conversation can feed them directly as observers.
package transcript
