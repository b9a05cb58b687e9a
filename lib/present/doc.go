// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package present displays a running conversation. Every presenter
// implements scene.Presenter:
//
//   - [Plain] writes styled, word-wrapped narration and dialogue to a
//     writer, streaming text inline as it is generated.
//   - [TUI] runs a bubbletea program with a scrolling transcript, a
//     status line, and keys to pause and stop the run.
//   - [Headless] writes nothing but log records.
//
// [Replay] feeds a recorded transcript archive through any presenter
// without calling a model.
package present
