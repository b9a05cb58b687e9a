// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scene runs a narrated conversation between a fixed cast of
// LLM-backed characters and one narrator.
//
// Each turn follows the same protocol. Every [Character] is asked,
// concurrently and against one transcript snapshot, whether it wants
// to speak. If two or more do, the [Narrator] picks one of them; a
// single willing character is chosen without a call. The narrator then
// describes the moment, the chosen character (if any) speaks, and both
// messages are committed to the shared [history.History] together.
// A turn that fails part way commits nothing.
//
// [Coordinator] runs one turn. [Conversation] seeds the opening scene
// and runs turns until the turn limit, a stop signal, a run of quiet
// turns, or an agent failure.
//
// Agents never hold the conversation. They receive a
// [history.Snapshot] and call the model through a [Caller], which
// makes them trivial to drive from tests with a scripted Caller.
// Everything observable (calls, state transitions, anomalies,
// evictions) is reported to an [EventSink].
package scene
