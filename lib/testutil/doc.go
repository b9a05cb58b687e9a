// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the
// select-with-timeout pattern so tests that wait on goroutines (the
// voice player, the TUI bridge, a conversation running in the
// background) never call time.After directly. These helpers are the
// only place tests use a real wall-clock timeout.
//
// All helpers fail the test with Fatalf rather than returning errors.
package testutil
