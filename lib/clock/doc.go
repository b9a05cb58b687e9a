// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Structs that read the time hold a Clock field. Production wiring
// passes Real(); tests pass Fake() and drive time with Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store := history.New(history.Options{Clock: c})
//	c.Advance(time.Minute)
//
// When a goroutine under test waits on FakeClock.After, WaitForTimers
// blocks until the wait is registered, so the following Advance
// cannot run before it.
package clock
