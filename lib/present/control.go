// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package present

import (
	"context"
	"sync"
)

// control is the state the UI shares with the conversation goroutine:
// the stop channel and the pause gate.
type control struct {
	stop     chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	paused bool
	// resumed is closed when a pause ends. Replaced on every pause.
	resumed chan struct{}
}

func newControl() *control {
	return &control{stop: make(chan struct{})}
}

// requestStop closes the stop channel. Safe to call more than once.
func (c *control) requestStop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// stopRequested reports whether the stop channel is closed.
func (c *control) stopRequested() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// togglePause flips the pause state and reports whether the
// conversation is now paused.
func (c *control) togglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		c.paused = false
		close(c.resumed)
		return false
	}
	c.paused = true
	c.resumed = make(chan struct{})
	return true
}

// wait blocks while paused. It returns nil when the pause ends or a
// stop is requested, and ctx.Err() if ctx ends first.
func (c *control) wait(ctx context.Context) error {
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return nil
	}
	resumed := c.resumed
	c.mu.Unlock()

	select {
	case <-resumed:
		return nil
	case <-c.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
