// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock only moves when Advance is called. It is safe for
// concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []timer

	// registered is closed and replaced each time a timer is added.
	registered chan struct{}
}

type timer struct {
	deadline time.Time
	fire     chan time.Time
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	return &FakeClock{now: start, registered: make(chan struct{})}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	fire := make(chan time.Time, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		fire <- c.now
		return fire
	}
	c.pending = append(c.pending, timer{deadline: c.now.Add(d), fire: fire})
	close(c.registered)
	c.registered = make(chan struct{})
	return fire
}

// Advance moves the clock forward by d and fires the timers that are
// now due, earliest deadline first. It returns how many fired.
func (c *FakeClock) Advance(d time.Duration) int {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []timer
	c.pending = slices.DeleteFunc(c.pending, func(pending timer) bool {
		if pending.deadline.After(now) {
			return false
		}
		due = append(due, pending)
		return true
	})
	c.mu.Unlock()

	slices.SortStableFunc(due, func(a, b timer) int { return a.deadline.Compare(b.deadline) })
	for _, expired := range due {
		expired.fire <- now
	}
	return len(due)
}

// WaitForTimers blocks until at least n timers are pending, so that a
// following Advance cannot overtake the goroutine that arms them.
func (c *FakeClock) WaitForTimers(n int) {
	for {
		c.mu.Lock()
		count, registered := len(c.pending), c.registered
		c.mu.Unlock()
		if count >= n {
			return
		}
		<-registered
	}
}

// PendingCount reports how many timers have not fired yet.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
