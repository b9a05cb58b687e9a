// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source for message timestamps and presentation
// pacing. Use Real in production and Fake in tests.
type Clock interface {
	Now() time.Time

	// After delivers the time on the returned channel once d has
	// passed. A non-positive d is ready at once.
	After(d time.Duration) <-chan time.Time
}
