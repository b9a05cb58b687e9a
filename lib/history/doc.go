// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package history holds the shared transcript of a conversation: an
// append-only, ordered list of [Message] values with a token-budget
// truncation policy.
//
// Every agent sees the same transcript through a [Snapshot], an
// immutable copy taken at one instant. The conversation engine is the
// only writer; it appends the narration and the spoken line of a turn
// together and then calls [History.EnforceBudget], which evicts the
// oldest messages until the estimated size fits the budget or a single
// message remains. The opening scene gets no special protection.
//
// Size is estimated per message by a [TokenEstimator]. The estimate of
// a message never changes after it is appended, so re-applying the
// same budget evicts nothing.
package history
