// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui holds the terminal look shared by ensemble's presenters:
// the color theme, per-character speaker colors, and the viewport
// scrollbar.
package tui
