// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers: reporting an
// error from run() to stderr before the structured logger exists (or
// after the TUI has released the terminal), and choosing the exit code.
package process
