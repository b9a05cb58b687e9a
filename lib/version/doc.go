// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the ensemble
// binary.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// For example:
//
//	go build -ldflags "-X github.com/bureau-foundation/ensemble/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/ensemble
//
// When they are not injected, [Info] fills the commit, dirty flag, and
// time from the VCS stamp in the binary's build info.
//
// [UserAgent] is sent by the model and speech clients.
package version
