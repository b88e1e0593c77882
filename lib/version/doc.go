// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the canbridge
// binary.
//
// Three package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//
// [Version] is set manually for releases. The others default to
// "unknown" when not injected, which occurs during development builds
// and test runs.
//
// [Info] formats the one-line --version output, [Full] adds the Go
// toolchain and platform, and [Short] returns the bare version for log
// records.
package version
