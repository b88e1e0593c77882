// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies socket errors for the forwarding loop.
//
// The bridge treats every per-datagram failure as recoverable, but not
// every failure deserves the same log level. [IsWouldBlock] identifies
// the EAGAIN a non-blocking receive returns after a spurious readiness
// notification. [IsPeerUnreachable] identifies the ICMP-driven errors a
// connected UDP socket reports when the remote side is not listening
// yet, which is routine while peers start up. [IsInterrupted] identifies
// EINTR from a blocking system call that should simply be retried.
//
// All helpers unwrap with errors.As, so they work on errors wrapped with
// fmt.Errorf("...: %w", err).
package netutil
