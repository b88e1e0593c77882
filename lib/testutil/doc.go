// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the bridge packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls.
//
// [ListenLoopback], [ReadDatagram], and [RequireNoDatagram] stand in
// for a remote UDP peer: a plain *net.UDPConn on 127.0.0.1 that a test
// sends from and reads forwarded datagrams on. [ReceiveEndpoint] does
// the same for a raw descriptor-backed endpoint, waiting with poll(2)
// instead of a read deadline.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no dependencies on other packages in this module.
package testutil
