// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge forwards CAN frames between local SocketCAN interfaces
// and remote UDP peers.
//
// A [Tunnel] owns three endpoints: the bus socket, a UDP socket bound to
// a local port (inbound), and a UDP socket connected to the remote peer
// (outbound). Datagrams arriving inbound are decoded with lib/canframe
// and written to the bus as kernel can_frame records; frames read from
// the bus are encoded and sent outbound. Each direction handler moves at
// most one frame per call. Every failure inside a handler (a short or
// oversized datagram, a malformed record, a refused send) is logged and
// counted, and never affects the other direction or other tunnels.
//
// A [Multiplexer] watches the bus and inbound endpoints of every
// registered tunnel with a single poll(2) call. Each descriptor is
// tagged at registration with its tunnel and [Direction], so a ready
// descriptor dispatches straight to the right handler. Poll is
// level-triggered: an endpoint that still has data after one frame is
// reported ready again on the next wakeup, which keeps a busy tunnel
// from starving the others. Cancellation is delivered through a
// self-pipe watched alongside the endpoints.
//
// [Bridge] is the composition used by the canbridge binary: Build opens
// every configured tunnel through an [Opener] (all or nothing), and Run
// registers the tunnels, runs the multiplexer until the context is
// cancelled, logs per-tunnel counters, and closes the endpoints.
//
// Everything runs on the goroutine that calls Run. Handlers never block
// because all endpoints are non-blocking.
package bridge
