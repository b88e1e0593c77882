// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport opens the sockets a CAN bridge forwards between.
//
// Every endpoint is a [Socket]: a raw, non-blocking, close-on-exec file
// descriptor that the bridge's poll loop can watch directly. There is no
// net.Conn wrapping and no runtime netpoller involvement, because the
// loop needs the descriptor itself for poll(2) and needs MSG_TRUNC to
// learn the real size of an oversized datagram.
//
// Three constructors cover the three endpoint roles of a tunnel:
//
//   - [OpenCAN] binds a CAN_RAW socket to a named interface. Reads and
//     writes carry one 16-byte struct can_frame each. Linux only; other
//     platforms get [ErrUnsupported].
//   - [ListenUDP] binds a datagram socket to a local port on the
//     wildcard address, dual-stack where IPv6 is available.
//   - [DialUDP] resolves a host and port and connects a datagram socket
//     to it, so sends need no destination and ICMP errors surface on
//     later operations.
//
// [System] bundles the three as the production opener for the bridge.
// [NewDatagramPair] returns two connected AF_UNIX datagram sockets; tests
// use one end in place of a CAN socket.
//
// [Socket.Receive] never blocks and reports the full size of the
// datagram even when it was larger than the buffer. [Socket.Send] never
// blocks either: a full socket buffer is an EAGAIN error, not a wait.
// Errors are *os.SyscallError values wrapping unix.Errno, so callers
// classify them with errors.Is or lib/netutil.
package transport
