// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "errors"

// ErrUnsupported is returned when an endpoint type is not available on
// the current platform.
var ErrUnsupported = errors.New("transport: not supported on this platform")

// Endpoint is an open datagram socket. Each call to Receive consumes
// exactly one datagram and each call to Send produces exactly one.
type Endpoint interface {
	// Fd returns the descriptor to watch for readiness. It remains
	// valid until Close.
	Fd() int

	// Receive reads one pending datagram into buffer without blocking.
	// The returned size is the datagram's real length, which exceeds
	// len(buffer) when the datagram was truncated. Returns an EAGAIN
	// error when nothing is pending.
	Receive(buffer []byte) (int, error)

	// Send writes data as one datagram without blocking.
	Send(data []byte) error

	// Close releases the descriptor. Further calls are no-ops.
	Close() error
}

// System opens real sockets. Its methods match the opener interface the
// bridge package consumes.
type System struct{}

// OpenBus opens a CAN_RAW socket on the named interface.
func (System) OpenBus(interfaceName string) (Endpoint, error) {
	socket, err := OpenCAN(interfaceName)
	if err != nil {
		return nil, err
	}
	return socket, nil
}

// ListenInbound binds a UDP socket to port on the wildcard address.
func (System) ListenInbound(port uint16) (Endpoint, error) {
	socket, err := ListenUDP(port)
	if err != nil {
		return nil, err
	}
	return socket, nil
}

// DialOutbound connects a UDP socket to host:port.
func (System) DialOutbound(host string, port uint16) (Endpoint, error) {
	socket, err := DialUDP(host, port)
	if err != nil {
		return nil, err
	}
	return socket, nil
}
