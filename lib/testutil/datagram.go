// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// ListenLoopback opens a UDP socket on an ephemeral 127.0.0.1 port. The
// socket is closed when the test completes.
func ListenLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listening on loopback: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// LoopbackPort returns the port conn is bound to.
func LoopbackPort(t *testing.T, conn *net.UDPConn) uint16 {
	t.Helper()
	address, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		t.Fatalf("unexpected local address type %T", conn.LocalAddr())
	}
	return uint16(address.Port)
}

// ReadDatagram reads one datagram from conn within timeout, or fails
// the test.
func ReadDatagram(t *testing.T, conn *net.UDPConn, timeout time.Duration) []byte {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}
	buffer := make([]byte, 65536)
	size, _, err := conn.ReadFromUDP(buffer)
	if err != nil {
		t.Fatalf("reading datagram: %v", err)
	}
	return buffer[:size]
}

// RequireNoDatagram fails the test if conn receives anything within
// wait.
func RequireNoDatagram(t *testing.T, conn *net.UDPConn, wait time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}
	buffer := make([]byte, 65536)
	size, _, err := conn.ReadFromUDP(buffer)
	if err == nil {
		t.Fatalf("unexpected datagram of %d bytes: % X", size, buffer[:size])
	}
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatalf("reading datagram: %v", err)
	}
}

// Receiver is a non-blocking, descriptor-backed datagram source.
type Receiver interface {
	Fd() int
	Receive(buffer []byte) (int, error)
}

// ReceiveEndpoint waits up to timeout for endpoint to become readable
// and returns the next datagram, or fails the test.
func ReceiveEndpoint(t *testing.T, endpoint Receiver, timeout time.Duration) []byte {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("timed out after %v waiting for datagram on fd %d", timeout, endpoint.Fd())
		}
		fds := []unix.PollFd{{Fd: int32(endpoint.Fd()), Events: unix.POLLIN}}
		_, err := unix.Poll(fds, int(remaining.Milliseconds())+1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			t.Fatalf("polling fd %d: %v", endpoint.Fd(), err)
		}
		if fds[0].Revents&unix.POLLIN == 0 {
			continue
		}
		buffer := make([]byte, 65536)
		size, err := endpoint.Receive(buffer)
		if errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil {
			t.Fatalf("receiving on fd %d: %v", endpoint.Fd(), err)
		}
		if size > len(buffer) {
			size = len(buffer)
		}
		return buffer[:size]
	}
}
