// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Socket is a non-blocking datagram socket owned by the bridge.
type Socket struct {
	fd        int
	closeOnce sync.Once
	closeErr  error
}

// newSocket takes ownership of fd and switches it to non-blocking,
// close-on-exec mode. On failure fd is closed.
func newSocket(fd int) (*Socket, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("fcntl", err)
	}
	unix.CloseOnExec(fd)
	return &Socket{fd: fd}, nil
}

// openSocket creates a socket and wraps it.
func openSocket(domain, socketType, protocol int) (*Socket, error) {
	fd, err := unix.Socket(domain, socketType, protocol)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	return newSocket(fd)
}

// Fd returns the underlying descriptor.
func (s *Socket) Fd() int {
	return s.fd
}

// Receive reads one datagram into buffer. MSG_TRUNC makes the kernel
// report the datagram's full length, so a return value larger than
// len(buffer) means the tail was discarded.
func (s *Socket) Receive(buffer []byte) (int, error) {
	size, _, err := unix.Recvfrom(s.fd, buffer, unix.MSG_DONTWAIT|unix.MSG_TRUNC)
	if err != nil {
		return 0, os.NewSyscallError("recvfrom", err)
	}
	return size, nil
}

// Send writes data as one datagram to the connected peer.
func (s *Socket) Send(data []byte) error {
	if err := unix.Sendto(s.fd, data, unix.MSG_DONTWAIT, nil); err != nil {
		return os.NewSyscallError("sendto", err)
	}
	return nil
}

// Close closes the descriptor once.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		if err := unix.Close(s.fd); err != nil {
			s.closeErr = os.NewSyscallError("close", err)
		}
	})
	return s.closeErr
}

// LocalAddr returns the bound address of an IP socket, or nil for other
// families or on error. Useful after binding port zero.
func (s *Socket) LocalAddr() *net.UDPAddr {
	sockaddr, err := unix.Getsockname(s.fd)
	if err != nil {
		return nil
	}
	switch address := sockaddr.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: net.IP(address.Addr[:]).To16(), Port: address.Port}
	case *unix.SockaddrInet6:
		return &net.UDPAddr{IP: net.IP(address.Addr[:]), Port: address.Port}
	}
	return nil
}

// NewDatagramPair returns two connected AF_UNIX datagram sockets. A
// datagram sent on one end is received whole on the other, which makes
// the pair a stand-in for a CAN socket in tests.
func NewDatagramPair() (*Socket, *Socket, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("creating datagram pair: %w", os.NewSyscallError("socketpair", err))
	}
	first, err := newSocket(fds[0])
	if err != nil {
		unix.Close(fds[1])
		return nil, nil, fmt.Errorf("creating datagram pair: %w", err)
	}
	second, err := newSocket(fds[1])
	if err != nil {
		first.Close()
		return nil, nil, fmt.Errorf("creating datagram pair: %w", err)
	}
	return first, second, nil
}
