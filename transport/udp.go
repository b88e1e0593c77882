// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// ListenUDP binds a datagram socket to port on every local address.
// It prefers a dual-stack IPv6 socket, which also receives IPv4
// datagrams, and falls back to IPv4 when the kernel has no IPv6.
func ListenUDP(port uint16) (*Socket, error) {
	socket, err := bindUDP(unix.AF_INET6, &unix.SockaddrInet6{Port: int(port)})
	if err == nil {
		return socket, nil
	}
	if !errors.Is(err, unix.EAFNOSUPPORT) && !errors.Is(err, unix.EADDRNOTAVAIL) {
		return nil, fmt.Errorf("binding UDP port %d: %w", port, err)
	}

	socket, err = bindUDP(unix.AF_INET, &unix.SockaddrInet4{Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("binding UDP port %d: %w", port, err)
	}
	return socket, nil
}

func bindUDP(family int, address unix.Sockaddr) (*Socket, error) {
	socket, err := openSocket(family, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, err
	}
	if family == unix.AF_INET6 {
		if err := unix.SetsockoptInt(socket.fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
			socket.Close()
			return nil, os.NewSyscallError("setsockopt", err)
		}
	}
	if err := unix.Bind(socket.fd, address); err != nil {
		socket.Close()
		return nil, os.NewSyscallError("bind", err)
	}
	return socket, nil
}

// DialUDP resolves host and connects a datagram socket to host:port.
// Resolution happens once; the peer address is fixed afterwards.
func DialUDP(host string, port uint16) (*Socket, error) {
	target := net.JoinHostPort(host, strconv.Itoa(int(port)))
	address, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolving UDP address %s: %w", target, err)
	}

	family, sockaddr, err := udpSockaddr(address)
	if err != nil {
		return nil, fmt.Errorf("resolving UDP address %s: %w", target, err)
	}

	socket, err := openSocket(family, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("connecting UDP %s: %w", target, err)
	}
	if err := unix.Connect(socket.fd, sockaddr); err != nil {
		socket.Close()
		return nil, fmt.Errorf("connecting UDP %s: %w", target, os.NewSyscallError("connect", err))
	}
	return socket, nil
}

// udpSockaddr converts a resolved address to the matching socket family
// and sockaddr. IPv6 zones are resolved to interface indexes.
func udpSockaddr(address *net.UDPAddr) (int, unix.Sockaddr, error) {
	if ip4 := address.IP.To4(); ip4 != nil {
		sockaddr := &unix.SockaddrInet4{Port: address.Port}
		copy(sockaddr.Addr[:], ip4)
		return unix.AF_INET, sockaddr, nil
	}

	ip6 := address.IP.To16()
	if ip6 == nil {
		return 0, nil, fmt.Errorf("unusable IP address %q", address.IP)
	}
	sockaddr := &unix.SockaddrInet6{Port: address.Port}
	copy(sockaddr.Addr[:], ip6)
	if address.Zone != "" {
		zone, err := net.InterfaceByName(address.Zone)
		if err != nil {
			return 0, nil, fmt.Errorf("resolving IPv6 zone %q: %w", address.Zone, err)
		}
		sockaddr.ZoneId = uint32(zone.Index)
	}
	return unix.AF_INET6, sockaddr, nil
}
