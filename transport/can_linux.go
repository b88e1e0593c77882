// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// OpenCAN opens a CAN_RAW socket bound to the named interface. The
// socket receives every frame on the bus (no filters are installed) and
// does not receive its own transmissions.
func OpenCAN(interfaceName string) (*Socket, error) {
	networkInterface, err := net.InterfaceByName(interfaceName)
	if err != nil {
		return nil, fmt.Errorf("resolving CAN interface %q: %w", interfaceName, err)
	}

	socket, err := openSocket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("opening CAN socket: %w", err)
	}
	if err := unix.Bind(socket.fd, &unix.SockaddrCAN{Ifindex: networkInterface.Index}); err != nil {
		socket.Close()
		return nil, fmt.Errorf("binding CAN interface %q: %w", interfaceName, os.NewSyscallError("bind", err))
	}
	return socket, nil
}
