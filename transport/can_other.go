// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package transport

import "fmt"

// OpenCAN is only available on Linux, where SocketCAN lives.
func OpenCAN(interfaceName string) (*Socket, error) {
	return nil, fmt.Errorf("opening CAN interface %q: %w", interfaceName, ErrUnsupported)
}
