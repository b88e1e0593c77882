// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"

	"golang.org/x/sys/unix"
)

// IsWouldBlock reports whether err is EAGAIN (or EWOULDBLOCK, its alias
// on Linux): the operation found nothing to read or no buffer space to
// write.
func IsWouldBlock(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}
	return errno == unix.EAGAIN || errno == unix.EWOULDBLOCK
}

// IsPeerUnreachable reports whether err is one of the asynchronous
// errors a connected datagram socket picks up from ICMP: connection
// refused, host unreachable, or network unreachable.
func IsPeerUnreachable(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case unix.ECONNREFUSED, unix.EHOSTUNREACH, unix.ENETUNREACH:
		return true
	}
	return false
}

// IsInterrupted reports whether err is EINTR.
func IsInterrupted(err error) bool {
	var errno unix.Errno
	return errors.As(err, &errno) && errno == unix.EINTR
}
