// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package canframe defines the classic CAN frame value and its two byte
// representations.
//
// The wire representation travels one frame per UDP datagram:
//
//	offset  size  field
//	0       4     identifier, unsigned big-endian
//	4       0-8   payload, length = datagram size - 4
//
// There is no length prefix; the datagram boundary delimits the frame.
// [Encode] produces it and [Decode] parses it. Decode rejects inputs
// shorter than [HeaderSize] with [ErrFrameTooShort] and silently
// discards anything past [MaxWireSize].
//
// The record representation is the kernel's 16-byte struct can_frame as
// read from and written to a CAN_RAW socket. [EncodeRecord] and
// [DecodeRecord] convert between it and [Frame]. The identifier is in
// host byte order there, matching what the kernel expects.
//
// Neither encoder accepts a payload longer than [MaxDataLength]: both
// return [ErrPayloadTooLong] instead of truncating.
//
// This package performs no I/O and depends on no other packages in this module.
package canframe
