// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canframe

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the size of the identifier field that starts every
	// wire frame. It is also the smallest valid datagram.
	HeaderSize = 4

	// MaxWireSize is the largest meaningful datagram. Longer datagrams
	// are truncated to this size before decoding.
	MaxWireSize = HeaderSize + MaxDataLength
)

// ErrFrameTooShort is returned by Decode when the input cannot hold the
// identifier field.
var ErrFrameTooShort = errors.New("canframe: frame too short")

// Encode serializes frame into its wire form: the identifier in
// big-endian order followed by exactly frame.Length payload bytes.
func Encode(frame Frame) ([]byte, error) {
	if err := frame.Check(); err != nil {
		return nil, err
	}
	buffer := make([]byte, HeaderSize+int(frame.Length))
	binary.BigEndian.PutUint32(buffer[:HeaderSize], frame.ID)
	copy(buffer[HeaderSize:], frame.Data[:frame.Length])
	return buffer, nil
}

// Decode parses a wire frame. Inputs longer than MaxWireSize are decoded
// from their first MaxWireSize bytes; the excess is discarded. The
// returned frame does not alias data.
func Decode(data []byte) (Frame, error) {
	if len(data) < HeaderSize {
		return Frame{}, fmt.Errorf("%w: %d < %d", ErrFrameTooShort, len(data), HeaderSize)
	}
	if len(data) > MaxWireSize {
		data = data[:MaxWireSize]
	}

	frame := Frame{
		ID:     binary.BigEndian.Uint32(data[:HeaderSize]),
		Length: uint8(len(data) - HeaderSize),
	}
	copy(frame.Data[:], data[HeaderSize:])
	return frame, nil
}
