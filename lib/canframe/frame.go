// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canframe

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// MaxDataLength is the largest payload a classic CAN frame carries.
const MaxDataLength = 8

// ErrPayloadTooLong is returned when a frame claims more than
// MaxDataLength payload bytes.
var ErrPayloadTooLong = errors.New("canframe: payload longer than 8 bytes")

// Frame is one message on the CAN bus.
//
// ID is carried as-is, including the EFF/RTR/ERR flag bits the kernel
// stores in its upper bits. Data bytes past Length are zero in every
// frame produced by this package, so decoded frames compare equal with ==.
type Frame struct {
	ID     uint32
	Length uint8
	Data   [MaxDataLength]byte
}

// New builds a frame from an identifier and a payload of at most
// MaxDataLength bytes.
func New(id uint32, payload []byte) (Frame, error) {
	if len(payload) > MaxDataLength {
		return Frame{}, fmt.Errorf("%w: got %d", ErrPayloadTooLong, len(payload))
	}
	frame := Frame{ID: id, Length: uint8(len(payload))}
	copy(frame.Data[:], payload)
	return frame, nil
}

// Payload returns a copy of the meaningful data bytes. A Length past
// MaxDataLength is clamped; call Check to detect it.
func (f Frame) Payload() []byte {
	length := min(int(f.Length), MaxDataLength)
	return append([]byte(nil), f.Data[:length]...)
}

// Check reports ErrPayloadTooLong if Length exceeds MaxDataLength.
func (f Frame) Check() error {
	if f.Length > MaxDataLength {
		return fmt.Errorf("%w: length %d", ErrPayloadTooLong, f.Length)
	}
	return nil
}

// String renders the frame in candump's compact form, e.g. "123#DEAD".
// The identifier is zero-padded to three hex digits.
func (f Frame) String() string {
	length := min(int(f.Length), MaxDataLength)
	var builder strings.Builder
	fmt.Fprintf(&builder, "%03X#", f.ID)
	builder.WriteString(strings.ToUpper(hex.EncodeToString(f.Data[:length])))
	return builder.String()
}
