// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canframe

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// RecordSize is sizeof(struct can_frame).
//
//	struct can_frame {
//	    canid_t can_id;   // offset 0, host byte order
//	    __u8    len;      // offset 4
//	    __u8    __pad;    // offset 5
//	    __u8    __res0;   // offset 6
//	    __u8    len8_dlc; // offset 7
//	    __u8    data[8];  // offset 8
//	};
const RecordSize = 16

const (
	recordLengthOffset = 4
	recordDataOffset   = 8
)

// ErrShortRecord is returned by DecodeRecord when fewer than RecordSize
// bytes were read from the bus.
var ErrShortRecord = errors.New("canframe: short bus record")

// EncodeRecord lays frame out as a kernel struct can_frame. Padding and
// reserved bytes are zero.
func EncodeRecord(frame Frame) ([RecordSize]byte, error) {
	var record [RecordSize]byte
	if err := frame.Check(); err != nil {
		return record, err
	}
	binary.NativeEndian.PutUint32(record[0:4], frame.ID)
	record[recordLengthOffset] = frame.Length
	copy(record[recordDataOffset:], frame.Data[:frame.Length])
	return record, nil
}

// DecodeRecord parses a kernel struct can_frame. Data bytes past the
// declared length are not copied, so the result has a zero tail even if
// the kernel left stale bytes there.
func DecodeRecord(record []byte) (Frame, error) {
	if len(record) < RecordSize {
		return Frame{}, fmt.Errorf("%w: %d < %d", ErrShortRecord, len(record), RecordSize)
	}
	frame := Frame{
		ID:     binary.NativeEndian.Uint32(record[0:4]),
		Length: record[recordLengthOffset],
	}
	if err := frame.Check(); err != nil {
		return Frame{}, err
	}
	copy(frame.Data[:], record[recordDataOffset:recordDataOffset+int(frame.Length)])
	return frame, nil
}
