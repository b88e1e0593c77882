// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"log/slog"

	"github.com/bureau-foundation/canbridge/lib/canframe"
	"github.com/bureau-foundation/canbridge/lib/config"
	"github.com/bureau-foundation/canbridge/lib/netutil"
	"github.com/bureau-foundation/canbridge/transport"
)

// Direction identifies one half of a tunnel.
type Direction uint8

const (
	// DirectionToBus forwards inbound datagrams onto the bus.
	DirectionToBus Direction = iota + 1

	// DirectionToPeer forwards bus frames to the remote peer.
	DirectionToPeer
)

func (d Direction) String() string {
	switch d {
	case DirectionToBus:
		return "udp->can"
	case DirectionToPeer:
		return "can->udp"
	}
	return "unknown"
}

// Counters tracks per-tunnel forwarding outcomes. A frame counts as
// dropped when it was received but not delivered.
type Counters struct {
	ForwardedToBus  uint64
	ForwardedToPeer uint64
	DroppedToBus    uint64
	DroppedToPeer   uint64
}

// Tunnel pairs one bus endpoint with one inbound and one outbound UDP
// endpoint. Its handlers run only on the multiplexer goroutine.
type Tunnel struct {
	config   config.Tunnel
	bus      transport.Endpoint
	inbound  transport.Endpoint
	outbound transport.Endpoint
	logger   *slog.Logger
	counters Counters
}

// NewTunnel takes ownership of the three endpoints. A nil logger means
// slog.Default().
func NewTunnel(tunnelConfig config.Tunnel, bus, inbound, outbound transport.Endpoint, logger *slog.Logger) *Tunnel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tunnel{
		config:   tunnelConfig,
		bus:      bus,
		inbound:  inbound,
		outbound: outbound,
		logger:   logger.With("tunnel", tunnelConfig.String()),
	}
}

// Config returns the configuration the tunnel was opened from.
func (t *Tunnel) Config() config.Tunnel {
	return t.config
}

// Counters returns a snapshot of the forwarding counters. Safe to call
// only when the multiplexer running the tunnel is not.
func (t *Tunnel) Counters() Counters {
	return t.counters
}

func (t *Tunnel) String() string {
	return t.config.String()
}

// Close closes all three endpoints.
func (t *Tunnel) Close() error {
	return errors.Join(t.bus.Close(), t.inbound.Close(), t.outbound.Close())
}

func (t *Tunnel) handle(direction Direction) {
	switch direction {
	case DirectionToBus:
		t.forwardToBus()
	case DirectionToPeer:
		t.forwardToPeer()
	}
}

// forwardToBus moves one inbound datagram onto the bus.
func (t *Tunnel) forwardToBus() {
	logger := t.logger.With("direction", DirectionToBus.String())

	var buffer [canframe.MaxWireSize]byte
	size, err := t.inbound.Receive(buffer[:])
	if err != nil {
		logReceiveError(logger, err)
		return
	}
	if size < canframe.HeaderSize {
		logger.Warn("frame too short", "size", size, "minimum", canframe.HeaderSize)
		t.counters.DroppedToBus++
		return
	}
	if size > canframe.MaxWireSize {
		logger.Warn("datagram truncated", "size", size, "kept", canframe.MaxWireSize)
		size = canframe.MaxWireSize
	}

	frame, err := canframe.Decode(buffer[:size])
	if err != nil {
		logger.Warn("decoding datagram", "error", err)
		t.counters.DroppedToBus++
		return
	}
	logger.Debug("forwarding frame", "frame", frame.String())

	record, err := canframe.EncodeRecord(frame)
	if err != nil {
		logger.Warn("encoding bus record", "frame", frame.String(), "error", err)
		t.counters.DroppedToBus++
		return
	}
	if err := t.bus.Send(record[:]); err != nil {
		logSendError(logger, err, frame)
		t.counters.DroppedToBus++
		return
	}
	t.counters.ForwardedToBus++
}

// forwardToPeer moves one bus frame to the remote peer.
func (t *Tunnel) forwardToPeer() {
	logger := t.logger.With("direction", DirectionToPeer.String())

	var record [canframe.RecordSize]byte
	size, err := t.bus.Receive(record[:])
	if err != nil {
		logReceiveError(logger, err)
		return
	}

	frame, err := canframe.DecodeRecord(record[:min(size, canframe.RecordSize)])
	if err != nil {
		logger.Warn("malformed bus record", "size", size, "error", err)
		t.counters.DroppedToPeer++
		return
	}
	logger.Debug("forwarding frame", "frame", frame.String())

	data, err := canframe.Encode(frame)
	if err != nil {
		logger.Warn("encoding datagram", "frame", frame.String(), "error", err)
		t.counters.DroppedToPeer++
		return
	}
	if err := t.outbound.Send(data); err != nil {
		logSendError(logger, err, frame)
		t.counters.DroppedToPeer++
		return
	}
	t.counters.ForwardedToPeer++
}

func logReceiveError(logger *slog.Logger, err error) {
	if netutil.IsWouldBlock(err) {
		logger.Debug("nothing to receive", "error", err)
		return
	}
	logger.Warn("receive failed", "error", err)
}

func logSendError(logger *slog.Logger, err error, frame canframe.Frame) {
	switch {
	case netutil.IsPeerUnreachable(err):
		logger.Warn("peer unreachable, frame dropped", "frame", frame.String(), "error", err)
	case netutil.IsWouldBlock(err):
		logger.Warn("send buffer full, frame dropped", "frame", frame.String(), "error", err)
	default:
		logger.Warn("send failed", "frame", frame.String(), "error", err)
	}
}
