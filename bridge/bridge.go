// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/bureau-foundation/canbridge/lib/config"
	"github.com/bureau-foundation/canbridge/transport"
)

// Opener opens the three endpoints of a tunnel. transport.System is the
// production implementation.
type Opener interface {
	OpenBus(interfaceName string) (transport.Endpoint, error)
	ListenInbound(port uint16) (transport.Endpoint, error)
	DialOutbound(host string, port uint16) (transport.Endpoint, error)
}

// Bridge runs a set of tunnels on one multiplexer.
type Bridge struct {
	// Tunnels lists the tunnels to open, in order.
	Tunnels []config.Tunnel

	// Opener opens endpoints. If nil, transport.System is used.
	Opener Opener

	// Logger receives structured log output. If nil, slog.Default() is
	// used. Per-frame events are logged at Debug level; dropped frames
	// at Warn; lifecycle events at Info.
	Logger *slog.Logger
}

// logger returns the configured logger or the default.
func (b *Bridge) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *Bridge) opener() Opener {
	if b.Opener != nil {
		return b.Opener
	}
	return transport.System{}
}

// Build opens every configured tunnel. The first failure closes every
// endpoint opened so far and is returned.
func (b *Bridge) Build() ([]*Tunnel, error) {
	tunnels := make([]*Tunnel, 0, len(b.Tunnels))
	for _, tunnelConfig := range b.Tunnels {
		tunnel, err := b.openTunnel(tunnelConfig)
		if err != nil {
			closeTunnels(tunnels)
			return nil, err
		}
		tunnels = append(tunnels, tunnel)
	}
	return tunnels, nil
}

func (b *Bridge) openTunnel(tunnelConfig config.Tunnel) (*Tunnel, error) {
	opener := b.opener()

	bus, err := opener.OpenBus(tunnelConfig.Interface)
	if err != nil {
		return nil, fmt.Errorf("tunnel %s: opening bus interface %q: %w", tunnelConfig, tunnelConfig.Interface, err)
	}
	inbound, err := opener.ListenInbound(tunnelConfig.ListenPort)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("tunnel %s: opening inbound port %d: %w", tunnelConfig, tunnelConfig.ListenPort, err)
	}
	outbound, err := opener.DialOutbound(tunnelConfig.RemoteHost, tunnelConfig.RemotePort)
	if err != nil {
		bus.Close()
		inbound.Close()
		return nil, fmt.Errorf("tunnel %s: opening outbound %s: %w", tunnelConfig, tunnelConfig.RemoteAddress(), err)
	}
	return NewTunnel(tunnelConfig, bus, inbound, outbound, b.logger()), nil
}

// Run opens the tunnels, forwards frames until ctx is cancelled, and
// closes every endpoint before returning. It returns nil after a
// cancellation and an error when startup or the poll loop fails.
func (b *Bridge) Run(ctx context.Context) error {
	if len(b.Tunnels) == 0 {
		return errors.New("bridge: no tunnels configured")
	}

	tunnels, err := b.Build()
	if err != nil {
		return err
	}
	defer closeTunnels(tunnels)

	multiplexer := NewMultiplexer()
	for _, tunnel := range tunnels {
		if _, err := multiplexer.Add(tunnel); err != nil {
			return err
		}
	}

	logger := b.logger()
	logger.Info("bridge started", "tunnels", len(tunnels))
	for _, tunnel := range tunnels {
		attributes := []any{"tunnel", tunnel.String()}
		if address := localAddress(tunnel.inbound); address != nil {
			attributes = append(attributes, "listen_addr", address.String())
		}
		logger.Info("tunnel ready", attributes...)
	}

	runErr := multiplexer.Run(ctx)

	for _, tunnel := range tunnels {
		counters := tunnel.Counters()
		logger.Info("tunnel stopped",
			"tunnel", tunnel.String(),
			"forwarded_to_bus", counters.ForwardedToBus,
			"forwarded_to_peer", counters.ForwardedToPeer,
			"dropped_to_bus", counters.DroppedToBus,
			"dropped_to_peer", counters.DroppedToPeer,
		)
	}
	logger.Info("bridge stopped", "wakeups", multiplexer.Wakeups(), "error", runErr)
	return runErr
}

// localAddress returns the bound address of an endpoint that reports
// one, which matters when a tunnel listens on port zero.
func localAddress(endpoint transport.Endpoint) *net.UDPAddr {
	bound, ok := endpoint.(interface{ LocalAddr() *net.UDPAddr })
	if !ok {
		return nil
	}
	return bound.LocalAddr()
}

func closeTunnels(tunnels []*Tunnel) {
	for _, tunnel := range tunnels {
		tunnel.Close()
	}
}
