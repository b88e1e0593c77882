// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/canbridge/lib/testutil"
	"github.com/bureau-foundation/canbridge/transport"
)

// failingEndpoint delegates to a real endpoint but fails every receive,
// leaving the underlying descriptor readable forever.
type failingEndpoint struct {
	transport.Endpoint
	receives atomic.Int64
}

func (e *failingEndpoint) Receive(buffer []byte) (int, error) {
	e.receives.Add(1)
	return 0, os.NewSyscallError("recvfrom", unix.EIO)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startMultiplexer runs m on a goroutine and returns a function that
// cancels it and returns Run's result.
func startMultiplexer(t *testing.T, m *Multiplexer) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- m.Run(ctx) }()
	var stopped bool
	stop := func() error {
		cancel()
		if stopped {
			return nil
		}
		stopped = true
		return testutil.RequireReceive(t, result, testTimeout, "waiting for Run to return")
	}
	t.Cleanup(func() { stop() })
	return stop
}

func TestMultiplexer_Add(t *testing.T) {
	first := newFixture(t, "vcan0", discardLogger())
	second := newFixture(t, "vcan1", discardLogger())

	m := NewMultiplexer()
	firstID, err := m.Add(first.tunnel)
	if err != nil {
		t.Fatalf("Add(first): %v", err)
	}
	secondID, err := m.Add(second.tunnel)
	if err != nil {
		t.Fatalf("Add(second): %v", err)
	}
	if firstID == secondID {
		t.Fatalf("both tunnels got id %d", firstID)
	}
	if m.Tunnel(firstID) != first.tunnel || m.Tunnel(secondID) != second.tunnel {
		t.Fatal("Tunnel(id) does not return the registered tunnel")
	}
	if len(m.fds) != 4 {
		t.Fatalf("watch list has %d entries, want 4", len(m.fds))
	}
	if w := m.watches[int32(first.bus.Fd())]; w.tunnel != firstID || w.direction != DirectionToPeer {
		t.Fatalf("bus watch = %+v", w)
	}
	if w := m.watches[int32(second.inbound.Fd())]; w.tunnel != secondID || w.direction != DirectionToBus {
		t.Fatalf("inbound watch = %+v", w)
	}
}

func TestMultiplexer_AddRejectsWatchedDescriptor(t *testing.T) {
	f := newFixture(t, "vcan0", discardLogger())

	m := NewMultiplexer()
	if _, err := m.Add(f.tunnel); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := m.Add(f.tunnel)
	if err == nil {
		t.Fatal("adding the same tunnel twice succeeded")
	}
	if !strings.Contains(err.Error(), "already watched") {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.fds) != 2 {
		t.Fatalf("failed Add changed the watch list: %d entries", len(m.fds))
	}
}

func TestMultiplexer_AddRejectsSharedDescriptor(t *testing.T) {
	f := newFixture(t, "vcan0", discardLogger())
	tunnel := NewTunnel(f.tunnel.Config(), f.bus, f.bus, f.bus, discardLogger())

	if _, err := NewMultiplexer().Add(tunnel); err == nil {
		t.Fatal("Add accepted a tunnel whose bus and inbound share a descriptor")
	}
}

func TestMultiplexer_BothDirections(t *testing.T) {
	f := newFixture(t, "vcan0", discardLogger())
	m := NewMultiplexer()
	if _, err := m.Add(f.tunnel); err != nil {
		t.Fatalf("Add: %v", err)
	}
	stop := startMultiplexer(t, m)

	f.sendInbound(t, []byte{0x00, 0x00, 0x01, 0x23, 0xDE, 0xAD})
	if got, want := f.busFrame(t), mustFrame(t, 0x123, 0xDE, 0xAD); got != want {
		t.Fatalf("bus frame = %v, want %v", got, want)
	}

	f.sendBus(t, mustFrame(t, 0x123, 0xDE, 0xAD))
	got := testutil.ReadDatagram(t, f.remote, testTimeout)
	if !bytes.Equal(got, []byte{0x00, 0x00, 0x01, 0x23, 0xDE, 0xAD}) {
		t.Fatalf("peer received % X", got)
	}

	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	counters := f.tunnel.Counters()
	if counters.ForwardedToBus != 1 || counters.ForwardedToPeer != 1 {
		t.Fatalf("counters = %+v", counters)
	}
	if m.Wakeups() < 2 {
		t.Fatalf("Wakeups() = %d, want at least 2", m.Wakeups())
	}
}

func TestMultiplexer_DrainsQueuedDatagrams(t *testing.T) {
	f := newFixture(t, "vcan0", discardLogger())
	m := NewMultiplexer()
	if _, err := m.Add(f.tunnel); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Both datagrams are queued before the loop starts; one wakeup
	// forwards one, and level-triggered readiness brings the second.
	f.sendInbound(t, []byte{0x00, 0x00, 0x00, 0x01, 0xAA})
	f.sendInbound(t, []byte{0x00, 0x00, 0x00, 0x02, 0xBB})
	waitReadable(t, f.inbound.Fd())

	stop := startMultiplexer(t, m)
	if got, want := f.busFrame(t), mustFrame(t, 0x1, 0xAA); got != want {
		t.Fatalf("first bus frame = %v, want %v", got, want)
	}
	if got, want := f.busFrame(t), mustFrame(t, 0x2, 0xBB); got != want {
		t.Fatalf("second bus frame = %v, want %v", got, want)
	}
	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Wakeups() < 2 {
		t.Fatalf("Wakeups() = %d, want one per frame", m.Wakeups())
	}
}

func TestMultiplexer_FaultIsolation(t *testing.T) {
	broken, brokenConfig, brokenOutbound := openFixtureEndpoints(t, "vcan0")
	failing := &failingEndpoint{Endpoint: broken.inbound}
	broken.tunnel = NewTunnel(brokenConfig, broken.bus, failing, brokenOutbound, discardLogger())

	healthy := newFixture(t, "vcan1", discardLogger())

	m := NewMultiplexer()
	if _, err := m.Add(broken.tunnel); err != nil {
		t.Fatalf("Add(broken): %v", err)
	}
	if _, err := m.Add(healthy.tunnel); err != nil {
		t.Fatalf("Add(healthy): %v", err)
	}

	// The broken inbound stays readable because its receive never
	// consumes the datagram.
	broken.sendInbound(t, []byte{0x00, 0x00, 0x00, 0x01})
	stop := startMultiplexer(t, m)

	healthy.sendInbound(t, []byte{0x00, 0x00, 0x04, 0x56, 0x01})
	if got, want := healthy.busFrame(t), mustFrame(t, 0x456, 0x01); got != want {
		t.Fatalf("healthy bus frame = %v, want %v", got, want)
	}

	// The other direction of the broken tunnel still works.
	broken.sendBus(t, mustFrame(t, 0x7, 0x70))
	got := testutil.ReadDatagram(t, broken.remote, testTimeout)
	if !bytes.Equal(got, []byte{0x00, 0x00, 0x00, 0x07, 0x70}) {
		t.Fatalf("broken tunnel peer received % X", got)
	}

	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if failing.receives.Load() == 0 {
		t.Fatal("failing endpoint was never serviced")
	}
	if counters := healthy.tunnel.Counters(); counters.ForwardedToBus != 1 {
		t.Fatalf("healthy counters = %+v", counters)
	}
}

func TestMultiplexer_CancelledBeforeRun(t *testing.T) {
	f := newFixture(t, "vcan0", discardLogger())
	m := NewMultiplexer()
	if _, err := m.Add(f.tunnel); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Wakeups() != 0 {
		t.Fatalf("Wakeups() = %d, want 0", m.Wakeups())
	}
}

func TestMultiplexer_CancelWakesIdleLoop(t *testing.T) {
	f := newFixture(t, "vcan0", discardLogger())
	m := NewMultiplexer()
	if _, err := m.Add(f.tunnel); err != nil {
		t.Fatalf("Add: %v", err)
	}

	stop := startMultiplexer(t, m)
	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestMultiplexer_Empty(t *testing.T) {
	stop := startMultiplexer(t, NewMultiplexer())
	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
