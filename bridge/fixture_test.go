// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bytes"
	"errors"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/canbridge/lib/canframe"
	"github.com/bureau-foundation/canbridge/lib/config"
	"github.com/bureau-foundation/canbridge/lib/testutil"
	"github.com/bureau-foundation/canbridge/transport"
)

const testTimeout = 5 * time.Second

// logBuffer is a bytes.Buffer safe for a logger on another goroutine.
type logBuffer struct {
	mutex  sync.Mutex
	buffer bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buffer.Write(p)
}

func (b *logBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buffer.String()
}

func newTestLogger() (*slog.Logger, *logBuffer) {
	output := &logBuffer{}
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), output
}

// fixture is one tunnel wired to test-side peers: the other end of a
// datagram pair standing in for the CAN bus, a loopback sender for the
// inbound port, and a loopback receiver playing the remote peer.
type fixture struct {
	tunnel  *Tunnel
	bus     transport.Endpoint
	inbound *transport.Socket
	busPeer *transport.Socket
	sender  *net.UDPConn
	remote  *net.UDPConn
}

// openFixtureEndpoints opens the endpoints without building the tunnel,
// for tests that hand them to an Opener.
func openFixtureEndpoints(t *testing.T, interfaceName string) (*fixture, config.Tunnel, *transport.Socket) {
	t.Helper()
	busEnd, busPeer, err := transport.NewDatagramPair()
	if err != nil {
		t.Fatalf("NewDatagramPair: %v", err)
	}
	inbound, err := transport.ListenUDP(0)
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	remote := testutil.ListenLoopback(t)
	outbound, err := transport.DialUDP("127.0.0.1", testutil.LoopbackPort(t, remote))
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	t.Cleanup(func() {
		busEnd.Close()
		busPeer.Close()
		inbound.Close()
		outbound.Close()
	})

	tunnelConfig := config.Tunnel{
		Interface:  interfaceName,
		ListenPort: uint16(inbound.LocalAddr().Port),
		RemoteHost: "127.0.0.1",
		RemotePort: testutil.LoopbackPort(t, remote),
	}
	f := &fixture{
		bus:     busEnd,
		inbound: inbound,
		busPeer: busPeer,
		sender:  testutil.ListenLoopback(t),
		remote:  remote,
	}
	return f, tunnelConfig, outbound
}

func newFixture(t *testing.T, interfaceName string, logger *slog.Logger) *fixture {
	t.Helper()
	f, tunnelConfig, outbound := openFixtureEndpoints(t, interfaceName)
	f.tunnel = NewTunnel(tunnelConfig, f.bus, f.inbound, outbound, logger)
	return f
}

// sendInbound sends data to the tunnel's inbound port as the remote
// peer would.
func (f *fixture) sendInbound(t *testing.T, data []byte) {
	t.Helper()
	target := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: f.inbound.LocalAddr().Port}
	if _, err := f.sender.WriteToUDP(data, target); err != nil {
		t.Fatalf("sending to inbound port: %v", err)
	}
}

// sendBus writes frame onto the simulated bus.
func (f *fixture) sendBus(t *testing.T, frame canframe.Frame) {
	t.Helper()
	record, err := canframe.EncodeRecord(frame)
	if err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}
	if err := f.busPeer.Send(record[:]); err != nil {
		t.Fatalf("writing bus record: %v", err)
	}
}

// busFrame reads the next frame the tunnel wrote to the bus.
func (f *fixture) busFrame(t *testing.T) canframe.Frame {
	t.Helper()
	record := testutil.ReceiveEndpoint(t, f.busPeer, testTimeout)
	frame, err := canframe.DecodeRecord(record)
	if err != nil {
		t.Fatalf("DecodeRecord(% X): %v", record, err)
	}
	return frame
}

// waitReadable blocks until fd has data pending, without consuming it.
func waitReadable(t *testing.T, fd int) {
	t.Helper()
	if !pollReadable(t, fd, testTimeout) {
		t.Fatalf("fd %d not readable after %v", fd, testTimeout)
	}
}

// requireNotReadable fails if fd has data pending within a short wait.
func requireNotReadable(t *testing.T, fd int) {
	t.Helper()
	if pollReadable(t, fd, 50*time.Millisecond) {
		t.Fatalf("fd %d unexpectedly readable", fd)
	}
}

func pollReadable(t *testing.T, fd int, timeout time.Duration) bool {
	t.Helper()
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		ready, err := unix.Poll(fds, int(timeout.Milliseconds()))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			t.Fatalf("poll fd %d: %v", fd, err)
		}
		return ready > 0 && fds[0].Revents&unix.POLLIN != 0
	}
}

func mustFrame(t *testing.T, id uint32, payload ...byte) canframe.Frame {
	t.Helper()
	frame, err := canframe.New(id, payload)
	if err != nil {
		t.Fatalf("canframe.New: %v", err)
	}
	return frame
}

func testConfig(interfaceName string, remotePort uint16) config.Tunnel {
	return config.Tunnel{Interface: interfaceName, RemoteHost: "127.0.0.1", RemotePort: remotePort}
}
