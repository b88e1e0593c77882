// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/canbridge/lib/netutil"
)

// TunnelID addresses a tunnel registered with a Multiplexer.
type TunnelID int

// watch tags a descriptor with the tunnel and direction it serves.
type watch struct {
	tunnel    TunnelID
	direction Direction
}

// readyEvents are the poll results that dispatch a handler. POLLERR and
// POLLHUP are included so the handler's receive consumes the pending
// error; otherwise level-triggered poll would report it forever.
const readyEvents = unix.POLLIN | unix.POLLERR | unix.POLLHUP

// Multiplexer waits for readiness on every registered endpoint and
// dispatches each ready endpoint to its tunnel's handler.
type Multiplexer struct {
	tunnels []*Tunnel
	fds     []unix.PollFd
	watches map[int32]watch
	wakeups uint64
}

// NewMultiplexer returns an empty multiplexer.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{watches: make(map[int32]watch)}
}

// Add registers the tunnel's bus endpoint for DirectionToPeer and its
// inbound endpoint for DirectionToBus. The outbound endpoint is only
// written to and is not watched. Add must not be called while Run is
// running.
func (m *Multiplexer) Add(tunnel *Tunnel) (TunnelID, error) {
	busFd := int32(tunnel.bus.Fd())
	inboundFd := int32(tunnel.inbound.Fd())
	if busFd == inboundFd {
		return 0, fmt.Errorf("tunnel %s: bus and inbound share descriptor %d", tunnel, busFd)
	}
	for _, fd := range []int32{busFd, inboundFd} {
		if existing, ok := m.watches[fd]; ok {
			return 0, fmt.Errorf("tunnel %s: descriptor %d already watched for tunnel %s",
				tunnel, fd, m.tunnels[existing.tunnel])
		}
	}

	id := TunnelID(len(m.tunnels))
	m.tunnels = append(m.tunnels, tunnel)
	m.register(busFd, watch{tunnel: id, direction: DirectionToPeer})
	m.register(inboundFd, watch{tunnel: id, direction: DirectionToBus})
	return id, nil
}

func (m *Multiplexer) register(fd int32, w watch) {
	m.fds = append(m.fds, unix.PollFd{Fd: fd, Events: unix.POLLIN})
	m.watches[fd] = w
}

// Tunnel returns the tunnel registered under id.
func (m *Multiplexer) Tunnel(id TunnelID) *Tunnel {
	return m.tunnels[id]
}

// Wakeups returns how many times poll has returned with ready
// descriptors. Read it only after Run returns.
func (m *Multiplexer) Wakeups() uint64 {
	return m.wakeups
}

// Run services the registered endpoints until ctx is cancelled, then
// returns nil. Each wakeup runs every ready endpoint's handler once, in
// registration order; an endpoint with more data pending is serviced
// again on the next wakeup. A poll failure or a watched descriptor
// closed underneath the loop ends Run with an error.
func (m *Multiplexer) Run(ctx context.Context) error {
	wakeRead, wakeWrite, err := newWakePipe()
	if err != nil {
		return err
	}
	defer unix.Close(wakeRead)
	defer unix.Close(wakeWrite)

	// The write must finish before the deferred Close of wakeWrite, or it
	// could land on a reused descriptor.
	written := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(written)
		unix.Write(wakeWrite, []byte{0})
	})
	defer func() {
		if !stop() {
			<-written
		}
	}()

	// Slot 0 is the wake pipe; the endpoint watches follow.
	fds := make([]unix.PollFd, 0, len(m.fds)+1)
	fds = append(fds, unix.PollFd{Fd: int32(wakeRead), Events: unix.POLLIN})
	fds = append(fds, m.fds...)

	for {
		if ctx.Err() != nil {
			return nil
		}
		for i := range fds {
			fds[i].Revents = 0
		}

		if _, err := unix.Poll(fds, -1); err != nil {
			if netutil.IsInterrupted(err) {
				continue
			}
			return fmt.Errorf("waiting for readiness: %w", os.NewSyscallError("poll", err))
		}
		m.wakeups++

		for _, fd := range fds[1:] {
			if fd.Revents&unix.POLLNVAL != 0 {
				w := m.watches[fd.Fd]
				return fmt.Errorf("tunnel %s: descriptor %d (%s) is no longer open",
					m.tunnels[w.tunnel], fd.Fd, w.direction)
			}
			if fd.Revents&readyEvents == 0 {
				continue
			}
			w := m.watches[fd.Fd]
			m.tunnels[w.tunnel].handle(w.direction)
		}
	}
}

// newWakePipe returns a non-blocking, close-on-exec pipe. A byte written
// to the write end makes the read end readable for poll.
func newWakePipe() (int, int, error) {
	var pipe [2]int
	if err := unix.Pipe(pipe[:]); err != nil {
		return -1, -1, fmt.Errorf("creating wake pipe: %w", os.NewSyscallError("pipe", err))
	}
	for _, fd := range pipe {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(pipe[0])
			unix.Close(pipe[1])
			return -1, -1, fmt.Errorf("creating wake pipe: %w", os.NewSyscallError("fcntl", err))
		}
	}
	return pipe[0], pipe[1], nil
}
