// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxInterfaceNameLength is IFNAMSIZ minus the terminating NUL.
const maxInterfaceNameLength = 15

// ErrInvalidRecord is wrapped by ParseTunnel when a record does not have
// the four expected fields.
var ErrInvalidRecord = errors.New("expected IFNAME:IN_PORT:OUT_HOST:OUT_PORT")

// Tunnel identifies one bridge between a CAN interface and a UDP peer.
type Tunnel struct {
	// Interface is the CAN interface to read and write (e.g. "vcan0").
	Interface string `yaml:"interface"`

	// ListenPort is the local UDP port on which frames from the peer
	// arrive. Zero binds an ephemeral port.
	ListenPort uint16 `yaml:"listen_port"`

	// RemoteHost and RemotePort name the peer that frames read from
	// the bus are forwarded to.
	RemoteHost string `yaml:"remote_host"`
	RemotePort uint16 `yaml:"remote_port"`
}

// ParseTunnel parses an IFNAME:IN_PORT:OUT_HOST:OUT_PORT record.
func ParseTunnel(record string) (Tunnel, error) {
	fields := strings.SplitN(record, ":", 3)
	if len(fields) != 3 {
		return Tunnel{}, fmt.Errorf("invalid tunnel %q: %w", record, ErrInvalidRecord)
	}
	remoteHost, remotePortText, err := net.SplitHostPort(fields[2])
	if err != nil {
		return Tunnel{}, fmt.Errorf("invalid tunnel %q: %w", record, ErrInvalidRecord)
	}

	listenPort, err := parsePort(fields[1])
	if err != nil {
		return Tunnel{}, fmt.Errorf("invalid tunnel %q: listen %w", record, err)
	}
	remotePort, err := parsePort(remotePortText)
	if err != nil {
		return Tunnel{}, fmt.Errorf("invalid tunnel %q: remote %w", record, err)
	}

	tunnel := Tunnel{
		Interface:  fields[0],
		ListenPort: listenPort,
		RemoteHost: remoteHost,
		RemotePort: remotePort,
	}
	if err := tunnel.Validate(); err != nil {
		return Tunnel{}, fmt.Errorf("invalid tunnel %q: %w", record, err)
	}
	return tunnel, nil
}

func parsePort(text string) (uint16, error) {
	port, err := strconv.ParseUint(text, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("port %q: must be a number from 0 to 65535", text)
	}
	return uint16(port), nil
}

// Validate checks the fields ParseTunnel cannot express as syntax
// errors. Tunnels decoded from a mapping go through it too.
func (t Tunnel) Validate() error {
	if t.Interface == "" {
		return errors.New("interface name is required")
	}
	if len(t.Interface) > maxInterfaceNameLength {
		return fmt.Errorf("interface name %q is longer than %d bytes", t.Interface, maxInterfaceNameLength)
	}
	if t.RemoteHost == "" {
		return errors.New("remote host is required")
	}
	if t.RemotePort == 0 {
		return errors.New("remote port must be non-zero")
	}
	return nil
}

// String renders the tunnel as a record ParseTunnel accepts.
func (t Tunnel) String() string {
	remote := net.JoinHostPort(t.RemoteHost, strconv.Itoa(int(t.RemotePort)))
	return t.Interface + ":" + strconv.Itoa(int(t.ListenPort)) + ":" + remote
}

// RemoteAddress returns the peer as a host:port string.
func (t Tunnel) RemoteAddress() string {
	return net.JoinHostPort(t.RemoteHost, strconv.Itoa(int(t.RemotePort)))
}

// tunnelFields has Tunnel's fields and tags without its UnmarshalYAML.
type tunnelFields Tunnel

// UnmarshalYAML accepts either a record string or a mapping.
func (t *Tunnel) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := ParseTunnel(expandVars(value.Value))
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*t = parsed
		return nil

	case yaml.MappingNode:
		var fields tunnelFields
		if err := value.Decode(&fields); err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		fields.Interface = expandVars(fields.Interface)
		fields.RemoteHost = expandVars(fields.RemoteHost)
		*t = Tunnel(fields)
		if err := t.Validate(); err != nil {
			return fmt.Errorf("line %d: invalid tunnel: %w", value.Line, err)
		}
		return nil

	default:
		return fmt.Errorf("line %d: tunnel must be a record string or a mapping", value.Line)
	}
}
