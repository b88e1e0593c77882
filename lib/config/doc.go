// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config describes the tunnels a bridge process runs and loads
// them from the command line or from a file.
//
// A tunnel is written on the command line as a colon-delimited record:
//
//	IFNAME:IN_PORT:OUT_HOST:OUT_PORT
//	vcan0:5000:127.0.0.1:5001
//	can1:0:[fd00::2]:5001
//
// [ParseTunnel] splits the first two fields on colons and hands the rest
// to net.SplitHostPort, so IPv6 hosts must be bracketed. A listen port of
// zero binds an ephemeral port.
//
// [LoadFile] reads a YAML file (or JSON/JSONC, selected by extension)
// with a log section and a list of tunnels. Each list entry may be a
// record string or a mapping with interface, listen_port, remote_host,
// and remote_port keys. ${VAR} and ${VAR:-default} references in record
// strings, interface names, and remote hosts are expanded from the
// environment while loading. Nothing else reads the environment.
//
// Configuration is fixed for the life of the process; there is no
// reload.
//
// This package depends on no other packages in this module.
package config
