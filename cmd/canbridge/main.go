// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// canbridge forwards CAN frames between local SocketCAN interfaces and
// remote UDP peers. Each tunnel record IFNAME:IN_PORT:OUT_HOST:OUT_PORT
// sends datagrams arriving on IN_PORT to the IFNAME bus, and frames from
// the bus to OUT_HOST:OUT_PORT. All tunnels run in one poll loop until
// SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/canbridge/bridge"
	"github.com/bureau-foundation/canbridge/lib/config"
	"github.com/bureau-foundation/canbridge/lib/process"
	"github.com/bureau-foundation/canbridge/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		process.Fatal(err)
	}
}

// options holds the parsed command line.
type options struct {
	configPath  string
	verbose     bool
	logLevel    string
	logFormat   string
	showVersion bool
	showHelp    bool
	records     []string

	logLevelSet  bool
	logFormatSet bool
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("canbridge", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "YAML or JSONC file with additional tunnels and log settings")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log every forwarded frame (same as --log-level debug)")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flagSet.StringVar(&opts.logFormat, "log-format", config.FormatAuto, "log format: auto, text, or json")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flagSet.BoolVarP(&opts.showHelp, "help", "h", false, "show help")
	return flagSet
}

func parseArgs(args []string) (*options, *pflag.FlagSet, error) {
	opts := &options{}
	flagSet := newFlagSet(opts)
	if err := flagSet.Parse(args); err != nil {
		return nil, flagSet, err
	}
	opts.records = flagSet.Args()
	opts.logLevelSet = flagSet.Changed("log-level")
	opts.logFormatSet = flagSet.Changed("log-format")
	return opts, flagSet, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, flagSet, err := parseArgs(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stdout, flagSet)
			return nil
		}
		return fmt.Errorf("%w (see canbridge --help)", err)
	}
	if opts.showHelp {
		printUsage(stdout, flagSet)
		return nil
	}
	if opts.showVersion {
		if opts.verbose {
			fmt.Fprintf(stdout, "canbridge %s\n", version.Full())
		} else {
			fmt.Fprintf(stdout, "canbridge %s\n", version.Info())
		}
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if len(cfg.Tunnels) == 0 {
		printUsage(stderr, flagSet)
		return errors.New("at least one tunnel is required")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(stderr, cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("canbridge starting", "version", version.Short())
	b := &bridge.Bridge{
		Tunnels: cfg.Tunnels,
		Logger:  logger,
	}
	return b.Run(ctx)
}

// loadConfig merges the config file, the positional tunnel records, and
// the logging flags. Positional tunnels come first; explicit flags
// override file settings.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	tunnels := make([]config.Tunnel, 0, len(opts.records)+len(cfg.Tunnels))
	for _, record := range opts.records {
		tunnel, err := config.ParseTunnel(record)
		if err != nil {
			return nil, err
		}
		tunnels = append(tunnels, tunnel)
	}
	cfg.Tunnels = append(tunnels, cfg.Tunnels...)

	if opts.logLevelSet {
		cfg.Log.Level = opts.logLevel
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if opts.logFormatSet {
		cfg.Log.Format = opts.logFormat
	}
	return cfg, nil
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, `canbridge - Bridge SocketCAN interfaces to UDP peers

USAGE
    canbridge [flags] IFNAME:IN_PORT:OUT_HOST:OUT_PORT ...

Each record opens one tunnel: datagrams received on UDP port IN_PORT are
written to the CAN interface IFNAME, and frames read from IFNAME are sent
to OUT_HOST:OUT_PORT. IPv6 hosts are written in brackets, for example
vcan0:5000:[fd00::2]:5001. IN_PORT 0 picks an ephemeral port.

Each datagram carries one frame: a 4-byte big-endian CAN identifier
followed by 0 to 8 data bytes.

FLAGS
`)
	fmt.Fprint(w, flagSet.FlagUsages())
	fmt.Fprint(w, `
EXAMPLES
    # Bridge vcan0 to a peer on the same host
    canbridge vcan0:5000:127.0.0.1:5001

    # Tunnels from a file, with per-frame logging
    canbridge -v --config /etc/canbridge.yaml
`)
}
