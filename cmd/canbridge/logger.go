// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/canbridge/lib/config"
)

// newLogger creates the process logger. The auto format uses
// slog.TextHandler when output is a terminal and slog.JSONHandler when
// it is piped or redirected (journald, log collectors, tests).
func newLogger(output io.Writer, logConfig config.LogConfig) (*slog.Logger, error) {
	level, err := logConfig.SlogLevel()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}

	format := logConfig.Format
	if format == "" || format == config.FormatAuto {
		format = config.FormatJSON
		if isTerminal(output) {
			format = config.FormatText
		}
	}

	var handler slog.Handler
	switch format {
	case config.FormatText:
		handler = slog.NewTextHandler(output, options)
	case config.FormatJSON:
		handler = slog.NewJSONHandler(output, options)
	default:
		return nil, fmt.Errorf("invalid log format %q", logConfig.Format)
	}
	return slog.New(handler), nil
}

func isTerminal(output io.Writer) bool {
	file, ok := output.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
