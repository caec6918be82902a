// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package transport selects the framing strategy for a sniffed line.
package transport

import (
	"fmt"
	"strings"

	"github.com/ffutop/modbus-sniffer/modbus"
	"github.com/ffutop/modbus-sniffer/modbus/ascii"
	"github.com/ffutop/modbus-sniffer/modbus/rtu"
)

// Framer turns a raw byte stream into reported frames and encodes payloads
// for transmission. Both RTU and ASCII framers satisfy it.
type Framer interface {
	// Receive consumes the next chunk of the stream. Reports are delivered
	// synchronously, in stream order, before Receive returns or from the
	// framer's idle timer.
	Receive(data []byte)
	// Send returns payload wrapped in the transport's framing. It does not
	// report.
	Send(payload []byte) []byte
	// Flush reports anything pending as errored.
	Flush()
}

// Mode names a framing strategy.
type Mode string

const (
	ModeRTU   Mode = "rtu"
	ModeASCII Mode = "ascii"
)

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeRTU, ModeASCII:
		return m, nil
	default:
		return "", fmt.Errorf("unknown transport mode: %q", s)
	}
}

// Options tunes the RTU framer. ASCII frames are delimited and ignore them.
type Options struct {
	BaudRate       int
	MinFrameLength int
	Plausible      func(functionCode byte) bool
}

// New returns the framer for mode, reporting to report.
func New(mode Mode, report modbus.Reporter, opts Options) (Framer, error) {
	switch mode {
	case ModeRTU:
		f := rtu.NewFramer(opts.BaudRate, report)
		f.MinFrameLength = opts.MinFrameLength
		f.Plausible = opts.Plausible
		return f, nil
	case ModeASCII:
		return ascii.NewFramer(report), nil
	default:
		return nil, fmt.Errorf("unknown transport mode: %q", mode)
	}
}
