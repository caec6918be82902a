// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package sniffer listens to a Modbus serial line, frames and decodes
// everything on it and keeps the result in a capture store.
package sniffer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ffutop/modbus-sniffer/internal/capture"
	"github.com/ffutop/modbus-sniffer/internal/config"
	"github.com/ffutop/modbus-sniffer/modbus"
	"github.com/ffutop/modbus-sniffer/modbus/field"
	"github.com/ffutop/modbus-sniffer/modbus/frame"
	"github.com/ffutop/modbus-sniffer/transport"
	"github.com/ffutop/modbus-sniffer/transport/serialport"
)

// readSize covers a full RTU frame and most of an ASCII line.
const readSize = 512

var ErrShortPayload = errors.New("sniffer: payload needs a slave address and a function code")

// Sniffer represents a single sniffing session on one serial line.
type Sniffer struct {
	Port     io.ReadWriter
	Framer   transport.Framer
	Registry *frame.Registry
	Store    capture.Store

	// OnEntry, when set, is called with every captured entry.
	OnEntry func(capture.Entry)

	now func() time.Time
	mu  sync.Mutex
}

// New creates a sniffer for port that frames the stream as cfg says and
// records to store. baudRate sizes the RTU idle timeout.
func New(port io.ReadWriter, cfg config.SnifferConfig, baudRate int, store capture.Store) (*Sniffer, error) {
	widths, err := field.ParseWidths(cfg.Widths)
	if err != nil {
		return nil, err
	}
	mode, err := transport.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	s := &Sniffer{
		Port:     port,
		Registry: frame.NewRegistry(widths),
		Store:    store,
		now:      time.Now,
	}
	opts := transport.Options{
		BaudRate:       baudRate,
		MinFrameLength: cfg.MinFrameLength,
	}
	if cfg.PlausibleOnly {
		opts.Plausible = func(functionCode byte) bool {
			return s.Registry.Lookup(functionCode) != nil
		}
	}
	s.Framer, err = transport.New(mode, s.handle, opts)
	if err != nil {
		return nil, err
	}
	slog.Debug("Sniffer configured", "mode", mode, "widths", widths.String(), "plausibleOnly", cfg.PlausibleOnly)
	return s, nil
}

// Run reads the port until ctx is done or the port fails. Whatever is
// pending in the framer is reported before Run returns.
func (s *Sniffer) Run(ctx context.Context) error {
	defer s.Framer.Flush()

	buf := make([]byte, readSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := s.Port.Read(buf)
		if n > 0 {
			s.Framer.Receive(buf[:n])
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, serialport.ErrTimeout) {
				continue
			}
			if errors.Is(err, io.EOF) {
				slog.Info("Serial stream ended")
				return nil
			}
			return fmt.Errorf("failed to read serial port: %w", err)
		}
	}
}

// Send transmits payload (slave address, function code and data field)
// framed for the line, and records it as sent.
func (s *Sniffer) Send(ctx context.Context, payload []byte) error {
	if len(payload) < 2 {
		return ErrShortPayload
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	adu := s.Framer.Send(payload)
	if _, err := s.Port.Write(adu); err != nil {
		return fmt.Errorf("failed to write serial port: %w", err)
	}
	s.handle(payload, modbus.KindSent)
	return nil
}

// handle is the framers' report callback.
func (s *Sniffer) handle(data []byte, kind modbus.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var e capture.Entry
	f, err := s.Registry.Decode(data, kind)
	if err != nil {
		// Too short to carry a function code; keep the bytes as an invalid frame.
		e = capture.Entry{
			Time:    s.now(),
			Kind:    modbus.KindErrored.String(),
			Length:  len(data),
			Data:    data,
			Summary: fmt.Sprintf("Invalid frame: 0x%s", strings.ToUpper(hex.EncodeToString(data))),
		}
		slog.Warn("Short frame", "data", hex.EncodeToString(data), "kind", kind)
	} else {
		e = capture.NewEntry(s.now(), f)
		logFrame(f)
	}

	if s.Store != nil {
		if err := s.Store.Append(e); err != nil {
			slog.Error("Failed to store frame", "err", err)
		}
	}
	if s.OnEntry != nil {
		s.OnEntry(e)
	}
}

func logFrame(f *frame.Frame) {
	attrs := []any{
		"kind", f.Kind,
		"slave", f.SlaveAddress,
		"function", fmt.Sprintf("0x%02X", f.FunctionCode),
		"description", f.Description,
		"length", len(f.Data),
		"summary", f.Summary(),
	}
	switch f.State() {
	case frame.StateInvalid:
		slog.Warn("Invalid frame", attrs...)
	case frame.StateMismatch:
		slog.Warn("Undecodable frame", attrs...)
	default:
		slog.Info("Frame", attrs...)
	}
}

// ParsePayload parses operator-typed hex such as "01 03 00 00 00 01",
// "0x01,0x03,0x00,0x00,0x00,0x01" or "010300000001".
func ParsePayload(s string) ([]byte, error) {
	var sb strings.Builder
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == ':' || r == '-'
	}) {
		tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		if len(tok)%2 == 1 {
			tok = "0" + tok
		}
		sb.WriteString(tok)
	}
	payload, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload %q: %w", s, err)
	}
	if len(payload) < 2 {
		return nil, ErrShortPayload
	}
	return payload, nil
}

// Compose builds a payload from its parts.
func Compose(slaveAddress, functionCode byte, data []byte) []byte {
	return frame.Compose(slaveAddress, functionCode, data)
}
