// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package serialport opens the sniffed serial line.
package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/grid-x/serial"
	bugst "go.bug.st/serial"

	"github.com/ffutop/modbus-sniffer/internal/config"
)

// ErrTimeout is returned by Read when no byte arrived within the read
// timeout. It is not fatal.
var ErrTimeout = serial.ErrTimeout

var ErrClosed = errors.New("serialport: port is closed")

// Port has configuration and I/O controller.
type Port struct {
	// Serial port configuration.
	serial.Config

	mu sync.Mutex
	// port is platform-dependent data structure for serial port.
	port io.ReadWriteCloser
}

// New returns an unopened Port for cfg.
func New(cfg config.SerialConfig) *Port {
	p := &Port{
		Config: serial.Config{
			Address:  cfg.Device,
			BaudRate: cfg.BaudRate,
			DataBits: cfg.DataBits,
			StopBits: cfg.StopBits,
			Parity:   cfg.Parity,
			Timeout:  cfg.Timeout,
		},
	}
	if cfg.RS485 {
		p.RS485.Enabled = true
		p.RS485.DelayRtsBeforeSend = cfg.DelayRtsBeforeSend
		p.RS485.DelayRtsAfterSend = cfg.DelayRtsAfterSend
		p.RS485.RtsHighDuringSend = cfg.RtsHighDuringSend
		p.RS485.RtsHighAfterSend = cfg.RtsHighAfterSend
		p.RS485.RxDuringTx = cfg.RxDuringTx
	}
	return p
}

// Connect opens the serial port if it is not open.
func (p *Port) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if p.port == nil {
		port, err := serial.Open(&p.Config)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", p.Address, err)
		}
		slog.Debug("serialport: opened", "device", p.Address, "baudRate", p.BaudRate, "parity", p.Parity)
		p.port = port
	}
	return nil
}

func (p *Port) current() (io.ReadWriteCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil, ErrClosed
	}
	return p.port, nil
}

// Read reads whatever the driver has buffered. Reads are not serialized
// with Close so that Close can unblock a pending Read.
func (p *Port) Read(b []byte) (int, error) {
	port, err := p.current()
	if err != nil {
		return 0, err
	}
	return port.Read(b)
}

func (p *Port) Write(b []byte) (int, error) {
	port, err := p.current()
	if err != nil {
		return 0, err
	}
	return port.Write(b)
}

// Close closes the serial port if it is open.
func (p *Port) Close() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port != nil {
		err = p.port.Close()
		p.port = nil
	}
	return
}

// ListPorts returns the names of the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("could not enumerate serial ports: %w", err)
	}
	return ports, nil
}
