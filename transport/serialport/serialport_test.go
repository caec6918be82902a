// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serialport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ffutop/modbus-sniffer/internal/config"
)

func TestNew(t *testing.T) {
	p := New(config.SerialConfig{
		Device:            "/dev/ttyUSB0",
		BaudRate:          19200,
		DataBits:          8,
		Parity:            "E",
		StopBits:          1,
		Timeout:           time.Second,
		RS485:             true,
		RtsHighDuringSend: true,
	})
	if p.Address != "/dev/ttyUSB0" || p.BaudRate != 19200 || p.Parity != "E" || p.Timeout != time.Second {
		t.Errorf("config = %+v", p.Config)
	}
	if !p.RS485.Enabled || !p.RS485.RtsHighDuringSend {
		t.Errorf("rs485 = %+v", p.RS485)
	}
}

func TestPort_Closed(t *testing.T) {
	p := New(config.SerialConfig{Device: "/dev/nonexistent-tty"})
	if _, err := p.Read(make([]byte, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Read() error = %v, want ErrClosed", err)
	}
	if _, err := p.Write([]byte{0x01}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write() error = %v, want ErrClosed", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestPort_Connect(t *testing.T) {
	p := New(config.SerialConfig{Device: "/dev/nonexistent-tty", BaudRate: 9600, DataBits: 8, Parity: "N", StopBits: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Connect(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Connect() error = %v, want context.Canceled", err)
	}
	if err := p.Connect(context.Background()); err == nil {
		t.Error("Connect() expected error for a missing device")
	}
}

func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Skipf("serial ports cannot be enumerated here: %v", err)
	}
	for _, name := range ports {
		if name == "" {
			t.Error("ListPorts() returned an empty name")
		}
	}
}
