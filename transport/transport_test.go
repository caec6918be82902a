// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"bytes"
	"testing"

	"github.com/ffutop/modbus-sniffer/modbus"
	"github.com/ffutop/modbus-sniffer/modbus/ascii"
	"github.com/ffutop/modbus-sniffer/modbus/rtu"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"rtu", ModeRTU, false},
		{"ASCII", ModeASCII, false},
		{"Rtu", ModeRTU, false},
		{"tcp", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	plausible := func(byte) bool { return true }
	f, err := New(ModeRTU, nil, Options{BaudRate: 19200, MinFrameLength: 5, Plausible: plausible})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r, ok := f.(*rtu.Framer)
	if !ok {
		t.Fatalf("New(rtu) = %T", f)
	}
	if r.BaudRate != 19200 || r.MinFrameLength != 5 || r.Plausible == nil {
		t.Errorf("rtu framer = %+v", r)
	}

	f, err = New(ModeASCII, nil, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := f.(*ascii.Framer); !ok {
		t.Errorf("New(ascii) = %T", f)
	}

	if _, err := New("tcp", nil, Options{}); err == nil {
		t.Error("New(tcp) expected error")
	}
}

func TestFramers_Exchange(t *testing.T) {
	payload := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}
	for _, mode := range []Mode{ModeRTU, ModeASCII} {
		t.Run(string(mode), func(t *testing.T) {
			var got []byte
			var kind modbus.Kind
			f, err := New(mode, func(data []byte, k modbus.Kind) {
				got, kind = data, k
			}, Options{})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			f.Receive(f.Send(payload))
			f.Flush()
			if kind != modbus.KindValid || !bytes.Equal(got, payload) {
				t.Errorf("report = %v % X", kind, got)
			}
		})
	}
}
