// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package ascii recovers Modbus ASCII frames from a character stream.
//
// An ASCII frame is a line: ':' followed by the hex encoded slave address,
// function code, data field and LRC, terminated by CR LF. Characters are
// consumed two at a time, so a ':' or CR LF that is not aligned on a pair
// boundary is only recognised in the positions a pair allows.
package ascii

import (
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/ffutop/modbus-sniffer/modbus"
	"github.com/ffutop/modbus-sniffer/modbus/lrc"
)

const (
	Start = ':'
	CR    = '\r'
	LF    = '\n'

	// MaxSize is the longest decoded frame: slave address, function code,
	// 252 data bytes and LRC. Longer runs are reported as errored.
	MaxSize = 255
)

// Framer implements the ASCII transport strategy. It is not safe for
// concurrent use.
type Framer struct {
	Report modbus.Reporter

	carry    []byte // an odd character waiting for its pair
	data     []byte
	lrc      lrc.LRC
	started  bool // a pair was seen since the last reset
	poisoned bool // a pair was not hex
}

// NewFramer returns a Framer reporting to report.
func NewFramer(report modbus.Reporter) *Framer {
	return &Framer{Report: report}
}

// Receive consumes the next chunk of the stream. An odd trailing character
// is kept for the next call.
func (f *Framer) Receive(chars []byte) {
	buf := append(f.carry, chars...)
	i := 0
	for ; len(buf)-i >= 2; i += 2 {
		c1, c2 := buf[i], buf[i+1]
		switch {
		case c1 == Start:
			// Only one character is consumed; the next pair starts at c2.
			f.reset()
			i--
		case c2 == Start:
			f.reset()
		case c1 == CR && c2 == LF:
			f.terminate()
		default:
			f.pair(c1, c2)
		}
	}
	f.carry = append(f.carry[:0], buf[i:]...)
}

func (f *Framer) pair(c1, c2 byte) {
	f.started = true
	if len(f.data) >= MaxSize {
		slog.Debug("ascii: frame too long", "bytes", len(f.data))
		f.report(f.data, modbus.KindErrored)
		f.data = f.data[:0]
		f.lrc.Reset()
		// The rest of the line can no longer form a valid frame.
		f.poisoned = true
	}
	var b [1]byte
	if _, err := hex.Decode(b[:], []byte{c1, c2}); err != nil {
		slog.Debug("ascii: non-hex pair", "chars", string([]byte{c1, c2}))
		f.poisoned = true
		f.data = append(f.data, c1, c2)
		return
	}
	f.data = append(f.data, b[0])
	f.lrc.PushByte(b[0])
}

func (f *Framer) terminate() {
	if !f.started {
		return
	}
	data := f.data
	if len(data) > 0 {
		data = data[:len(data)-1]
	}
	if !f.poisoned && len(f.data) > 0 && f.lrc.Sum() == 0 {
		f.report(data, modbus.KindValid)
	} else {
		f.report(data, modbus.KindErrored)
	}
	f.clear()
}

// reset drops the frame in progress, reporting it as errored when anything
// had been collected.
func (f *Framer) reset() {
	if len(f.data) > 0 || f.poisoned {
		slog.Debug("ascii: frame interrupted by start marker", "bytes", len(f.data))
		f.report(f.data, modbus.KindErrored)
	}
	f.clear()
}

func (f *Framer) clear() {
	f.data = f.data[:0]
	f.lrc.Reset()
	f.started = false
	f.poisoned = false
}

func (f *Framer) report(data []byte, kind modbus.Kind) {
	if f.Report == nil {
		return
	}
	out := make([]byte, len(data))
	copy(out, data)
	f.Report(out, kind)
}

// Flush reports the frame in progress as errored and forgets any odd
// character.
func (f *Framer) Flush() {
	f.carry = f.carry[:0]
	f.reset()
}

// Send encodes payload as an ASCII line: ':', upper case hex of payload and
// LRC, CR LF.
func (f *Framer) Send(payload []byte) []byte {
	var l lrc.LRC
	l.PushBytes(payload)

	var sb strings.Builder
	sb.Grow(1 + 2*len(payload) + 2 + 2)
	sb.WriteByte(Start)
	sb.WriteString(strings.ToUpper(hex.EncodeToString(payload)))
	sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{l.Value()})))
	sb.WriteByte(CR)
	sb.WriteByte(LF)
	return []byte(sb.String())
}
