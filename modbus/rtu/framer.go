// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtu recovers Modbus RTU frames from a raw serial byte stream.
//
// RTU frames carry no start marker and no length, and the inter-frame
// silence is not observable through a buffered serial driver. The Framer
// therefore keeps one CRC accumulator per received byte: the accumulator
// of byte i covers the bytes from i to the newest one. As soon as one of
// them reaches zero, the bytes from i on form a checksum-valid frame and
// everything before i is noise.
package rtu

import (
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/sigurn/crc16"

	"github.com/ffutop/modbus-sniffer/modbus"
	"github.com/ffutop/modbus-sniffer/modbus/crc"
)

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// tracked is one byte of the window together with the CRC of the bytes
// from it up to the newest byte.
type tracked struct {
	b   byte
	crc crc.CRC
}

// Framer implements the RTU transport strategy. Receive and the idle timer
// are serialized by an internal mutex; Report is called with the mutex held
// and must not call back into the Framer.
type Framer struct {
	Report   modbus.Reporter
	BaudRate int

	// MinFrameLength is the shortest CRC match, CRC included, accepted as a
	// frame. Zero means MinSize.
	MinFrameLength int
	// Plausible, when set, vetoes CRC matches whose function code it rejects.
	Plausible func(functionCode byte) bool

	mu     sync.Mutex
	window []tracked
	timer  *time.Timer
	gen    uint64
}

// NewFramer returns a Framer reporting to report.
func NewFramer(baudRate int, report modbus.Reporter) *Framer {
	return &Framer{
		Report:   report,
		BaudRate: baudRate,
	}
}

// Timeout is the line silence after which the pending bytes are flushed:
// 1 + ceil(50000 / baud) milliseconds.
func (f *Framer) Timeout() time.Duration {
	baud := f.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	ms := 1 + (50000+baud-1)/baud
	return time.Duration(ms) * time.Millisecond
}

// Receive consumes the next chunk of the stream. Chunk boundaries carry no
// meaning.
func (f *Framer) Receive(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopTimer()
	for _, b := range data {
		f.push(b)
	}
	if len(f.window) > 0 {
		f.armTimer()
	}
}

func (f *Framer) push(b byte) {
	f.window = append(f.window, tracked{b: b, crc: crc.New()})
	for i := range f.window {
		if f.window[i].crc.PushByte(b) && f.accept(i) {
			f.match(i)
			return
		}
	}
	if len(f.window) > MaxWindow {
		slog.Debug("rtu: evicting noise", "bytes", EvictSize)
		f.report(f.window[:EvictSize], modbus.KindErrored)
		n := copy(f.window, f.window[EvictSize:])
		f.window = f.window[:n]
	}
}

func (f *Framer) accept(i int) bool {
	floor := f.MinFrameLength
	if floor <= 0 {
		floor = MinSize
	}
	if floor < CRCSize {
		floor = CRCSize
	}
	if len(f.window)-i < floor {
		return false
	}
	if f.Plausible != nil && !f.Plausible(f.window[i+1].b) {
		slog.Debug("rtu: implausible crc match", "functionCode", f.window[i+1].b)
		return false
	}
	return true
}

func (f *Framer) match(i int) {
	if i > 0 {
		f.report(f.window[:i], modbus.KindErrored)
	}
	f.report(f.window[i:len(f.window)-CRCSize], modbus.KindValid)
	f.window = f.window[:0]
	f.stopTimer()
}

func (f *Framer) report(window []tracked, kind modbus.Kind) {
	data := make([]byte, len(window))
	for i := range window {
		data[i] = window[i].b
	}
	if f.Report != nil {
		f.Report(data, kind)
	}
}

// Flush reports every pending byte as one errored segment. It is what the
// idle timer runs; an empty window reports nothing.
func (f *Framer) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopTimer()
	f.flush()
}

func (f *Framer) flush() {
	if len(f.window) == 0 {
		return
	}
	slog.Debug("rtu: flushing unterminated bytes", "bytes", len(f.window))
	f.report(f.window, modbus.KindErrored)
	f.window = f.window[:0]
}

// Pending returns the number of tracked bytes.
func (f *Framer) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.window)
}

// armTimer starts the idle timer. Caller must hold the mutex.
func (f *Framer) armTimer() {
	f.gen++
	gen := f.gen
	f.timer = time.AfterFunc(f.Timeout(), func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		// A timer that fired while being replaced must not flush the new window.
		if gen != f.gen {
			return
		}
		f.timer = nil
		f.flush()
	})
}

// stopTimer cancels the idle timer. Caller must hold the mutex.
func (f *Framer) stopTimer() {
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// Send appends the CRC, low byte first, to payload. RTU adds no markers.
func (f *Framer) Send(payload []byte) []byte {
	adu := make([]byte, 0, len(payload)+CRCSize)
	adu = append(adu, payload...)
	checksum := crc16.Checksum(payload, crcTable)
	adu = append(adu, byte(checksum), byte(checksum>>8))
	slog.Debug("rtu: encoded frame", "adu", hex.EncodeToString(adu))
	return adu
}

// StripCRC returns adu without its two trailing CRC bytes if the CRC is
// valid.
func StripCRC(adu []byte) ([]byte, bool) {
	if len(adu) < CRCSize {
		return nil, false
	}
	c := crc.New()
	c.PushBytes(adu)
	if c.Value() != 0 {
		return nil, false
	}
	return adu[:len(adu)-CRCSize], true
}
