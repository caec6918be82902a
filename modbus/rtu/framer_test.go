// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ffutop/modbus-sniffer/modbus"
	"github.com/ffutop/modbus-sniffer/modbus/crc"
)

type report struct {
	Data []byte
	Kind modbus.Kind
}

type recorder struct {
	reports []report
}

func (r *recorder) report(data []byte, kind modbus.Kind) {
	r.reports = append(r.reports, report{Data: data, Kind: kind})
}

// newTestFramer returns a framer whose idle timer never fires during a test.
func newTestFramer() (*Framer, *recorder) {
	rec := &recorder{}
	f := NewFramer(1, rec.report)
	return f, rec
}

var readCoils = []byte{0x04, 0x01, 0x00, 0x0A, 0x00, 0x0D, 0xDD, 0x98}

func TestFramer_ValidFrame(t *testing.T) {
	f, rec := newTestFramer()
	f.Receive(readCoils)

	want := []report{{Data: readCoils[:6], Kind: modbus.KindValid}}
	if diff := cmp.Diff(want, rec.reports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
	if f.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", f.Pending())
	}
}

func TestFramer_GarbageBeforeFrame(t *testing.T) {
	f, rec := newTestFramer()
	garbage := []byte{0x11, 0x22, 0x33, 0x44, 0x55}
	f.Receive(append(append([]byte{}, garbage...), readCoils...))

	want := []report{
		{Data: garbage, Kind: modbus.KindErrored},
		{Data: readCoils[:6], Kind: modbus.KindValid},
	}
	if diff := cmp.Diff(want, rec.reports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
}

func TestFramer_MixedStream(t *testing.T) {
	stream := []byte{
		0x11, 0x22, 0x33, 0x44, 0x55, // noise
		0x04, 0x01, 0x00, 0x0A, 0x00, 0x0D, 0xDD, 0x98, // read coils request
		0xFF, 0xFF, // crc-valid but shorter than a frame
		0x11, 0x22, 0x33, 0x44, 0x55, // noise
		0x11, 0x0F, 0x00, 0x13, 0x00, 0x0A, 0x02, 0xCD, 0x01, 0xBF, 0x0B, // write multiple coils
		0x01, 0x03, 0x08, 0x41, 0x20, 0x00, 0x00, 0x42, 0xC8, 0x00, 0x00, 0xE4, 0x6F, // two float32
		0x01, 0x10, 0x0F, 0xA3, 0x00, 0x02, 0x04, 0x00, 0x14, 0x07, 0xD0, 0xBB, 0x9A, // write multiple registers
	}
	want := []report{
		{Data: []byte{0x11, 0x22, 0x33, 0x44, 0x55}, Kind: modbus.KindErrored},
		{Data: []byte{0x04, 0x01, 0x00, 0x0A, 0x00, 0x0D}, Kind: modbus.KindValid},
		{Data: []byte{0xFF, 0xFF, 0x11, 0x22, 0x33, 0x44, 0x55}, Kind: modbus.KindErrored},
		{Data: []byte{0x11, 0x0F, 0x00, 0x13, 0x00, 0x0A, 0x02, 0xCD, 0x01}, Kind: modbus.KindValid},
		{Data: []byte{0x01, 0x03, 0x08, 0x41, 0x20, 0x00, 0x00, 0x42, 0xC8, 0x00, 0x00}, Kind: modbus.KindValid},
		{Data: []byte{0x01, 0x10, 0x0F, 0xA3, 0x00, 0x02, 0x04, 0x00, 0x14, 0x07, 0xD0}, Kind: modbus.KindValid},
	}

	chunkings := map[string]int{"Whole": len(stream), "ByteByByte": 1, "Threes": 3, "Sevens": 7}
	for name, size := range chunkings {
		t.Run(name, func(t *testing.T) {
			f, rec := newTestFramer()
			for i := 0; i < len(stream); i += size {
				end := i + size
				if end > len(stream) {
					end = len(stream)
				}
				f.Receive(stream[i:end])
			}
			if diff := cmp.Diff(want, rec.reports); diff != "" {
				t.Errorf("reports mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFramer_MinFrameLength(t *testing.T) {
	f, rec := newTestFramer()
	f.MinFrameLength = CRCSize
	f.Receive([]byte{0x04, 0x01, 0x00, 0x0A, 0x00, 0x0D, 0xDD, 0x98, 0xFF, 0xFF})

	want := []report{
		{Data: []byte{0x04, 0x01, 0x00, 0x0A, 0x00, 0x0D}, Kind: modbus.KindValid},
		{Data: []byte{}, Kind: modbus.KindValid},
	}
	if diff := cmp.Diff(want, rec.reports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
}

func TestFramer_Plausible(t *testing.T) {
	f, rec := newTestFramer()
	f.Plausible = func(functionCode byte) bool { return functionCode != 0x01 }
	f.Receive(readCoils)

	if len(rec.reports) != 0 {
		t.Fatalf("reports = %v, want none", rec.reports)
	}
	f.Flush()
	want := []report{{Data: readCoils, Kind: modbus.KindErrored}}
	if diff := cmp.Diff(want, rec.reports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
}

func TestFramer_CorruptedFrame(t *testing.T) {
	for i := range readCoils {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte{}, readCoils...)
			corrupted[i] ^= 1 << bit

			f, rec := newTestFramer()
			f.Receive(corrupted)
			f.Flush()

			want := []report{{Data: corrupted, Kind: modbus.KindErrored}}
			if diff := cmp.Diff(want, rec.reports); diff != "" {
				t.Fatalf("byte %d bit %d: reports mismatch (-want +got):\n%s", i, bit, diff)
			}
		}
	}
}

func TestFramer_FlushIdempotent(t *testing.T) {
	f, rec := newTestFramer()
	f.Receive([]byte{0x01, 0x02, 0x03})
	f.Flush()
	f.Flush()

	if len(rec.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(rec.reports))
	}
	if rec.reports[0].Kind != modbus.KindErrored {
		t.Errorf("kind = %v", rec.reports[0].Kind)
	}

	g, rec2 := newTestFramer()
	g.Flush()
	if len(rec2.reports) != 0 {
		t.Errorf("empty window reported %v", rec2.reports)
	}
}

func TestFramer_Eviction(t *testing.T) {
	f, rec := newTestFramer()
	// A run of zero bytes never brings a 0xFFFF-seeded CRC to zero.
	f.Receive(make([]byte, MaxWindow+1))

	if len(rec.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(rec.reports))
	}
	if got := rec.reports[0]; got.Kind != modbus.KindErrored || len(got.Data) != EvictSize {
		t.Errorf("report = %v/%d bytes", got.Kind, len(got.Data))
	}
	if f.Pending() != MaxWindow+1-EvictSize {
		t.Errorf("Pending() = %d", f.Pending())
	}

	// The surviving accumulators keep running: a frame still resolves, and
	// the remaining noise is reported before it.
	f.Receive(readCoils)
	last := rec.reports[len(rec.reports)-1]
	if last.Kind != modbus.KindValid || !bytes.Equal(last.Data, readCoils[:6]) {
		t.Errorf("last report = %v % X", last.Kind, last.Data)
	}
	prev := rec.reports[len(rec.reports)-2]
	if prev.Kind != modbus.KindErrored || len(prev.Data) != MaxWindow+1-EvictSize {
		t.Errorf("noise report = %v/%d bytes", prev.Kind, len(prev.Data))
	}
}

func TestFramer_IdleTimeout(t *testing.T) {
	done := make(chan report, 1)
	f := NewFramer(115200, func(data []byte, kind modbus.Kind) {
		done <- report{Data: data, Kind: kind}
	})
	if f.Timeout() != 2*time.Millisecond {
		t.Fatalf("Timeout() = %v, want 2ms", f.Timeout())
	}

	f.Receive([]byte{0x01, 0x03, 0x00})

	select {
	case got := <-done:
		want := report{Data: []byte{0x01, 0x03, 0x00}, Kind: modbus.KindErrored}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("report mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(time.Second):
		t.Fatal("idle timeout did not flush")
	}
	if f.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", f.Pending())
	}
}

func TestFramer_Timeout(t *testing.T) {
	tests := []struct {
		baud int
		want time.Duration
	}{
		{9600, 7 * time.Millisecond},
		{19200, 4 * time.Millisecond},
		{50000, 2 * time.Millisecond},
		{1200, 43 * time.Millisecond},
		{0, 7 * time.Millisecond},
	}
	for _, tt := range tests {
		f := NewFramer(tt.baud, nil)
		if got := f.Timeout(); got != tt.want {
			t.Errorf("Timeout(%d) = %v, want %v", tt.baud, got, tt.want)
		}
	}
}

func TestFramer_Send(t *testing.T) {
	f, rec := newTestFramer()

	got := f.Send(readCoils[:6])
	if !bytes.Equal(got, readCoils) {
		t.Errorf("Send() = % X, want % X", got, readCoils)
	}
	got = f.Send([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01})
	if want := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A}; !bytes.Equal(got, want) {
		t.Errorf("Send() = % X, want % X", got, want)
	}
	if len(rec.reports) != 0 {
		t.Errorf("Send() reported %v", rec.reports)
	}
}

func TestFramer_SendMatchesAccumulator(t *testing.T) {
	f, _ := newTestFramer()
	payload := []byte{0x11, 0x0F, 0x00, 0x13, 0x00, 0x0A, 0x02, 0xCD, 0x01}

	// Feeding the low CRC byte back leaves the high byte in the accumulator.
	c := crc.New()
	c.PushBytes(payload)
	low := byte(c.Value())
	c.PushByte(low)
	want := append(append([]byte{}, payload...), low, byte(c.Value()))

	if got := f.Send(payload); !bytes.Equal(got, want) {
		t.Errorf("Send() = % X, want % X", got, want)
	}
}

func TestFramer_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		{0x01, 0x03, 0x00, 0x00, 0x00, 0x01},
		{0x01, 0x03, 0x02, 0xAA, 0xBB},
		{0xF7, 0x10, 0x00, 0x01, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x01, 0x02},
		{0x01, 0x83, 0x02},
	}
	for _, payload := range payloads {
		f, rec := newTestFramer()
		f.Receive(f.Send(payload))

		want := []report{{Data: payload, Kind: modbus.KindValid}}
		if diff := cmp.Diff(want, rec.reports); diff != "" {
			t.Errorf("% X: reports mismatch (-want +got):\n%s", payload, diff)
		}
		stripped, ok := StripCRC(f.Send(payload))
		if !ok || !bytes.Equal(stripped, payload) {
			t.Errorf("StripCRC() = % X, %v", stripped, ok)
		}
	}
}

func TestStripCRC_Invalid(t *testing.T) {
	if _, ok := StripCRC([]byte{0x01, 0x03, 0x00, 0x00}); ok {
		t.Error("StripCRC() accepted a bad crc")
	}
	if _, ok := StripCRC([]byte{0x01}); ok {
		t.Error("StripCRC() accepted a single byte")
	}
}
