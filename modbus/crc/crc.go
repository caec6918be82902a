// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc implements the incremental CRC-16 used by Modbus RTU
// (reflected polynomial 0xA001, seed 0xFFFF).
package crc

const (
	seed       = 0xFFFF
	polynomial = 0xA001
)

// CRC is a running CRC-16/MODBUS accumulator. The zero value must be Reset
// before use.
type CRC struct {
	crc uint16
}

// New returns a seeded accumulator.
func New() CRC {
	return CRC{crc: seed}
}

func (c *CRC) Reset() *CRC {
	c.crc = seed
	return c
}

// PushByte folds b into the accumulator and reports whether the accumulator
// is now zero, i.e. the bytes pushed so far end with their own valid CRC
// (low byte first).
func (c *CRC) PushByte(b byte) bool {
	c.crc ^= uint16(b)
	for i := 0; i < 8; i++ {
		if c.crc&0x0001 != 0 {
			c.crc = c.crc>>1 ^ polynomial
		} else {
			c.crc >>= 1
		}
	}
	return c.crc == 0
}

func (c *CRC) PushBytes(bs []byte) *CRC {
	for _, b := range bs {
		c.PushByte(b)
	}
	return c
}

func (c *CRC) Value() uint16 {
	return c.crc
}
