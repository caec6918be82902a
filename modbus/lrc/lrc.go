// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package lrc implements the longitudinal redundancy check of Modbus ASCII.
package lrc

// LRC accumulates the modulo-256 sum of the bytes pushed into it.
type LRC struct {
	sum uint8
}

func (l *LRC) Reset() *LRC {
	l.sum = 0
	return l
}

func (l *LRC) PushByte(b byte) *LRC {
	l.sum += b
	return l
}

func (l *LRC) PushBytes(bs []byte) *LRC {
	for _, b := range bs {
		l.sum += b
	}
	return l
}

// Sum returns the running sum. It is zero once a frame and its trailing LRC
// byte have been pushed.
func (l *LRC) Sum() byte {
	return l.sum
}

// Value returns the check byte to append: the two's complement of the sum.
func (l *LRC) Value() byte {
	return -l.sum
}
