// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package field

import (
	"errors"
	"fmt"
)

// ErrInvalidShape is matched by every decode error of this package.
var ErrInvalidShape = errors.New("invalid data format")

// LengthError reports a data field whose total length does not fit the layout.
type LengthError struct {
	Field string
	Want  string
	Got   int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("invalid data format for %s: length %d, want %s", e.Field, e.Got, e.Want)
}

func (e *LengthError) Is(target error) bool { return target == ErrInvalidShape }

// ByteCountError reports a leading byte count that disagrees with the bytes
// that follow it.
type ByteCountError struct {
	Field    string
	Declared int
	Actual   int
}

func (e *ByteCountError) Error() string {
	return fmt.Sprintf("invalid data format for %s: declared byte count %d, actual %d", e.Field, e.Declared, e.Actual)
}

func (e *ByteCountError) Is(target error) bool { return target == ErrInvalidShape }

// ParityError reports a register byte count that is not a whole number of
// registers.
type ParityError struct {
	Field     string
	ByteCount int
}

func (e *ParityError) Error() string {
	return fmt.Sprintf("invalid data format for %s: byte count %d is not even", e.Field, e.ByteCount)
}

func (e *ParityError) Is(target error) bool { return target == ErrInvalidShape }

// WidthError reports a selected numeric width that does not evenly divide
// the register bytes.
type WidthError struct {
	Width     Widths
	ByteCount int
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("invalid data format for Registers: %d bytes do not split into %s values", e.ByteCount, e.Width)
}

func (e *WidthError) Is(target error) bool { return target == ErrInvalidShape }

// CoilValueError reports a single coil write whose value is none of
// 0x0000, 0xFF00 and 0x00FF.
type CoilValueError struct {
	Value uint16
}

func (e *CoilValueError) Error() string {
	return fmt.Sprintf("invalid data format for AddressBoolean: value 0x%04X, allowed only 0xFF00, 0x00FF, 0x0000", e.Value)
}

func (e *CoilValueError) Is(target error) bool { return target == ErrInvalidShape }
