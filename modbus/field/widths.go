// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package field

import (
	"fmt"
	"strings"
)

// Widths selects the numeric interpretations produced for register data.
type Widths uint16

const (
	Uint16 Widths = 1 << iota
	Int16
	Uint32
	Int32
	Float32
	Uint64
	Int64
	Float64
	Uint8
	Int8

	// DefaultWidths never fails on a well-formed register field.
	DefaultWidths = Uint16 | Int16
)

var widthNames = []struct {
	width Widths
	name  string
	size  int
}{
	{Uint8, "uint8", 1},
	{Int8, "int8", 1},
	{Uint16, "uint16", 2},
	{Int16, "int16", 2},
	{Uint32, "uint32", 4},
	{Int32, "int32", 4},
	{Float32, "float32", 4},
	{Uint64, "uint64", 8},
	{Int64, "int64", 8},
	{Float64, "float64", 8},
}

// ParseWidths parses width names such as "uint16" or "float32"
// (case-insensitive). An empty list yields DefaultWidths.
func ParseWidths(names []string) (Widths, error) {
	if len(names) == 0 {
		return DefaultWidths, nil
	}
	var w Widths
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		found := false
		for _, wn := range widthNames {
			if wn.name == name {
				w |= wn.width
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown register width: %q", name)
		}
	}
	return w, nil
}

func (w Widths) Has(other Widths) bool {
	return w&other == other
}

func (w Widths) String() string {
	var names []string
	for _, wn := range widthNames {
		if w.Has(wn.width) {
			names = append(names, wn.name)
		}
	}
	return strings.Join(names, ",")
}
