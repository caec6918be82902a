// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

const (
	// MinSize is the smallest legal frame: slave address, function code
	// and two CRC bytes.
	MinSize = 4
	MaxSize = 256

	CRCSize = 2

	// MaxWindow bounds the tracked bytes under continuous noise. Once it is
	// exceeded the oldest EvictSize bytes are reported as errored.
	MaxWindow = 2300
	EvictSize = 200

	// DefaultBaudRate is assumed when no baud rate is configured.
	DefaultBaudRate = 9600
)
