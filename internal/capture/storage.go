// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package capture keeps the history of sniffed frames.
package capture

import (
	"fmt"
	"time"

	"github.com/ffutop/modbus-sniffer/internal/config"
	"github.com/ffutop/modbus-sniffer/modbus/frame"
)

// Entry is one sniffed frame as shown to an operator.
type Entry struct {
	Time         time.Time `json:"time"`
	Kind         string    `json:"kind"` // "valid", "error", "send"
	SlaveAddress byte      `json:"slaveAddress"`
	FunctionCode byte      `json:"functionCode"`
	Description  string    `json:"description"`
	Length       int       `json:"length"` // data field length
	Data         []byte    `json:"data"`   // slave address, function code and data field
	Summary      string    `json:"summary"`
}

// NewEntry captures f as received at t.
func NewEntry(t time.Time, f *frame.Frame) Entry {
	return Entry{
		Time:         t,
		Kind:         f.Kind.String(),
		SlaveAddress: f.SlaveAddress,
		FunctionCode: f.FunctionCode,
		Description:  f.Description,
		Length:       len(f.Data),
		Data:         f.Bytes(),
		Summary:      f.Summary(),
	}
}

// Store defines the interface for keeping captured frames.
type Store interface {
	// Append records e.
	Append(e Entry) error

	// Entries returns the recorded entries, newest first.
	Entries() ([]Entry, error)

	Close() error
}

// Open returns the store cfg describes.
// Note: the "sql" type needs the sqlite3 driver imported in main.go
func Open(cfg config.CaptureConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(cfg.Limit), nil
	case "file":
		return OpenFileStore(cfg.Path)
	case "mmap":
		return OpenMmapStore(cfg.Path, cfg.Limit)
	case "sql":
		return OpenSQLStore("sqlite3", cfg.Path)
	default:
		return nil, fmt.Errorf("unknown capture type: %q", cfg.Type)
	}
}

func reverse(entries []Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
