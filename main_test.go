// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ffutop/modbus-sniffer/internal/capture"
)

func TestExport(t *testing.T) {
	store := capture.NewMemoryStore(10)
	for i, summary := range []string{"first", "second"} {
		store.Append(capture.Entry{
			Time:         time.Date(2026, 5, 1, 12, 0, i, 0, time.UTC),
			Kind:         "valid",
			SlaveAddress: 1,
			Description:  "Read Coils",
			Length:       4,
			Summary:      summary,
		})
	}

	path := filepath.Join(t.TempDir(), "capture.csv")
	if err := export(store, path); err != nil {
		t.Fatalf("export() error = %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(b), "\r\n"), "\r\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasSuffix(lines[0], ",second") || !strings.HasSuffix(lines[1], ",first") {
		t.Errorf("lines = %q, want newest first", lines)
	}
}

func TestExport_BadPath(t *testing.T) {
	if err := export(capture.NewMemoryStore(1), filepath.Join(t.TempDir(), "missing", "capture.csv")); err == nil {
		t.Error("export() expected error")
	}
}
