// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// MmapStore keeps the latest entries in a ring of fixed-size slots in a
// memory-mapped file. The OS writes the pages back; Append also flushes
// them so that the capture survives power loss.
type MmapStore struct {
	path  string
	limit int

	mu     sync.Mutex
	file   *os.File
	data   mmap.MMap
	header ringHeader
}

// OpenMmapStore maps path, creating a ring of limit slots if the file is
// new. An existing ring must have been created with the same limit.
func OpenMmapStore(path string, limit int) (*MmapStore, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	// Open file, creating if necessary
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmap file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := int64(ringSize(limit))
	fresh := fi.Size() == 0
	if fresh {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resize mmap file: %w", err)
		}
	} else if fi.Size() != size {
		f.Close()
		return nil, fmt.Errorf("mmap file %s has %d bytes, a ring of %d entries needs %d", path, fi.Size(), limit, size)
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	ms := &MmapStore{path: path, limit: limit, file: f, data: data}

	if fresh {
		ms.header = ringHeader{slotSize: slotSize, limit: uint32(limit)}
		putHeader(data, ms.header)
		if err := data.Flush(); err != nil {
			ms.Close()
			return nil, fmt.Errorf("failed to flush mmap: %w", err)
		}
		return ms, nil
	}

	h, ok := readHeader(data)
	if !ok || h.slotSize != slotSize || h.limit != uint32(limit) {
		ms.Close()
		return nil, fmt.Errorf("mmap file %s is not a capture ring of %d entries", path, limit)
	}
	ms.header = h
	slog.Debug("Reopened capture ring", "path", path, "appended", h.appended)
	return ms, nil
}

func (ms *MmapStore) Append(e Entry) error {
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.data == nil {
		return fmt.Errorf("mmap data is nil")
	}
	s := slot(ms.data, int(ms.header.appended%uint64(ms.limit)))
	if err := putSlot(s, doc); errors.Is(err, errEntryTooLarge) {
		// Drop the summary first, then halve the raw bytes until the entry
		// fits. Length still records the full data field.
		e.Summary = ""
		for {
			if doc, err = json.Marshal(e); err != nil {
				return fmt.Errorf("failed to encode entry: %w", err)
			}
			err = putSlot(s, doc)
			if !errors.Is(err, errEntryTooLarge) || len(e.Data) == 0 {
				break
			}
			e.Data = e.Data[:len(e.Data)/2]
		}
		if err != nil {
			return err
		}
		slog.Warn("Capture entry truncated to fit the ring slot", "kind", e.Kind, "stored", len(e.Data))
	}
	ms.header.appended++
	putHeader(ms.data, ms.header)
	return ms.data.Flush()
}

func (ms *MmapStore) Entries() ([]Entry, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.data == nil {
		return nil, fmt.Errorf("mmap data is nil")
	}
	n := ms.header.appended
	if n > uint64(ms.limit) {
		n = uint64(ms.limit)
	}
	entries := make([]Entry, 0, n)
	for i := uint64(1); i <= n; i++ {
		doc, ok := readSlot(slot(ms.data, int((ms.header.appended-i)%uint64(ms.limit))))
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal(doc, &e); err != nil {
			slog.Warn("Skipping unreadable capture slot", "path", ms.path, "err", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Close unmaps and closes the file.
func (ms *MmapStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var err error
	if ms.data != nil {
		if e := ms.data.Unmap(); e != nil {
			err = e
		}
		ms.data = nil
	}
	if ms.file != nil {
		if e := ms.file.Close(); e != nil {
			err = e
		}
		ms.file = nil
	}
	return err
}
