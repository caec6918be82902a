// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import "sync"

// DefaultLimit is the number of entries a ring store keeps by default.
const DefaultLimit = 1000

// MemoryStore is a non-persistent ring of the latest entries.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MemoryStore{entries: make([]Entry, limit)}
}

func (ms *MemoryStore) Append(e Entry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.entries[ms.next] = e
	ms.next++
	if ms.next == len(ms.entries) {
		ms.next = 0
		ms.full = true
	}
	return nil
}

func (ms *MemoryStore) Entries() ([]Entry, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n := ms.next
	if ms.full {
		n = len(ms.entries)
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, ms.entries[(ms.next-i+len(ms.entries))%len(ms.entries)])
	}
	return out, nil
}

func (ms *MemoryStore) Close() error {
	return nil
}
