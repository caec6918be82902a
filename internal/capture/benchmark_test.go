package capture

import (
	"path/filepath"
	"testing"
)

// BenchmarkMemoryStore_Append benchmarks appending to the in-memory ring.
func BenchmarkMemoryStore_Append(b *testing.B) {
	ms := NewMemoryStore(DefaultLimit)
	e := entry(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ms.Append(e)
	}
}

// BenchmarkFileStore_Append benchmarks a JSON line write followed by fsync.
func BenchmarkFileStore_Append(b *testing.B) {
	fs, err := OpenFileStore(filepath.Join(b.TempDir(), "bench.jsonl"))
	if err != nil {
		b.Fatalf("Failed to open file store: %v", err)
	}
	defer fs.Close()
	e := entry(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := fs.Append(e); err != nil {
			b.Fatalf("Append failed: %v", err)
		}
	}
}

// BenchmarkMmapStore_Append benchmarks a slot write followed by msync.
func BenchmarkMmapStore_Append(b *testing.B) {
	ms, err := OpenMmapStore(filepath.Join(b.TempDir(), "bench.ring"), DefaultLimit)
	if err != nil {
		b.Fatalf("Failed to open mmap store: %v", err)
	}
	defer ms.Close()
	e := entry(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.SlaveAddress = byte(i)
		if err := ms.Append(e); err != nil {
			b.Fatalf("Append failed: %v", err)
		}
	}
}

// BenchmarkSQLStore_Append benchmarks an INSERT into sqlite.
func BenchmarkSQLStore_Append(b *testing.B) {
	s, err := OpenSQLStore("sqlite3", filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatalf("Failed to open sql store: %v", err)
	}
	defer s.Close()
	e := entry(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Append(e); err != nil {
			b.Fatalf("Append failed: %v", err)
		}
	}
}

// BenchmarkMmapStore_Entries benchmarks reading a full ring back.
// Note: every slot is a JSON document, so this is dominated by decoding.
func BenchmarkMmapStore_Entries(b *testing.B) {
	ms, err := OpenMmapStore(filepath.Join(b.TempDir(), "bench_entries.ring"), DefaultLimit)
	if err != nil {
		b.Fatalf("Failed to open mmap store: %v", err)
	}
	defer ms.Close()
	for i := 0; i < DefaultLimit; i++ {
		ms.Append(entry(i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ms.Entries(); err != nil {
			b.Fatalf("Entries failed: %v", err)
		}
	}
}
