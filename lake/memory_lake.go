package lake

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLake is an in-process Service used for tests and single-node dev,
// mirroring MemoryCatalog's shape on the catalog side.
type MemoryLake struct {
	mu    sync.Mutex
	files map[uint32]map[string]int64
	dvs   map[string][]byte
}

func NewMemoryLake() *MemoryLake {
	return &MemoryLake{
		files: make(map[uint32]map[string]int64),
		dvs:   make(map[string][]byte),
	}
}

func (m *MemoryLake) key(ref FileRef, chunkIndex int64) string {
	return fmt.Sprintf("%s#%d", ref.FileName, chunkIndex)
}

func (m *MemoryLake) AddFile(_ context.Context, ref FileRef, fileSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files[ref.OID] == nil {
		m.files[ref.OID] = make(map[string]int64)
	}
	m.files[ref.OID][ref.FileName] = fileSize
	return nil
}

// FetchDV serves the latest bitmap regardless of snapshot: the in-memory
// lake backs single-process tests with one writer, where the latest write
// is the snapshot-consistent answer.
func (m *MemoryLake) FetchDV(_ context.Context, ref FileRef, chunkIndex int64, _ Snapshot) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dvs[m.key(ref, chunkIndex)], nil
}

func (m *MemoryLake) WriteDV(_ context.Context, ref FileRef, chunkIndex int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dvs[m.key(ref, chunkIndex)] = data
	return nil
}

func (m *MemoryLake) Commit(_ context.Context, _ string) error {
	return nil
}
