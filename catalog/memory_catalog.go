package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nbiscaro/pg-mooncake/gologger"
	"github.com/nbiscaro/pg-mooncake/utils"
)

var logger = gologger.NewLogger()

// MemoryCatalog is an in-process Catalog, used for tests and for the
// single-node dev path that doesn't want a Postgres dependency. It mirrors
// the teacher's RedisMetaStore shape (a table registry plus a per-table
// file list) but keeps everything behind a mutex instead of a network
// round trip.
type MemoryCatalog struct {
	mu     sync.Mutex
	tables map[OID]TableEntry
	files  map[OID][]DataFile
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		tables: make(map[OID]TableEntry),
		files:  make(map[OID][]DataFile),
	}
}

// CreateTable registers a table's base path and column layout. Not part of
// the Catalog interface (table creation is the host's job); exposed here so
// tests and the example harness can seed a table. columnKinds is parallel
// to columnNames and names each column's schema.ColumnKind.
func (m *MemoryCatalog) CreateTable(oid OID, basePath string, columnNames, columnKinds []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[oid] = TableEntry{OID: oid, BasePath: basePath, ColumnNames: columnNames, ColumnKinds: columnKinds}
}

func (m *MemoryCatalog) TablesSearch(_ context.Context, oid OID) (TableEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.tables[oid]
	if !ok {
		return TableEntry{}, fmt.Errorf("table oid %d not found", oid)
	}
	return entry, nil
}

func (m *MemoryCatalog) DataFilesInsert(_ context.Context, oid OID, fileName string, metadataBlob []byte, fileSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	logger.Debug().Str("fileName", fileName).Int64("fileSize", fileSize).Msg("catalog: registering data file")
	m.files[oid] = append(m.files[oid], DataFile{
		FileName:     fileName,
		FileSize:     fileSize,
		MetadataBlob: metadataBlob,
		CreatedAt:    time.Now(),
	})
	return nil
}

func (m *MemoryCatalog) DataFilesSearch(_ context.Context, oid OID, _ Snapshot) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files[oid]))
	for _, f := range m.files[oid] {
		names = append(names, f.FileName)
	}
	return names, nil
}

func (m *MemoryCatalog) DataFileMetadata(_ context.Context, oid OID, fileName string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files[oid] {
		if f.FileName == fileName {
			return f.MetadataBlob, nil
		}
	}
	return nil, fmt.Errorf("data file %q not found for oid %d", fileName, oid)
}

func (m *MemoryCatalog) ActiveSnapshot(_ context.Context) (Snapshot, error) {
	return Snapshot(utils.GenKSortedID("snap_")), nil
}
