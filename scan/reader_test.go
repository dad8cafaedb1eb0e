package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nbiscaro/pg-mooncake/cachedfs"
	"github.com/nbiscaro/pg-mooncake/catalog"
	"github.com/nbiscaro/pg-mooncake/config"
	"github.com/nbiscaro/pg-mooncake/deletionvector"
	"github.com/nbiscaro/pg-mooncake/lake"
	"github.com/nbiscaro/pg-mooncake/objectstore"
	"github.com/nbiscaro/pg-mooncake/schema"
	"github.com/nbiscaro/pg-mooncake/stats"
	"github.com/nbiscaro/pg-mooncake/writer"
)

func setupTableWithRows(t *testing.T, oid catalog.OID, rows []map[string]any) (*catalog.MemoryCatalog, *lake.MemoryLake, *cachedfs.FileSystem, *stats.Cache) {
	t.Helper()
	ctx := context.Background()

	cat := catalog.NewMemoryCatalog()
	cat.CreateTable(oid, "t", []string{"id"}, []string{string(schema.KindInt64)})
	lk := lake.NewMemoryLake()
	statsCache := stats.NewCache()
	cfs := cachedfs.NewMemFileSystem(objectstore.NewMemoryStore(), 0)

	cfg := config.Tunables{RowGroupSize: 1000, FileSizeBytes: 1 << 30, VectorSize: 2048}
	columns := []schema.Column{{Name: "id", Kind: schema.KindInt64, FieldID: 0}}

	cw := writer.New(oid, "t", columns, cfg, cfs, cat, lk, statsCache)
	require.NoError(t, cw.Write(ctx, rows))
	require.NoError(t, cw.Finalize(ctx))

	return cat, lk, cfs, statsCache
}

func TestScanReturnsAllInsertedRows(t *testing.T) {
	ctx := context.Background()
	oid := catalog.OID(1)

	var rows []map[string]any
	for i := 0; i < 50; i++ {
		rows = append(rows, map[string]any{"id": int64(i)})
	}

	cat, lk, cfs, statsCache := setupTableWithRows(t, oid, rows)

	cfg := config.Tunables{RowGroupSize: 1000, FileSizeBytes: 1 << 30, VectorSize: 2048}
	dv := deletionvector.NewManager(uint32(oid), lk)
	r := NewReader(oid, "t", cat, dv, statsCache, cfs, cfg)

	snapshot, err := cat.ActiveSnapshot(ctx)
	require.NoError(t, err)

	seen := make(map[int64]bool)
	err = r.Scan(ctx, snapshot, Options{}, func(row Row) error {
		seen[row["Id"].(int64)] = true
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 50)
}

func TestScanSkipsDeletedRows(t *testing.T) {
	ctx := context.Background()
	oid := catalog.OID(2)

	var rows []map[string]any
	for i := 0; i < 10; i++ {
		rows = append(rows, map[string]any{"id": int64(i)})
	}

	cat, lk, cfs, statsCache := setupTableWithRows(t, oid, rows)

	names, err := cat.DataFilesSearch(ctx, oid, catalog.Snapshot(""))
	require.NoError(t, err)
	require.Len(t, names, 1)
	fileName := names[0]

	cfg := config.Tunables{RowGroupSize: 1000, FileSizeBytes: 1 << 30, VectorSize: 2048}
	dv := deletionvector.NewManager(uint32(oid), lk)

	require.NoError(t, dv.ApplyDeletionVectors(ctx, "", map[string]map[int64][]uint32{
		fileName: {0: {3}},
	}))

	r := NewReader(oid, "t", cat, dv, statsCache, cfs, cfg)
	snapshot, err := cat.ActiveSnapshot(ctx)
	require.NoError(t, err)

	seen := make(map[int64]bool)
	err = r.Scan(ctx, snapshot, Options{}, func(row Row) error {
		seen[row["Id"].(int64)] = true
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 9)
	require.False(t, seen[3], "expected row id=3 (file_row_number 3) to be deleted")
}

// TestScanPrunesFilesByStatistics mirrors spec §8 scenario 4: two files,
// values 0..499 in file A and 1000..1499 in file B, scanned with a
// col < 500 predicate. File B must be pruned without renumbering file A.
func TestScanPrunesFilesByStatistics(t *testing.T) {
	ctx := context.Background()
	oid := catalog.OID(3)

	cat := catalog.NewMemoryCatalog()
	cat.CreateTable(oid, "t", []string{"id"}, []string{string(schema.KindInt64)})
	lk := lake.NewMemoryLake()
	statsCache := stats.NewCache()
	cfs := cachedfs.NewMemFileSystem(objectstore.NewMemoryStore(), 0)
	cfg := config.Tunables{RowGroupSize: 1000, FileSizeBytes: 1 << 30, VectorSize: 2048}
	columns := []schema.Column{{Name: "id", Kind: schema.KindInt64, FieldID: 0}}

	cw := writer.New(oid, "t", columns, cfg, cfs, cat, lk, statsCache)

	var fileA []map[string]any
	for i := 0; i < 500; i++ {
		fileA = append(fileA, map[string]any{"id": int64(i)})
	}
	require.NoError(t, cw.Write(ctx, fileA))
	require.NoError(t, cw.Finalize(ctx))

	var fileB []map[string]any
	for i := 1000; i < 1500; i++ {
		fileB = append(fileB, map[string]any{"id": int64(i)})
	}
	require.NoError(t, cw.Write(ctx, fileB))
	require.NoError(t, cw.Finalize(ctx))

	dv := deletionvector.NewManager(uint32(oid), lk)
	r := NewReader(oid, "t", cat, dv, statsCache, cfs, cfg)
	snapshot, err := cat.ActiveSnapshot(ctx)
	require.NoError(t, err)

	filters := []Filter{{
		Column: "id",
		Prune: func(col *stats.ColumnStatistics) bool {
			min, ok := col.Min.(int64)
			return ok && min >= 500
		},
	}}

	fileNumbers := make(map[uint32]bool)
	seen := make(map[int64]bool)
	err = r.Scan(ctx, snapshot, Options{ProjectRowID: true, Filters: filters}, func(row Row) error {
		seen[row["Id"].(int64)] = true
		fileNumbers[uint32(row["row_id"].(int64)>>32)] = true
		return nil
	})
	require.NoError(t, err)

	require.Len(t, seen, 500, "expected 500 surviving rows from file A only")
	require.False(t, seen[1000], "expected file B's rows to be pruned")
	require.True(t, len(fileNumbers) == 1 && fileNumbers[0], "expected all emitted row_ids to carry file_number 0 (pre-pruning index)")
}
