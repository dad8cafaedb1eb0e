package writer

import (
	"context"
	"testing"

	"github.com/nbiscaro/pg-mooncake/cachedfs"
	"github.com/nbiscaro/pg-mooncake/catalog"
	"github.com/nbiscaro/pg-mooncake/config"
	"github.com/nbiscaro/pg-mooncake/lake"
	"github.com/nbiscaro/pg-mooncake/objectstore"
	"github.com/nbiscaro/pg-mooncake/schema"
	"github.com/nbiscaro/pg-mooncake/stats"
)

func TestColumnstoreWriterFinalizeRegistersOneFile(t *testing.T) {
	ctx := context.Background()
	cat := catalog.NewMemoryCatalog()
	lk := lake.NewMemoryLake()
	cfs := cachedfs.NewMemFileSystem(objectstore.NewMemoryStore(), 0)

	cfg := config.Tunables{RowGroupSize: 1000, FileSizeBytes: 1 << 30, VectorSize: 2048}
	columns := []schema.Column{{Name: "id", Kind: schema.KindInt64, FieldID: 0}}

	cw := New(catalog.OID(1), "t1", columns, cfg, cfs, cat, lk, stats.NewCache())

	rows := make([]map[string]any, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, map[string]any{"id": int64(i)})
	}
	if err := cw.Write(ctx, rows); err != nil {
		t.Fatal(err)
	}
	if err := cw.Finalize(ctx); err != nil {
		t.Fatal(err)
	}

	names, err := cat.DataFilesSearch(ctx, catalog.OID(1), catalog.Snapshot(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 {
		t.Fatalf("expected exactly one registered file, got %d", len(names))
	}
}

// TestColumnstoreWriterRotates drives the rotation path: with a one-byte
// file-size threshold, every flushed row group pushes the file over the
// limit, so each full accumulator becomes its own registered file.
func TestColumnstoreWriterRotates(t *testing.T) {
	ctx := context.Background()
	cat := catalog.NewMemoryCatalog()
	lk := lake.NewMemoryLake()
	cfs := cachedfs.NewMemFileSystem(objectstore.NewMemoryStore(), 0)

	cfg := config.Tunables{RowGroupSize: 5, FileSizeBytes: 1, VectorSize: 2048}
	columns := []schema.Column{{Name: "id", Kind: schema.KindInt64, FieldID: 0}}

	cw := New(catalog.OID(3), "t3", columns, cfg, cfs, cat, lk, stats.NewCache())

	writeBatch := func(start int) {
		rows := make([]map[string]any, 0, 5)
		for i := start; i < start+5; i++ {
			rows = append(rows, map[string]any{"id": int64(i)})
		}
		if err := cw.Write(ctx, rows); err != nil {
			t.Fatal(err)
		}
	}

	writeBatch(0)
	writeBatch(5)
	if err := cw.Finalize(ctx); err != nil {
		t.Fatal(err)
	}

	names, err := cat.DataFilesSearch(ctx, catalog.OID(3), catalog.Snapshot(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("expected two registered files after rotation, got %d", len(names))
	}
	if names[0] == names[1] {
		t.Fatal("expected rotation to start a fresh file name")
	}
}

func TestColumnstoreWriterNoRowsNoFile(t *testing.T) {
	ctx := context.Background()
	cat := catalog.NewMemoryCatalog()
	lk := lake.NewMemoryLake()
	cfs := cachedfs.NewMemFileSystem(objectstore.NewMemoryStore(), 0)

	cfg := config.Tunables{RowGroupSize: 1000, FileSizeBytes: 1 << 30, VectorSize: 2048}
	columns := []schema.Column{{Name: "id", Kind: schema.KindInt64, FieldID: 0}}

	cw := New(catalog.OID(2), "t2", columns, cfg, cfs, cat, lk, stats.NewCache())

	if err := cw.Finalize(ctx); err != nil {
		t.Fatal(err)
	}

	names, err := cat.DataFilesSearch(ctx, catalog.OID(2), catalog.Snapshot(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no registered files, got %d", len(names))
	}
}
