// Package catalog defines the metadata/snapshot contract the columnstore
// engine requires from its host (spec §6 "Catalog contract"), plus two
// concrete implementations: a Postgres-backed one (postgres_catalog.go,
// grounded on the teacher's crdb/migrations packages) and an in-memory one
// for tests and single-process deployments (memory_catalog.go).
package catalog

import (
	"context"
	"time"
)

// OID is the catalog's opaque table identifier (spec §3), modeled the way
// Postgres represents object identifiers.
type OID uint32

// Snapshot is an opaque catalog visibility token (spec §3), passed to every
// metadata read so that Delete and Scan observe a consistent view (spec
// §5 "Ordering guarantees").
type Snapshot string

// DataFile is the catalog's record of one immutable columnar file (spec §3
// "DataFile" entity), grounded on the teacher's part.Part — FileName plays
// the role Part.ID played, CreatedAt is carried for parity, and
// MetadataBlob replaces Part's granule index bookkeeping with the captured
// Parquet footer.
type DataFile struct {
	FileName     string
	Path         string
	FileSize     int64
	MetadataBlob []byte
	RowCount     int64
	CreatedAt    time.Time
}

// TableEntry is what TablesSearch returns: the table's base storage path
// plus the column layout needed to resolve field ids and Parquet leaf types
// (spec §4.6, §6). ColumnKinds is parallel to ColumnNames and holds the
// schema.ColumnKind name declared for each column at table creation.
type TableEntry struct {
	OID         OID
	BasePath    string
	ColumnNames []string
	ColumnKinds []string
}

// Catalog is the metadata/snapshot contract (spec §6). Implementations must
// make DataFilesInsert visible to DataFilesSearch as of the snapshot that
// was active when the insert's transaction committed (spec §5).
type Catalog interface {
	// TablesSearch resolves a table's base storage path and column layout.
	TablesSearch(ctx context.Context, oid OID) (TableEntry, error)

	// DataFilesInsert registers a finalized file's metadata blob (spec
	// §4.3 step 2). Must be called within the same transaction as the
	// corresponding lake.Service.AddFile (spec §4.3 "Steps 2 and 3 must
	// both succeed or both be rolled back").
	DataFilesInsert(ctx context.Context, oid OID, fileName string, metadataBlob []byte, fileSize int64) error

	// DataFilesSearch lists the file names currently registered for oid as
	// of snapshot (spec §4.6 "GetScanFunction", §4.4 "Delete").
	DataFilesSearch(ctx context.Context, oid OID, snapshot Snapshot) ([]string, error)

	// DataFileMetadata returns the stored metadata blob for one file. The
	// scan adapter does not call it: its pruning statistics come from the
	// in-process stats.Cache the writer fills at finalize.
	DataFileMetadata(ctx context.Context, oid OID, fileName string) ([]byte, error)

	// ActiveSnapshot returns the catalog's current visibility token.
	ActiveSnapshot(ctx context.Context) (Snapshot, error)
}
