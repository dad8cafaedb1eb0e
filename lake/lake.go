// Package lake implements the deletion-vector persistence contract (spec
// §6 "Lake contract"). Service works in raw bytes rather than
// *deletionvector.Bitmap so that deletionvector can depend on lake without
// creating an import cycle; deletionvector.Manager is responsible for
// (de)serializing bitmaps around these calls.
package lake

import "context"

// Snapshot mirrors catalog.Snapshot: the opaque visibility token DV reads
// are versioned by (spec §3 "DeletionVector ... versioned by snapshot").
// Declared here rather than imported so the lake contract stands alone.
type Snapshot string

// FileRef identifies the file a data-file registration or DV operation
// applies to.
type FileRef struct {
	OID      uint32
	FileName string
}

// Service is the contract the engine needs from the lake backing store: it
// tracks which files exist and stores the deletion-vector bytes keyed by
// (file_name, chunk_index) (spec §4.4).
type Service interface {
	// AddFile records that fileName, fileSize bytes long, now belongs to
	// oid's lake namespace. Called in the same logical transaction as
	// catalog.DataFilesInsert (spec §4.3, §6 "LakeAddFile(oid, file_name,
	// file_size)").
	AddFile(ctx context.Context, ref FileRef, fileSize int64) error

	// FetchDV returns the raw bitmap bytes for (fileName, chunkIndex) as of
	// snapshot, or nil with no error if none has been written yet. The
	// backing store is expected to provide snapshot-consistent reads (spec
	// §5 "Ordering guarantees").
	FetchDV(ctx context.Context, ref FileRef, chunkIndex int64, snapshot Snapshot) ([]byte, error)

	// WriteDV persists data as the bitmap bytes for (fileName, chunkIndex),
	// replacing whatever was there.
	WriteDV(ctx context.Context, ref FileRef, chunkIndex int64, data []byte) error

	// Commit finalizes a batch of DV writes under batchID, giving the
	// backing store a chance to make them visible atomically (spec §4.4
	// step 4 "the batch commits atomically").
	Commit(ctx context.Context, batchID string) error
}
