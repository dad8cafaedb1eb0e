package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/nbiscaro/pg-mooncake/cachedfs"
	"github.com/nbiscaro/pg-mooncake/catalog"
	"github.com/nbiscaro/pg-mooncake/config"
	"github.com/nbiscaro/pg-mooncake/engineerr"
	"github.com/nbiscaro/pg-mooncake/gologger"
	"github.com/nbiscaro/pg-mooncake/lake"
	"github.com/nbiscaro/pg-mooncake/schema"
	"github.com/nbiscaro/pg-mooncake/stats"

	"github.com/google/uuid"
)

var logger = gologger.NewLogger()

// ColumnstoreWriter is the per-oid writer that owns a sequence of
// DataFileWriters and registers each finalized file with the catalog and
// lake (spec §4.3). It is not safe for concurrent Write calls against the
// same oid; the host is expected to serialize DML per table.
type ColumnstoreWriter struct {
	oid      catalog.OID
	basePath string
	columns  []schema.Column
	cfg      config.Tunables

	cfs        *cachedfs.FileSystem
	cat        catalog.Catalog
	lk         lake.Service
	statsCache *stats.Cache

	fileName string
	sink     *cachedfs.WriteFile
	dfw      *DataFileWriter
}

func New(oid catalog.OID, basePath string, columns []schema.Column, cfg config.Tunables, cfs *cachedfs.FileSystem, cat catalog.Catalog, lk lake.Service, statsCache *stats.Cache) *ColumnstoreWriter {
	return &ColumnstoreWriter{
		oid:        oid,
		basePath:   basePath,
		columns:    columns,
		cfg:        cfg,
		cfs:        cfs,
		cat:        cat,
		lk:         lk,
		statsCache: statsCache,
	}
}

// Write appends rows (as column-name -> value maps) to the current file,
// opening a new one on first use, and rotates (finalize + register + start
// a fresh file) whenever the current file crosses the size threshold (spec
// §4.3).
func (cw *ColumnstoreWriter) Write(ctx context.Context, rows []map[string]any) error {
	if cw.dfw == nil {
		if err := cw.openNewFile(ctx); err != nil {
			return err
		}
	}

	encoded := make([]string, 0, len(rows))
	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return engineerr.New(engineerr.InvariantViolation, engineerr.PhaseAppend, cw.fileName, err)
		}
		encoded = append(encoded, string(b))
	}

	rotate, err := cw.dfw.Write(encoded, rows)
	if err != nil {
		return err
	}
	if rotate {
		return cw.rotate(ctx)
	}
	return nil
}

func (cw *ColumnstoreWriter) openNewFile(ctx context.Context) error {
	cw.fileName = uuid.New().String() + ".parquet"

	sink, err := cw.cfs.Create(ctx, path.Join(cw.basePath, cw.fileName))
	if err != nil {
		return err
	}

	jsonSchema, err := schema.JSONSchema(cw.columns)
	if err != nil {
		return engineerr.New(engineerr.InvariantViolation, engineerr.PhaseAppend, cw.fileName, err)
	}

	dfw, err := NewDataFileWriter(sink, jsonSchema, cw.cfg, cw.fileName)
	if err != nil {
		return err
	}

	cw.sink = sink
	cw.dfw = dfw
	return nil
}

// rotate finalizes the current file and registers it with the catalog and
// lake (spec §4.3 steps 1-4). Both registrations must be part of the same
// host transaction; this method performs them in sequence and relies on
// the caller's surrounding transaction to roll both back on error.
func (cw *ColumnstoreWriter) rotate(ctx context.Context) error {
	fileSize, metadataBlob, err := cw.dfw.Finalize()
	if err != nil {
		return err
	}
	if err := cw.sink.Close(); err != nil {
		return err
	}

	if err := cw.cat.DataFilesInsert(ctx, cw.oid, cw.fileName, metadataBlob, fileSize); err != nil {
		return engineerr.New(engineerr.MetadataFailure, engineerr.PhaseRegister, cw.fileName, err)
	}
	if err := cw.lk.AddFile(ctx, lake.FileRef{OID: uint32(cw.oid), FileName: cw.fileName}, fileSize); err != nil {
		return engineerr.New(engineerr.LakeFailure, engineerr.PhaseRegister, cw.fileName, err)
	}

	if cw.statsCache != nil {
		cw.statsCache.Put(uint32(cw.oid), cw.dfw.FileStatistics())
	}

	logger.Debug().Str("fileName", cw.fileName).Int64("fileSize", fileSize).Msg("columnstore writer: registered data file")

	cw.fileName = ""
	cw.sink = nil
	cw.dfw = nil
	return nil
}

// Finalize closes out the current file, if any, registering it the same
// way rotate does. Per spec's boundary behavior, zero rows written means
// no file is created and this is a no-op.
func (cw *ColumnstoreWriter) Finalize(ctx context.Context) error {
	if cw.dfw == nil {
		return nil
	}
	if cw.dfw.TotalRows() == 0 {
		cw.fileName = ""
		cw.sink = nil
		cw.dfw = nil
		return nil
	}
	return cw.rotate(ctx)
}

func (cw *ColumnstoreWriter) String() string {
	return fmt.Sprintf("ColumnstoreWriter(oid=%d, basePath=%s)", cw.oid, cw.basePath)
}
