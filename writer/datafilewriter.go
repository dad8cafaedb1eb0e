// Package writer implements the row-group-sized file writer (spec §4.2
// "Data File Writer") and the per-oid writer that owns a sequence of them
// (spec §4.3 "Columnstore Writer"). Both are grounded on the teacher's
// parquet_accumulator package for schema handling, generalized from a
// single untyped JSON accumulator into the fixed column layout a catalog
// table entry carries.
package writer

import (
	"bytes"
	"io"

	"github.com/nbiscaro/pg-mooncake/config"
	"github.com/nbiscaro/pg-mooncake/engineerr"
	"github.com/nbiscaro/pg-mooncake/stats"

	pqwriter "github.com/xitongsys/parquet-go/writer"
)

// countingRecorder wraps the sink the Parquet writer flushes to, tracking
// total bytes written, and, while recording is armed, also keeping a copy
// of the bytes written so the finalize path can capture the footer without
// a second read of the remote file (spec §4.1 "recording stream").
type countingRecorder struct {
	w         io.Writer
	total     int64
	recording bool
	captured  bytes.Buffer
}

func (c *countingRecorder) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.total += int64(n)
	if c.recording {
		c.captured.Write(p[:n])
	}
	return n, err
}

// DataFileWriter accumulates rows into row groups and flushes them to the
// underlying Parquet writer, rotating by size as spec §4.2 describes.
type DataFileWriter struct {
	pw  *pqwriter.JSONWriter
	rec *countingRecorder
	cfg config.Tunables

	rowsSinceFlush int64
	totalRows      int64

	fileStats *stats.FileStatistics
}

// NewDataFileWriter opens a writer over sink using jsonSchema (see the
// schema package for how the catalog's column layout becomes this string).
// fileName is only used to label the FileStatistics this writer builds
// incrementally as rows are observed.
func NewDataFileWriter(sink io.Writer, jsonSchema string, cfg config.Tunables, fileName string) (*DataFileWriter, error) {
	rec := &countingRecorder{w: sink}
	pw, err := pqwriter.NewJSONWriterFromWriter(jsonSchema, rec, 4)
	if err != nil {
		return nil, engineerr.New(engineerr.IoFailure, engineerr.PhaseAppend, "", err)
	}
	pw.RowGroupSize = cfg.RowGroupSize * 1024

	return &DataFileWriter{pw: pw, rec: rec, cfg: cfg, fileStats: stats.NewFileStatistics(fileName)}, nil
}

// Write appends rows (each already marshaled as a JSON row string, plus its
// pre-marshal value map for statistics observation) to the accumulator,
// flushing a row group once rowsSinceFlush reaches cfg.RowGroupSize (the
// underlying writer flushes on its own once the accumulated byte size
// crosses cfg.RowGroupSize*1024, per spec §4.2). It returns true once the
// file's total on-disk size has crossed cfg.FileSizeBytes, signaling the
// caller to rotate (spec §4.2, P4).
func (w *DataFileWriter) Write(rows []string, rowValues []map[string]any) (bool, error) {
	for i, row := range rows {
		if err := w.pw.Write(row); err != nil {
			return false, engineerr.New(engineerr.IoFailure, engineerr.PhaseAppend, "", err)
		}
		w.rowsSinceFlush++
		w.totalRows++

		if i < len(rowValues) {
			for col, val := range rowValues[i] {
				w.fileStats.Observe(col, val, val == nil, stats.CompareAny)
			}
		}
	}
	w.fileStats.RowCount = w.totalRows

	forceFlush := w.rowsSinceFlush >= w.cfg.RowGroupSize
	if err := w.pw.Flush(forceFlush); err != nil {
		return false, engineerr.New(engineerr.IoFailure, engineerr.PhaseFlush, "", err)
	}
	if forceFlush {
		w.rowsSinceFlush = 0
	}

	return w.rec.total >= w.cfg.FileSizeBytes, nil
}

// TotalRows reports how many rows have been written so far, used by the
// boundary check that skips registering a file with zero rows.
func (w *DataFileWriter) TotalRows() int64 {
	return w.totalRows
}

// FileStatistics returns the column statistics accumulated so far, to be
// cached by the caller once the file is finalized (spec §4.5.A).
func (w *DataFileWriter) FileStatistics() *stats.FileStatistics {
	return w.fileStats
}

// Finalize flushes any residual rows as the last row group, then finalizes
// the Parquet writer while recording the footer bytes, returning
// (file_size, metadata_blob) per spec §4.2.
func (w *DataFileWriter) Finalize() (int64, []byte, error) {
	if w.rowsSinceFlush > 0 {
		if err := w.pw.Flush(true); err != nil {
			return 0, nil, engineerr.New(engineerr.IoFailure, engineerr.PhaseFlush, "", err)
		}
		w.rowsSinceFlush = 0
	}

	w.rec.recording = true
	if err := w.pw.WriteStop(); err != nil {
		return 0, nil, engineerr.New(engineerr.IoFailure, engineerr.PhaseFinalize, "", err)
	}

	footer := w.rec.captured.Bytes()
	if len(footer) < 8 {
		return 0, nil, engineerr.New(engineerr.InvariantViolation, engineerr.PhaseFinalize, "", io.ErrShortWrite)
	}

	// The trailing 8 bytes are the fixed magic/trailer (spec §3 "DataFile");
	// they are reconstructible and dropped from the stored metadata blob.
	metadataBlob := make([]byte, len(footer)-8)
	copy(metadataBlob, footer[:len(footer)-8])

	return w.rec.total, metadataBlob, nil
}
