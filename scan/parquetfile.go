package scan

import (
	"errors"
	"io"

	"github.com/xitongsys/parquet-go/source"
)

// memParquetFile adapts an in-memory byte slice to the parquet-go source
// interface, so a file fetched through the cached filesystem (which hands
// back bytes, not an on-disk path) can be handed straight to
// reader.NewParquetReader without a second local-disk copy.
type memParquetFile struct {
	data   []byte
	offset int64
}

func newMemParquetFile(data []byte) *memParquetFile {
	return &memParquetFile{data: data}
}

func (f *memParquetFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *memParquetFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memParquetFile) Write(_ []byte) (int, error) {
	return 0, errors.New("memParquetFile is read-only")
}

func (f *memParquetFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.offset + offset
	case io.SeekEnd:
		abs = int64(len(f.data)) + offset
	default:
		return 0, errors.New("memParquetFile: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memParquetFile: negative position")
	}
	f.offset = abs
	return abs, nil
}

func (f *memParquetFile) Close() error {
	return nil
}

func (f *memParquetFile) Open(_ string) (source.ParquetFile, error) {
	return newMemParquetFile(f.data), nil
}

func (f *memParquetFile) Create(_ string) (source.ParquetFile, error) {
	return nil, errors.New("memParquetFile: Create not supported")
}
