package writer

import (
	"bytes"
	"testing"

	"github.com/nbiscaro/pg-mooncake/config"
)

func TestDataFileWriterFinalizeProducesFooter(t *testing.T) {
	jsonSchema, err := jsonSchemaForTest()
	if err != nil {
		t.Fatal(err)
	}

	var sink bytes.Buffer
	cfg := config.Tunables{RowGroupSize: 10, FileSizeBytes: 1 << 30, VectorSize: 2048}

	dfw, err := NewDataFileWriter(&sink, jsonSchema, cfg, "f1.parquet")
	if err != nil {
		t.Fatal(err)
	}

	rows := []string{`{"Id":1}`, `{"Id":2}`, `{"Id":3}`}
	values := []map[string]any{
		{"Id": int64(1)}, {"Id": int64(2)}, {"Id": int64(3)},
	}
	if _, err := dfw.Write(rows, values); err != nil {
		t.Fatal(err)
	}

	fileSize, metadataBlob, err := dfw.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if fileSize <= 0 {
		t.Fatalf("expected positive file size, got %d", fileSize)
	}
	if len(metadataBlob) == 0 {
		t.Fatal("expected non-empty metadata blob")
	}

	fs := dfw.FileStatistics()
	col := fs.Columns["Id"]
	if col == nil {
		t.Fatal("expected stats for column Id")
	}
	if col.Min.(int64) != 1 || col.Max.(int64) != 3 {
		t.Fatalf("expected min=1 max=3, got min=%v max=%v", col.Min, col.Max)
	}
}

func jsonSchemaForTest() (string, error) {
	return `{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[{"Tag":"type=INT64, name=Id, repetitiontype=OPTIONAL, fieldid=0"}]}`, nil
}
