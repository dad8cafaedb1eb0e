package rowid

import "testing"

func TestPackUnpack(t *testing.T) {
	cases := []struct {
		fileNumber    uint32
		fileRowNumber uint32
	}{
		{0, 0},
		{0, 42},
		{1, 1024},
		{4294967295, 7},
	}

	for _, c := range cases {
		packed := Pack(c.fileNumber, c.fileRowNumber)
		gotFileNumber, gotFileRowNumber := Unpack(packed)
		if gotFileNumber != c.fileNumber || gotFileRowNumber != c.fileRowNumber {
			t.Fatalf("Pack/Unpack roundtrip mismatch for %+v: got file_number=%d file_row_number=%d", c, gotFileNumber, gotFileRowNumber)
		}
	}
}

func TestChunkIndexAndOffset(t *testing.T) {
	const vectorSize = 2048

	if got := ChunkIndex(0, vectorSize); got != 0 {
		t.Fatalf("expected chunk 0, got %d", got)
	}
	if got := ChunkIndex(2048, vectorSize); got != 1 {
		t.Fatalf("expected chunk 1, got %d", got)
	}
	if got := ChunkIndex(2047, vectorSize); got != 0 {
		t.Fatalf("expected chunk 0, got %d", got)
	}

	if got := OffsetInChunk(2048, vectorSize); got != 0 {
		t.Fatalf("expected offset 0, got %d", got)
	}
	if got := OffsetInChunk(2049, vectorSize); got != 1 {
		t.Fatalf("expected offset 1, got %d", got)
	}
}
