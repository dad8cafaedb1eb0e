// Package deletionvector implements the per-(file, chunk) deletion bitmaps
// described in spec §4.4 and the DV manager that builds, fetches, applies,
// and persists them.
package deletionvector

import (
	"bytes"

	"github.com/RoaringBitmap/roaring/v2"
)

// Bitmap is the DV plane's bitmap type: bit k set means the row at
// chunk_start+k is logically deleted (spec Glossary). It wraps
// RoaringBitmap/roaring the way hupe1980-vecgo's LocalBitmap wraps it for
// row-id filtering.
type Bitmap struct {
	rb *roaring.Bitmap
}

// NewBitmap returns an empty bitmap, used as the fetch result when no DV
// exists yet for a (file, chunk) (spec §4.4 "empty if none").
func NewBitmap() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// SetDeleted marks offset (within the chunk) as logically deleted.
func (b *Bitmap) SetDeleted(offset uint32) {
	b.rb.Add(offset)
}

// IsDeleted is the constant-time bit test used on the scan read path
// (spec §4.4 "Apply (read path)").
func (b *Bitmap) IsDeleted(offset uint32) bool {
	return b.rb.Contains(offset)
}

// IsEmpty reports whether no bits are set, i.e. no row in the chunk is
// deleted.
func (b *Bitmap) IsEmpty() bool {
	return b.rb.IsEmpty()
}

// Cardinality returns the number of deleted rows represented.
func (b *Bitmap) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// Merge OR-merges other's bits into b in place (spec §4.4 step 3
// "OR-merge the new bits").
func (b *Bitmap) Merge(other *Bitmap) {
	b.rb.Or(other.rb)
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.rb.Clone()}
}

// MarshalBinary serializes the bitmap for persistence via the lake service.
func (b *Bitmap) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.rb.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBitmap deserializes bytes written by MarshalBinary. A nil or
// empty byte slice yields an empty bitmap, matching "empty if none" fetch
// semantics.
func UnmarshalBitmap(data []byte) (*Bitmap, error) {
	b := NewBitmap()
	if len(data) == 0 {
		return b, nil
	}
	if _, err := b.rb.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return b, nil
}
