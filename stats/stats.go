// Package stats holds the per-file column statistics used to prune files
// at scan time (spec §4.5.A, §9 "columnstore_stats"). Rather than
// re-parsing a trimmed Parquet footer's Thrift bytes back out, statistics
// are computed incrementally from the Go row values as a writer accumulates
// them, then cached here keyed by file name; this produces the same
// observable min/max/null_count contract without a second round trip
// through Thrift decoding.
package stats

import (
	"sync"
)

// CompareAny orders two observed column values the way the writer needs
// when folding a new value into a running min/max: numeric types compare
// numerically, strings lexically. Mixed types compare as equal, since a
// well-typed column never mixes them.
func CompareAny(a, b any) int {
	switch av := a.(type) {
	case int64:
		bv, ok := b.(int64)
		if !ok {
			return 0
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case bool:
		bv, ok := b.(bool)
		if !ok || av == bv {
			return 0
		}
		if !av && bv {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// ColumnStatistics is one column's pruning summary within a file.
type ColumnStatistics struct {
	Min       any
	Max       any
	NullCount int64
}

// FileStatistics is the per-file pruning summary the scan adapter consults
// before opening a file (spec §4.5.A "skip files whose column statistics
// cannot satisfy the predicate").
type FileStatistics struct {
	FileName string
	RowCount int64
	Columns  map[string]*ColumnStatistics
}

func NewFileStatistics(fileName string) *FileStatistics {
	return &FileStatistics{
		FileName: fileName,
		Columns:  make(map[string]*ColumnStatistics),
	}
}

// Observe folds one row's value for column into the running min/max/null
// tracking. cmp must return <0, 0, >0 like bytes.Compare, comparing a
// against b; it is supplied by the writer since Go has no generic ordering
// over `any`.
func (fs *FileStatistics) Observe(column string, value any, isNull bool, cmp func(a, b any) int) {
	col, ok := fs.Columns[column]
	if !ok {
		col = &ColumnStatistics{}
		fs.Columns[column] = col
	}

	if isNull {
		col.NullCount++
		return
	}

	if col.Min == nil || cmp(value, col.Min) < 0 {
		col.Min = value
	}
	if col.Max == nil || cmp(value, col.Max) > 0 {
		col.Max = value
	}
}

// Cache is the process-wide statistics cache (spec §9 "columnstore_stats"),
// letting repeated scans of the same file skip re-deriving its statistics.
type Cache struct {
	mu    sync.RWMutex
	byKey map[string]*FileStatistics
}

func NewCache() *Cache {
	return &Cache{byKey: make(map[string]*FileStatistics)}
}

func (c *Cache) key(oid uint32, fileName string) string {
	return fileName
}

func (c *Cache) Get(oid uint32, fileName string) (*FileStatistics, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fs, ok := c.byKey[c.key(oid, fileName)]
	return fs, ok
}

func (c *Cache) Put(oid uint32, fs *FileStatistics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[c.key(oid, fs.FileName)] = fs
}

func (c *Cache) Evict(oid uint32, fileName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byKey, c.key(oid, fileName))
}
