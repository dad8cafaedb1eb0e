// Package config holds the columnstore engine's tunables (spec §6). Values
// default the way the host columnar engine's GUCs do and can be overridden
// by environment variables, validated with go-playground/validator the way
// the teacher validates inbound request bodies.
package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/nbiscaro/pg-mooncake/utils"
)

const (
	// DefaultRowGroupSize mirrors the host columnar engine's standard
	// row-group row count (DuckDB's Storage::ROW_GROUP_SIZE default).
	DefaultRowGroupSize = 122_880
	// DefaultFileSizeBytes is the 1 GiB rotation threshold (spec §4.2).
	DefaultFileSizeBytes = 1 << 30
	// DefaultMinDiskSpace is the 1 GiB disk-space gate for new cache
	// allocations (spec §4.1).
	DefaultMinDiskSpace = 1 << 30
	// DefaultVectorSize mirrors the host columnar engine's standard chunk
	// width (DuckDB's STANDARD_VECTOR_SIZE default), used as the DV bitmap
	// granularity (spec Glossary).
	DefaultVectorSize = 2048
)

// Tunables is the engine's configuration surface (spec §6).
type Tunables struct {
	// EnableLocalCache arms the write-through cache and read-side path
	// preference (spec §4.1, §4.6).
	EnableLocalCache bool

	// CacheRoot is the local cache directory. Cached files live under it at
	// their object-store key, <cache_root>/<base_path>/<file_name>; the
	// layout is not flat, each table's base_path becomes a subdirectory.
	CacheRoot string `validate:"required_if=EnableLocalCache true"`

	// RowGroupSize is the row count threshold that triggers a row-group
	// flush (spec §4.2); the accumulator also flushes once its in-memory
	// byte size reaches RowGroupSize*1024.
	RowGroupSize int64 `validate:"gt=0"`

	// FileSizeBytes is the on-disk size threshold that triggers file
	// rotation after a flush (spec §4.2).
	FileSizeBytes int64 `validate:"gt=0"`

	// MinDiskSpace gates new cache-file allocations (spec §4.1).
	MinDiskSpace int64 `validate:"gt=0"`

	// VectorSize is the DV bitmap granularity (spec Glossary, §4.4).
	VectorSize int64 `validate:"gt=0"`
}

// FromEnv builds Tunables from the MOONCAKE_* environment variables,
// falling back to the host columnar engine's defaults the way
// utils.GetEnvOrDefault does throughout the teacher codebase.
func FromEnv() Tunables {
	return Tunables{
		EnableLocalCache: utils.GetEnvOrDefaultBool("MOONCAKE_ENABLE_LOCAL_CACHE", false),
		CacheRoot:        utils.GetEnvOrDefault("MOONCAKE_LOCAL_CACHE", "/tmp/mooncake_cache/"),
		RowGroupSize:     utils.GetEnvOrDefaultInt("MOONCAKE_ROW_GROUP_SIZE", DefaultRowGroupSize),
		FileSizeBytes:    utils.GetEnvOrDefaultInt("MOONCAKE_FILE_SIZE_BYTES", DefaultFileSizeBytes),
		MinDiskSpace:     utils.GetEnvOrDefaultInt("MOONCAKE_MIN_DISK_SPACE", DefaultMinDiskSpace),
		VectorSize:       utils.GetEnvOrDefaultInt("MOONCAKE_VECTOR_SIZE", DefaultVectorSize),
	}
}

// Validate checks the tunables with go-playground/validator, the same
// library the teacher wires into its HTTP request binding.
func (t Tunables) Validate() error {
	return validator.New().Struct(t)
}
