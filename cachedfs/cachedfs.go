// Package cachedfs implements the write-through local disk cache sitting
// in front of the remote object store (spec §4.1 "Cached Write
// Filesystem"), grounded on the teacher's datastore.DiskDataStore for the
// local-path bookkeeping and on spf13/afero for the filesystem calls
// themselves so the cache root can be swapped for an in-memory afero.Fs in
// tests.
package cachedfs

import (
	"bytes"
	"context"
	"io"
	"math"
	"path/filepath"
	"sync"

	"github.com/nbiscaro/pg-mooncake/config"
	"github.com/nbiscaro/pg-mooncake/engineerr"
	"github.com/nbiscaro/pg-mooncake/gologger"
	"github.com/nbiscaro/pg-mooncake/objectstore"

	"github.com/spf13/afero"
)

var logger = gologger.NewLogger()

// FileSystem mirrors writes between objectstore.Store and a local afero.Fs
// cache, and serves reads from the local cache when present (spec §4.1
// "reads prefer the local cache, falling back to the remote store on a
// miss").
type FileSystem struct {
	local     afero.Fs
	remote    objectstore.Store
	cacheRoot string
	enabled   bool

	mu           sync.Mutex
	minDiskSpace int64
	diskSpaceFn  func() (int64, error)
}

// NewFileSystem builds a FileSystem over an OS-backed cache directory
// rooted at cfg.CacheRoot. Available disk space is sampled from the cache
// volume itself at each Create call (spec §4.1 "MIN_DISK_SPACE gate for new
// cache-file allocations").
func NewFileSystem(cfg config.Tunables, remote objectstore.Store) *FileSystem {
	var local afero.Fs
	var diskSpaceFn func() (int64, error)
	if cfg.EnableLocalCache {
		local = afero.NewBasePathFs(afero.NewOsFs(), cfg.CacheRoot)
		diskSpaceFn = func() (int64, error) { return availableDiskSpace(cfg.CacheRoot) }
	}
	return &FileSystem{
		local:        local,
		remote:       remote,
		cacheRoot:    cfg.CacheRoot,
		enabled:      cfg.EnableLocalCache,
		minDiskSpace: cfg.MinDiskSpace,
		diskSpaceFn:  diskSpaceFn,
	}
}

// NewMemFileSystem builds a FileSystem backed by an in-memory afero.Fs, used
// by tests that want the write-through behavior without disk I/O. The
// simulated volume always reports itself as having ample free space; tests
// that want to exercise the disk-pressure gate set diskSpaceFn directly.
func NewMemFileSystem(remote objectstore.Store, minDiskSpace int64) *FileSystem {
	return &FileSystem{
		local:        afero.NewMemMapFs(),
		remote:       remote,
		enabled:      true,
		minDiskSpace: minDiskSpace,
		diskSpaceFn:  func() (int64, error) { return math.MaxInt64, nil },
	}
}

// hasCacheHeadroom reports whether the cache is allowed to keep a local
// copy around: caching must be enabled and the cache volume must currently
// report at least minDiskSpace free (spec §4.1 "disk-space-gated"). A
// failure to stat the volume disables caching for that file rather than
// risking a short write against a full disk.
func (fs *FileSystem) hasCacheHeadroom() bool {
	if !fs.enabled {
		return false
	}
	if fs.diskSpaceFn == nil {
		return true
	}
	free, err := fs.diskSpaceFn()
	if err != nil {
		logger.Warn().Err(err).Str("cacheRoot", fs.cacheRoot).Msg("cachedfs: failed to stat cache volume free space, skipping local cache copy")
		return false
	}
	return free >= fs.minDiskSpace
}

// Create opens key for writing. Writes land in the local cache (if enabled)
// and are mirrored to the remote store when the returned WriteFile is
// closed, so a caller that wants durability must call Close and check its
// error.
func (fs *FileSystem) Create(ctx context.Context, key string) (*WriteFile, error) {
	wf := &WriteFile{fs: fs, ctx: ctx, key: key, buf: &bytes.Buffer{}}

	if fs.hasCacheHeadroom() {
		if err := fs.local.MkdirAll(filepath.Dir(key), 0o755); err != nil {
			return nil, engineerr.New(engineerr.CacheFailure, engineerr.PhaseAppend, key, err)
		}
		localFile, err := fs.local.Create(key)
		if err != nil {
			return nil, engineerr.New(engineerr.CacheFailure, engineerr.PhaseAppend, key, err)
		}
		wf.local = localFile
	}

	return wf, nil
}

// Open returns a reader for key, preferring the local cache and falling
// back to the remote store on a miss. A remote fetch is written through to
// the local cache when there's headroom, so the next Open is a cache hit.
func (fs *FileSystem) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if fs.enabled {
		if f, err := fs.local.Open(key); err == nil {
			return f, nil
		}
	}

	data, err := fs.remote.Get(ctx, key)
	if err != nil {
		return nil, engineerr.New(engineerr.IoFailure, engineerr.PhaseFlush, key, err)
	}

	if fs.hasCacheHeadroom() {
		if werr := fs.writeThrough(key, data); werr != nil {
			logger.Warn().Err(werr).Str("key", key).Msg("cachedfs: failed to write through remote fetch to local cache")
		}
	}

	return nopSeekCloser{bytes.NewReader(data)}, nil
}

func (fs *FileSystem) writeThrough(key string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.local.MkdirAll(filepath.Dir(key), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs.local, key, data, 0o644)
}

// Evict removes key from the local cache without touching the remote copy.
func (fs *FileSystem) Evict(key string) error {
	if !fs.enabled {
		return nil
	}
	return fs.local.Remove(key)
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

// WriteFile is the handle returned by Create. Each Write goes to the local
// cache file (if any) at once and into an in-memory buffer; the buffer is
// uploaded to the remote store on Close.
type WriteFile struct {
	fs    *FileSystem
	ctx   context.Context
	key   string
	buf   *bytes.Buffer
	local afero.File
}

func (w *WriteFile) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	if err != nil {
		return n, err
	}
	if w.local != nil {
		if _, werr := w.local.Write(p); werr != nil {
			return n, engineerr.New(engineerr.CacheFailure, engineerr.PhaseAppend, w.key, werr)
		}
	}
	return n, nil
}

func (w *WriteFile) Close() error {
	if w.local != nil {
		if err := w.local.Close(); err != nil {
			return engineerr.New(engineerr.CacheFailure, engineerr.PhaseFlush, w.key, err)
		}
	}

	if err := w.fs.remote.Put(w.ctx, w.key, w.buf.Bytes()); err != nil {
		return engineerr.New(engineerr.IoFailure, engineerr.PhaseFinalize, w.key, err)
	}

	logger.Debug().Str("key", w.key).Int("bytes", w.buf.Len()).Msg("cachedfs: flushed file to remote store")
	return nil
}

// Bytes returns what's been written so far, used by the data file writer
// to learn the file's final size without a second remote round trip.
func (w *WriteFile) Bytes() []byte {
	return w.buf.Bytes()
}
