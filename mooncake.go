// Package mooncake wires the engine's collaborators together the way the
// teacher's top-level IceDB struct binds a MetaStore and a DataStore,
// generalized here to the catalog/lake/cache triple this engine depends
// on.
package mooncake

import (
	"context"

	"github.com/nbiscaro/pg-mooncake/cachedfs"
	"github.com/nbiscaro/pg-mooncake/catalog"
	"github.com/nbiscaro/pg-mooncake/config"
	"github.com/nbiscaro/pg-mooncake/lake"
	"github.com/nbiscaro/pg-mooncake/objectstore"
	"github.com/nbiscaro/pg-mooncake/stats"
	"github.com/nbiscaro/pg-mooncake/table"
)

// Engine holds the process-wide collaborators every Table is built from:
// the catalog, the lake service, the cached filesystem, and the
// statistics cache (spec §5 "Shared-resource policy" — columnstore_stats
// is the one piece of process-wide mutable state).
type Engine struct {
	Catalog    catalog.Catalog
	Lake       lake.Service
	Cache      *cachedfs.FileSystem
	StatsCache *stats.Cache
	Config     config.Tunables
}

// New builds an Engine over remote, the object store backing every table's
// base_path, and cfg, the engine's tunables (spec §6).
func New(cat catalog.Catalog, lk lake.Service, remote objectstore.Store, cfg config.Tunables) *Engine {
	return &Engine{
		Catalog:    cat,
		Lake:       lk,
		Cache:      cachedfs.NewFileSystem(cfg, remote),
		StatsCache: stats.NewCache(),
		Config:     cfg,
	}
}

// Table resolves oid against the catalog and returns its Table Facade
// (spec §4.6).
func (e *Engine) Table(ctx context.Context, oid catalog.OID) (*table.Table, error) {
	return table.New(ctx, oid, e.Config, e.Catalog, e.Lake, e.Cache, e.StatsCache)
}
