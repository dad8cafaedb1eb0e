package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nbiscaro/pg-mooncake/pgpool"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PostgresCatalog is the production Catalog, backed by the pool set up in
// pgpool.Connect. It hand-writes its SQL rather than reaching for a
// generated query layer, since the pack carries no sqlc-style tool for this
// stack.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

func (c *PostgresCatalog) TablesSearch(ctx context.Context, oid OID) (TableEntry, error) {
	var entry TableEntry
	row := c.pool.QueryRow(ctx, `SELECT oid, base_path, column_names, column_kinds FROM mooncake_tables WHERE oid = $1`, oid)
	if err := row.Scan(&entry.OID, &entry.BasePath, &entry.ColumnNames, &entry.ColumnKinds); err != nil {
		if err == pgx.ErrNoRows {
			return TableEntry{}, fmt.Errorf("table oid %d not found: %w", oid, err)
		}
		return TableEntry{}, err
	}
	return entry, nil
}

func (c *PostgresCatalog) DataFilesInsert(ctx context.Context, oid OID, fileName string, metadataBlob []byte, fileSize int64) error {
	return pgpool.ReliableExec(ctx, c.pool, pgpool.StandardContextTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		snapshot, err := c.ActiveSnapshot(ctx)
		if err != nil {
			return err
		}
		snapshotNum, err := parseSnapshot(snapshot)
		if err != nil {
			return err
		}
		_, err = conn.Exec(ctx, `
			INSERT INTO mooncake_data_files (oid, file_name, path, file_size, metadata_blob, snapshot)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (oid, file_name) DO NOTHING`,
			oid, fileName, fileName, fileSize, metadataBlob, snapshotNum)
		return err
	})
}

// DataFilesSearch compares snapshot numerically, not lexically: it is a
// Postgres txid, and a text comparison would misorder once the digit count
// changes (e.g. "9" > "10").
func (c *PostgresCatalog) DataFilesSearch(ctx context.Context, oid OID, snapshot Snapshot) ([]string, error) {
	snapshotNum, err := parseSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	rows, err := c.pool.Query(ctx, `
		SELECT file_name FROM mooncake_data_files
		WHERE oid = $1 AND snapshot <= $2
		ORDER BY created_at`, oid, snapshotNum)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func parseSnapshot(snapshot Snapshot) (int64, error) {
	n, err := strconv.ParseInt(string(snapshot), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("snapshot %q is not a valid txid: %w", snapshot, err)
	}
	return n, nil
}

func (c *PostgresCatalog) DataFileMetadata(ctx context.Context, oid OID, fileName string) ([]byte, error) {
	var blob []byte
	row := c.pool.QueryRow(ctx, `SELECT metadata_blob FROM mooncake_data_files WHERE oid = $1 AND file_name = $2`, oid, fileName)
	if err := row.Scan(&blob); err != nil {
		return nil, err
	}
	return blob, nil
}

// ActiveSnapshot uses the current wall-clock-ordered transaction id as the
// visibility token; Postgres already serializes commits of
// mooncake_data_files rows behind it.
func (c *PostgresCatalog) ActiveSnapshot(ctx context.Context) (Snapshot, error) {
	var xid string
	row := c.pool.QueryRow(ctx, `SELECT txid_current()::text`)
	if err := row.Scan(&xid); err != nil {
		return "", err
	}
	return Snapshot(xid), nil
}
