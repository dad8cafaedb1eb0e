package migrations

import (
	"database/sql"
	"embed"

	"github.com/nbiscaro/pg-mooncake/gologger"

	_ "github.com/jackc/pgx/v4/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed *.sql
var fs embed.FS

var (
	logger = gologger.NewLogger()

	src = migrate.EmbedFileSystemMigrationSource{
		FileSystem: fs,
		Root:       ".",
	}

	ms = migrate.MigrationSet{
		TableName: "mooncake_migrations",
	}
)

// RunMigrations applies every pending catalog schema migration and returns
// how many were applied.
func RunMigrations(dsn string) (int, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	n, err := ms.Exec(db, "postgres", src, migrate.Up)
	if err != nil {
		return 0, err
	}
	logger.Info().Int("applied", n).Msg("ran catalog migrations")
	return n, nil
}

// CheckMigrations reports an error if there are pending migrations not yet
// applied to dsn, used at startup to fail fast instead of running against a
// stale schema.
func CheckMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	plannedMigrations, _, err := ms.PlanMigration(db, "postgres", src, migrate.Up, 0)
	if err != nil {
		return err
	}
	if len(plannedMigrations) > 0 {
		logger.Warn().Int("pending", len(plannedMigrations)).Msg("catalog schema has pending migrations")
	}
	return nil
}
