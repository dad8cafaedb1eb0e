// Package pgpool owns the Postgres connection pool the catalog's
// Postgres-backed implementation runs on, following the teacher's
// crdb.ConnectToDB wiring.
package pgpool

import (
	"context"
	"errors"
	"time"

	"github.com/nbiscaro/pg-mooncake/gologger"
	"github.com/nbiscaro/pg-mooncake/utils"

	backoff "github.com/UltimateTournament/backoff/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var (
	Pool *pgxpool.Pool

	StandardContextTimeout = 10 * time.Second

	logger = gologger.NewLogger()
)

func Connect(dsn string) error {
	logger.Debug().Msg("connecting to the catalog database...")
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return err
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.HealthCheckPeriod = time.Second * 5
	config.MaxConnLifetime = time.Minute * 30
	config.MaxConnIdleTime = time.Minute * 30

	Pool, err = pgxpool.ConnectConfig(context.Background(), config)
	if err != nil {
		return err
	}
	logger.Debug().Msg("connected to the catalog database")
	return nil
}

func ConnectFromEnv() error {
	return Connect(utils.PG_DSN)
}

// permanentError is satisfied by utils.PermError; acquisition failures that
// report themselves as permanent skip the remaining backoff attempts
// instead of burning the retry budget on a connection string that will
// never succeed.
type permanentError interface {
	IsPermanent() bool
}

// ErrPoolNotConnected is permanent: calling ReliableExec before Connect (or
// ConnectFromEnv) succeeded can never be fixed by retrying the acquire.
var ErrPoolNotConnected = utils.PermError("pgpool: connection pool is not connected")

// ReliableExec acquires a pooled connection with exponential-backoff
// retries and runs fn against it. This retries transient connection
// *acquisition* only — never the business operation inside fn, which would
// violate spec §7's "the engine never silently retries" for DML. It mirrors
// the connection-acquisition role the teacher's http handlers delegate to a
// (not-included) ReliableExec helper, built here against the
// UltimateTournament/backoff package the teacher already depends on.
func ReliableExec(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, fn func(ctx context.Context, conn *pgxpool.Conn) error) error {
	if pool == nil {
		return ErrPoolNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)

	var conn *pgxpool.Conn
	err := backoff.Retry(func() error {
		var acquireErr error
		conn, acquireErr = pool.Acquire(ctx)
		if acquireErr == nil {
			return nil
		}

		var perm permanentError
		if errors.As(acquireErr, &perm) && perm.IsPermanent() {
			return backoff.Permanent(acquireErr)
		}
		return acquireErr
	}, backoff.WithMaxRetries(b, 3))
	if err != nil {
		return err
	}
	defer conn.Release()

	return fn(ctx, conn)
}
