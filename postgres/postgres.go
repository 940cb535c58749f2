// Package postgres stores leads and bookings in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
	"github.com/nhatthm/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

//go:embed migrations
var migrations embed.FS

// pingBackoff is the wait after the first failed ping; it grows linearly.
const pingBackoff = 100 * time.Millisecond

type Config struct {
	User         string
	Password     string
	Host         string
	Name         string
	MaxIdleConns int
	MaxOpenConns int
	DisableTLS   bool
}

// DSN renders cfg as a postgres connection URL in UTC.
func (cfg Config) DSN() string {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	query.Set("timezone", "utc")

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: query.Encode(),
	}
	return dsn.String()
}

// Open returns a pool on the lib/pq driver with queries traced by otelsql.
// It does not contact the server; use StatusCheck for that.
func Open(cfg Config) (*sql.DB, error) {
	driver, err := otelsql.Register("postgres",
		otelsql.AllowRoot(),
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithDatabaseName(cfg.Name),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("registering traced driver: %w", err)
	}

	db, err := sql.Open(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := otelsql.RecordStats(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("recording db stats: %w", err)
	}

	return db, nil
}

// StatusCheck pings db until it answers or ctx is done, then runs a trivial
// query to force a round trip.
func StatusCheck(ctx context.Context, db *sql.DB) error {
	if err := retryPing(ctx, db.PingContext); err != nil {
		return err
	}

	var ok bool
	return db.QueryRowContext(ctx, `SELECT true`).Scan(&ok)
}

// retryPing calls ping with a growing pause between attempts. It returns as
// soon as ctx is done, wrapping the last ping error if there was one.
func retryPing(ctx context.Context, ping func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := ping(ctx)
		if err == nil {
			return nil
		}

		timer := time.NewTimer(time.Duration(attempt) * pingBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(err, ctx.Err()) {
				return err
			}
			return fmt.Errorf("%w: %v", ctx.Err(), err)
		case <-timer.C:
		}
	}
}

// Migrate applies the embedded migrations that db has not seen yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := StatusCheck(ctx, db); err != nil {
		return fmt.Errorf("db status check: %w", err)
	}

	source, err := httpfs.New(http.FS(migrations), "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	target, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("preparing migration target: %w", err)
	}

	m, err := migrate.NewWithInstance("httpfs", source, "postgres", target)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
