package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/triage/internal/profile"
	"github.com/hrygo/triage/store"
)

// SQLite serves single-node deployments and local development. Writes are
// serialized through one connection.

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite file named by profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	// Ensure a DSN is set before attempting to open the database.
	if profile == nil || profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Each pragma must be prefixed with `_pragma=` for modernc.org/sqlite.
	// WAL avoids reader/writer locking; busy_timeout covers the rest.
	sqliteDB, err := sql.Open("sqlite", withPragmas(profile.DSN))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `CREATE TABLE IF NOT EXISTS routing_decision (
	id          TEXT PRIMARY KEY,
	action      TEXT NOT NULL,
	intent      TEXT NOT NULL DEFAULT '',
	confidence  REAL NOT NULL DEFAULT 0,
	cache_hit   INTEGER NOT NULL DEFAULT 0,
	latency_us  INTEGER NOT NULL DEFAULT 0,
	created_ts  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_routing_decision_created_ts ON routing_decision (created_ts);`

// Migrate creates the decision log table.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to create routing_decision table")
	}
	return nil
}
