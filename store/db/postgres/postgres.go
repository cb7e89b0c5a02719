package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/triage/internal/profile"
	"github.com/hrygo/triage/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens and pings the PostgreSQL database named by profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil || profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqlDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}

	return &DB{db: sqlDB, profile: profile}, nil
}

// NewFromDB wraps an already opened database handle.
func NewFromDB(sqlDB *sql.DB) *DB {
	return &DB{db: sqlDB}
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
	confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
	cache_hit   BOOLEAN NOT NULL DEFAULT FALSE,
	latency_us  BIGINT NOT NULL DEFAULT 0,
	created_ts  BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_routing_decision_created_ts ON routing_decision (created_ts);`

// Migrate creates the decision log table.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create routing_decision table: %w", err)
	}
	return nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
