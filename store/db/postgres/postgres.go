package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/averill/parlor/internal/profile"
	"github.com/averill/parlor/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection pool using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	if err := postgresDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	driver := DB{db: postgresDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS conversation (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	creator_id INTEGER NOT NULL DEFAULT 0,
	use_case TEXT NOT NULL DEFAULT 'Default',
	messages JSONB NOT NULL DEFAULT '[]',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_creator_updated ON conversation (creator_id, updated_ts DESC);

CREATE TABLE IF NOT EXISTS support_thread (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	user_id INTEGER NOT NULL UNIQUE,
	agent_id INTEGER,
	events JSONB NOT NULL DEFAULT '[]',
	resolved BOOLEAN NOT NULL DEFAULT FALSE,
	created_ts BIGINT NOT NULL
);
`

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate postgres schema")
	}
	return nil
}

// placeholder returns the positional parameter for the given 1-based index.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
