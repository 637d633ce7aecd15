package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/averill/parlor/internal/profile"
	"github.com/averill/parlor/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at the DSN from the profile.
//
// Notes on the pragmas:
// - busy_timeout avoids immediate SQLITE_BUSY under concurrent requests.
// - WAL journal mode is the recommended mode for server workloads.
// - When using the `modernc.org/sqlite` driver, each pragma must be prefixed
//   with `_pragma=`.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// SQLite: a single connection is optimal with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}

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
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	creator_id INTEGER NOT NULL DEFAULT 0,
	use_case TEXT NOT NULL DEFAULT 'Default',
	messages TEXT NOT NULL DEFAULT '[]',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_creator_updated ON conversation (creator_id, updated_ts DESC);

CREATE TABLE IF NOT EXISTS support_thread (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	user_id INTEGER NOT NULL UNIQUE,
	agent_id INTEGER,
	events TEXT NOT NULL DEFAULT '[]',
	resolved INTEGER NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL
);
`

// Migrate creates the schema. Statements are idempotent so migration runs on
// every start.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate sqlite schema")
	}
	return nil
}
