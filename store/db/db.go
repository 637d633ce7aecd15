package db

import (
	"github.com/pkg/errors"

	"github.com/averill/parlor/internal/profile"
	"github.com/averill/parlor/store"
	"github.com/averill/parlor/store/db/postgres"
	"github.com/averill/parlor/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported database driver %q", profile.Driver)
	}
}
