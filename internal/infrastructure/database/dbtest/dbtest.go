// Package dbtest provisions the authorization server's client tables for
// repository tests. The production service never creates schema.
package dbtest

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

//go:embed migrations
var migrations embed.FS

// NetworkID is the network row seeded by the fixture schema
var NetworkID = uuid.MustParse("7b9a3f4e-0c1d-4e6a-9b2f-5d8c7e6a1b20")

// NewSQLite opens a migrated SQLite database in a temp dir. It is closed
// when the test ends.
func NewSQLite(t testing.TB) *database.SQLite {
	t.Helper()

	db, err := database.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "hydra.sqlite"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, MigrateSQLite(db))
	return db
}

// MigrateSQLite applies the fixture schema to an open SQLite database
func MigrateSQLite(db *database.SQLite) error {
	driver, err := sqlite.WithInstance(db.DB(), &sqlite.Config{})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrations, "migrations/sqlite")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}
	return up(instance)
}

// MigratePostgres applies the fixture schema to the database at dsn
func MigratePostgres(dsn string) error {
	src, err := iofs.New(migrations, "migrations/postgres")
	if err != nil {
		return err
	}

	_, rest, found := strings.Cut(dsn, "://")
	if !found {
		return fmt.Errorf("malformed postgres dsn")
	}

	instance, err := migrate.NewWithSourceInstance("iofs", src, "pgx5://"+rest)
	if err != nil {
		return err
	}
	defer instance.Close()
	return up(instance)
}

func up(instance *migrate.Migrate) error {
	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
