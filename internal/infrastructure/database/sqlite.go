package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var positionalParam = regexp.MustCompile(`\$(\d+)`)

// SQLite represents a SQLite database opened through database/sql
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLite opens the SQLite database file at path
func NewSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}
	// writers serialize on the file lock anyway
	db.SetMaxOpenConns(1)

	return &SQLite{db: db, log: log}, nil
}

// NewSQLiteFromDB wraps an already opened handle
func NewSQLiteFromDB(db *sql.DB, log *zap.Logger) *SQLite {
	return &SQLite{db: db, log: log}
}

func (s *SQLite) Driver() Driver { return DriverSQLite }

// DB returns the underlying handle
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Close() error { return s.db.Close() }

// Exec executes a query without returning any rows
func (s *SQLite) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, rebind(query), args...)
	if err != nil {
		s.log.Error("Exec error", zap.String("sql", query), zap.Error(err))
		return 0, err
	}
	return res.RowsAffected()
}

// Query executes a query that returns rows
func (s *SQLite) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

// QueryRow executes a query that is expected to return at most one row
func (s *SQLite) QueryRow(ctx context.Context, query string, args ...any) Row {
	return sqlRow{s.db.QueryRowContext(ctx, rebind(query), args...)}
}

// Ping verifies the database connection is still alive
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind turns $n placeholders into SQLite's numbered ?n form
func rebind(query string) string {
	return positionalParam.ReplaceAllString(query, "?$1")
}

type sqlRow struct {
	row *sql.Row
}

func (r sqlRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoRows
		}
		return err
	}
	return nil
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { _ = r.Rows.Close() }
