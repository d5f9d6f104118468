package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// ErrNoRows is returned by Row.Scan when the query selected nothing
var ErrNoRows = errors.New("no rows in result set")

// ErrUnsupportedDSN is returned for DSN schemes without a driver
var ErrUnsupportedDSN = errors.New("unsupported database DSN")

// Driver identifies a database backend
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Row is a single-row query result
type Row interface {
	Scan(dest ...any) error
}

// Rows is a multi-row query result
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// DB is the subset of a connection pool the repositories use. Queries use
// $n placeholders regardless of the backend.
type DB interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Ping(ctx context.Context) error
	Close() error
	Driver() Driver
}

// ParseDSN detects the backend of a DSN and returns the connection string
// the driver expects.
func ParseDSN(dsn string) (Driver, string, error) {
	scheme, rest, found := strings.Cut(dsn, ":")
	if !found {
		return "", "", fmt.Errorf("%w: missing scheme", ErrUnsupportedDSN)
	}

	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return DriverPostgres, dsn, nil
	case "cockroach", "cockroachdb", "crdb":
		return DriverPostgres, "postgres:" + rest, nil
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(rest, "//")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if path == "" {
			return "", "", fmt.Errorf("%w: empty sqlite path", ErrUnsupportedDSN)
		}
		if unescaped, err := url.PathUnescape(path); err == nil {
			path = unescaped
		}
		return DriverSQLite, path, nil
	default:
		return "", "", fmt.Errorf("%w: scheme %q", ErrUnsupportedDSN, scheme)
	}
}

// Open connects to the database named by dsn
func Open(ctx context.Context, dsn string, log *zap.Logger) (DB, error) {
	driver, conn, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverPostgres:
		return NewPostgres(ctx, conn, log)
	default:
		return NewSQLite(ctx, conn, log)
	}
}
