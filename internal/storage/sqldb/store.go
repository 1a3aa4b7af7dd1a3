// Package sqldb stores each key as one row of a two-column table. It runs on
// sqlite (modernc), postgres (lib/pq) and postgres through pgx.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

const schema = `CREATE TABLE IF NOT EXISTS dental_kv (
	item_key   TEXT PRIMARY KEY,
	item_value TEXT NOT NULL
)`

type Store struct {
	db *sqlx.DB

	getQuery    string
	upsertQuery string
	deleteQuery string
}

// NewDB connects with the given database/sql driver name and creates the
// key/value table when it does not exist yet.
func NewDB(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = "dental.db"
		}
		if dir := filepath.Dir(dsn); dir != "." && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DriverPostgres, DriverPgx:
		if dsn == "" {
			return nil, fmt.Errorf("dsn required for %s driver", driver)
		}
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// a single connection keeps ":memory:" databases shared and serializes writers
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create dental_kv table: %w", err)
	}
	return db, nil
}

// Open connects and wraps the handle in a Store.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := NewDB(ctx, driver, dsn)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable("open "+driver, err)
	}
	return New(db), nil
}

func New(db *sqlx.DB) *Store {
	return &Store{
		db:          db,
		getQuery:    db.Rebind(`SELECT item_value FROM dental_kv WHERE item_key = ?`),
		upsertQuery: db.Rebind(`INSERT INTO dental_kv (item_key, item_value) VALUES (?, ?) ON CONFLICT (item_key) DO UPDATE SET item_value = excluded.item_value`),
		deleteQuery: db.Rebind(`DELETE FROM dental_kv WHERE item_key = ?`),
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.getQuery, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageUnavailable("get "+key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.upsertQuery, key, value); err != nil {
		return apperrors.NewStorageUnavailable("set "+key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, key); err != nil {
		return apperrors.NewStorageUnavailable("remove "+key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
