// Package storage is the persistent key/value substrate every collection is
// written to. Values are opaque strings (serialized JSON collections); there
// are no transactions and no atomicity across keys.
package storage

import (
	"context"
	"errors"

	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
)

// Store is a synchronous string-keyed store. Get reports ok=false for an
// absent key. Every driver failure is returned as an error matching
// apperrors.ErrStorageUnavailable; writes are never dropped silently.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFS       Driver = "fs"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverRedis    Driver = "redis"
	DriverS3       Driver = "s3"
)

// Unavailable wraps a driver error so callers can test it with errors.Is.
// Errors that already carry the storage code pass through untouched.
func Unavailable(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrStorageUnavailable) {
		return err
	}
	return apperrors.NewStorageUnavailable(op+" "+key, err)
}
