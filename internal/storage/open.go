package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jwalitptl/dental-admin/config"
	"github.com/jwalitptl/dental-admin/internal/storage/fs"
	"github.com/jwalitptl/dental-admin/internal/storage/memory"
	redisstore "github.com/jwalitptl/dental-admin/internal/storage/redis"
	s3store "github.com/jwalitptl/dental-admin/internal/storage/s3"
	"github.com/jwalitptl/dental-admin/internal/storage/sqldb"
	"github.com/jwalitptl/dental-admin/pkg/metrics"
)

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*fs.Store)(nil)
	_ Store = (*sqldb.Store)(nil)
	_ Store = (*redisstore.Store)(nil)
	_ Store = (*s3store.Store)(nil)
)

// Open builds the configured driver and stacks the decorators on top of it:
// breaker (network drivers) → cache → metrics → key prefix.
func Open(ctx context.Context, cfg config.StorageConfig, m *metrics.Metrics) (Store, error) {
	base, remote, err := openDriver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := base
	if remote && cfg.BreakerFailures > 0 {
		s = WithBreaker(s, cfg.Driver, cfg.BreakerFailures, cfg.BreakerTimeout)
	}
	s = WithCache(s, cfg.CacheTTL)
	s = WithMetrics(s, m)
	s = WithPrefix(s, cfg.KeyPrefix)
	return s, nil
}

func openDriver(ctx context.Context, cfg config.StorageConfig) (Store, bool, error) {
	switch Driver(cfg.Driver) {
	case DriverMemory:
		return memory.New(), false, nil
	case DriverFS:
		s, err := fs.New(cfg.Path)
		if err != nil {
			return nil, false, err
		}
		return s, false, nil
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
			if filepath.Ext(dsn) == "" {
				dsn = filepath.Join(dsn, "dental.db")
			}
		}
		s, err := sqldb.Open(ctx, sqldb.DriverSQLite, dsn)
		if err != nil {
			return nil, false, err
		}
		return s, false, nil
	case DriverPostgres:
		driver := cfg.SQLDriver
		if driver == "" {
			driver = sqldb.DriverPostgres
		}
		s, err := sqldb.Open(ctx, driver, cfg.DSN)
		if err != nil {
			return nil, true, err
		}
		return s, true, nil
	case DriverRedis:
		s, err := redisstore.New(ctx, redisstore.Config{URL: cfg.RedisURL})
		if err != nil {
			return nil, true, Unavailable("open", "redis", err)
		}
		return s, true, nil
	case DriverS3:
		s, err := s3store.New(ctx, s3store.Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, true, Unavailable("open", "s3", err)
		}
		return s, true, nil
	default:
		return nil, false, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
