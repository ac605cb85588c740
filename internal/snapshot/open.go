package snapshot

import (
	"context"
	"fmt"

	"github.com/hackgods/practice-records/internal/config"
	"github.com/hackgods/practice-records/internal/db"
	redisclient "github.com/hackgods/practice-records/internal/redis"
)

// Open builds the backend selected by cfg.SnapshotBackend. Connection
// failures are returned; the caller decides whether that is fatal.
func Open(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.SnapshotBackend {
	case config.BackendFile:
		return NewFileBackend(cfg.SnapshotPath), nil
	case config.BackendMemory:
		return NewMemoryBackend(), nil
	case config.BackendPostgres:
		pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: cfg.PostgresMaxConns})
		if err != nil {
			return nil, err
		}
		b, err := NewPostgresBackend(ctx, pool, cfg.SnapshotName)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return b, nil
	case config.BackendRedis:
		rdb, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		return NewRedisBackend(rdb, cfg.SnapshotName), nil
	case config.BackendS3:
		return NewS3Backend(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		}, cfg.SnapshotName)
	case config.BackendLevelDB:
		return OpenLevelDBBackend(cfg.LevelDBPath, cfg.SnapshotName)
	case config.BackendSQLite:
		return OpenSQLiteBackend(ctx, cfg.SQLitePath, cfg.SnapshotName)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}
