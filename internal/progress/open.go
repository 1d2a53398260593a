package progress

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/riddle-gift/internal/config"
)

// Open builds the store selected by PROGRESS_BACKEND.
func Open(ctx context.Context, cfg *config.App, logger zerolog.Logger) (Store, error) {
	log := logger.With().Str("component", "progress").Str("backend", cfg.Progress.Backend).Logger()

	var (
		store Store
		err   error
	)
	switch cfg.Progress.Backend {
	case config.BackendFile:
		store, err = NewFileStore(cfg.Progress.Dir)
	case config.BackendMemory:
		store = NewMemoryStore()
	case config.BackendRedis:
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("REDIS_ADDR must be configured for the redis backend")
		}
		store = NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}), cfg.Progress.TTL)
	case config.BackendPostgres:
		if cfg.Postgres.Host == "" || cfg.Postgres.Database == "" {
			return nil, fmt.Errorf("PG_HOST and PG_DATABASE must be configured for the postgres backend")
		}
		store, err = NewPostgresStore(ctx, cfg.Postgres.DSN())
	case config.BackendSQLite:
		store, err = NewSQLiteStore(cfg.SQLite.Path)
	case config.BackendSupabase:
		if cfg.Supabase.URL == "" || cfg.Supabase.Key == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_KEY must be configured for the supabase backend")
		}
		store, err = NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Table)
	default:
		return nil, fmt.Errorf("unknown progress backend %q", cfg.Progress.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("progress store not reachable yet")
	} else {
		log.Info().Msg("progress store ready")
	}
	return store, nil
}
