package loader

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/micrictor/fwrules/internal/config"
)

// FromConfig builds the Source named by cfg.Source. The returned close
// function releases any connection the source holds.
func FromConfig(ctx context.Context, cfg config.RulesConfig) (Source, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Source {
	case "", "file":
		return File{Path: cfg.Path}, noop, nil
	case "yaml":
		return YAMLFile{Path: cfg.Path}, noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return Redis{Client: client, Key: cfg.Redis.Key}, client.Close, nil
	case "postgres":
		pg, err := OpenPostgres(ctx, cfg.Postgres.Dsn, cfg.Postgres.Table)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported rules source %q", cfg.Source)
	}
}
