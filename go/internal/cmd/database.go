package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hardwood-league/commish/go/internal/dbconfig"
	"github.com/hardwood-league/commish/go/internal/storage/postgres"
)

func setupDatabase(ctx context.Context) (*postgres.Pool, dbconfig.Config, error) {
	cfg := dbconfig.NewConfigFromEnv()

	pool, err := postgres.NewPool(ctx, cfg.DSN())
	if err != nil {
		return nil, cfg, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")
	return pool, cfg, nil
}
