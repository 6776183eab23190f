package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/facevote/internal/config"
	"github.com/kozaktomas/facevote/internal/database/postgres"
)

// openDatabase connects to PostgreSQL and runs pending migrations. Callers
// must Close the returned pool.
func openDatabase(cfg *config.Config) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return pool, nil
}
