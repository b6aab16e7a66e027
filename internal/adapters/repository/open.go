package repository

import (
	"context"
	"fmt"

	"github.com/okian/cpboard/internal/config"
)

// Open builds the Repository selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Repository, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewTreapStore(), nil
	case "file":
		return NewFileStore(cfg.Dir)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN,
			WithTable(cfg.Table),
			WithMaxConns(cfg.MaxConns),
			WithConnectTimeout(cfg.ConnectTimeout),
		)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
