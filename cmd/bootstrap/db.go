package bootstrap

import (
	"context"
	"log/slog"

	"kicks-exchange/internal/infra/db"
	"kicks-exchange/internal/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var DBModule = fx.Module("db",
	fx.Provide(
		NewDB,
	),
)

// The pool outlives the engine: fx stops hooks in reverse order, so the
// sweeper and outbox relay finish their last writes before it closes.
func NewDB(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, cleanup, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logger.Info("database connected",
				"host", cfg.DB.Host, "database", cfg.DB.DBName, "max_conns", pool.Config().MaxConns)
			return nil
		},
		OnStop: func(_ context.Context) error {
			stat := pool.Stat()
			logger.Info("closing database pool",
				"acquired_conns", stat.AcquiredConns(), "total_conns", stat.TotalConns())
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
	})

	return pool, nil
}
