package bootstrap

import (
	"context"
	"log/slog"

	"kicks-exchange/internal/infra/events"
	"kicks-exchange/internal/pkg/clock"
	"kicks-exchange/internal/pkg/config"
	"kicks-exchange/internal/usecase/shared"

	"go.uber.org/fx"
)

var EventsModule = fx.Module("events",
	fx.Provide(
		events.NewPublisher,
		NewRelay,
		func(r *events.Relay) shared.OutboxNotifier { return r },
	),
)

func NewRelay(lc fx.Lifecycle, uow shared.UnitOfWork, publisher events.Publisher, clk clock.Clock, logger *slog.Logger, cfg config.Config) *events.Relay {
	relay := events.NewRelay(uow, publisher, clk, logger, cfg)
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			relay.Start()
			return nil
		},
		OnStop: relay.Stop,
	})
	return relay
}
