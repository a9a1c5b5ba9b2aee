package components

import (
	"context"

	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/pkg/clock"
	"kicks-exchange/internal/pkg/config"
	"kicks-exchange/internal/usecase"
	"kicks-exchange/internal/usecase/commands"
	"kicks-exchange/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseValidatorsModule,
	usecaseCommandsModule,
	fx.Invoke(registerEngineLifecycle),
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	fx.Annotate(
		transaction.NewDefaultFeeCalculator,
		fx.As(new(transaction.FeeCalculator)),
	),
	commands.NewMarkets,
	func(m *commands.Markets) queries.TopReader { return m },
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewSettlementProcessor,
		commands.NewEngine,
		func(e *commands.Engine) commands.OfferCommands { return e },
		func(e *commands.Engine) queries.BookReader { return e },
		commands.NewSweeper,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewPricingOracle,
		func(o *queries.PricingOracle) queries.PricingQueries { return o },
		func(o *queries.PricingOracle) commands.PriceObserver { return o },
		queries.NewOfferQueries,
	),
)

var usecaseValidatorsModule = fx.Module("usecase/validators",
	fx.Provide(
		usecase.NewTokenValidator,
	),
)

// Books are rebuilt before the HTTP server starts; the sweeper stops before
// the pool closes.
func registerEngineLifecycle(lc fx.Lifecycle, engine *commands.Engine, sweeper *commands.Sweeper, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Engine.RestoreOnStart {
				if err := engine.Restore(ctx); err != nil {
					return err
				}
			}
			sweeper.Start()
			return nil
		},
		OnStop: sweeper.Stop,
	})
}
