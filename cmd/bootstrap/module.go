package bootstrap

import (
	"kicks-exchange/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DBModule,
	JWTModule,
	components.PersistenceModule,
	EventsModule,
	components.UseCaseModule,
	components.HandlerModule,
)
