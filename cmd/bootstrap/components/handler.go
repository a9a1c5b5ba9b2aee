package components

import (
	"kicks-exchange/internal/handler"
	"kicks-exchange/internal/handler/api"
	"kicks-exchange/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewMarketHandler,
		api.NewOfferHandler,
		api.NewTransactionHandler,
		handler.NewHandlers,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
