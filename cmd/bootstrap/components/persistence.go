package components

import (
	"kicks-exchange/internal/infra/db"
	"kicks-exchange/internal/infra/repository"
	"kicks-exchange/internal/infra/uow"
	"kicks-exchange/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewDBTX,
		uow.NewPostgresUoW,
		fx.Annotate(
			repository.NewCatalogRepository,
			fx.As(new(shared.ProductCatalog)),
		),
		fx.Annotate(
			repository.NewAccountRepository,
			fx.As(new(shared.AccountDirectory)),
		),
		fx.Annotate(
			repository.NewPaymentMethodRepository,
			fx.As(new(shared.PaymentMethods)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
