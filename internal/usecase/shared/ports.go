package shared

import (
	"context"

	"kicks-exchange/internal/domain/offer"

	"github.com/google/uuid"
)

// ProductCatalog confirms that a product/size pair is tradable.
type ProductCatalog interface {
	ValidateSizeVariant(ctx context.Context, key offer.Key) error
}

// AccountDirectory returns the fee schedule an account trades under in a
// given role.
type AccountDirectory interface {
	GetFeeSchedule(ctx context.Context, userID uuid.UUID, role offer.Role) (offer.FeeSchedule, error)
}

type PaymentMethods interface {
	Validate(ctx context.Context, userID uuid.UUID, ref string) error
}

// OutboxNotifier wakes the relay after events were committed.
type OutboxNotifier interface {
	Notify()
}
