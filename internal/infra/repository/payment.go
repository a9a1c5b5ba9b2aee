package repository

import (
	"context"

	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/infra/db"
	"kicks-exchange/internal/pkg/errs"

	"github.com/google/uuid"
)

type PaymentMethodRepository struct {
	db db.DBTX
}

func NewPaymentMethodRepository(db db.DBTX) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

// Validate accepts only active references that belong to userID.
func (r *PaymentMethodRepository) Validate(ctx context.Context, userID uuid.UUID, ref string) error {
	var owner uuid.UUID
	var active bool
	err := r.db.QueryRow(ctx, `SELECT user_id, is_active FROM payment_methods WHERE ref = $1`, ref).
		Scan(&owner, &active)
	if err != nil {
		wrapped := infra.WrapRepoErr("failed to load payment method", err)
		if infra.IsKind(wrapped, infra.KindNotFound) {
			return errs.Mark(wrapped, errs.ErrInvalidPaymentMethod)
		}
		return wrapped
	}
	if owner != userID || !active {
		return errs.Mark(errs.New("payment method not usable by this account"), errs.ErrInvalidPaymentMethod)
	}
	return nil
}
