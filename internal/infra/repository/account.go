package repository

import (
	"context"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/infra/db"
	"kicks-exchange/internal/pkg/config"

	"github.com/google/uuid"
)

// AccountRepository resolves a user's fee schedule, falling back to the
// configured marketplace defaults when the user has no override.
type AccountRepository struct {
	db       db.DBTX
	defaults offer.FeeSchedule
}

func NewAccountRepository(db db.DBTX, cfg config.Config) (*AccountRepository, error) {
	defaults, err := offer.ParseFeeSchedule(cfg.Fees.SellerCommissionRate, cfg.Fees.TransactionFeeRate, cfg.Fees.BuyerFeeRate)
	if err != nil {
		return nil, err
	}
	return &AccountRepository{db: db, defaults: defaults}, nil
}

func (r *AccountRepository) GetFeeSchedule(ctx context.Context, userID uuid.UUID, role offer.Role) (offer.FeeSchedule, error) {
	var commission, txFee, buyerFee string
	err := r.db.QueryRow(ctx, `
		SELECT seller_commission_rate::text, transaction_fee_rate::text, buyer_fee_rate::text
		FROM fee_schedules
		WHERE user_id = $1 AND role = $2`,
		userID, string(role)).Scan(&commission, &txFee, &buyerFee)
	if err != nil {
		wrapped := infra.WrapRepoErr("failed to load fee schedule", err)
		if infra.IsKind(wrapped, infra.KindNotFound) {
			return r.defaults, nil
		}
		return offer.FeeSchedule{}, wrapped
	}

	fees, err := offer.ParseFeeSchedule(commission, txFee, buyerFee)
	if err != nil {
		return offer.FeeSchedule{}, infra.WrapRepoErr("invalid fee schedule row", err)
	}
	return fees, nil
}
