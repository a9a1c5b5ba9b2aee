package repository

import (
	"context"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/infra/db"
	"kicks-exchange/internal/infra/repository/converter"
	"kicks-exchange/internal/usecase/shared"

	"github.com/google/uuid"
)

const transactionColumns = `id, idempotency_key, kind, product_id, size_variant_id, bid_id, ask_id,
	buyer_id, seller_id, matched_price, seller_commission, transaction_fee,
	buyer_fee, seller_earnings, payment_method_ref, shipping_status, created_at`

type TransactionRepository struct {
	db db.DBTX
}

func NewTransactionRepository(db db.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create relies on ON CONFLICT so a repeated idempotency key does not abort
// the surrounding database transaction.
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		converter.TransactionToArgs(t)...)
	if err != nil {
		return infra.WrapRepoErr("failed to create transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr(infra.KindDuplicateKey, "transaction already recorded")
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return r.findOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
}

func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	return r.findOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key = $1`, key)
}

func (r *TransactionRepository) findOne(ctx context.Context, sql string, arg any) (*transaction.Transaction, error) {
	var row converter.TransactionRow
	if err := r.db.QueryRow(ctx, sql, arg).Scan(row.ScanTargets()...); err != nil {
		return nil, infra.WrapRepoErr("failed to find transaction", err)
	}
	t, err := row.ToDomain()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to decode transaction", err)
	}
	return t, nil
}

func (r *TransactionRepository) RecentPrices(ctx context.Context, key offer.Key, limit int) ([]shared.PricePoint, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, matched_price, created_at FROM transactions
		WHERE product_id = $1 AND size_variant_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`,
		key.ProductID, key.SizeVariantID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load recent prices", err)
	}
	defer rows.Close()

	var out []shared.PricePoint
	for rows.Next() {
		var p shared.PricePoint
		if err := rows.Scan(&p.TransactionID, &p.Price, &p.CreatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan price", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate prices", err)
	}
	return out, nil
}
