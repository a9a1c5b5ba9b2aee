package repository

import (
	"context"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/infra/db"
	"kicks-exchange/internal/infra/repository/converter"
	"kicks-exchange/internal/pkg/pgconv"

	"github.com/google/uuid"
)

const offerColumns = `id, product_id, size_variant_id, side, owner_id, price, status,
	seller_commission_rate::text, transaction_fee_rate::text, buyer_fee_rate::text,
	payment_method_ref, seq, created_at, expires_at, updated_at`

type OfferRepository struct {
	db db.DBTX
}

func NewOfferRepository(db db.DBTX) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) Create(ctx context.Context, o *offer.Offer) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO offers (id, product_id, size_variant_id, side, owner_id, price, status,
			seller_commission_rate, transaction_fee_rate, buyer_fee_rate,
			payment_method_ref, seq, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10::numeric, $11, $12, $13, $14, $15)`,
		converter.OfferToArgs(o)...)
	if err != nil {
		return infra.WrapRepoErr("failed to create offer", err)
	}
	return nil
}

func (r *OfferRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to offer.Status, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE offers SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`,
		id, from.String(), to.String(), at)
	if err != nil {
		return infra.WrapRepoErr("failed to update offer status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr(infra.KindStale, "offer is no longer "+from.String())
	}
	return nil
}

func (r *OfferRepository) FindByID(ctx context.Context, id uuid.UUID) (*offer.Offer, error) {
	var row converter.OfferRow
	err := r.db.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id).
		Scan(row.ScanTargets()...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find offer", err)
	}
	o, err := row.ToDomain()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to decode offer", err)
	}
	return o, nil
}

// ListOpen returns open offers in insertion order so books rebuild with the
// same time priority they had.
func (r *OfferRepository) ListOpen(ctx context.Context) ([]*offer.Offer, error) {
	rows, err := r.db.Query(ctx, `SELECT `+offerColumns+` FROM offers WHERE status = 'open' ORDER BY created_at, seq`)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list open offers", err)
	}
	defer rows.Close()

	var out []*offer.Offer
	for rows.Next() {
		var row converter.OfferRow
		if err := rows.Scan(row.ScanTargets()...); err != nil {
			return nil, infra.WrapRepoErr("failed to scan offer", err)
		}
		o, err := row.ToDomain()
		if err != nil {
			return nil, infra.WrapRepoErr("failed to decode offer", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate offers", err)
	}
	return out, nil
}

func (r *OfferRepository) MaxSeq(ctx context.Context) (uint64, error) {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM offers`).Scan(&seq); err != nil {
		return 0, infra.WrapRepoErr("failed to read offer sequence", err)
	}
	return pgconv.Int64ToUint64(seq), nil
}
