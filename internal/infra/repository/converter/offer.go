package converter

import (
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// OfferRow mirrors the offers table. Rates travel as text so no float
// conversion happens on the way in or out.
type OfferRow struct {
	ID                   uuid.UUID
	ProductID            uuid.UUID
	SizeVariantID        uuid.UUID
	Side                 string
	OwnerID              uuid.UUID
	Price                int64
	Status               string
	SellerCommissionRate string
	TransactionFeeRate   string
	BuyerFeeRate         string
	PaymentMethodRef     pgtype.Text
	Seq                  int64
	CreatedAt            time.Time
	ExpiresAt            time.Time
	UpdatedAt            time.Time
}

func (r *OfferRow) ScanTargets() []any {
	return []any{
		&r.ID, &r.ProductID, &r.SizeVariantID, &r.Side, &r.OwnerID, &r.Price, &r.Status,
		&r.SellerCommissionRate, &r.TransactionFeeRate, &r.BuyerFeeRate,
		&r.PaymentMethodRef, &r.Seq, &r.CreatedAt, &r.ExpiresAt, &r.UpdatedAt,
	}
}

func (r *OfferRow) ToDomain() (*offer.Offer, error) {
	price, err := offer.NewPrice(r.Price)
	if err != nil {
		return nil, err
	}
	fees, err := offer.ParseFeeSchedule(r.SellerCommissionRate, r.TransactionFeeRate, r.BuyerFeeRate)
	if err != nil {
		return nil, err
	}
	return offer.ReconstructOffer(
		r.ID,
		offer.Key{ProductID: r.ProductID, SizeVariantID: r.SizeVariantID},
		offer.Side(r.Side),
		r.OwnerID,
		price,
		offer.Status(r.Status),
		fees,
		pgconv.StringFromPgtype(r.PaymentMethodRef),
		pgconv.Int64ToUint64(r.Seq),
		r.CreatedAt,
		r.ExpiresAt,
		r.UpdatedAt,
	), nil
}

func OfferToArgs(o *offer.Offer) []any {
	fees := o.Fees()
	return []any{
		o.ID(),
		o.Key().ProductID,
		o.Key().SizeVariantID,
		o.Side().String(),
		o.OwnerID(),
		o.Price().Minor(),
		o.Status().String(),
		fees.SellerCommissionRate().String(),
		fees.TransactionFeeRate().String(),
		fees.BuyerFeeRate().String(),
		pgconv.OptionalText(o.PaymentMethodRef()),
		pgconv.Uint64ToInt64(o.Seq()),
		o.CreatedAt(),
		o.ExpiresAt(),
		o.UpdatedAt(),
	}
}

type TransactionRow struct {
	ID               uuid.UUID
	IdempotencyKey   string
	Kind             string
	ProductID        uuid.UUID
	SizeVariantID    uuid.UUID
	BidID            pgtype.UUID
	AskID            pgtype.UUID
	BuyerID          uuid.UUID
	SellerID         uuid.UUID
	MatchedPrice     int64
	SellerCommission int64
	TransactionFee   int64
	BuyerFee         int64
	SellerEarnings   int64
	PaymentMethodRef pgtype.Text
	ShippingStatus   string
	CreatedAt        time.Time
}

func (r *TransactionRow) ScanTargets() []any {
	return []any{
		&r.ID, &r.IdempotencyKey, &r.Kind, &r.ProductID, &r.SizeVariantID, &r.BidID, &r.AskID,
		&r.BuyerID, &r.SellerID, &r.MatchedPrice, &r.SellerCommission, &r.TransactionFee,
		&r.BuyerFee, &r.SellerEarnings, &r.PaymentMethodRef, &r.ShippingStatus, &r.CreatedAt,
	}
}

func (r *TransactionRow) ToDomain() (*transaction.Transaction, error) {
	price, err := offer.NewPrice(r.MatchedPrice)
	if err != nil {
		return nil, err
	}
	return transaction.ReconstructTransaction(
		r.ID,
		r.IdempotencyKey,
		transaction.Kind(r.Kind),
		offer.Key{ProductID: r.ProductID, SizeVariantID: r.SizeVariantID},
		pgconv.UUIDPtrFromPgtype(r.BidID),
		pgconv.UUIDPtrFromPgtype(r.AskID),
		r.BuyerID,
		r.SellerID,
		price,
		transaction.Fees{
			SellerCommission: offer.NewAmount(r.SellerCommission),
			TransactionFee:   offer.NewAmount(r.TransactionFee),
			BuyerFee:         offer.NewAmount(r.BuyerFee),
			SellerEarnings:   offer.NewAmount(r.SellerEarnings),
		},
		pgconv.StringFromPgtype(r.PaymentMethodRef),
		transaction.ShippingStatus(r.ShippingStatus),
		r.CreatedAt,
	), nil
}

func TransactionToArgs(t *transaction.Transaction) []any {
	return []any{
		t.ID(),
		t.IdempotencyKey(),
		string(t.Kind()),
		t.Key().ProductID,
		t.Key().SizeVariantID,
		pgconv.UUIDPtrToPgtype(t.BidID()),
		pgconv.UUIDPtrToPgtype(t.AskID()),
		t.BuyerID(),
		t.SellerID(),
		t.MatchedPrice().Minor(),
		t.SellerCommission().Minor(),
		t.TransactionFee().Minor(),
		t.BuyerFee().Minor(),
		t.SellerEarnings().Minor(),
		pgconv.OptionalText(t.PaymentMethodRef()),
		string(t.ShippingStatus()),
		t.CreatedAt(),
	}
}
