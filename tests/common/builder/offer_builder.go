//go:build unit || e2e

package builder

import (
	"time"

	"kicks-exchange/internal/domain/offer"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	DefaultProductID     = uuid.MustParse("0b8c8b0e-4f53-4a5f-9a0e-3c2b7d1e9a01")
	DefaultSizeVariantID = uuid.MustParse("5d2a1c3b-7e64-4b89-8f10-2a9c6e4d8b02")
	BaseTime             = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
)

func DefaultKey() offer.Key {
	return offer.Key{ProductID: DefaultProductID, SizeVariantID: DefaultSizeVariantID}
}

func DefaultFees() offer.FeeSchedule {
	f, err := offer.NewFeeSchedule(decimal.RequireFromString("0.04"), decimal.RequireFromString("0.03"), decimal.Zero)
	if err != nil {
		panic(err)
	}
	return f
}

type OfferBuilder struct {
	Key              offer.Key
	Side             offer.Side
	OwnerID          uuid.UUID
	Price            int64
	Fees             offer.FeeSchedule
	PaymentMethodRef string
	Seq              uint64
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

func NewOfferBuilder() *OfferBuilder {
	return &OfferBuilder{
		Key:       DefaultKey(),
		Side:      offer.SideBid,
		OwnerID:   uuid.New(),
		Price:     1_000_000,
		Fees:      DefaultFees(),
		Seq:       1,
		CreatedAt: BaseTime,
		ExpiresAt: BaseTime.Add(30 * 24 * time.Hour),
	}
}

func (b *OfferBuilder) With(mutate func(*OfferBuilder)) *OfferBuilder {
	mutate(b)
	return b
}

func (b *OfferBuilder) BuildDomain() (*offer.Offer, error) {
	return offer.NewOffer(b.BuildParams(), b.CreatedAt, b.Seq)
}

// MustBuild is for tests that only need a valid offer.
func (b *OfferBuilder) MustBuild() *offer.Offer {
	o, err := b.BuildDomain()
	if err != nil {
		panic(err)
	}
	return o
}

func (b *OfferBuilder) BuildParams() offer.NewParams {
	return offer.NewParams{
		Key:              b.Key,
		Side:             b.Side,
		OwnerID:          b.OwnerID,
		Price:            b.Price,
		ExpiresAt:        b.ExpiresAt,
		Fees:             b.Fees,
		PaymentMethodRef: b.PaymentMethodRef,
	}
}

func (b *OfferBuilder) AsBid() *OfferBuilder {
	b.Side = offer.SideBid
	return b
}

func (b *OfferBuilder) AsAsk() *OfferBuilder {
	b.Side = offer.SideAsk
	b.PaymentMethodRef = ""
	return b
}

func (b *OfferBuilder) WithKey(key offer.Key) *OfferBuilder {
	b.Key = key
	return b
}

func (b *OfferBuilder) WithOwner(ownerID uuid.UUID) *OfferBuilder {
	b.OwnerID = ownerID
	return b
}

func (b *OfferBuilder) WithPrice(price int64) *OfferBuilder {
	b.Price = price
	return b
}

func (b *OfferBuilder) WithFees(fees offer.FeeSchedule) *OfferBuilder {
	b.Fees = fees
	return b
}

func (b *OfferBuilder) WithPaymentMethodRef(ref string) *OfferBuilder {
	b.PaymentMethodRef = ref
	return b
}

func (b *OfferBuilder) WithSeq(seq uint64) *OfferBuilder {
	b.Seq = seq
	return b
}

func (b *OfferBuilder) WithCreatedAt(t time.Time) *OfferBuilder {
	b.CreatedAt = t
	return b
}

func (b *OfferBuilder) WithExpiresAt(t time.Time) *OfferBuilder {
	b.ExpiresAt = t
	return b
}
