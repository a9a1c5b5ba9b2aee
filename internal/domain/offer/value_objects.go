package offer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNonPositivePrice = errors.New("price must be positive")
	ErrInvalidFeeRate   = errors.New("fee rate must be in [0, 1)")
	ErrInvalidKey       = errors.New("product and size variant are required")
)

// Key identifies one market: a product in one size.
type Key struct {
	ProductID     uuid.UUID
	SizeVariantID uuid.UUID
}

func NewKey(productID, sizeVariantID uuid.UUID) (Key, error) {
	if productID == uuid.Nil || sizeVariantID == uuid.Nil {
		return Key{}, ErrInvalidKey
	}
	return Key{ProductID: productID, SizeVariantID: sizeVariantID}, nil
}

func (k Key) String() string {
	return k.ProductID.String() + ":" + k.SizeVariantID.String()
}

// Money is an amount in currency minor units (satang).
type Money struct {
	minor int64
}

func NewPrice(minor int64) (Money, error) {
	if minor <= 0 {
		return Money{}, ErrNonPositivePrice
	}
	return Money{minor: minor}, nil
}

// NewAmount allows zero, for fees and derived totals.
func NewAmount(minor int64) Money {
	return Money{minor: minor}
}

func (m Money) Minor() int64 {
	return m.minor
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.minor)
}

func (m Money) Add(other Money) Money {
	return Money{minor: m.minor + other.minor}
}

func (m Money) Sub(other Money) Money {
	return Money{minor: m.minor - other.minor}
}

func (m Money) LessThan(other Money) bool {
	return m.minor < other.minor
}

func (m Money) LessOrEqual(other Money) bool {
	return m.minor <= other.minor
}

func (m Money) IsZero() bool {
	return m.minor == 0
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", m.minor/100, abs(m.minor%100))
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// FeeSchedule is captured on an offer at creation and never changes
// afterwards, whatever happens to the account's live schedule.
type FeeSchedule struct {
	sellerCommissionRate decimal.Decimal
	transactionFeeRate   decimal.Decimal
	buyerFeeRate         decimal.Decimal
}

func NewFeeSchedule(sellerCommission, transactionFee, buyerFee decimal.Decimal) (FeeSchedule, error) {
	for _, r := range []decimal.Decimal{sellerCommission, transactionFee, buyerFee} {
		if r.IsNegative() || r.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return FeeSchedule{}, ErrInvalidFeeRate
		}
	}
	if sellerCommission.Add(transactionFee).GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return FeeSchedule{}, ErrInvalidFeeRate
	}
	return FeeSchedule{
		sellerCommissionRate: sellerCommission,
		transactionFeeRate:   transactionFee,
		buyerFeeRate:         buyerFee,
	}, nil
}

func ParseFeeSchedule(sellerCommission, transactionFee, buyerFee string) (FeeSchedule, error) {
	sc, err := decimal.NewFromString(sellerCommission)
	if err != nil {
		return FeeSchedule{}, fmt.Errorf("seller commission rate: %w", err)
	}
	tf, err := decimal.NewFromString(transactionFee)
	if err != nil {
		return FeeSchedule{}, fmt.Errorf("transaction fee rate: %w", err)
	}
	bf, err := decimal.NewFromString(buyerFee)
	if err != nil {
		return FeeSchedule{}, fmt.Errorf("buyer fee rate: %w", err)
	}
	return NewFeeSchedule(sc, tf, bf)
}

func (f FeeSchedule) SellerCommissionRate() decimal.Decimal { return f.sellerCommissionRate }
func (f FeeSchedule) TransactionFeeRate() decimal.Decimal   { return f.transactionFeeRate }
func (f FeeSchedule) BuyerFeeRate() decimal.Decimal         { return f.buyerFeeRate }

func (f FeeSchedule) Equal(other FeeSchedule) bool {
	return f.sellerCommissionRate.Equal(other.sellerCommissionRate) &&
		f.transactionFeeRate.Equal(other.transactionFeeRate) &&
		f.buyerFeeRate.Equal(other.buyerFeeRate)
}
