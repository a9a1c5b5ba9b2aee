package transaction

import (
	"kicks-exchange/internal/domain/offer"

	"github.com/shopspring/decimal"
)

type Fees struct {
	SellerCommission offer.Money
	TransactionFee   offer.Money
	BuyerFee         offer.Money
	SellerEarnings   offer.Money
}

// FeeCalculator turns a matched price and the two parties' captured
// schedules into the fee breakdown stored on a Transaction.
type FeeCalculator interface {
	Calculate(price offer.Money, sellerFees, buyerFees offer.FeeSchedule) Fees
}

// DefaultFeeCalculator charges commission and transaction fee to the seller
// and the buyer fee on top of the price:
//
//	sellerEarnings = price - price*commission - price*transactionFee
type DefaultFeeCalculator struct{}

func NewDefaultFeeCalculator() *DefaultFeeCalculator {
	return &DefaultFeeCalculator{}
}

func (DefaultFeeCalculator) Calculate(price offer.Money, sellerFees, buyerFees offer.FeeSchedule) Fees {
	commission := applyRate(price, sellerFees.SellerCommissionRate())
	txFee := applyRate(price, sellerFees.TransactionFeeRate())
	buyerFee := applyRate(price, buyerFees.BuyerFeeRate())

	return Fees{
		SellerCommission: commission,
		TransactionFee:   txFee,
		BuyerFee:         buyerFee,
		SellerEarnings:   price.Sub(commission).Sub(txFee),
	}
}

// applyRate rounds half away from zero to whole minor units.
func applyRate(price offer.Money, rate decimal.Decimal) offer.Money {
	return offer.NewAmount(price.Decimal().Mul(rate).Round(0).IntPart())
}
