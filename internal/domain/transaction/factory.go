package transaction

import (
	"errors"
	"time"

	"kicks-exchange/internal/domain/offer"

	"github.com/google/uuid"
)

var ErrSelfTrade = errors.New("buyer and seller are the same user")

// NewMatch builds the transaction for a crossed bid/ask pair. The trade
// happens at the maker's price: the side that was already resting.
func NewMatch(bid, ask *offer.Offer, maker offer.Side, calc FeeCalculator, now time.Time) (*Transaction, error) {
	if bid.Side() != offer.SideBid || ask.Side() != offer.SideAsk {
		return nil, offer.ErrSameSide
	}
	if bid.Key() != ask.Key() {
		return nil, offer.ErrDifferentMarket
	}
	if bid.OwnerID() == ask.OwnerID() {
		return nil, ErrSelfTrade
	}
	if !bid.Crosses(ask) {
		return nil, ErrPriceNotCrossed
	}

	price := bid.Price()
	if maker == offer.SideAsk {
		price = ask.Price()
	}

	bidID, askID := bid.ID(), ask.ID()
	return NewTransaction(MatchParams{
		Key:              bid.Key(),
		Kind:             KindMatch,
		Buyer:            Party{UserID: bid.OwnerID(), OfferID: &bidID, Fees: bid.Fees()},
		Seller:           Party{UserID: ask.OwnerID(), OfferID: &askID, Fees: ask.Fees()},
		Price:            price,
		PaymentMethodRef: bid.PaymentMethodRef(),
	}, calc, now)
}

// NewBuyNow accepts a resting ask at its listed price.
func NewBuyNow(ask *offer.Offer, buyerID uuid.UUID, buyerFees offer.FeeSchedule, paymentMethodRef string, calc FeeCalculator, now time.Time) (*Transaction, error) {
	if ask.Side() != offer.SideAsk {
		return nil, offer.ErrInvalidSide
	}
	if ask.OwnerID() == buyerID {
		return nil, ErrSelfTrade
	}
	askID := ask.ID()
	return NewTransaction(MatchParams{
		Key:              ask.Key(),
		Kind:             KindBuyNow,
		Buyer:            Party{UserID: buyerID, Fees: buyerFees},
		Seller:           Party{UserID: ask.OwnerID(), OfferID: &askID, Fees: ask.Fees()},
		Price:            ask.Price(),
		PaymentMethodRef: paymentMethodRef,
	}, calc, now)
}

// NewSellNow accepts a resting bid at its price.
func NewSellNow(bid *offer.Offer, sellerID uuid.UUID, sellerFees offer.FeeSchedule, calc FeeCalculator, now time.Time) (*Transaction, error) {
	if bid.Side() != offer.SideBid {
		return nil, offer.ErrInvalidSide
	}
	if bid.OwnerID() == sellerID {
		return nil, ErrSelfTrade
	}
	bidID := bid.ID()
	return NewTransaction(MatchParams{
		Key:              bid.Key(),
		Kind:             KindSellNow,
		Buyer:            Party{UserID: bid.OwnerID(), OfferID: &bidID, Fees: bid.Fees()},
		Seller:           Party{UserID: sellerID, Fees: sellerFees},
		Price:            bid.Price(),
		PaymentMethodRef: bid.PaymentMethodRef(),
	}, calc, now)
}
