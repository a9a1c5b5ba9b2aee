package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"kicks-exchange/internal/domain/offer"

	"github.com/google/uuid"
)

var (
	ErrMissingCounterparty = errors.New("both buyer and seller are required")
	ErrNoRestingOffer      = errors.New("a transaction needs at least one resting offer")
	ErrPriceNotCrossed     = errors.New("ask price exceeds bid price")
)

type ShippingStatus string

const (
	ShippingPending ShippingStatus = "pending"
)

// Kind records how the match came about.
type Kind string

const (
	KindMatch   Kind = "match"
	KindBuyNow  Kind = "buy_now"
	KindSellNow Kind = "sell_now"
)

// transactionNamespace seeds the UUIDv5 ids derived from idempotency keys.
var transactionNamespace = uuid.MustParse("6f1c1f2e-6a43-4d0b-9a55-1c0b1e0f7a10")

// Party is one side of a trade. OfferID is nil when the side acted through
// buy-now/sell-now and never had a resting offer.
type Party struct {
	UserID  uuid.UUID
	OfferID *uuid.UUID
	Fees    offer.FeeSchedule
}

type MatchParams struct {
	Key              offer.Key
	Kind             Kind
	Buyer            Party
	Seller           Party
	Price            offer.Money
	PaymentMethodRef string
}

type Transaction struct {
	id               uuid.UUID
	idempotencyKey   string
	kind             Kind
	key              offer.Key
	bidID            *uuid.UUID
	askID            *uuid.UUID
	buyerID          uuid.UUID
	sellerID         uuid.UUID
	matchedPrice     offer.Money
	fees             Fees
	paymentMethodRef string
	shippingStatus   ShippingStatus
	createdAt        time.Time
}

func NewTransaction(p MatchParams, calc FeeCalculator, now time.Time) (*Transaction, error) {
	if p.Buyer.UserID == uuid.Nil || p.Seller.UserID == uuid.Nil {
		return nil, ErrMissingCounterparty
	}
	if p.Buyer.OfferID == nil && p.Seller.OfferID == nil {
		return nil, ErrNoRestingOffer
	}
	if p.Price.Minor() <= 0 {
		return nil, offer.ErrNonPositivePrice
	}

	key := IdempotencyKey(p.Buyer, p.Seller)
	return &Transaction{
		id:               IDFromIdempotencyKey(key),
		idempotencyKey:   key,
		kind:             p.Kind,
		key:              p.Key,
		bidID:            p.Buyer.OfferID,
		askID:            p.Seller.OfferID,
		buyerID:          p.Buyer.UserID,
		sellerID:         p.Seller.UserID,
		matchedPrice:     p.Price,
		fees:             calc.Calculate(p.Price, p.Seller.Fees, p.Buyer.Fees),
		paymentMethodRef: p.PaymentMethodRef,
		shippingStatus:   ShippingPending,
		createdAt:        now,
	}, nil
}

// IdempotencyKey is derived from the matched pair only, so every retry of
// the same match produces the same key.
func IdempotencyKey(buyer, seller Party) string {
	h := sha256.New()
	h.Write([]byte(partyToken("bid", buyer)))
	h.Write([]byte{'|'})
	h.Write([]byte(partyToken("ask", seller)))
	return hex.EncodeToString(h.Sum(nil))
}

func partyToken(side string, p Party) string {
	if p.OfferID != nil {
		return side + ":" + p.OfferID.String()
	}
	return side + ":user:" + p.UserID.String()
}

func IDFromIdempotencyKey(key string) uuid.UUID {
	return uuid.NewSHA1(transactionNamespace, []byte(key))
}

func ReconstructTransaction(
	id uuid.UUID,
	idempotencyKey string,
	kind Kind,
	key offer.Key,
	bidID, askID *uuid.UUID,
	buyerID, sellerID uuid.UUID,
	matchedPrice offer.Money,
	fees Fees,
	paymentMethodRef string,
	shippingStatus ShippingStatus,
	createdAt time.Time,
) *Transaction {
	return &Transaction{
		id:               id,
		idempotencyKey:   idempotencyKey,
		kind:             kind,
		key:              key,
		bidID:            bidID,
		askID:            askID,
		buyerID:          buyerID,
		sellerID:         sellerID,
		matchedPrice:     matchedPrice,
		fees:             fees,
		paymentMethodRef: paymentMethodRef,
		shippingStatus:   shippingStatus,
		createdAt:        createdAt,
	}
}

func (t *Transaction) ID() uuid.UUID                  { return t.id }
func (t *Transaction) IdempotencyKey() string         { return t.idempotencyKey }
func (t *Transaction) Kind() Kind                     { return t.kind }
func (t *Transaction) Key() offer.Key                 { return t.key }
func (t *Transaction) BidID() *uuid.UUID              { return t.bidID }
func (t *Transaction) AskID() *uuid.UUID              { return t.askID }
func (t *Transaction) BuyerID() uuid.UUID             { return t.buyerID }
func (t *Transaction) SellerID() uuid.UUID            { return t.sellerID }
func (t *Transaction) MatchedPrice() offer.Money      { return t.matchedPrice }
func (t *Transaction) Fees() Fees                     { return t.fees }
func (t *Transaction) SellerCommission() offer.Money  { return t.fees.SellerCommission }
func (t *Transaction) TransactionFee() offer.Money    { return t.fees.TransactionFee }
func (t *Transaction) BuyerFee() offer.Money          { return t.fees.BuyerFee }
func (t *Transaction) SellerEarnings() offer.Money    { return t.fees.SellerEarnings }
func (t *Transaction) BuyerTotal() offer.Money        { return t.matchedPrice.Add(t.fees.BuyerFee) }
func (t *Transaction) PaymentMethodRef() string       { return t.paymentMethodRef }
func (t *Transaction) ShippingStatus() ShippingStatus { return t.shippingStatus }
func (t *Transaction) CreatedAt() time.Time           { return t.createdAt }

// References reports whether the transaction settled the given offer.
func (t *Transaction) References(offerID uuid.UUID) bool {
	return (t.bidID != nil && *t.bidID == offerID) || (t.askID != nil && *t.askID == offerID)
}
