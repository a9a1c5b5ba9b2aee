package response

import (
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type OfferResponse struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"productId"`
	SizeVariantID    uuid.UUID `json:"sizeVariantId"`
	Side             string    `json:"side"`
	OwnerID          uuid.UUID `json:"ownerId"`
	Price            int64     `json:"price"`
	Status           string    `json:"status"`
	PaymentMethodRef string    `json:"paymentMethodRef,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type TransactionResponse struct {
	ID               uuid.UUID  `json:"id"`
	Kind             string     `json:"kind"`
	ProductID        uuid.UUID  `json:"productId"`
	SizeVariantID    uuid.UUID  `json:"sizeVariantId"`
	BidID            *uuid.UUID `json:"bidId,omitempty"`
	AskID            *uuid.UUID `json:"askId,omitempty"`
	BuyerID          uuid.UUID  `json:"buyerId"`
	SellerID         uuid.UUID  `json:"sellerId"`
	MatchedPrice     int64      `json:"matchedPrice"`
	SellerCommission int64      `json:"sellerCommission"`
	TransactionFee   int64      `json:"transactionFee"`
	BuyerFee         int64      `json:"buyerFee"`
	SellerEarnings   int64      `json:"sellerEarnings"`
	BuyerTotal       int64      `json:"buyerTotal"`
	PaymentMethodRef string     `json:"paymentMethodRef,omitempty"`
	ShippingStatus   string     `json:"shippingStatus"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type SubmitOfferResponse struct {
	Offer       *OfferResponse       `json:"offer"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

type PriceSummaryResponse struct {
	ProductID      uuid.UUID `json:"productId"`
	SizeVariantID  uuid.UUID `json:"sizeVariantId"`
	HighestBid     *int64    `json:"highestBid"`
	LowestAsk      *int64    `json:"lowestAsk"`
	LastSalePrice  *int64    `json:"lastSalePrice"`
	SuggestedPrice *int64    `json:"suggestedPrice"`
	OpenBids       int       `json:"openBids"`
	OpenAsks       int       `json:"openAsks"`
	RecomputedAt   time.Time `json:"recomputedAt"`
}

func FromOfferView(v *queries.OfferView) *OfferResponse {
	var res OfferResponse
	_ = copier.Copy(&res, v)
	return &res
}

func FromOfferViews(vs []*queries.OfferView) []*OfferResponse {
	res := make([]*OfferResponse, len(vs))
	for i, v := range vs {
		res[i] = FromOfferView(v)
	}
	return res
}

func FromTransactionView(v *queries.TransactionView) *TransactionResponse {
	var res TransactionResponse
	_ = copier.Copy(&res, v)
	return &res
}

// FromOffer renders the offer for its owner.
func FromOffer(o *offer.Offer) *OfferResponse {
	return FromOfferView(queries.ToOwnerOfferView(o))
}

func FromTransaction(t *transaction.Transaction) *TransactionResponse {
	return FromTransactionView(queries.ToTransactionView(t))
}

func FromSubmitResult(o *offer.Offer, t *transaction.Transaction) *SubmitOfferResponse {
	res := &SubmitOfferResponse{Offer: FromOffer(o)}
	if t != nil {
		res.Transaction = FromTransaction(t)
	}
	return res
}

func FromPriceSummary(s *queries.PriceSummary) *PriceSummaryResponse {
	var res PriceSummaryResponse
	_ = copier.Copy(&res, s)
	return &res
}
