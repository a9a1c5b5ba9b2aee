package shared

import (
	"encoding/json"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/transaction"

	"github.com/google/uuid"
)

type EventType string

const (
	EventOfferSettled   EventType = "offer.settled"
	EventOfferExpired   EventType = "offer.expired"
	EventOfferCancelled EventType = "offer.cancelled"
)

// Event is the envelope written to the outbox. ID doubles as the consumer
// dedupe key.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        EventType       `json:"type"`
	Key         string          `json:"key"`
	AggregateID uuid.UUID       `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload"`
}

type OutboxRecord struct {
	Event
	Attempts int
}

type SettledPayload struct {
	TransactionID    uuid.UUID  `json:"transactionId"`
	Kind             string     `json:"kind"`
	ProductID        uuid.UUID  `json:"productId"`
	SizeVariantID    uuid.UUID  `json:"sizeVariantId"`
	BidID            *uuid.UUID `json:"bidId"`
	AskID            *uuid.UUID `json:"askId"`
	BuyerID          uuid.UUID  `json:"buyerId"`
	SellerID         uuid.UUID  `json:"sellerId"`
	MatchedPrice     int64      `json:"matchedPrice"`
	SellerCommission int64      `json:"sellerCommission"`
	TransactionFee   int64      `json:"transactionFee"`
	BuyerFee         int64      `json:"buyerFee"`
	SellerEarnings   int64      `json:"sellerEarnings"`
	PaymentMethodRef string     `json:"paymentMethodRef,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type OfferPayload struct {
	OfferID       uuid.UUID `json:"offerId"`
	ProductID     uuid.UUID `json:"productId"`
	SizeVariantID uuid.UUID `json:"sizeVariantId"`
	Side          string    `json:"side"`
	OwnerID       uuid.UUID `json:"ownerId"`
	Price         int64     `json:"price"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

func NewSettledEvent(t *transaction.Transaction) (Event, error) {
	payload, err := json.Marshal(SettledPayload{
		TransactionID:    t.ID(),
		Kind:             string(t.Kind()),
		ProductID:        t.Key().ProductID,
		SizeVariantID:    t.Key().SizeVariantID,
		BidID:            t.BidID(),
		AskID:            t.AskID(),
		BuyerID:          t.BuyerID(),
		SellerID:         t.SellerID(),
		MatchedPrice:     t.MatchedPrice().Minor(),
		SellerCommission: t.SellerCommission().Minor(),
		TransactionFee:   t.TransactionFee().Minor(),
		BuyerFee:         t.BuyerFee().Minor(),
		SellerEarnings:   t.SellerEarnings().Minor(),
		PaymentMethodRef: t.PaymentMethodRef(),
		CreatedAt:        t.CreatedAt(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          t.ID(),
		Type:        EventOfferSettled,
		Key:         t.Key().String(),
		AggregateID: t.ID(),
		OccurredAt:  t.CreatedAt(),
		Payload:     payload,
	}, nil
}

// NewOfferEvent builds an expired or cancelled event. The id is derived from
// the offer id and type so a replayed write cannot create a second event.
func NewOfferEvent(typ EventType, o *offer.Offer) (Event, error) {
	payload, err := json.Marshal(OfferPayload{
		OfferID:       o.ID(),
		ProductID:     o.Key().ProductID,
		SizeVariantID: o.Key().SizeVariantID,
		Side:          o.Side().String(),
		OwnerID:       o.OwnerID(),
		Price:         o.Price().Minor(),
		Status:        o.Status().String(),
		ExpiresAt:     o.ExpiresAt(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          uuid.NewSHA1(o.ID(), []byte(typ)),
		Type:        typ,
		Key:         o.Key().String(),
		AggregateID: o.ID(),
		OccurredAt:  o.UpdatedAt(),
		Payload:     payload,
	}, nil
}
