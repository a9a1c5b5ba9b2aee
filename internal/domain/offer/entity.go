package offer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidSide        = errors.New("side must be bid or ask")
	ErrInvalidOwner       = errors.New("owner is required")
	ErrExpiryNotInFuture  = errors.New("expiry must be after creation time")
	ErrNotOwner           = errors.New("requester does not own offer")
	ErrNotOpen            = errors.New("offer is not open")
	ErrNotYetExpired      = errors.New("offer has not expired")
	ErrInvalidTransition  = errors.New("invalid offer status transition")
	ErrSameSide           = errors.New("offers are on the same side")
	ErrDifferentMarket    = errors.New("offers belong to different markets")
	ErrPaymentRefOnAskSet = errors.New("payment method reference only applies to bids")
)

type NewParams struct {
	Key              Key
	Side             Side
	OwnerID          uuid.UUID
	Price            int64
	ExpiresAt        time.Time
	Fees             FeeSchedule
	PaymentMethodRef string
}

type Offer struct {
	id               uuid.UUID
	key              Key
	side             Side
	ownerID          uuid.UUID
	price            Money
	status           Status
	fees             FeeSchedule
	paymentMethodRef string
	seq              uint64
	createdAt        time.Time
	expiresAt        time.Time
	updatedAt        time.Time
}

func NewOffer(p NewParams, now time.Time, seq uint64) (*Offer, error) {
	if !p.Side.IsValid() {
		return nil, ErrInvalidSide
	}
	if p.Key.ProductID == uuid.Nil || p.Key.SizeVariantID == uuid.Nil {
		return nil, ErrInvalidKey
	}
	if p.OwnerID == uuid.Nil {
		return nil, ErrInvalidOwner
	}
	price, err := NewPrice(p.Price)
	if err != nil {
		return nil, err
	}
	if !p.ExpiresAt.After(now) {
		return nil, ErrExpiryNotInFuture
	}
	if p.Side == SideAsk && p.PaymentMethodRef != "" {
		return nil, ErrPaymentRefOnAskSet
	}

	return &Offer{
		id:               uuid.New(),
		key:              p.Key,
		side:             p.Side,
		ownerID:          p.OwnerID,
		price:            price,
		status:           StatusOpen,
		fees:             p.Fees,
		paymentMethodRef: p.PaymentMethodRef,
		seq:              seq,
		createdAt:        now,
		expiresAt:        p.ExpiresAt,
		updatedAt:        now,
	}, nil
}

func ReconstructOffer(
	id uuid.UUID,
	key Key,
	side Side,
	ownerID uuid.UUID,
	price Money,
	status Status,
	fees FeeSchedule,
	paymentMethodRef string,
	seq uint64,
	createdAt, expiresAt, updatedAt time.Time,
) *Offer {
	return &Offer{
		id:               id,
		key:              key,
		side:             side,
		ownerID:          ownerID,
		price:            price,
		status:           status,
		fees:             fees,
		paymentMethodRef: paymentMethodRef,
		seq:              seq,
		createdAt:        createdAt,
		expiresAt:        expiresAt,
		updatedAt:        updatedAt,
	}
}

func (o *Offer) IsOpen() bool {
	return o.status == StatusOpen
}

// IsExpiredAt treats expiresAt itself as already expired.
func (o *Offer) IsExpiredAt(now time.Time) bool {
	return !o.expiresAt.After(now)
}

// Precedes reports time priority: earlier creation first, seq breaks ties.
func (o *Offer) Precedes(other *Offer) bool {
	if o.createdAt.Equal(other.createdAt) {
		return o.seq < other.seq
	}
	return o.createdAt.Before(other.createdAt)
}

// Crosses reports whether o and counter could trade: bid price >= ask price.
func (o *Offer) Crosses(counter *Offer) bool {
	if o.side == counter.side {
		return false
	}
	bid, ask := o, counter
	if o.side == SideAsk {
		bid, ask = counter, o
	}
	return ask.price.LessOrEqual(bid.price)
}

func (o *Offer) transition(next Status, now time.Time) error {
	if !o.status.CanTransitionTo(next) {
		if o.status != StatusOpen && next != StatusSettled {
			return ErrNotOpen
		}
		return ErrInvalidTransition
	}
	o.status = next
	o.updatedAt = now
	return nil
}

func (o *Offer) MarkMatched(now time.Time) error {
	return o.transition(StatusMatched, now)
}

func (o *Offer) MarkSettled(now time.Time) error {
	return o.transition(StatusSettled, now)
}

func (o *Offer) Cancel(requesterID uuid.UUID, now time.Time) error {
	if requesterID != o.ownerID {
		return ErrNotOwner
	}
	return o.transition(StatusCancelled, now)
}

func (o *Offer) Expire(now time.Time) error {
	if !o.IsOpen() {
		return ErrNotOpen
	}
	if !o.IsExpiredAt(now) {
		return ErrNotYetExpired
	}
	return o.transition(StatusExpired, now)
}

func (o *Offer) ID() uuid.UUID            { return o.id }
func (o *Offer) Key() Key                 { return o.key }
func (o *Offer) Side() Side               { return o.side }
func (o *Offer) OwnerID() uuid.UUID       { return o.ownerID }
func (o *Offer) Price() Money             { return o.price }
func (o *Offer) Status() Status           { return o.status }
func (o *Offer) Fees() FeeSchedule        { return o.fees }
func (o *Offer) PaymentMethodRef() string { return o.paymentMethodRef }
func (o *Offer) Seq() uint64              { return o.seq }
func (o *Offer) CreatedAt() time.Time     { return o.createdAt }
func (o *Offer) ExpiresAt() time.Time     { return o.expiresAt }
func (o *Offer) UpdatedAt() time.Time     { return o.updatedAt }

// Snapshot returns a detached copy safe to hand out after the key lock is
// released.
func (o *Offer) Snapshot() *Offer {
	cp := *o
	return &cp
}
