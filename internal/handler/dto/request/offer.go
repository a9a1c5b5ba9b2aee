package request

import (
	"errors"
	"slices"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/offerbook"
	"kicks-exchange/internal/pkg/patch"
	"kicks-exchange/internal/usecase/queries"
)

var (
	ErrExpiryChoice   = errors.New("expiresInDays is not an allowed choice")
	ErrExpiryConflict = errors.New("set either expiresInDays or expiresAt, not both")
	ErrPriceRange     = errors.New("min must not exceed max")
)

// SubmitOfferRequest places a bid or an ask. Expiry is either a number of
// days from now or an absolute time; neither means the default window.
type SubmitOfferRequest struct {
	Price            int64      `json:"price" binding:"required,gt=0"`
	ExpiresInDays    *int       `json:"expiresInDays" binding:"omitempty,gt=0"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	PaymentMethodRef string     `json:"paymentMethodRef" binding:"omitempty,max=128"`
}

func (r *SubmitOfferRequest) ResolveExpiry(now time.Time, defaultDays int, choices []int) (time.Time, error) {
	if r.ExpiresInDays != nil && r.ExpiresAt != nil {
		return time.Time{}, ErrExpiryConflict
	}
	if r.ExpiresAt != nil {
		return *r.ExpiresAt, nil
	}
	days := patch.Coalesce(r.ExpiresInDays, defaultDays)
	if len(choices) > 0 && !slices.Contains(choices, days) {
		return time.Time{}, ErrExpiryChoice
	}
	return now.AddDate(0, 0, days), nil
}

type AcceptOfferRequest struct {
	PaymentMethodRef string `json:"paymentMethodRef" binding:"omitempty,max=128"`
}

type BookQuery struct {
	Side  string `form:"side" binding:"required,oneof=bid ask"`
	Min   int64  `form:"min" binding:"omitempty,gte=0"`
	Max   int64  `form:"max" binding:"omitempty,gte=0"`
	Limit int    `form:"limit" binding:"omitempty,gt=0,lte=200"`
}

func (q *BookQuery) ToFilter() (queries.BookFilter, error) {
	if q.Min > 0 && q.Max > 0 && q.Min > q.Max {
		return queries.BookFilter{}, ErrPriceRange
	}
	return queries.BookFilter{
		Side:  offer.Side(q.Side),
		Range: offerbook.PriceRange{Min: q.Min, Max: q.Max},
		Limit: q.Limit,
	}, nil
}
