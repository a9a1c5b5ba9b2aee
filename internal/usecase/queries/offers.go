package queries

import (
	"context"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/offerbook"
	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/pkg/errs"
	"kicks-exchange/internal/usecase/shared"

	"github.com/google/uuid"
)

type OfferView struct {
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

type TransactionView struct {
	ID               uuid.UUID  `json:"id"`
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
	BuyerTotal       int64      `json:"buyerTotal"`
	PaymentMethodRef string     `json:"paymentMethodRef,omitempty"`
	ShippingStatus   string     `json:"shippingStatus"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// BookReader lists one side of a live book.
type BookReader interface {
	ListBook(key offer.Key, side offer.Side, r offerbook.PriceRange) []*offer.Offer
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type BookFilter struct {
	Side  offer.Side
	Range offerbook.PriceRange
	// Limit caps the result; zero means DefaultListLimit.
	Limit int
}

type OfferQueries interface {
	// GetOffer includes the payment reference only when viewerID owns the
	// offer. uuid.Nil is an anonymous viewer.
	GetOffer(ctx context.Context, id, viewerID uuid.UUID) (*OfferView, error)
	GetTransaction(ctx context.Context, id, viewerID uuid.UUID) (*TransactionView, error)
	ListBook(ctx context.Context, key offer.Key, filter BookFilter) ([]*OfferView, error)
}

type offerQueriesImpl struct {
	uow     shared.UnitOfWork
	books   BookReader
	catalog shared.ProductCatalog
}

func NewOfferQueries(uow shared.UnitOfWork, books BookReader, catalog shared.ProductCatalog) OfferQueries {
	return &offerQueriesImpl{uow: uow, books: books, catalog: catalog}
}

func (q *offerQueriesImpl) GetOffer(ctx context.Context, id, viewerID uuid.UUID) (*OfferView, error) {
	o, err := q.uow.Reads().Offers().FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrOfferNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if viewerID != uuid.Nil && viewerID == o.OwnerID() {
		return ToOwnerOfferView(o), nil
	}
	return ToOfferView(o), nil
}

// GetTransaction is visible to the two parties of the trade only.
func (q *offerQueriesImpl) GetTransaction(ctx context.Context, id, viewerID uuid.UUID) (*TransactionView, error) {
	t, err := q.uow.Reads().Transactions().FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrTransactionNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if viewerID != t.BuyerID() && viewerID != t.SellerID() {
		return nil, errs.Mark(errs.New("viewer is not a party to the transaction"), errs.ErrNotOwner)
	}
	return ToTransactionView(t), nil
}

func (q *offerQueriesImpl) ListBook(ctx context.Context, key offer.Key, filter BookFilter) ([]*OfferView, error) {
	if err := q.catalog.ValidateSizeVariant(ctx, key); err != nil {
		if errs.Is(err, errs.ErrSizeVariantNotFound) {
			return nil, err
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	offers := q.books.ListBook(key, filter.Side, filter.Range)
	if limit := clampLimit(filter.Limit); len(offers) > limit {
		offers = offers[:limit]
	}
	views := make([]*OfferView, 0, len(offers))
	for _, o := range offers {
		views = append(views, ToOfferView(o))
	}
	return views, nil
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultListLimit
	case n > MaxListLimit:
		return MaxListLimit
	default:
		return n
	}
}

// ToOfferView is the public view of an offer. It never carries the bidder's
// payment reference.
func ToOfferView(o *offer.Offer) *OfferView {
	return &OfferView{
		ID:            o.ID(),
		ProductID:     o.Key().ProductID,
		SizeVariantID: o.Key().SizeVariantID,
		Side:          o.Side().String(),
		OwnerID:       o.OwnerID(),
		Price:         o.Price().Minor(),
		Status:        o.Status().String(),
		CreatedAt:     o.CreatedAt(),
		ExpiresAt:     o.ExpiresAt(),
		UpdatedAt:     o.UpdatedAt(),
	}
}

// ToOwnerOfferView is for the offer's owner only.
func ToOwnerOfferView(o *offer.Offer) *OfferView {
	v := ToOfferView(o)
	v.PaymentMethodRef = o.PaymentMethodRef()
	return v
}

func ToTransactionView(t *transaction.Transaction) *TransactionView {
	return &TransactionView{
		ID:               t.ID(),
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
		BuyerTotal:       t.BuyerTotal().Minor(),
		PaymentMethodRef: t.PaymentMethodRef(),
		ShippingStatus:   string(t.ShippingStatus()),
		CreatedAt:        t.CreatedAt(),
	}
}
