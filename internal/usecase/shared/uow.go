package shared

import (
	"context"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/transaction"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Reads: Single query operations using implicit transactions
	Reads() Reads
}

// Tx hands out repositories bound to one database transaction.
type Tx interface {
	Offers() OfferRepository
	Transactions() TransactionRepository
	Outbox() OutboxRepository
}

type Reads interface {
	Offers() OfferReader
	Transactions() TransactionReader
}

type OfferRepository interface {
	Create(ctx context.Context, o *offer.Offer) error
	// UpdateStatus moves a row from one status to another and fails with a
	// conflict when the row is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to offer.Status, at time.Time) error
}

type TransactionRepository interface {
	// Create fails with a duplicate-key error when a transaction with the
	// same idempotency key already exists. The surrounding transaction stays
	// usable.
	Create(ctx context.Context, t *transaction.Transaction) error
}

type OutboxRepository interface {
	Append(ctx context.Context, events ...Event) error
	// ClaimPending locks up to limit due events for this transaction.
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string, nextAttemptAt time.Time) error
}

type OfferReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*offer.Offer, error)
	ListOpen(ctx context.Context) ([]*offer.Offer, error)
	MaxSeq(ctx context.Context) (uint64, error)
}

type TransactionReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error)
	// RecentPrices returns the latest fills for key, newest first.
	RecentPrices(ctx context.Context, key offer.Key, limit int) ([]PricePoint, error)
}

type PricePoint struct {
	TransactionID uuid.UUID
	Price         int64
	CreatedAt     time.Time
}
