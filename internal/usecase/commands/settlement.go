package commands

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/pkg/clock"
	"kicks-exchange/internal/pkg/config"
	"kicks-exchange/internal/pkg/errs"
	"kicks-exchange/internal/usecase/shared"

	"github.com/google/uuid"
)

// Counterparty is the acting user of a buy-now or sell-now. They never had a
// resting offer, so their side of the trade comes from here.
type Counterparty struct {
	UserID           uuid.UUID
	Fees             offer.FeeSchedule
	PaymentMethodRef string
}

// UnresolvedSettlementError is returned once every write attempt failed. An
// attempt may still have committed, so the outcome is only known after the
// idempotency key is looked up again.
type UnresolvedSettlementError struct {
	IdempotencyKey string
	TransactionID  uuid.UUID
	Err            error
}

func (e *UnresolvedSettlementError) Error() string { return e.Err.Error() }
func (e *UnresolvedSettlementError) Unwrap() error { return e.Err }

type SettlementProcessor struct {
	uow         shared.UnitOfWork
	calc        transaction.FeeCalculator
	clock       clock.Clock
	notifier    shared.OutboxNotifier
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

func NewSettlementProcessor(
	uow shared.UnitOfWork,
	calc transaction.FeeCalculator,
	clk clock.Clock,
	notifier shared.OutboxNotifier,
	logger *slog.Logger,
	cfg config.Config,
) *SettlementProcessor {
	attempts := cfg.Engine.SettlementMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &SettlementProcessor{
		uow:         uow,
		calc:        calc,
		clock:       clk,
		notifier:    notifier,
		logger:      logger,
		maxAttempts: attempts,
		backoff:     cfg.Engine.SettlementBackoff,
	}
}

// Settle persists a crossing match. maker names the side that was resting;
// the other offer is the unpersisted taker.
func (p *SettlementProcessor) Settle(ctx context.Context, bid, ask *offer.Offer, maker offer.Side) (*transaction.Transaction, error) {
	now := p.clock.Now()
	t, err := transaction.NewMatch(bid, ask, maker, p.calc, now)
	if err != nil {
		return nil, markTradeErr(err)
	}

	resting, taker := ask, bid
	if maker == offer.SideBid {
		resting, taker = bid, ask
	}
	return p.settle(ctx, t, resting, taker, now)
}

func (p *SettlementProcessor) SettleBuyNow(ctx context.Context, ask *offer.Offer, buyer Counterparty) (*transaction.Transaction, error) {
	now := p.clock.Now()
	t, err := transaction.NewBuyNow(ask, buyer.UserID, buyer.Fees, buyer.PaymentMethodRef, p.calc, now)
	if err != nil {
		return nil, markTradeErr(err)
	}
	return p.settle(ctx, t, ask, nil, now)
}

func (p *SettlementProcessor) SettleSellNow(ctx context.Context, bid *offer.Offer, seller Counterparty) (*transaction.Transaction, error) {
	now := p.clock.Now()
	t, err := transaction.NewSellNow(bid, seller.UserID, seller.Fees, p.calc, now)
	if err != nil {
		return nil, markTradeErr(err)
	}
	return p.settle(ctx, t, bid, nil, now)
}

func markTradeErr(err error) error {
	if errs.Is(err, transaction.ErrSelfTrade) {
		return errs.Mark(err, errs.ErrSelfMatchNotAllowed)
	}
	return errs.Mark(err, errs.ErrInvalidOffer)
}

// settle leaves resting in matched state when persistence fails, so the
// caller must drop it from the book whatever the outcome and reconcile it
// later.
func (p *SettlementProcessor) settle(ctx context.Context, t *transaction.Transaction, resting, taker *offer.Offer, now time.Time) (*transaction.Transaction, error) {
	if err := resting.MarkMatched(now); err != nil {
		return nil, errs.Mark(err, errs.ErrOfferNotOpen)
	}
	if taker != nil {
		if err := taker.MarkMatched(now); err != nil {
			return nil, errs.Mark(err, errs.ErrOfferNotOpen)
		}
		if err := taker.MarkSettled(now); err != nil {
			return nil, errs.Mark(err, errs.ErrOfferNotOpen)
		}
	}

	event, err := shared.NewSettledEvent(t)
	if err != nil {
		return nil, errs.Wrap(err, "failed to encode settled event")
	}

	persisted, err := p.persist(ctx, t, resting, taker, event, now)
	if err != nil {
		if errs.Is(err, errs.ErrOfferNotOpen) {
			return nil, err
		}
		p.logger.Error("settlement persistence failed",
			slog.String("idempotency_key", t.IdempotencyKey()),
			slog.String("transaction_id", t.ID().String()),
			slog.String("resting_offer_id", resting.ID().String()),
			slog.String("product_id", t.Key().ProductID.String()),
			slog.String("size_variant_id", t.Key().SizeVariantID.String()),
			slog.String("error", err.Error()))
		unresolved := &UnresolvedSettlementError{
			IdempotencyKey: t.IdempotencyKey(),
			TransactionID:  t.ID(),
			Err:            err,
		}
		return nil, errs.Mark(unresolved, errs.ErrSettlementPersistenceFailure)
	}

	if err := resting.MarkSettled(now); err != nil {
		return nil, errs.Wrap(err, "resting offer changed during settlement")
	}
	p.notifier.Notify()

	p.logger.Info("offer settled",
		slog.String("transaction_id", persisted.ID().String()),
		slog.String("kind", string(persisted.Kind())),
		slog.String("product_id", persisted.Key().ProductID.String()),
		slog.String("size_variant_id", persisted.Key().SizeVariantID.String()),
		slog.Int64("matched_price", persisted.MatchedPrice().Minor()))
	return persisted, nil
}

func (p *SettlementProcessor) persist(
	ctx context.Context,
	t *transaction.Transaction,
	resting, taker *offer.Offer,
	event shared.Event,
	now time.Time,
) (*transaction.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := p.backoffFor(attempt - 1)
			p.logger.Warn("retrying settlement write",
				slog.Int("attempt", attempt+1),
				slog.Int64("wait_ms", wait.Milliseconds()),
				slog.String("idempotency_key", t.IdempotencyKey()),
				slog.String("error", lastErr.Error()))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		lastErr = p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			// The taker row goes first: the transaction references it.
			if taker != nil {
				if err := tx.Offers().Create(ctx, taker); err != nil {
					return err
				}
			}
			if err := tx.Transactions().Create(ctx, t); err != nil {
				return err
			}
			if err := tx.Offers().UpdateStatus(ctx, resting.ID(), offer.StatusOpen, offer.StatusSettled, now); err != nil {
				return err
			}
			return tx.Outbox().Append(ctx, event)
		})
		if lastErr == nil {
			return t, nil
		}

		switch {
		case infra.IsKind(lastErr, infra.KindDuplicateKey):
			// An earlier attempt committed but its acknowledgement was lost.
			existing, err := p.uow.Reads().Transactions().FindByIdempotencyKey(ctx, t.IdempotencyKey())
			if err == nil {
				return existing, nil
			}
			lastErr = err
		case infra.IsKind(lastErr, infra.KindStale):
			return nil, errs.Mark(lastErr, errs.ErrOfferNotOpen)
		}
	}
	return nil, lastErr
}

func (p *SettlementProcessor) backoffFor(attempt int) time.Duration {
	if p.backoff <= 0 {
		return 0
	}
	wait := time.Duration(1<<attempt) * p.backoff
	return wait + time.Duration(rand.Int64N(int64(wait/5)+1))
}
