package commands

import (
	"context"
	"log/slog"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/offerbook"
	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/pkg/clock"
	"kicks-exchange/internal/pkg/errs"
	"kicks-exchange/internal/usecase/shared"

	"github.com/google/uuid"
)

type SubmitOfferParams struct {
	Key              offer.Key
	OwnerID          uuid.UUID
	Price            int64
	ExpiresAt        time.Time
	PaymentMethodRef string
}

// SubmitResult carries the new offer and, when it crossed the book, the
// transaction it settled into.
type SubmitResult struct {
	Offer       *offer.Offer
	Transaction *transaction.Transaction
}

type AcceptParams struct {
	OfferID          uuid.UUID
	UserID           uuid.UUID
	PaymentMethodRef string
}

// PriceObserver is told about every change that can move a price summary.
type PriceObserver interface {
	OnSettled(t *transaction.Transaction)
	OnBookChanged(key offer.Key)
}

type OfferCommands interface {
	SubmitBid(ctx context.Context, p SubmitOfferParams) (*SubmitResult, error)
	SubmitAsk(ctx context.Context, p SubmitOfferParams) (*SubmitResult, error)
	BuyNow(ctx context.Context, p AcceptParams) (*transaction.Transaction, error)
	SellNow(ctx context.Context, p AcceptParams) (*transaction.Transaction, error)
	CancelOffer(ctx context.Context, offerID, requesterID uuid.UUID) error
}

type Engine struct {
	markets    *Markets
	uow        shared.UnitOfWork
	catalog    shared.ProductCatalog
	accounts   shared.AccountDirectory
	payments   shared.PaymentMethods
	settlement *SettlementProcessor
	observer   PriceObserver
	notifier   shared.OutboxNotifier
	clock      clock.Clock
	logger     *slog.Logger

	pending *pendingSettlements
}

func NewEngine(
	markets *Markets,
	uow shared.UnitOfWork,
	catalog shared.ProductCatalog,
	accounts shared.AccountDirectory,
	payments shared.PaymentMethods,
	settlement *SettlementProcessor,
	observer PriceObserver,
	notifier shared.OutboxNotifier,
	clk clock.Clock,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		markets:    markets,
		uow:        uow,
		catalog:    catalog,
		accounts:   accounts,
		payments:   payments,
		settlement: settlement,
		observer:   observer,
		notifier:   notifier,
		clock:      clk,
		logger:     logger,
		pending:    newPendingSettlements(),
	}
}

func (e *Engine) SubmitBid(ctx context.Context, p SubmitOfferParams) (*SubmitResult, error) {
	return e.submit(ctx, offer.SideBid, p)
}

func (e *Engine) SubmitAsk(ctx context.Context, p SubmitOfferParams) (*SubmitResult, error) {
	if p.PaymentMethodRef != "" {
		return nil, errs.Mark(offer.ErrPaymentRefOnAskSet, errs.ErrInvalidOffer)
	}
	return e.submit(ctx, offer.SideAsk, p)
}

func (e *Engine) submit(ctx context.Context, side offer.Side, p SubmitOfferParams) (*SubmitResult, error) {
	fees, err := e.validateSubmission(ctx, side, p)
	if err != nil {
		return nil, err
	}

	params := offer.NewParams{
		Key:              p.Key,
		Side:             side,
		OwnerID:          p.OwnerID,
		Price:            p.Price,
		ExpiresAt:        p.ExpiresAt,
		Fees:             fees,
		PaymentMethodRef: p.PaymentMethodRef,
	}

	// Once the lock is held the operation runs to completion.
	lockedCtx := context.WithoutCancel(ctx)

	var result *SubmitResult
	err = e.markets.withLock(p.Key, func(book *offerbook.Book) error {
		now := e.clock.Now()
		incoming, err := offer.NewOffer(params, now, e.markets.nextSeq())
		if err != nil {
			return errs.Mark(err, errs.ErrInvalidOffer)
		}

		counter, err := e.bestLive(lockedCtx, book, side.Opposite(), now)
		if err != nil {
			return err
		}

		if counter != nil && incoming.Crosses(counter) {
			if counter.OwnerID() == incoming.OwnerID() {
				return errs.Mark(errs.New("best counter-offer belongs to the same owner"), errs.ErrSelfMatchNotAllowed)
			}
			bid, ask := incoming, counter
			if side == offer.SideAsk {
				bid, ask = counter, incoming
			}
			t, err := e.settleLocked(lockedCtx, book, counter, func() (*transaction.Transaction, error) {
				return e.settlement.Settle(lockedCtx, bid, ask, counter.Side())
			})
			if err != nil {
				return err
			}
			result = &SubmitResult{Offer: incoming.Snapshot(), Transaction: t}
			return nil
		}

		if err := e.uow.Within(lockedCtx, func(ctx context.Context, tx shared.Tx) error {
			return tx.Offers().Create(ctx, incoming)
		}); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if err := book.Insert(incoming); err != nil {
			return errs.Wrap(err, "failed to insert offer into book")
		}
		e.markets.track(incoming)
		e.observer.OnBookChanged(incoming.Key())

		e.logger.Info("offer placed",
			slog.String("offer_id", incoming.ID().String()),
			slog.String("side", side.String()),
			slog.String("product_id", p.Key.ProductID.String()),
			slog.String("size_variant_id", p.Key.SizeVariantID.String()),
			slog.Int64("price", incoming.Price().Minor()))

		result = &SubmitResult{Offer: incoming.Snapshot()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// validateSubmission does every check that needs I/O before the key lock is
// taken.
func (e *Engine) validateSubmission(ctx context.Context, side offer.Side, p SubmitOfferParams) (offer.FeeSchedule, error) {
	if p.Key.ProductID == uuid.Nil || p.Key.SizeVariantID == uuid.Nil {
		return offer.FeeSchedule{}, errs.Mark(offer.ErrInvalidKey, errs.ErrInvalidOffer)
	}
	if _, err := offer.NewPrice(p.Price); err != nil {
		return offer.FeeSchedule{}, errs.Mark(err, errs.ErrInvalidOffer)
	}
	if !p.ExpiresAt.After(e.clock.Now()) {
		return offer.FeeSchedule{}, errs.Mark(offer.ErrExpiryNotInFuture, errs.ErrInvalidOffer)
	}

	if err := e.catalog.ValidateSizeVariant(ctx, p.Key); err != nil {
		if errs.Is(err, errs.ErrSizeVariantNotFound) {
			return offer.FeeSchedule{}, errs.Mark(err, errs.ErrInvalidOffer)
		}
		return offer.FeeSchedule{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	fees, err := e.accounts.GetFeeSchedule(ctx, p.OwnerID, side.Role())
	if err != nil {
		return offer.FeeSchedule{}, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	if side == offer.SideBid && p.PaymentMethodRef != "" {
		if err := e.checkPayment(ctx, p.OwnerID, p.PaymentMethodRef); err != nil {
			return offer.FeeSchedule{}, err
		}
	}
	return fees, nil
}

func (e *Engine) checkPayment(ctx context.Context, userID uuid.UUID, ref string) error {
	err := e.payments.Validate(ctx, userID, ref)
	switch {
	case err == nil:
		return nil
	case errs.Is(err, errs.ErrInvalidPaymentMethod):
		return err
	default:
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
}

func (e *Engine) BuyNow(ctx context.Context, p AcceptParams) (*transaction.Transaction, error) {
	return e.accept(ctx, offer.SideAsk, p)
}

func (e *Engine) SellNow(ctx context.Context, p AcceptParams) (*transaction.Transaction, error) {
	if p.PaymentMethodRef != "" {
		return nil, errs.Mark(offer.ErrPaymentRefOnAskSet, errs.ErrInvalidOffer)
	}
	return e.accept(ctx, offer.SideBid, p)
}

// accept takes a specific resting offer of side target at its own price.
func (e *Engine) accept(ctx context.Context, target offer.Side, p AcceptParams) (*transaction.Transaction, error) {
	key, ok := e.markets.locate(p.OfferID)
	if !ok {
		return nil, e.explainMissing(ctx, p.OfferID, uuid.Nil)
	}

	actorRole := target.Opposite().Role()
	fees, err := e.accounts.GetFeeSchedule(ctx, p.UserID, actorRole)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if target == offer.SideAsk && p.PaymentMethodRef != "" {
		if err := e.checkPayment(ctx, p.UserID, p.PaymentMethodRef); err != nil {
			return nil, err
		}
	}
	actor := Counterparty{UserID: p.UserID, Fees: fees, PaymentMethodRef: p.PaymentMethodRef}

	lockedCtx := context.WithoutCancel(ctx)

	var result *transaction.Transaction
	err = e.markets.withLock(key, func(book *offerbook.Book) error {
		resting, ok := book.Get(p.OfferID)
		if !ok {
			return e.explainMissing(lockedCtx, p.OfferID, uuid.Nil)
		}
		if resting.Side() != target {
			return errs.Mark(errs.Newf("offer %s is on the %s side", resting.ID(), resting.Side()), errs.ErrInvalidOffer)
		}

		now := e.clock.Now()
		if resting.IsExpiredAt(now) {
			if err := e.expireLocked(lockedCtx, book, resting, now); err != nil {
				return err
			}
			return errs.Mark(errs.New("offer expired before acceptance"), errs.ErrOfferNotOpen)
		}
		if resting.OwnerID() == p.UserID {
			return errs.Mark(errs.New("cannot accept own offer"), errs.ErrSelfMatchNotAllowed)
		}

		t, err := e.settleLocked(lockedCtx, book, resting, func() (*transaction.Transaction, error) {
			if target == offer.SideAsk {
				return e.settlement.SettleBuyNow(lockedCtx, resting, actor)
			}
			return e.settlement.SettleSellNow(lockedCtx, resting, actor)
		})
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// settleLocked runs a settlement against resting and takes resting out of
// the book once it is no longer open, whether or not the write succeeded.
// An unresolved write queues resting for Reconcile.
func (e *Engine) settleLocked(
	ctx context.Context,
	book *offerbook.Book,
	resting *offer.Offer,
	run func() (*transaction.Transaction, error),
) (*transaction.Transaction, error) {
	t, err := run()
	if !resting.IsOpen() {
		if _, rmErr := book.Remove(resting.ID()); rmErr != nil {
			e.logger.Error("settled offer missing from book",
				slog.String("offer_id", resting.ID().String()),
				slog.String("error", rmErr.Error()))
		}
		e.markets.untrack(resting.ID())
		e.observer.OnBookChanged(resting.Key())
	}
	if err != nil {
		var unresolved *UnresolvedSettlementError
		if errs.As(err, &unresolved) && !resting.IsOpen() {
			e.pending.add(&pendingSettlement{
				resting:        resting,
				idempotencyKey: unresolved.IdempotencyKey,
				since:          e.clock.Now(),
			})
			e.logger.Warn("settlement queued for reconciliation",
				slog.String("offer_id", resting.ID().String()),
				slog.String("idempotency_key", unresolved.IdempotencyKey))
		}
		return nil, err
	}
	e.observer.OnSettled(t)
	return t, nil
}

func (e *Engine) CancelOffer(ctx context.Context, offerID, requesterID uuid.UUID) error {
	key, ok := e.markets.locate(offerID)
	if !ok {
		return e.explainMissing(ctx, offerID, requesterID)
	}

	lockedCtx := context.WithoutCancel(ctx)

	return e.markets.withLock(key, func(book *offerbook.Book) error {
		live, ok := book.Get(offerID)
		if !ok {
			return e.explainMissing(lockedCtx, offerID, requesterID)
		}

		now := e.clock.Now()
		next := live.Snapshot()
		if err := next.Cancel(requesterID, now); err != nil {
			return markOfferErr(err)
		}
		if err := e.transitionLocked(lockedCtx, book, live, next, shared.EventOfferCancelled); err != nil {
			return err
		}

		e.logger.Info("offer cancelled",
			slog.String("offer_id", offerID.String()),
			slog.String("product_id", key.ProductID.String()),
			slog.String("size_variant_id", key.SizeVariantID.String()))
		return nil
	})
}

// expireLocked is shared by the sweeper and by operations that find an
// expired offer before the sweeper did.
func (e *Engine) expireLocked(ctx context.Context, book *offerbook.Book, live *offer.Offer, now time.Time) error {
	next := live.Snapshot()
	if err := next.Expire(now); err != nil {
		return markOfferErr(err)
	}
	if err := e.transitionLocked(ctx, book, live, next, shared.EventOfferExpired); err != nil {
		return err
	}
	e.logger.Info("offer expired",
		slog.String("offer_id", live.ID().String()),
		slog.String("product_id", live.Key().ProductID.String()),
		slog.String("size_variant_id", live.Key().SizeVariantID.String()))
	return nil
}

// transitionLocked persists an open offer's move to a terminal state
// together with its event, then applies it to the book. next is the already
// transitioned copy of live.
func (e *Engine) transitionLocked(ctx context.Context, book *offerbook.Book, live, next *offer.Offer, typ shared.EventType) error {
	event, err := shared.NewOfferEvent(typ, next)
	if err != nil {
		return errs.Wrap(err, "failed to encode offer event")
	}

	err = e.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Offers().UpdateStatus(ctx, next.ID(), offer.StatusOpen, next.Status(), next.UpdatedAt()); err != nil {
			return err
		}
		return tx.Outbox().Append(ctx, event)
	})
	if err != nil {
		if infra.IsKind(err, infra.KindStale) {
			e.dropLocked(book, live)
			return errs.Mark(err, errs.ErrOfferNotOpen)
		}
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	*live = *next
	e.dropLocked(book, live)
	e.notifier.Notify()
	return nil
}

func (e *Engine) dropLocked(book *offerbook.Book, o *offer.Offer) {
	if _, err := book.Remove(o.ID()); err == nil {
		e.observer.OnBookChanged(o.Key())
	}
	e.markets.untrack(o.ID())
}

// bestLive returns the best counter-offer on side, expiring any stale ones
// found at the top of the book on the way.
func (e *Engine) bestLive(ctx context.Context, book *offerbook.Book, side offer.Side, now time.Time) (*offer.Offer, error) {
	for {
		best, ok := book.PeekBest(side)
		if !ok {
			return nil, nil
		}
		if !best.IsExpiredAt(now) {
			return best, nil
		}
		if err := e.expireLocked(ctx, book, best, now); err != nil {
			return nil, err
		}
	}
}

// explainMissing tells not-found apart from not-open for an offer that is
// not resting in any book, including one waiting on Reconcile.
func (e *Engine) explainMissing(ctx context.Context, offerID, requesterID uuid.UUID) error {
	if ps, ok := e.pending.get(offerID); ok {
		if requesterID != uuid.Nil && ps.resting.OwnerID() != requesterID {
			return errs.Mark(offer.ErrNotOwner, errs.ErrNotOwner)
		}
		return errs.Mark(errs.New("offer settlement is pending reconciliation"), errs.ErrOfferNotOpen)
	}

	o, err := e.uow.Reads().Offers().FindByID(ctx, offerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return errs.Mark(err, errs.ErrOfferNotFound)
		}
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if requesterID != uuid.Nil && o.OwnerID() != requesterID {
		return errs.Mark(offer.ErrNotOwner, errs.ErrNotOwner)
	}
	return errs.Mark(errs.Newf("offer is %s", o.Status()), errs.ErrOfferNotOpen)
}

func markOfferErr(err error) error {
	switch {
	case errs.Is(err, offer.ErrNotOwner):
		return errs.Mark(err, errs.ErrNotOwner)
	case errs.Is(err, offer.ErrNotOpen), errs.Is(err, offer.ErrInvalidTransition):
		return errs.Mark(err, errs.ErrOfferNotOpen)
	default:
		return errs.Mark(err, errs.ErrInvalidOffer)
	}
}

// Restore loads every persisted open offer into its book. It must finish
// before the engine serves requests.
func (e *Engine) Restore(ctx context.Context) error {
	reads := e.uow.Reads().Offers()

	maxSeq, err := reads.MaxSeq(ctx)
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	e.markets.seedSeq(maxSeq)

	open, err := reads.ListOpen(ctx)
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	for _, o := range open {
		err := e.markets.withLock(o.Key(), func(book *offerbook.Book) error {
			return book.Insert(o)
		})
		if err != nil {
			e.logger.Warn("skipping offer during restore",
				slog.String("offer_id", o.ID().String()),
				slog.String("error", err.Error()))
			continue
		}
		e.markets.track(o)
		e.observer.OnBookChanged(o.Key())
	}

	e.logger.Info("order books restored",
		slog.Int("offers", len(open)),
		slog.Int("markets", len(e.markets.Keys())))
	return nil
}

// ListBook returns one side of a market in matching priority order.
func (e *Engine) ListBook(key offer.Key, side offer.Side, r offerbook.PriceRange) []*offer.Offer {
	return e.markets.ListBook(key, side, r)
}
