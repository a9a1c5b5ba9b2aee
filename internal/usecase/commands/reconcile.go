package commands

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/offerbook"
	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/pkg/errs"

	"github.com/google/uuid"
)

// pendingSettlement is a resting offer whose settlement write ran out of
// retries. It is out of the book and matched in memory until reconciled.
type pendingSettlement struct {
	resting        *offer.Offer
	idempotencyKey string
	since          time.Time
}

type pendingSettlements struct {
	mu      sync.Mutex
	byOffer map[uuid.UUID]*pendingSettlement
}

func newPendingSettlements() *pendingSettlements {
	return &pendingSettlements{byOffer: make(map[uuid.UUID]*pendingSettlement)}
}

func (p *pendingSettlements) add(ps *pendingSettlement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byOffer[ps.resting.ID()] = ps
}

func (p *pendingSettlements) get(offerID uuid.UUID) (*pendingSettlement, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ps, ok := p.byOffer[offerID]
	return ps, ok
}

func (p *pendingSettlements) remove(offerID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byOffer, offerID)
}

func (p *pendingSettlements) list() []*pendingSettlement {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*pendingSettlement, 0, len(p.byOffer))
	for _, ps := range p.byOffer {
		out = append(out, ps)
	}
	return out
}

// PendingSettlements reports how many settlements are waiting to be
// reconciled.
func (e *Engine) PendingSettlements() int {
	return len(e.pending.list())
}

// Reconcile resolves every settlement whose write ran out of retries and
// returns how many were resolved. A settlement whose transaction was
// committed is finished; one that never landed puts the resting offer back
// in its book. Entries that still cannot be read stay queued for the next
// pass.
func (e *Engine) Reconcile(ctx context.Context) int {
	lockedCtx := context.WithoutCancel(ctx)

	resolved := 0
	for _, ps := range e.pending.list() {
		if ctx.Err() != nil {
			break
		}
		key := ps.resting.Key()
		err := e.markets.withLock(key, func(book *offerbook.Book) error {
			return e.reconcileLocked(lockedCtx, book, ps)
		})
		if err != nil {
			e.logger.Warn("pending settlement still unresolved",
				slog.String("offer_id", ps.resting.ID().String()),
				slog.String("idempotency_key", ps.idempotencyKey),
				slog.Duration("pending_for", e.clock.Now().Sub(ps.since)),
				slog.String("error", err.Error()))
			continue
		}
		resolved++
	}
	return resolved
}

func (e *Engine) reconcileLocked(ctx context.Context, book *offerbook.Book, ps *pendingSettlement) error {
	offerID := ps.resting.ID()

	t, err := e.uow.Reads().Transactions().FindByIdempotencyKey(ctx, ps.idempotencyKey)
	switch {
	case err == nil:
		if err := ps.resting.MarkSettled(e.clock.Now()); err != nil {
			return errs.Wrap(err, "pending offer changed before reconciliation")
		}
		e.pending.remove(offerID)
		e.observer.OnSettled(t)
		e.notifier.Notify()
		e.logger.Info("pending settlement found committed",
			slog.String("offer_id", offerID.String()),
			slog.String("transaction_id", t.ID().String()))
		return nil
	case !infra.IsKind(err, infra.KindNotFound):
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	stored, err := e.uow.Reads().Offers().FindByID(ctx, offerID)
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !stored.IsOpen() {
		e.pending.remove(offerID)
		e.logger.Warn("pending offer closed without a transaction",
			slog.String("offer_id", offerID.String()),
			slog.String("status", stored.Status().String()))
		return nil
	}

	if err := book.Insert(stored); err != nil {
		return errs.Wrap(err, "failed to reinsert offer into book")
	}
	e.pending.remove(offerID)
	e.markets.track(stored)
	e.observer.OnBookChanged(stored.Key())
	e.logger.Info("pending settlement never committed, offer reopened",
		slog.String("offer_id", offerID.String()),
		slog.String("product_id", stored.Key().ProductID.String()),
		slog.String("size_variant_id", stored.Key().SizeVariantID.String()))
	return nil
}
