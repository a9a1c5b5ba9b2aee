package queries

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/offerbook"
	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/pkg/clock"
	"kicks-exchange/internal/pkg/config"
	"kicks-exchange/internal/pkg/errs"
	"kicks-exchange/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PriceSummary struct {
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

// TopReader exposes a market's best prices without locking it.
type TopReader interface {
	Top(key offer.Key) offerbook.Top
}

type PricingQueries interface {
	GetSummary(ctx context.Context, key offer.Key) (*PriceSummary, error)
}

// PricingOracle keeps a rolling window of recent fills per market. Windows
// are seeded from storage the first time a market is asked about.
type PricingOracle struct {
	tops    TopReader
	catalog shared.ProductCatalog
	uow     shared.UnitOfWork
	clock   clock.Clock
	logger  *slog.Logger
	size    int

	mu      sync.RWMutex
	windows map[offer.Key]*priceWindow
}

func NewPricingOracle(
	tops TopReader,
	catalog shared.ProductCatalog,
	uow shared.UnitOfWork,
	clk clock.Clock,
	logger *slog.Logger,
	cfg config.Config,
) *PricingOracle {
	size := cfg.Engine.SuggestedPriceWindow
	if size < 1 {
		size = 1
	}
	return &PricingOracle{
		tops:    tops,
		catalog: catalog,
		uow:     uow,
		clock:   clk,
		logger:  logger,
		size:    size,
		windows: make(map[offer.Key]*priceWindow),
	}
}

func (o *PricingOracle) GetSummary(ctx context.Context, key offer.Key) (*PriceSummary, error) {
	if err := o.catalog.ValidateSizeVariant(ctx, key); err != nil {
		if errs.Is(err, errs.ErrSizeVariantNotFound) {
			return nil, err
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	w := o.window(key)
	if err := o.seed(ctx, key, w); err != nil {
		return nil, err
	}

	top := o.tops.Top(key)
	summary := &PriceSummary{
		ProductID:     key.ProductID,
		SizeVariantID: key.SizeVariantID,
		OpenBids:      top.OpenBids,
		OpenAsks:      top.OpenAsks,
	}
	if top.HasBid() {
		v := top.BestBid
		summary.HighestBid = &v
	}
	if top.HasAsk() {
		v := top.BestAsk
		summary.LowestAsk = &v
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count > 0 {
		last := w.points[w.newest()].Price
		summary.LastSalePrice = &last
		suggested := w.mean()
		summary.SuggestedPrice = &suggested
	}
	summary.RecomputedAt = w.recomputedAt
	return summary, nil
}

// OnSettled is called after the transaction was committed.
func (o *PricingOracle) OnSettled(t *transaction.Transaction) {
	w := o.window(t.Key())
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seeded {
		w.push(shared.PricePoint{
			TransactionID: t.ID(),
			Price:         t.MatchedPrice().Minor(),
			CreatedAt:     t.CreatedAt(),
		})
	}
	w.recomputedAt = o.clock.Now()
}

func (o *PricingOracle) OnBookChanged(key offer.Key) {
	w := o.window(key)
	w.mu.Lock()
	w.recomputedAt = o.clock.Now()
	w.mu.Unlock()
}

func (o *PricingOracle) window(key offer.Key) *priceWindow {
	o.mu.RLock()
	w, ok := o.windows[key]
	o.mu.RUnlock()
	if ok {
		return w
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if w, ok := o.windows[key]; ok {
		return w
	}
	w = newPriceWindow(o.size)
	o.windows[key] = w
	return w
}

func (o *PricingOracle) seed(ctx context.Context, key offer.Key, w *priceWindow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seeded {
		return nil
	}

	points, err := o.uow.Reads().Transactions().RecentPrices(ctx, key, o.size)
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	// Oldest first so the newest fill ends up at the head of the ring.
	for i := len(points) - 1; i >= 0; i-- {
		w.push(points[i])
	}
	w.seeded = true
	if w.recomputedAt.IsZero() {
		w.recomputedAt = o.clock.Now()
	}
	o.logger.Debug("price window seeded",
		slog.String("product_id", key.ProductID.String()),
		slog.String("size_variant_id", key.SizeVariantID.String()),
		slog.Int("fills", len(points)))
	return nil
}

type priceWindow struct {
	mu           sync.Mutex
	seeded       bool
	points       []shared.PricePoint
	ids          map[uuid.UUID]struct{}
	next         int
	count        int
	sum          int64
	recomputedAt time.Time
}

func newPriceWindow(size int) *priceWindow {
	return &priceWindow{
		points: make([]shared.PricePoint, size),
		ids:    make(map[uuid.UUID]struct{}, size),
	}
}

// push ignores fills already in the window; a fill committed while the
// window was being seeded can arrive twice.
func (w *priceWindow) push(p shared.PricePoint) {
	if _, dup := w.ids[p.TransactionID]; dup {
		return
	}
	if w.count == len(w.points) {
		old := w.points[w.next]
		w.sum -= old.Price
		delete(w.ids, old.TransactionID)
	} else {
		w.count++
	}
	w.points[w.next] = p
	w.ids[p.TransactionID] = struct{}{}
	w.sum += p.Price
	w.next = (w.next + 1) % len(w.points)
}

func (w *priceWindow) newest() int {
	return (w.next - 1 + len(w.points)) % len(w.points)
}

// mean rounds half up to a whole minor unit.
func (w *priceWindow) mean() int64 {
	return decimal.NewFromInt(w.sum).
		Div(decimal.NewFromInt(int64(w.count))).
		Round(0).
		IntPart()
}
