//go:build unit

package commands_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/pkg/clock"
	"kicks-exchange/internal/pkg/config"
	"kicks-exchange/internal/pkg/errs"
	"kicks-exchange/internal/usecase/commands"
	"kicks-exchange/internal/usecase/queries"
	"kicks-exchange/tests/common/builder"
	"kicks-exchange/tests/common/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	mu      sync.Mutex
	unknown map[offer.Key]bool
}

func (c *stubCatalog) ValidateSizeVariant(_ context.Context, key offer.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unknown[key] {
		return errs.Mark(errs.Newf("size variant %s not found", key), errs.ErrSizeVariantNotFound)
	}
	return nil
}

type stubAccounts struct{}

func (stubAccounts) GetFeeSchedule(context.Context, uuid.UUID, offer.Role) (offer.FeeSchedule, error) {
	return builder.DefaultFees(), nil
}

// stubPayments accepts the references registered in owners.
type stubPayments struct {
	owners map[string]uuid.UUID
}

func (p *stubPayments) Validate(_ context.Context, userID uuid.UUID, ref string) error {
	if owner, ok := p.owners[ref]; ok && owner == userID {
		return nil
	}
	return errs.Mark(errs.New("payment method not usable"), errs.ErrInvalidPaymentMethod)
}

type countingNotifier struct {
	n atomic.Int32
}

func (c *countingNotifier) Notify() { c.n.Add(1) }

type engineFixture struct {
	store    *memstore.Store
	clock    *clock.MockClock
	markets  *commands.Markets
	engine   *commands.Engine
	sweeper  *commands.Sweeper
	pricing  *queries.PricingOracle
	catalog  *stubCatalog
	payments *stubPayments
	notifier *countingNotifier
	cfg      config.Config
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	return newEngineFixtureWithStore(t, memstore.New())
}

func newEngineFixtureWithStore(t *testing.T, store *memstore.Store) *engineFixture {
	t.Helper()

	cfg := config.NewTestConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &engineFixture{
		store:    store,
		clock:    clock.NewMockClock(builder.BaseTime),
		markets:  commands.NewMarkets(),
		catalog:  &stubCatalog{unknown: map[offer.Key]bool{}},
		payments: &stubPayments{owners: map[string]uuid.UUID{}},
		notifier: &countingNotifier{},
		cfg:      cfg,
	}
	f.pricing = queries.NewPricingOracle(f.markets, f.catalog, store, f.clock, logger, cfg)
	settlement := commands.NewSettlementProcessor(store, transaction.NewDefaultFeeCalculator(), f.clock, f.notifier, logger, cfg)
	f.engine = commands.NewEngine(f.markets, store, f.catalog, stubAccounts{}, f.payments, settlement, f.pricing, f.notifier, f.clock, logger)
	f.sweeper = commands.NewSweeper(f.engine, f.markets, f.clock, logger, cfg)
	return f
}

func (f *engineFixture) params(owner uuid.UUID, price int64) commands.SubmitOfferParams {
	return commands.SubmitOfferParams{
		Key:       builder.DefaultKey(),
		OwnerID:   owner,
		Price:     price,
		ExpiresAt: f.clock.Now().Add(7 * 24 * time.Hour),
	}
}

func (f *engineFixture) restBid(t *testing.T, owner uuid.UUID, price int64) *offer.Offer {
	t.Helper()
	res, err := f.engine.SubmitBid(context.Background(), f.params(owner, price))
	require.NoError(t, err)
	require.Nil(t, res.Transaction, "bid was expected to rest")
	return res.Offer
}

func (f *engineFixture) restAsk(t *testing.T, owner uuid.UUID, price int64) *offer.Offer {
	t.Helper()
	res, err := f.engine.SubmitAsk(context.Background(), f.params(owner, price))
	require.NoError(t, err)
	require.Nil(t, res.Transaction, "ask was expected to rest")
	return res.Offer
}

func (f *engineFixture) storedStatus(t *testing.T, id uuid.UUID) offer.Status {
	t.Helper()
	o, ok := f.store.Offer(id)
	require.True(t, ok, "offer %s not persisted", id)
	return o.Status()
}

func (f *engineFixture) summary(t *testing.T) *queries.PriceSummary {
	t.Helper()
	s, err := f.pricing.GetSummary(context.Background(), builder.DefaultKey())
	require.NoError(t, err)
	return s
}
