//go:build unit

package queries_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/offerbook"
	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/pkg/clock"
	"kicks-exchange/internal/pkg/config"
	"kicks-exchange/internal/pkg/errs"
	"kicks-exchange/internal/usecase/queries"
	"kicks-exchange/tests/common/builder"
	"kicks-exchange/tests/common/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTops struct {
	top offerbook.Top
}

func (s stubTops) Top(offer.Key) offerbook.Top { return s.top }

type stubCatalog struct {
	unknown bool
}

func (c stubCatalog) ValidateSizeVariant(_ context.Context, key offer.Key) error {
	if c.unknown {
		return errs.Mark(errs.Newf("size variant %s not found", key), errs.ErrSizeVariantNotFound)
	}
	return nil
}

type stubBooks struct {
	offers []*offer.Offer
}

func (b stubBooks) ListBook(offer.Key, offer.Side, offerbook.PriceRange) []*offer.Offer {
	return b.offers
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fill records a buy-now at price, at minute n after BaseTime.
func fill(t *testing.T, price int64, n int) *transaction.Transaction {
	t.Helper()
	at := builder.BaseTime.Add(time.Duration(n) * time.Minute)
	ask := builder.NewOfferBuilder().AsAsk().WithPrice(price).MustBuild()
	tx, err := transaction.NewBuyNow(ask, uuid.New(), builder.DefaultFees(), "", transaction.NewDefaultFeeCalculator(), at)
	require.NoError(t, err)
	return tx
}

func newOracle(t *testing.T, store *memstore.Store, top offerbook.Top, window int) (*queries.PricingOracle, *clock.MockClock) {
	t.Helper()
	cfg := config.NewTestConfig()
	cfg.Engine.SuggestedPriceWindow = window
	clk := clock.NewMockClock(builder.BaseTime.Add(time.Hour))
	return queries.NewPricingOracle(stubTops{top: top}, stubCatalog{}, store, clk, discardLogger(), cfg), clk
}

// ================================================================================
// PricingOracle
// ================================================================================

func TestPricingOracle_GetSummary(t *testing.T) {
	ctx := context.Background()
	key := builder.DefaultKey()

	t.Run("empty market reports nulls", func(t *testing.T) {
		oracle, clk := newOracle(t, memstore.New(), offerbook.Top{}, 3)

		s, err := oracle.GetSummary(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, s.HighestBid)
		assert.Nil(t, s.LowestAsk)
		assert.Nil(t, s.LastSalePrice)
		assert.Nil(t, s.SuggestedPrice)
		assert.Equal(t, clk.Now(), s.RecomputedAt)
	})

	t.Run("book top and recent fills", func(t *testing.T) {
		store := memstore.New()
		for i, price := range []int64{10_000, 11_000, 12_000, 13_001} {
			store.SeedTransaction(fill(t, price, i))
		}
		oracle, _ := newOracle(t, store, offerbook.Top{BestBid: 12_500, BestAsk: 13_500, OpenBids: 2, OpenAsks: 1}, 3)

		s, err := oracle.GetSummary(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, s.HighestBid)
		assert.Equal(t, int64(12_500), *s.HighestBid)
		require.NotNil(t, s.LowestAsk)
		assert.Equal(t, int64(13_500), *s.LowestAsk)
		assert.Equal(t, 2, s.OpenBids)
		assert.Equal(t, 1, s.OpenAsks)

		require.NotNil(t, s.LastSalePrice)
		assert.Equal(t, int64(13_001), *s.LastSalePrice)
		require.NotNil(t, s.SuggestedPrice)
		// (11000 + 12000 + 13001) / 3 = 12000.33
		assert.Equal(t, int64(12_000), *s.SuggestedPrice)
	})

	t.Run("unknown size variant", func(t *testing.T) {
		cfg := config.NewTestConfig()
		oracle := queries.NewPricingOracle(stubTops{}, stubCatalog{unknown: true}, memstore.New(),
			clock.NewMockClock(builder.BaseTime), discardLogger(), cfg)

		_, err := oracle.GetSummary(ctx, key)
		assert.True(t, errs.Is(err, errs.ErrSizeVariantNotFound))
	})
}

func TestPricingOracle_OnSettled(t *testing.T) {
	ctx := context.Background()
	key := builder.DefaultKey()

	store := memstore.New()
	first := fill(t, 10_000, 0)
	store.SeedTransaction(first)
	oracle, clk := newOracle(t, store, offerbook.Top{}, 2)

	_, err := oracle.GetSummary(ctx, key)
	require.NoError(t, err)

	clk.Add(time.Minute)
	oracle.OnSettled(first)
	second := fill(t, 10_001, 1)
	oracle.OnSettled(second)

	s, err := oracle.GetSummary(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, s.LastSalePrice)
	assert.Equal(t, int64(10_001), *s.LastSalePrice)
	require.NotNil(t, s.SuggestedPrice)
	assert.Equal(t, int64(10_001), *s.SuggestedPrice, "(10000 + 10001) / 2 rounds half up")
	assert.Equal(t, clk.Now(), s.RecomputedAt)

	oracle.OnSettled(fill(t, 20_000, 2))
	s, err = oracle.GetSummary(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(15_001), *s.SuggestedPrice, "the oldest fill leaves the window")
}

func TestPricingOracle_OnBookChangedTouchesTimestamp(t *testing.T) {
	oracle, clk := newOracle(t, memstore.New(), offerbook.Top{}, 3)
	key := builder.DefaultKey()

	clk.Add(5 * time.Minute)
	oracle.OnBookChanged(key)

	s, err := oracle.GetSummary(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, clk.Now(), s.RecomputedAt)
}

// ================================================================================
// OfferQueries
// ================================================================================

func TestOfferQueries_GetOffer(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	o := builder.NewOfferBuilder().WithPrice(12_345).MustBuild()
	store.Seed(o)
	q := queries.NewOfferQueries(store, stubBooks{}, stubCatalog{})

	view, err := q.GetOffer(ctx, o.ID(), uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, o.ID(), view.ID)
	assert.Equal(t, int64(12_345), view.Price)
	assert.Equal(t, "open", view.Status)

	_, err = q.GetOffer(ctx, uuid.New(), uuid.Nil)
	assert.True(t, errs.Is(err, errs.ErrOfferNotFound))
}

func TestOfferQueries_GetOffer_PaymentReferenceVisibility(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	owner := uuid.New()
	bid := builder.NewOfferBuilder().AsBid().WithOwner(owner).WithPaymentMethodRef("pm_card_4242").MustBuild()
	store.Seed(bid)
	q := queries.NewOfferQueries(store, stubBooks{}, stubCatalog{})

	testCases := []struct {
		name   string
		viewer uuid.UUID
		expect string
	}{
		{name: "owner", viewer: owner, expect: "pm_card_4242"},
		{name: "another user", viewer: uuid.New(), expect: ""},
		{name: "anonymous", viewer: uuid.Nil, expect: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			view, err := q.GetOffer(ctx, bid.ID(), tc.viewer)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, view.PaymentMethodRef)
		})
	}
}

func TestOfferQueries_GetTransaction(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	tx := fill(t, 10_000, 0)
	store.SeedTransaction(tx)
	q := queries.NewOfferQueries(store, stubBooks{}, stubCatalog{})

	testCases := []struct {
		name      string
		id        uuid.UUID
		viewer    uuid.UUID
		expectErr error
	}{
		{name: "buyer can read", id: tx.ID(), viewer: tx.BuyerID()},
		{name: "seller can read", id: tx.ID(), viewer: tx.SellerID()},
		{name: "third party is refused", id: tx.ID(), viewer: uuid.New(), expectErr: errs.ErrNotOwner},
		{name: "unknown transaction", id: uuid.New(), viewer: tx.BuyerID(), expectErr: errs.ErrTransactionNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			view, err := q.GetTransaction(ctx, tc.id, tc.viewer)
			if tc.expectErr != nil {
				require.Error(t, err)
				assert.True(t, errs.Is(err, tc.expectErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tx.ID(), view.ID)
			assert.Equal(t, int64(9_300), view.SellerEarnings)
			assert.Equal(t, int64(10_000), view.BuyerTotal)
		})
	}
}

func TestOfferQueries_ListBook(t *testing.T) {
	ctx := context.Background()
	key := builder.DefaultKey()

	var offers []*offer.Offer
	for i := range queries.MaxListLimit + 10 {
		offers = append(offers, builder.NewOfferBuilder().WithSeq(uint64(i+1)).MustBuild())
	}

	testCases := []struct {
		name   string
		limit  int
		expect int
	}{
		{name: "default limit", limit: 0, expect: queries.DefaultListLimit},
		{name: "explicit limit", limit: 5, expect: 5},
		{name: "limit is capped", limit: 10_000, expect: queries.MaxListLimit},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := queries.NewOfferQueries(memstore.New(), stubBooks{offers: offers}, stubCatalog{})
			views, err := q.ListBook(ctx, key, queries.BookFilter{Side: offer.SideBid, Limit: tc.limit})
			require.NoError(t, err)
			assert.Len(t, views, tc.expect)
			assert.Equal(t, offers[0].ID(), views[0].ID)
		})
	}

	t.Run("bids are listed without their payment reference", func(t *testing.T) {
		bid := builder.NewOfferBuilder().AsBid().WithPaymentMethodRef("pm_card_4242").MustBuild()
		q := queries.NewOfferQueries(memstore.New(), stubBooks{offers: []*offer.Offer{bid}}, stubCatalog{})
		views, err := q.ListBook(ctx, key, queries.BookFilter{Side: offer.SideBid})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Empty(t, views[0].PaymentMethodRef)
	})

	t.Run("unknown size variant", func(t *testing.T) {
		q := queries.NewOfferQueries(memstore.New(), stubBooks{}, stubCatalog{unknown: true})
		_, err := q.ListBook(ctx, key, queries.BookFilter{Side: offer.SideAsk})
		assert.True(t, errs.Is(err, errs.ErrSizeVariantNotFound))
	})
}
