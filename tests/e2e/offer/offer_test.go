//go:build e2e

package offer_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/handler/dto/response"
	"kicks-exchange/tests/common/authtest"
	"kicks-exchange/tests/common/httptest"
	"kicks-exchange/tests/e2e"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	bidsURL        = "/api/markets/%s/sizes/%s/bids"
	asksURL        = "/api/markets/%s/sizes/%s/asks"
	summaryURL     = "/api/markets/%s/sizes/%s/summary"
	offerURL       = "/api/offers/%s"
	buyNowURL      = "/api/offers/%s/buy-now"
	transactionURL = "/api/transactions/%s"
)

type OfferSuite struct {
	e2e.SharedSuite
	jwt *authtest.JWTHelper
}

func (s *OfferSuite) SetupSuite() {
	s.SharedSuite.SetupSuite()
	s.jwt = authtest.NewJWTHelper(s.Config.JWT)
}

func (s *OfferSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
}

func TestOfferSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(OfferSuite))
}

func marketPath(format string, key offer.Key) string {
	return fmt.Sprintf(format, key.ProductID, key.SizeVariantID)
}

func (s *OfferSuite) place(t *testing.T, format string, key offer.Key, token string, price int64) response.SubmitOfferResponse {
	t.Helper()
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, marketPath(format, key), map[string]any{"price": price}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res response.SubmitOfferResponse
	require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &res))
	return res
}

func (s *OfferSuite) getOffer(t *testing.T, id uuid.UUID) response.OfferResponse {
	t.Helper()
	w := httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(offerURL, id), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res response.OfferResponse
	require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &res))
	return res
}

func (s *OfferSuite) outboxCount(t *testing.T, aggregateID uuid.UUID, status string) int {
	t.Helper()
	var n int
	err := s.DB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM outbox_events WHERE aggregate_id = $1 AND status = $2`, aggregateID, status).Scan(&n)
	require.NoError(t, err)
	return n
}

// =============================================================================
// TestMatching
// =============================================================================

func (s *OfferSuite) TestMatching() {
	s.Run("Normal case: crossing bid settles against the resting ask", func() {
		t := s.T()
		key := s.NewMarket()
		seller, buyer := uuid.New(), uuid.New()

		ask := s.place(t, asksURL, key, s.jwt.GenerateToken(t, seller), 10_000)
		require.Nil(t, ask.Transaction)

		bid := s.place(t, bidsURL, key, s.jwt.GenerateToken(t, buyer), 10_000)
		require.NotNil(t, bid.Transaction)

		expected := &response.TransactionResponse{
			Kind:             "match",
			ProductID:        key.ProductID,
			SizeVariantID:    key.SizeVariantID,
			BidID:            &bid.Offer.ID,
			AskID:            &ask.Offer.ID,
			BuyerID:          buyer,
			SellerID:         seller,
			MatchedPrice:     10_000,
			SellerCommission: 400,
			TransactionFee:   300,
			SellerEarnings:   9_300,
			BuyerTotal:       10_000,
			ShippingStatus:   "pending",
		}
		opts := []cmp.Option{
			cmpopts.IgnoreFields(response.TransactionResponse{}, "ID", "CreatedAt"),
		}
		if diff := cmp.Diff(expected, bid.Transaction, opts...); diff != "" {
			t.Errorf("transaction mismatch (-want +got):\n%s", diff)
		}

		require.Equal(t, "settled", s.getOffer(t, ask.Offer.ID).Status)
		require.Equal(t, "settled", s.getOffer(t, bid.Offer.ID).Status)

		require.Eventually(t, func() bool {
			return s.outboxCount(t, bid.Transaction.ID, "sent") == 1
		}, 5*time.Second, 50*time.Millisecond, "settlement event should be relayed")
	})

	s.Run("Normal case: non-crossing offers rest and show in the summary", func() {
		t := s.T()
		key := s.NewMarket()

		bid := s.place(t, bidsURL, key, s.jwt.GenerateToken(t, uuid.New()), 15_000)
		ask := s.place(t, asksURL, key, s.jwt.GenerateToken(t, uuid.New()), 20_000)
		require.Nil(t, bid.Transaction)
		require.Nil(t, ask.Transaction)

		w := httptest.PerformRequest(t, s.Router, http.MethodGet, marketPath(summaryURL, key), nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		var summary response.PriceSummaryResponse
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &summary))
		require.NotNil(t, summary.HighestBid)
		require.NotNil(t, summary.LowestAsk)
		require.Equal(t, int64(15_000), *summary.HighestBid)
		require.Equal(t, int64(20_000), *summary.LowestAsk)
		require.Nil(t, summary.LastSalePrice)
	})

	s.Run("Error case: crossing your own offer is rejected", func() {
		t := s.T()
		key := s.NewMarket()
		token := s.jwt.GenerateToken(t, uuid.New())

		s.place(t, asksURL, key, token, 10_000)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, marketPath(bidsURL, key), map[string]any{"price": 11_000}, token)
		httptest.AssertErrorCode(t, w, http.StatusConflict, "SelfMatchNotAllowed", true)
	})

	s.Run("Error case: unknown size variant", func() {
		t := s.T()
		key := offer.Key{ProductID: uuid.New(), SizeVariantID: uuid.New()}

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, marketPath(bidsURL, key),
			map[string]any{"price": 10_000}, s.jwt.GenerateToken(t, uuid.New()))
		httptest.AssertErrorCode(t, w, http.StatusNotFound, "SizeVariantNotFound", false)
	})

	s.Run("Error case: unauthenticated", func() {
		t := s.T()
		key := s.NewMarket()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, marketPath(bidsURL, key), map[string]any{"price": 10_000}, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

// =============================================================================
// TestBuyNow
// =============================================================================

func (s *OfferSuite) TestBuyNow() {
	s.Run("Normal case: first buyer wins, the second sees a conflict", func() {
		t := s.T()
		key := s.NewMarket()
		seller := uuid.New()
		ask := s.place(t, asksURL, key, s.jwt.GenerateToken(t, seller), 12_000)

		first := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(buyNowURL, ask.Offer.ID), nil,
			s.jwt.GenerateToken(t, uuid.New()))
		require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

		var tx response.TransactionResponse
		require.NoError(t, httptest.DecodeResponseBody(t, first.Body, &tx))
		require.Equal(t, "buy_now", tx.Kind)
		require.Equal(t, seller, tx.SellerID)
		require.Nil(t, tx.BidID)

		second := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(buyNowURL, ask.Offer.ID), nil,
			s.jwt.GenerateToken(t, uuid.New()))
		httptest.AssertErrorCode(t, second, http.StatusConflict, "OfferNotOpen", true)
	})

	s.Run("Normal case: only the parties can read the transaction", func() {
		t := s.T()
		key := s.NewMarket()
		seller, buyer := uuid.New(), uuid.New()
		ask := s.place(t, asksURL, key, s.jwt.GenerateToken(t, seller), 8_000)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(buyNowURL, ask.Offer.ID), nil,
			s.jwt.GenerateToken(t, buyer))
		require.Equal(t, http.StatusCreated, w.Code)
		var tx response.TransactionResponse
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &tx))

		url := fmt.Sprintf(transactionURL, tx.ID)
		for _, party := range []uuid.UUID{buyer, seller} {
			rw := httptest.PerformRequest(t, s.Router, http.MethodGet, url, nil, s.jwt.GenerateToken(t, party))
			require.Equal(t, http.StatusOK, rw.Code)
		}

		rw := httptest.PerformRequest(t, s.Router, http.MethodGet, url, nil, s.jwt.GenerateToken(t, uuid.New()))
		httptest.AssertErrorCode(t, rw, http.StatusForbidden, "NotOwner", false)
	})
}

// =============================================================================
// TestCancel
// =============================================================================

func (s *OfferSuite) TestCancel() {
	s.Run("Normal case: owner cancels an open offer", func() {
		t := s.T()
		key := s.NewMarket()
		owner := uuid.New()
		token := s.jwt.GenerateToken(t, owner)
		bid := s.place(t, bidsURL, key, token, 9_000)

		w := httptest.PerformRequest(t, s.Router, http.MethodDelete, fmt.Sprintf(offerURL, bid.Offer.ID), nil, token)
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, "cancelled", s.getOffer(t, bid.Offer.ID).Status)
		require.Equal(t, 1, s.outboxCount(t, bid.Offer.ID, "pending")+s.outboxCount(t, bid.Offer.ID, "sent"))

		again := httptest.PerformRequest(t, s.Router, http.MethodDelete, fmt.Sprintf(offerURL, bid.Offer.ID), nil, token)
		httptest.AssertErrorCode(t, again, http.StatusConflict, "OfferNotOpen", true)
	})

	s.Run("Error case: another user cannot cancel", func() {
		t := s.T()
		key := s.NewMarket()
		ask := s.place(t, asksURL, key, s.jwt.GenerateToken(t, uuid.New()), 9_000)

		w := httptest.PerformRequest(t, s.Router, http.MethodDelete, fmt.Sprintf(offerURL, ask.Offer.ID), nil,
			s.jwt.GenerateToken(t, uuid.New()))
		httptest.AssertErrorCode(t, w, http.StatusForbidden, "NotOwner", false)
		require.Equal(t, "open", s.getOffer(t, ask.Offer.ID).Status)
	})
}
