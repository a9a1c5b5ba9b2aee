package api

import (
	"context"
	"errors"
	"net/http"

	"kicks-exchange/internal/domain/offer"
	reqdto "kicks-exchange/internal/handler/dto/request"
	resdto "kicks-exchange/internal/handler/dto/response"
	"kicks-exchange/internal/handler/httperr"
	"kicks-exchange/internal/handler/middleware"
	"kicks-exchange/internal/pkg/clock"
	"kicks-exchange/internal/pkg/config"
	"kicks-exchange/internal/usecase/commands"
	"kicks-exchange/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errMissingUser = errors.New("authenticated user missing from context")

type MarketHandler struct {
	cmds        commands.OfferCommands
	q           queries.OfferQueries
	pricing     queries.PricingQueries
	clock       clock.Clock
	defaultDays int
	dayChoices  []int
}

func NewMarketHandler(
	cmds commands.OfferCommands,
	q queries.OfferQueries,
	pricing queries.PricingQueries,
	clk clock.Clock,
	cfg config.Config,
) *MarketHandler {
	return &MarketHandler{
		cmds:        cmds,
		q:           q,
		pricing:     pricing,
		clock:       clk,
		defaultDays: cfg.Engine.DefaultExpiryDays,
		dayChoices:  cfg.Engine.AllowedExpiryDaysChoices,
	}
}

// @Summary Place bid
// @Description Place a bid for a product size. Settles immediately against the lowest ask when it crosses.
// @Tags markets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ID"
// @Param sizeId path string true "Size variant ID"
// @Param request body reqdto.SubmitOfferRequest true "Bid"
// @Success 201 {object} resdto.SubmitOfferResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /markets/{productId}/sizes/{sizeId}/bids [post]
func (h *MarketHandler) SubmitBid(c *gin.Context) {
	h.submit(c, h.cmds.SubmitBid)
}

// @Summary Place ask
// @Description Place an ask for a product size. Settles immediately against the highest bid when it crosses.
// @Tags markets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ID"
// @Param sizeId path string true "Size variant ID"
// @Param request body reqdto.SubmitOfferRequest true "Ask"
// @Success 201 {object} resdto.SubmitOfferResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /markets/{productId}/sizes/{sizeId}/asks [post]
func (h *MarketHandler) SubmitAsk(c *gin.Context) {
	h.submit(c, h.cmds.SubmitAsk)
}

type submitFunc func(ctx context.Context, p commands.SubmitOfferParams) (*commands.SubmitResult, error)

func (h *MarketHandler) submit(c *gin.Context, run submitFunc) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errMissingUser, "Unauthorized", nil)
		return
	}
	key, ok := bindKey(c)
	if !ok {
		return
	}
	var req reqdto.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	expiresAt, err := req.ResolveExpiry(h.clock.Now(), h.defaultDays, h.dayChoices)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, err.Error(), nil)
		return
	}

	result, err := run(c.Request.Context(), commands.SubmitOfferParams{
		Key:              key,
		OwnerID:          userID,
		Price:            req.Price,
		ExpiresAt:        expiresAt,
		PaymentMethodRef: req.PaymentMethodRef,
	})
	if err != nil {
		httperr.AbortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromSubmitResult(result.Offer, result.Transaction))
}

// @Summary Price summary
// @Description Highest bid, lowest ask, last sale and suggested price for a product size
// @Tags markets
// @Produce json
// @Param productId path string true "Product ID"
// @Param sizeId path string true "Size variant ID"
// @Success 200 {object} resdto.PriceSummaryResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /markets/{productId}/sizes/{sizeId}/summary [get]
func (h *MarketHandler) GetSummary(c *gin.Context) {
	key, ok := bindKey(c)
	if !ok {
		return
	}
	summary, err := h.pricing.GetSummary(c.Request.Context(), key)
	if err != nil {
		httperr.AbortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromPriceSummary(summary))
}

// @Summary Order book
// @Description Open offers on one side in matching priority order
// @Tags markets
// @Produce json
// @Param productId path string true "Product ID"
// @Param sizeId path string true "Size variant ID"
// @Param side query string true "bid or ask"
// @Param min query int false "Minimum price (inclusive)"
// @Param max query int false "Maximum price (inclusive)"
// @Param limit query int false "Page size (default 50, max 200)"
// @Success 200 {array} resdto.OfferResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /markets/{productId}/sizes/{sizeId}/book [get]
func (h *MarketHandler) ListBook(c *gin.Context) {
	key, ok := bindKey(c)
	if !ok {
		return
	}
	var q reqdto.BookQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query", nil)
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, err.Error(), nil)
		return
	}
	views, err := h.q.ListBook(c.Request.Context(), key, filter)
	if err != nil {
		httperr.AbortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromOfferViews(views))
}

func bindKey(c *gin.Context) (offer.Key, bool) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid product id", nil)
		return offer.Key{}, false
	}
	sizeID, err := uuid.Parse(c.Param("sizeId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid size variant id", nil)
		return offer.Key{}, false
	}
	return offer.Key{ProductID: productID, SizeVariantID: sizeID}, true
}

func bindID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}
