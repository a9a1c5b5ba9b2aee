package api

import (
	"net/http"

	reqdto "kicks-exchange/internal/handler/dto/request"
	resdto "kicks-exchange/internal/handler/dto/response"
	"kicks-exchange/internal/handler/httperr"
	"kicks-exchange/internal/handler/middleware"
	"kicks-exchange/internal/usecase/commands"
	"kicks-exchange/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type OfferHandler struct {
	cmds commands.OfferCommands
	q    queries.OfferQueries
}

func NewOfferHandler(cmds commands.OfferCommands, q queries.OfferQueries) *OfferHandler {
	return &OfferHandler{cmds: cmds, q: q}
}

// @Summary Get offer
// @Description The payment method reference is returned to the offer's owner only
// @Tags offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} resdto.OfferResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /offers/{id} [get]
func (h *OfferHandler) Get(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	viewerID, _ := middleware.GetUserID(c)
	view, err := h.q.GetOffer(c.Request.Context(), id, viewerID)
	if err != nil {
		httperr.AbortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromOfferView(view))
}

// @Summary Buy now
// @Description Buy at a specific ask's price
// @Tags offers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ask ID"
// @Param request body reqdto.AcceptOfferRequest false "Payment method"
// @Success 201 {object} resdto.TransactionResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /offers/{id}/buy-now [post]
func (h *OfferHandler) BuyNow(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errMissingUser, "Unauthorized", nil)
		return
	}
	var req reqdto.AcceptOfferRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
			return
		}
	}

	t, err := h.cmds.BuyNow(c.Request.Context(), commands.AcceptParams{
		OfferID:          id,
		UserID:           userID,
		PaymentMethodRef: req.PaymentMethodRef,
	})
	if err != nil {
		httperr.AbortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromTransaction(t))
}

// @Summary Sell now
// @Description Sell into a specific bid at its price
// @Tags offers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Bid ID"
// @Success 201 {object} resdto.TransactionResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /offers/{id}/sell-now [post]
func (h *OfferHandler) SellNow(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errMissingUser, "Unauthorized", nil)
		return
	}

	t, err := h.cmds.SellNow(c.Request.Context(), commands.AcceptParams{OfferID: id, UserID: userID})
	if err != nil {
		httperr.AbortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromTransaction(t))
}

// @Summary Cancel offer
// @Tags offers
// @Security BearerAuth
// @Param id path string true "Offer ID"
// @Success 204
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /offers/{id} [delete]
func (h *OfferHandler) Cancel(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errMissingUser, "Unauthorized", nil)
		return
	}
	if err := h.cmds.CancelOffer(c.Request.Context(), id, userID); err != nil {
		httperr.AbortWithDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
