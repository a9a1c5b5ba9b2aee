package api

import (
	"net/http"

	resdto "kicks-exchange/internal/handler/dto/response"
	"kicks-exchange/internal/handler/httperr"
	"kicks-exchange/internal/handler/middleware"
	"kicks-exchange/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	q queries.OfferQueries
}

func NewTransactionHandler(q queries.OfferQueries) *TransactionHandler {
	return &TransactionHandler{q: q}
}

// @Summary Get transaction
// @Description Visible to the buyer and the seller only
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} resdto.TransactionResponse
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errMissingUser, "Unauthorized", nil)
		return
	}
	view, err := h.q.GetTransaction(c.Request.Context(), id, userID)
	if err != nil {
		httperr.AbortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromTransactionView(view))
}
