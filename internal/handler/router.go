package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"kicks-exchange/internal/handler/api"
	"kicks-exchange/internal/handler/middleware"
	"kicks-exchange/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type Handlers struct {
	Market      *api.MarketHandler
	Offer       *api.OfferHandler
	Transaction *api.TransactionHandler
}

func NewHandlers(market *api.MarketHandler, offer *api.OfferHandler, transaction *api.TransactionHandler) Handlers {
	return Handlers{Market: market, Offer: offer, Transaction: transaction}
}

func NewRouter(engine *gin.Engine, cfg config.Config, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, h, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := authMiddleware.RequireAuth()
	optionalAuth := authMiddleware.OptionalAuth()

	apiGroup := engine.Group("/api")
	{
		markets := apiGroup.Group("/markets/:productId/sizes/:sizeId")
		{
			addRoutes(markets, []route{
				{Method: http.MethodGet, Path: "/summary", Handler: h.Market.GetSummary},
				{Method: http.MethodGet, Path: "/book", Handler: h.Market.ListBook},
				{Method: http.MethodPost, Path: "/bids", Handler: h.Market.SubmitBid, Mw: []gin.HandlerFunc{requireAuth}},
				{Method: http.MethodPost, Path: "/asks", Handler: h.Market.SubmitAsk, Mw: []gin.HandlerFunc{requireAuth}},
			})
		}

		offers := apiGroup.Group("/offers")
		{
			addRoutes(offers, []route{
				{Method: http.MethodGet, Path: "/:id", Handler: h.Offer.Get, Mw: []gin.HandlerFunc{optionalAuth}},
				{Method: http.MethodDelete, Path: "/:id", Handler: h.Offer.Cancel, Mw: []gin.HandlerFunc{requireAuth}},
				{Method: http.MethodPost, Path: "/:id/buy-now", Handler: h.Offer.BuyNow, Mw: []gin.HandlerFunc{requireAuth}},
				{Method: http.MethodPost, Path: "/:id/sell-now", Handler: h.Offer.SellNow, Mw: []gin.HandlerFunc{requireAuth}},
			})
		}

		transactions := apiGroup.Group("/transactions")
		transactions.Use(requireAuth)
		{
			addRoutes(transactions, []route{
				{Method: http.MethodGet, Path: "/:id", Handler: h.Transaction.Get},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
