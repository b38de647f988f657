package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portfolio-service/portfolio_service/internal/api/handlers"
	"github.com/portfolio-service/portfolio_service/internal/api/middleware"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/overview"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/cache"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/config"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/repositories"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/tracing"
)

// Dependencies carries the wired services the router needs
type Dependencies struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *sqlx.DB
	RateCache    *cache.RateCache // nil when the cache is disabled
	Overview     *overview.Service
	Transactions *repositories.TransactionRepository
	Accounts     *repositories.AccountRepository
	Assets       *repositories.AssetRepository
	Rates        *repositories.RateRepository
}

// SetupRoutes configures all application routes
func SetupRoutes(deps *Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORS(deps.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(deps.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	var cachePinger handlers.Pinger
	if deps.RateCache != nil {
		cachePinger = deps.RateCache
	}
	healthHandler := handlers.NewHealthHandler(deps.DB, cachePinger, deps.Logger)

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/live", healthHandler.Live)
	router.GET("/version", handlers.VersionHandler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	zapLog := deps.Logger.Zap()
	portfolioHandler := handlers.NewPortfolioHandler(deps.Overview, deps.Config.Portfolio.DefaultReferenceAssetID, zapLog)
	transactionHandler := handlers.NewTransactionHandler(deps.Transactions, zapLog)
	accountHandler := handlers.NewAccountHandler(deps.Accounts, zapLog)
	assetHandler := handlers.NewAssetHandler(deps.Assets, zapLog)
	rateHandler := handlers.NewRateHandler(deps.Rates, zapLog)

	v1 := router.Group("/api/v1")
	{
		portfolio := v1.Group("/portfolio")
		{
			portfolio.GET("/overview", portfolioHandler.GetOverview)
			portfolio.GET("/holdings", portfolioHandler.GetHoldings)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.POST("", transactionHandler.Create)
			transactions.GET("", transactionHandler.List)
		}

		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("", accountHandler.List)
		}

		assets := v1.Group("/assets")
		{
			assets.GET("", assetHandler.List)
			assets.GET("/:ticker", assetHandler.GetByTicker)
		}

		v1.POST("/rates", rateHandler.Create)
	}

	return router
}
