package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/portfolio-service/portfolio_service/internal/api/routes"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/overview"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/rates"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/cache"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/config"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/database"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/repositories"
	"github.com/portfolio-service/portfolio_service/internal/workers/ratecache"
	"github.com/portfolio-service/portfolio_service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Portfolio Service API
// @version 1.0
// @description Investment ledger replay and FIFO cost-basis service

// @host localhost:8080
// @BasePath /api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)

	// Initialize database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Connection pool gauge
	poolCtx, stopPoolStats := context.WithCancel(context.Background())
	defer stopPoolStats()
	go database.PublishPoolStats(poolCtx, db, 15*time.Second)

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Repositories
	txRepo := repositories.NewTransactionRepository(db, log.Zap())
	rateRepo := repositories.NewRateRepository(db, log.Zap())
	assetRepo := repositories.NewAssetRepository(db, log.Zap())
	accountRepo := repositories.NewAccountRepository(db, log.Zap())

	// Rate cache is optional: without Redis the service still answers, it
	// just resolves every spot rate from the database.
	var rateCache *cache.RateCache
	rc, err := cache.NewRateCache(cfg.Redis, time.Duration(cfg.Portfolio.RateCacheTTL)*time.Second, log.Zap())
	if err != nil {
		log.Warn("Rate cache unavailable, continuing without it", "error", err)
	} else {
		rateCache = rc
		defer rateCache.Close()
	}

	// Services
	var cacheForRates rates.RateCache
	if rateCache != nil {
		cacheForRates = rateCache
	}
	rateService := rates.NewService(rateRepo, assetRepo, cacheForRates, log)
	overviewService := overview.NewService(txRepo, rateService, log)

	// Cache warming worker
	var warmWorker *ratecache.Worker
	if rateCache != nil && cfg.Portfolio.RateCacheWarmSchedule != "" {
		warmWorker = ratecache.NewWorker(rateService, cfg.Portfolio.RateCacheWarmSchedule, log.Zap())
		if err := warmWorker.Start(); err != nil {
			log.Fatal("Failed to start rate cache worker", "error", err)
		}
		log.Info("Rate cache worker started", "schedule", cfg.Portfolio.RateCacheWarmSchedule)
	}

	// Router
	router := routes.SetupRoutes(&routes.Dependencies{
		Config:       cfg,
		Logger:       log,
		DB:           db,
		RateCache:    rateCache,
		Overview:     overviewService,
		Transactions: txRepo,
		Accounts:     accountRepo,
		Assets:       assetRepo,
		Rates:        rateRepo,
	})

	// Create server
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// Start server in goroutine
	go func() {
		log.Info("Starting server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	if warmWorker != nil {
		warmWorker.Stop()
	}

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}
