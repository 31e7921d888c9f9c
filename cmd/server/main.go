package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tawandab/pawnshop-engine/internal/config"
	"github.com/tawandab/pawnshop-engine/internal/gateway"
	"github.com/tawandab/pawnshop-engine/internal/handler"
	"github.com/tawandab/pawnshop-engine/internal/repository"
	"github.com/tawandab/pawnshop-engine/internal/service"
	"github.com/tawandab/pawnshop-engine/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := initDB(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Gateway credentials are mandatory; a misconfigured deployment must not
	// come up and silently fail payments later.
	gw, err := gateway.New(cfg.Gateway, cfg.GetGatewayTimeout(), logger)
	if err != nil {
		logger.Fatal("failed to initialize payment gateway", zap.Error(err))
	}

	// Repositories
	loanRepo := repository.NewLoanRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	journalRepo := repository.NewJournalRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Services
	postingService := service.NewPostingService(journalRepo, loanRepo, assetRepo, cfg, logger)
	paymentService := service.NewPaymentService(paymentRepo, loanRepo, postingService, gw, cfg, logger)
	reportService := service.NewReportService(reportRepo, redisClient, cfg, logger)

	// Handlers
	paymentHandler := handler.NewPaymentHandler(paymentService)
	postingHandler := handler.NewPostingHandler(postingService, journalRepo)
	reportHandler := handler.NewReportHandler(reportService, cfg.Business.DefaultCurrency)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(paymentHandler, postingHandler, reportHandler, healthHandler, logger)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	paymentHandler *handler.PaymentHandler,
	postingHandler *handler.PostingHandler,
	reportHandler *handler.ReportHandler,
	healthHandler *handler.HealthHandler,
	logger *zap.Logger,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.JSONMiddleware)
	router.Use(response.CORSMiddleware)
	router.Use(response.LoggingMiddleware(logger))

	// Health
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Provider callback carries no actor header.
	api.HandleFunc("/payments/webhook", paymentHandler.Webhook).Methods("POST")

	// Read side
	api.HandleFunc("/inventory-transactions", postingHandler.ListTransactions).Methods("GET")
	api.HandleFunc("/ledger-entries", postingHandler.ListEntries).Methods("GET")
	api.HandleFunc("/reports/profit-loss", reportHandler.ProfitLoss).Methods("GET")
	api.HandleFunc("/reports/cash-flow", reportHandler.CashFlow).Methods("GET")
	api.HandleFunc("/reports/trial-balance", reportHandler.TrialBalance).Methods("GET")

	// Command side requires the authenticated actor
	commands := api.NewRoute().Subrouter()
	commands.Use(handler.RequireActor)
	commands.HandleFunc("/payments", paymentHandler.Create).Methods("POST")
	commands.HandleFunc("/payments/{id}/poll", paymentHandler.Poll).Methods("POST")
	commands.HandleFunc("/payments/{id}/refund", paymentHandler.Refund).Methods("POST")
	commands.HandleFunc("/payments/{id}/post", paymentHandler.PostRepayment).Methods("POST")
	commands.HandleFunc("/loans/{id}/disburse", postingHandler.Disburse).Methods("POST")
	commands.HandleFunc("/assets/{id}/sale", postingHandler.AssetSale).Methods("POST")
	commands.HandleFunc("/expenses", postingHandler.Expense).Methods("POST")
	commands.HandleFunc("/adjustments", postingHandler.Adjustment).Methods("POST")

	return router
}
