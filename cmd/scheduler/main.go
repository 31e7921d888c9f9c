package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tawandab/pawnshop-engine/internal/config"
	"github.com/tawandab/pawnshop-engine/internal/gateway"
	"github.com/tawandab/pawnshop-engine/internal/repository"
	"github.com/tawandab/pawnshop-engine/internal/service"
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

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	gw, err := gateway.New(cfg.Gateway, cfg.GetGatewayTimeout(), logger)
	if err != nil {
		logger.Fatal("failed to initialize payment gateway", zap.Error(err))
	}

	loanRepo := repository.NewLoanRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	journalRepo := repository.NewJournalRepository(db)

	postingService := service.NewPostingService(journalRepo, loanRepo, assetRepo, cfg, logger)
	paymentService := service.NewPaymentService(paymentRepo, loanRepo, postingService, gw, cfg, logger)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatal("invalid scheduler timezone", zap.Error(err))
	}

	c := cron.New(cron.WithLocation(location))
	if err := setupCronJobs(c, cfg, paymentService, logger); err != nil {
		logger.Fatal("failed to schedule jobs", zap.Error(err))
	}

	c.Start()
	logger.Info("scheduler started",
		zap.Duration("sweep_interval", cfg.GetSweepInterval()),
		zap.Duration("payment_expiry", cfg.GetPaymentExpiry()),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, payments *service.PaymentService, logger *zap.Logger) error {
	// Poll every in-flight gateway payment so captures land even when the
	// provider webhook never arrives.
	sweepSpec := fmt.Sprintf("@every %s", cfg.GetSweepInterval())
	if _, err := c.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		captured, err := payments.SweepPending(ctx)
		if err != nil {
			logger.Error("pending payment sweep failed", zap.Error(err))
			return
		}
		if captured > 0 {
			logger.Info("pending payment sweep captured payments", zap.Int("captured", captured))
		}
	}); err != nil {
		return err
	}

	// Daily cleanup: cancel gateway payments nobody ever completed.
	if _, err := c.AddFunc("0 1 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		expired, err := payments.ExpireStale(ctx)
		if err != nil {
			logger.Error("stale payment expiry failed", zap.Error(err))
			return
		}
		if expired > 0 {
			logger.Info("stale payments cancelled", zap.Int("expired", expired))
		}
	}); err != nil {
		return err
	}

	return nil
}
