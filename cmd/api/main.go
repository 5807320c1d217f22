package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"coachpay/config"
	httpHandler "coachpay/internal/adapter/http/handler"
	kafkaAdapter "coachpay/internal/adapter/messaging/kafka"
	pgStorage "coachpay/internal/adapter/storage/postgres"
	redisStorage "coachpay/internal/adapter/storage/redis"
	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"
	"coachpay/internal/gateway"
	"coachpay/internal/saga"
	"coachpay/internal/service"
	"coachpay/pkg/logger"

	"github.com/google/uuid"
)

// How long checkout artifacts stay readable after the saga publishes them.
const checkoutStatusTTL = 15 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting CoachPay payment service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	clearingWalletID, err := uuid.Parse(cfg.Ledger.ClearingWalletID)
	if err != nil {
		log.Fatal().Err(err).Msg("ledger.clearing_wallet_id must be a UUID")
	}

	// Initialize repositories
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	balanceRepo := pgStorage.NewWalletBalanceRepo(pool)
	journalRepo := pgStorage.NewWalletJournalRepo(pool)
	entryRepo := pgStorage.NewWalletLedgerEntryRepo(pool)
	sagaRepo := pgStorage.NewSagaRepo(pool)
	withdrawalRepo := pgStorage.NewWithdrawalRequestRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	statusCache := redisStorage.NewCheckoutStatusCache(rdb)

	// Initialize gateway adapters
	codec := service.NewSignatureCodec()
	gatewayClient := &http.Client{Timeout: 10 * time.Second}
	registry := gateway.NewRegistry(
		gateway.NewVNPayAdapter(cfg.Gateways.VNPay, codec),
		gateway.NewMomoAdapter(cfg.Gateways.Momo, codec, gatewayClient),
		gateway.NewPayOSAdapter(cfg.Gateways.PayOS, codec, gatewayClient),
	)

	// Initialize business services
	poster := service.NewLedgerPoster(journalRepo, entryRepo, balanceRepo, log)
	reconciler := service.NewReconcileService(registry, paymentRepo, journalRepo, poster, transactor, log)
	checkoutSvc := service.NewCheckoutService(registry, paymentRepo, walletRepo, poster, transactor, clearingWalletID, log)
	withdrawalSvc := service.NewWithdrawalService(withdrawalRepo, walletRepo, balanceRepo,
		poster, transactor, clearingWalletID, log)
	sweep := service.NewSweepService(paymentRepo, journalRepo, poster, transactor,
		cfg.Sweep.Interval, cfg.Sweep.Timeout, cfg.Sweep.Batch, log)

	// Initialize Kafka publisher and sagas
	publisher := kafkaAdapter.NewPublisher(cfg.Kafka, log)
	defer publisher.Close()

	purchaseSaga := saga.NewPackagePurchaseSaga(checkoutSvc, sagaRepo, publisher, log)
	profileSaga := saga.NewCoachProfileSaga(sagaRepo, publisher, log)

	// Kafka consumers
	consumers := []*kafkaAdapter.Consumer{
		kafkaAdapter.NewConsumer(cfg.Kafka, domain.TopicPackageReservationCreated,
			decode(func(ctx context.Context, evt domain.PackageReservationCreated) error {
				return purchaseSaga.OnReservationCreated(ctx, evt)
			}), log),
		kafkaAdapter.NewConsumer(cfg.Kafka, domain.TopicProfileCreated,
			decode(func(ctx context.Context, evt domain.ProfileCreated) error {
				return profileSaga.OnProfileCreated(ctx, evt)
			}), log),
		kafkaAdapter.NewConsumer(cfg.Kafka, domain.TopicRoleAssigned,
			decode(func(ctx context.Context, evt domain.RoleAssigned) error {
				return profileSaga.OnRoleAssigned(ctx, evt)
			}), log),
		kafkaAdapter.NewConsumer(cfg.Kafka, domain.TopicRoleAssignFailed,
			decode(func(ctx context.Context, evt domain.RoleAssignFailed) error {
				return profileSaga.OnRoleAssignFailed(ctx, evt)
			}), log),
		kafkaAdapter.NewConsumer(cfg.Kafka, domain.TopicPaymentReady,
			decode(func(ctx context.Context, evt domain.PaymentReady) error {
				return statusCache.Upsert(ctx, evt, checkoutStatusTTL)
			}), log),
	}

	var wg sync.WaitGroup
	for _, c := range consumers {
		wg.Add(1)
		go func(c *kafkaAdapter.Consumer) {
			defer wg.Done()
			defer c.Close()
			if err := c.Run(ctx); err != nil {
				log.Error().Err(err).Msg("kafka consumer stopped with error")
			}
		}(c)
	}

	// Background expiry sweep
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweep.Run(ctx)
	}()

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Reconciler:     reconciler,
		StatusCache:    statusCache,
		WithdrawalSvc:  withdrawalSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	wg.Wait()
	log.Info().Msg("Server exited")
}

// decode adapts a typed event handler into a raw kafka message handler.
func decode[T any](handle func(ctx context.Context, evt T) error) kafkaAdapter.Handler {
	return func(ctx context.Context, key []byte, value []byte) error {
		var evt T
		if err := json.Unmarshal(value, &evt); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		return handle(ctx, evt)
	}
}
