package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vendora-labs/vendora-backend/api/routes"
	"github.com/vendora-labs/vendora-backend/internal/fulfillment"
	"github.com/vendora-labs/vendora-backend/internal/logistics"
	"github.com/vendora-labs/vendora-backend/internal/orders"
	"github.com/vendora-labs/vendora-backend/internal/payments"
	"github.com/vendora-labs/vendora-backend/internal/settlement"
	"github.com/vendora-labs/vendora-backend/internal/wallets"
	paystackwebhook "github.com/vendora-labs/vendora-backend/internal/webhooks/paystack"
	"github.com/vendora-labs/vendora-backend/internal/withdrawals"
	"github.com/vendora-labs/vendora-backend/pkg/config"
	"github.com/vendora-labs/vendora-backend/pkg/db"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
	"github.com/vendora-labs/vendora-backend/pkg/metrics"
	"github.com/vendora-labs/vendora-backend/pkg/migrate"
	"github.com/vendora-labs/vendora-backend/pkg/outbox"
	"github.com/vendora-labs/vendora-backend/pkg/paystack"
	"github.com/vendora-labs/vendora-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paystackClient, err := paystack.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	walletSvc, err := wallets.NewService(wallets.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	logisticsSvc, err := logistics.NewService(logistics.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create logistics service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(walletSvc, outboxSvc, cfg.Settlement, ledgerMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(dbClient, payments.NewRepository(dbClient.DB()), paystackClient, ordersSvc, outboxSvc, ledgerMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	withdrawalsSvc, err := withdrawals.NewService(dbClient, withdrawals.NewRepository(dbClient.DB()), walletSvc, paystackClient, outboxSvc, ledgerMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create withdrawals service", err)
		os.Exit(1)
	}

	fulfillmentSvc, err := fulfillment.NewService(dbClient, ordersSvc, logisticsSvc, walletSvc, settlementSvc, paymentsSvc, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	webhookSvc, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
		Payments:    paymentsSvc,
		Withdrawals: withdrawalsSvc,
		Ledger:      ledgerMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := paystackwebhook.NewIdempotencyGuard(redisClient, cfg.Redis.WebhookIdempotencyTTL, "paystack")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			PaystackClient: paystackClient,
			Wallets:        walletSvc,
			Logistics:      logisticsSvc,
			Payments:       paymentsSvc,
			Withdrawals:    withdrawalsSvc,
			Fulfillment:    fulfillmentSvc,
			WebhookService: webhookSvc,
			WebhookGuard:   webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
