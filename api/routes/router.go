package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vendora-labs/vendora-backend/api/controllers"
	webhookcontrollers "github.com/vendora-labs/vendora-backend/api/controllers/webhooks"
	"github.com/vendora-labs/vendora-backend/api/middleware"
	"github.com/vendora-labs/vendora-backend/internal/fulfillment"
	"github.com/vendora-labs/vendora-backend/internal/logistics"
	"github.com/vendora-labs/vendora-backend/internal/payments"
	"github.com/vendora-labs/vendora-backend/internal/wallets"
	paystackwebhook "github.com/vendora-labs/vendora-backend/internal/webhooks/paystack"
	"github.com/vendora-labs/vendora-backend/internal/withdrawals"
	"github.com/vendora-labs/vendora-backend/pkg/config"
	"github.com/vendora-labs/vendora-backend/pkg/db"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
	"github.com/vendora-labs/vendora-backend/pkg/paystack"
	"github.com/vendora-labs/vendora-backend/pkg/redis"
)

type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	PaystackClient *paystack.Client

	Wallets     wallets.Service
	Logistics   logistics.Service
	Payments    payments.Service
	Withdrawals withdrawals.Service
	Fulfillment fulfillment.Service

	WebhookService *paystackwebhook.Service
	WebhookGuard   *paystackwebhook.IdempotencyGuard

	MetricsHandler http.Handler
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	metricsHandler := params.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(
			params.WebhookService,
			params.PaystackClient,
			params.WebhookGuard,
			paystackwebhook.EventID,
			logg,
		))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/logistics-companies", controllers.ListLogisticsCompanies(params.Logistics, logg))

		r.Route("/payments", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleAdmin)).
				Post("/initialize", controllers.InitializePayment(params.Payments, logg))
			r.Get("/verify/{reference}", controllers.VerifyPayment(params.Payments, logg))
		})

		r.Route("/orders/items/{itemId}", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleVendor, enums.RoleAdmin)).
				Post("/dispatch", controllers.DispatchOrderItem(params.Fulfillment, logg))
			r.With(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleAdmin)).
				Post("/confirm-delivery", controllers.ConfirmDelivery(params.Fulfillment, logg))
		})

		r.Route("/wallets", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleVendor)).
				Get("/me", controllers.VendorWalletBalance(params.Wallets, logg))
			r.With(middleware.RequireRole(logg, enums.RoleVendor)).
				Get("/me/transactions", controllers.VendorWalletTransactions(params.Wallets, logg))
		})

		r.With(middleware.RequireRole(logg, enums.RoleVendor, enums.RoleAdmin)).
			Post("/withdrawals", controllers.RequestWithdrawal(params.Withdrawals, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/", controllers.AdminWalletBalance(params.Wallets, logg))
			r.Get("/{walletId}/transactions", controllers.AdminWalletTransactions(params.Wallets, logg))
		})
	})

	return r
}
