package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/inkstore/internal/assets"
	"github.com/xenking/inkstore/internal/domain/checkout"
	"github.com/xenking/inkstore/internal/domain/coupon"
	"github.com/xenking/inkstore/internal/domain/entitlement"
	"github.com/xenking/inkstore/internal/domain/order"
	"github.com/xenking/inkstore/internal/handler"
	"github.com/xenking/inkstore/internal/payment"
	"github.com/xenking/inkstore/internal/storage/postgres"
	"github.com/xenking/inkstore/pkg/health"
	"github.com/xenking/inkstore/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	accessRepo := postgres.NewAccessRepository(pool)
	domainRepo := postgres.NewDomainListingRepository(pool)

	// Payment provider client. Outbound calls carry trace context.
	providerClient := payment.NewClient(
		&http.Client{
			Timeout: 30 * time.Second,
			Transport: otelhttp.NewTransport(nil,
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
		},
		cfg.Payment.APIBase,
		cfg.Payment.SecretKey,
	)

	// Domain services.
	evaluator := coupon.NewRepoEvaluator(couponRepo)
	ledger := order.NewLedger(orderRepo)
	granter := entitlement.NewGranter(productRepo, accessRepo)
	checkoutSvc := checkout.NewService(
		checkout.Config{
			SuccessURL: cfg.Checkout.SuccessURL,
			CancelURL:  cfg.Checkout.CancelURL,
			Currency:   cfg.Checkout.Currency,
		},
		productRepo,
		evaluator,
		ledger,
		granter,
		providerClient,
		domainRepo,
	)

	// HTTP handlers.
	h := handler.New(
		handler.Config{
			JWTSecret:     []byte(cfg.JWTSecret),
			WebhookSecret: []byte(cfg.Payment.WebhookSecret),
			DownloadTTL:   cfg.Download.TTL,
		},
		checkoutSvc,
		evaluator,
		productRepo,
		accessRepo,
		assets.NewHMACSigner(cfg.Download.BaseURL, []byte(cfg.Download.SignSecret)),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux)

	instrumented := otelhttp.NewHandler(mux, "inkstore-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				// Provider webhook retries are authenticated by signature
				// and must never be throttled.
				Exempt: func(r *http.Request) bool {
					return r.URL.Path == "/api/webhooks/payment"
				},
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
