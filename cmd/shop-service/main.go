package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	cartapp "github.com/dmehra2102/storefront/internal/cart/application"
	carthttp "github.com/dmehra2102/storefront/internal/cart/infrastructure/http"
	cartpg "github.com/dmehra2102/storefront/internal/cart/infrastructure/postgres"
	identityhttp "github.com/dmehra2102/storefront/internal/identity/infrastructure/http"
	identitypg "github.com/dmehra2102/storefront/internal/identity/infrastructure/postgres"
	inventorypg "github.com/dmehra2102/storefront/internal/inventory/infrastructure/postgres"
	orderapp "github.com/dmehra2102/storefront/internal/order/application"
	orderhttp "github.com/dmehra2102/storefront/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/storefront/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/storefront/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/storefront/internal/platform/db"
	"github.com/dmehra2102/storefront/pkg/config"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/metrics"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

func main() {
	cfg, err := config.Load("shop-service")
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	if cfg.RunMigrations {
		if err := db.Migrate(log, cfg.PGURL); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis for request idempotency
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	// Kafka producer and outbox relay
	writer := orderkafka.NewWriter(log, strings.Split(cfg.KafkaAddr, ","))
	defer writer.Close()
	dispatch := outbox.NewDispatcher(log, writer, cfg.OrderTopic)
	relay := outbox.NewRelay(log, outbox.NewPostgresStore(log, pool), dispatch, cfg.ServiceName+"-relay")

	// Services
	users := identitypg.NewRepository(log, pool)
	carts := cartapp.NewService(log, cartpg.NewRepository(log, pool), inventorypg.NewRepository(log, pool))
	orders := orderapp.NewService(log, orderpg.NewUnitOfWork(log, pool), orderpg.Stores(log, pool), cfg.ServiceName)

	cartHandler := carthttp.NewHandler(log, carts)
	orderHandler := orderhttp.NewHandler(log, orders)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Requests(log), middleware.Recoverer)
	r.Use(metrics.Middleware(cfg.ServiceName))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(identityhttp.Authenticate(log, users))
		r.Mount("/cart", cartHandler.Routes())
		r.Mount("/orders", orderHandler.Routes(idempotency.Middleware(log, idem, "place-order", identityhttp.ActorID)))
		r.Mount("/analytics", orderHandler.AnalyticsRoutes())
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      otelhttp.NewHandler(r, cfg.ServiceName),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("shop-service shutdown complete")
}
