package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/storefront/internal/notification/application"
	notifykafka "github.com/dmehra2102/storefront/internal/notification/infrastructure/kafka"
	"github.com/dmehra2102/storefront/internal/notification/infrastructure/smtp"
	"github.com/dmehra2102/storefront/pkg/config"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/metrics"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

func main() {
	cfg, err := config.Load("notification-service")
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

	// Redis for consumer dedupe
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	renderer, err := application.NewRenderer()
	if err != nil {
		log.Error("templates failed to parse", "err", err)
		os.Exit(1)
	}
	mailer, err := smtp.NewMailer(log, smtp.Config{
		Addr:     cfg.SMTPAddr(),
		Host:     cfg.SMTPHost,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		Timeout:  cfg.SMTPTimeout,
		PoolSize: 2,
	})
	if err != nil {
		log.Error("mailer init failed", "err", err)
		os.Exit(1)
	}
	notifier := application.NewNotifier(log, mailer, renderer)

	reader := notifykafka.NewReader(strings.Split(cfg.KafkaAddr, ","), cfg.OrderTopic, cfg.ConsumerGroup)
	// each message gets the mail timeout plus headroom for the dedupe check
	consumer := notifykafka.NewConsumer(log, reader, notifier, idem, cfg.SMTPTimeout+5*time.Second)

	// Metrics and health
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     r,
		ReadTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	go func() {
		log.Info("consuming order events", "topic", cfg.OrderTopic, "group", cfg.ConsumerGroup)
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped with error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("notification-service shutdown complete")
}
