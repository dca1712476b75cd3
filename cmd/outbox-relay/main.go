// Command outbox-relay publishes committed payment events from the
// outbox_messages table to Kafka.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sportsclub/server/internal/module/outbox"
	"github.com/sportsclub/server/internal/shared/config"
	"github.com/sportsclub/server/internal/shared/logger"
	"github.com/sportsclub/server/internal/utils/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLog, err := logger.NewZapLogger(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.URL())
	if err != nil {
		zapLog.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	writer := outbox.NewKafkaWriter(cfg.Outbox.Brokers, cfg.Outbox.Topic)
	defer func() { _ = writer.Close() }()

	if cfg.Outbox.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Outbox.MetricsAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	relay := outbox.NewRelay(pool, writer, outbox.RelayConfig{
		BatchSize: cfg.Outbox.BatchSize,
		Interval:  cfg.Outbox.Interval,
	}, metrics.New("sportsclub"), zapLog.Named("outbox"))

	zapLog.Info("publishing outbox",
		zap.Strings("brokers", cfg.Outbox.Brokers),
		zap.String("topic", cfg.Outbox.Topic),
	)
	if err := relay.Run(ctx); err != nil {
		zapLog.Error("outbox relay failed", zap.Error(err))
	}
}
