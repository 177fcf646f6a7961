// Package main runs the background email worker that drains the welcome email queue.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/talentdesk/backend/config"
	"github.com/talentdesk/backend/internal/emaillogs"
	"github.com/talentdesk/backend/internal/metrics"
	"github.com/talentdesk/backend/internal/notify"
	"github.com/talentdesk/backend/internal/worker"
	"github.com/talentdesk/backend/pkg/database"
	"github.com/talentdesk/backend/pkg/queue"
	"github.com/talentdesk/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	sender, err := notify.NewProviderSender(cfg.Email, logger)
	if err != nil {
		logger.Fatal("email sender", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewCollector(registry)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewEmailProcessor(jobQueue, sender, emaillogs.NewRepository(pool), recorder, logger)

	if metricsAddr := cfg.Server.WorkerMetricsAddr; metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(metricsAddr, metrics.Handler(registry)); err != nil && err != http.ErrServerClosed {
				logger.Error("worker metrics", zap.Error(err))
			}
		}()
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started", zap.String("provider", cfg.Email.Provider))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
