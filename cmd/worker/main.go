package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nigersavoir/savoir-api/internal/config"
	kafkax "github.com/nigersavoir/savoir-api/internal/kafka"
	"github.com/nigersavoir/savoir-api/internal/market"
	"github.com/nigersavoir/savoir-api/internal/reaction"
	"github.com/nigersavoir/savoir-api/internal/redisx"
	"github.com/nigersavoir/savoir-api/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &worker.Service{
		Redis:  rdb,
		Logger: logger,
		Name:   cfg.ServiceName + "-worker",
	}

	group := getenv("WORKER_GROUP", "savoir-worker")
	workers := mustAtoi(os.Getenv("WORKER_CONCURRENCY"), "8")

	orderCons := kafkax.NewConsumer(cfg.KafkaBrokers, group, market.TopicOrderCreated, workers, logger)
	reactionCons := kafkax.NewConsumer(cfg.KafkaBrokers, group, reaction.TopicReactionSet, workers, logger)

	go func() {
		logger.Info("consumer started",
			zap.String("group", group),
			zap.String("topic", market.TopicOrderCreated),
			zap.Int("workers", workers))
		if err := orderCons.Start(ctx, svc.HandleOrderCreated); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()
	go func() {
		logger.Info("consumer started",
			zap.String("group", group),
			zap.String("topic", reaction.TopicReactionSet),
			zap.Int("workers", workers))
		if err := reactionCons.Start(ctx, svc.HandleReactionSet); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumers")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
