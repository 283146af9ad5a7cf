package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nigersavoir/savoir-api/internal/catalog"
	"github.com/nigersavoir/savoir-api/internal/config"
	"github.com/nigersavoir/savoir-api/internal/httpx"
	"github.com/nigersavoir/savoir-api/internal/identity"
	kafkax "github.com/nigersavoir/savoir-api/internal/kafka"
	"github.com/nigersavoir/savoir-api/internal/market"
	"github.com/nigersavoir/savoir-api/internal/postgres"
	"github.com/nigersavoir/savoir-api/internal/reaction"
	"github.com/nigersavoir/savoir-api/internal/redisx"
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

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	orderProd := kafkax.NewProducer(cfg.KafkaBrokers, market.TopicOrderCreated, 1024)
	orderProd.Start(ctx)
	reactionProd := kafkax.NewProducer(cfg.KafkaBrokers, reaction.TopicReactionSet, 1024)
	reactionProd.Start(ctx)

	users := &identity.CachedResolver{
		Next:  &identity.Repo{DB: db},
		Redis: rdb,
	}
	catalogRepo := &catalog.Repo{DB: db}
	marketRepo := &market.Repo{DB: db}
	reactionRepo := &reaction.Repo{DB: db}

	orderSvc := &market.Service{Users: users, Store: marketRepo, Logger: logger}
	documents := reaction.NewEngine(reaction.KindDocument,
		reaction.TargetResolverFunc(catalogRepo.DocumentExists), users, reactionRepo, logger)
	books := reaction.NewEngine(reaction.KindBook,
		reaction.TargetResolverFunc(catalogRepo.BookExists), users, reactionRepo, logger)

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{
		Service:     orderSvc,
		Producer:    orderProd,
		Redis:       rdb,
		ServiceName: cfg.ServiceName,
		Logger:      logger,
	}).Register(router)
	(&httpx.ReactionsHandler{
		Documents:   documents,
		Books:       books,
		Producer:    reactionProd,
		ServiceName: cfg.ServiceName,
		Logger:      logger,
	}).Register(router)
	(&httpx.BooksHandler{Catalog: catalogRepo, Logger: logger}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	orderProd.Close() // close inbox -> flush & close writer
	reactionProd.Close()
	cancel() // stop producer loops
	orderProd.WaitClosed()
	reactionProd.WaitClosed()
}
