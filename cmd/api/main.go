package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/avolant/cafe-kds/internal/config"
	"github.com/avolant/cafe-kds/internal/httpx"
	"github.com/avolant/cafe-kds/internal/inventory"
	kafkax "github.com/avolant/cafe-kds/internal/kafka"
	"github.com/avolant/cafe-kds/internal/lifecycle"
	"github.com/avolant/cafe-kds/internal/orders"
	"github.com/avolant/cafe-kds/internal/postgres"
	"github.com/avolant/cafe-kds/internal/redisx"
	"github.com/avolant/cafe-kds/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, 8)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka journals, one producer per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	pStatus.Start(ctx)
	pStock := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockAdjusted, 1024)
	pStock.Start(ctx)

	// Core
	repo := &orders.Repo{DB: db}
	hub := ws.NewHub(logger)
	engine := &lifecycle.Engine{
		Store:          repo,
		Stock:          &inventory.Adjuster{DB: db},
		Broadcast:      hub,
		Numbers:        &orders.NumberGenerator{Counter: repo, Loc: cfg.Location},
		CreatedJournal: pCreated,
		StatusJournal:  pStatus,
		StockJournal:   pStock,
		Service:        cfg.ServiceName,
		Log:            logger,
	}

	// HTTP + websocket
	router := httpx.NewRouter()
	ch := &httpx.CatalogHandler{Repo: repo, Redis: rdb}
	ch.Register(router)
	wsrv := ws.NewServer(hub, engine, cfg.AllowedOrigin, logger)
	router.Get("/ws", wsrv.ServeWS)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	pCreated.Close()
	pStatus.Close()
	pStock.Close()
	pCreated.WaitClosed()
	pStatus.WaitClosed()
	pStock.WaitClosed()
}
