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

	"github.com/shopkit/go-shop-api/internal/config"
	"github.com/shopkit/go-shop-api/internal/httpx"
	kafkax "github.com/shopkit/go-shop-api/internal/kafka"
	"github.com/shopkit/go-shop-api/internal/postgres"
	"github.com/shopkit/go-shop-api/internal/redisx"
	"github.com/shopkit/go-shop-api/internal/shop"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, int32(cfg.PgMaxConns))
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: placed & rejected (two topics)
	pOK := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderPlaced, 1024)
	pOK.Start(ctx)
	pRJ := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicStockRejected, 1024)
	pRJ.Start(ctx)

	// Repo, service & handlers
	repo := &shop.Repo{DB: db}
	svc := shop.NewService(repo, repo, repo)

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Service:        svc,
		PlacedProducer: pOK,
		RejectProducer: pRJ,
		Redis:          rdb,
		ServiceName:    cfg.ServiceName,
	}
	oh.Register(router)
	(&httpx.CatalogHandler{Store: repo}).Register(router)
	(&httpx.UsersHandler{Store: repo}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pOK.Close()
	pRJ.Close()
	cancel()
	pOK.WaitClosed()
	pRJ.WaitClosed()
}
