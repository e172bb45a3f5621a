package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shopkit/go-shop-api/internal/config"
	kafkax "github.com/shopkit/go-shop-api/internal/kafka"
	"github.com/shopkit/go-shop-api/internal/postgres"
	"github.com/shopkit/go-shop-api/internal/redisx"
	"github.com/shopkit/go-shop-api/internal/shop"
	"github.com/shopkit/go-shop-api/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, int32(cfg.PgMaxConns))
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	repo := &shop.Repo{DB: db}
	svc := &worker.Service{
		Orders:      shop.NewService(repo, repo, repo),
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-worker",
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, shop.TopicOrderPlaced, cfg.Workers)

	go func() {
		log.Printf("worker started: group=%s topic=%s workers=%d", cfg.WorkerGroup, shop.TopicOrderPlaced, cfg.Workers)
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down worker...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
