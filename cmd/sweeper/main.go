package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/danisworo/libadmin/internal/config"
	kafkax "github.com/danisworo/libadmin/internal/kafka"
	"github.com/danisworo/libadmin/internal/library"
	"github.com/danisworo/libadmin/internal/postgres"
	"github.com/danisworo/libadmin/internal/sweeper"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	pOverdue := kafkax.NewProducer(cfg.KafkaBrokers, library.TopicLoanOverdue, 1024)
	pOverdue.Start(ctx)

	svc := &sweeper.Service{
		Store:       &library.LoanRepo{DB: db},
		Producer:    pOverdue,
		ServiceName: cfg.ServiceName + "-sweeper",
	}

	go func() {
		log.Printf("overdue sweeper started: interval=%s", cfg.SweepInterval)
		svc.Run(ctx, cfg.SweepInterval)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down sweeper...")
	cancel()
	pOverdue.WaitClosed()
}
