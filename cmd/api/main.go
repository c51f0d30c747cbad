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

	"github.com/danisworo/libadmin/internal/config"
	"github.com/danisworo/libadmin/internal/httpx"
	kafkax "github.com/danisworo/libadmin/internal/kafka"
	"github.com/danisworo/libadmin/internal/library"
	"github.com/danisworo/libadmin/internal/postgres"
	"github.com/danisworo/libadmin/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: one per topic
	pBorrowed := kafkax.NewProducer(cfg.KafkaBrokers, library.TopicLoanBorrowed, 1024)
	pBorrowed.Start(ctx)
	pReturned := kafkax.NewProducer(cfg.KafkaBrokers, library.TopicLoanReturned, 1024)
	pReturned.Start(ctx)

	// Service & handler
	svc := &library.Service{
		Store:            &library.LoanRepo{DB: db},
		Redis:            rdb,
		ProducerBorrowed: pBorrowed,
		ProducerReturned: pReturned,
		ServiceName:      cfg.ServiceName,
	}
	router := httpx.NewRouter()
	lh := &httpx.LibraryHandler{
		Loans: svc,
		Books: &library.BookRepo{DB: db},
		Cats:  &library.CategoryRepo{DB: db},
		Redis: rdb,
	}
	lh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pBorrowed.Close()
	pReturned.Close()
	cancel()
	pBorrowed.WaitClosed()
	pReturned.WaitClosed()
}
