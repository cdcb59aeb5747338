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

	"github.com/ariefcatur/go-vendormart.git/internal/auth"
	"github.com/ariefcatur/go-vendormart.git/internal/cart"
	"github.com/ariefcatur/go-vendormart.git/internal/catalog"
	"github.com/ariefcatur/go-vendormart.git/internal/config"
	"github.com/ariefcatur/go-vendormart.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-vendormart.git/internal/kafka"
	"github.com/ariefcatur/go-vendormart.git/internal/metrics"
	"github.com/ariefcatur/go-vendormart.git/internal/orders"
	"github.com/ariefcatur/go-vendormart.git/internal/payment"
	"github.com/ariefcatur/go-vendormart.git/internal/postgres"
	"github.com/ariefcatur/go-vendormart.git/internal/redisx"
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

	// Kafka producers
	placed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	placed.Start(ctx)
	statusChanged := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	statusChanged.Start(ctx)

	// Repos & services
	authSvc := &auth.Service{
		Users:    &auth.Repo{DB: db},
		Sessions: &auth.RedisSessions{Client: rdb, TTL: cfg.SessionTTL},
	}
	catalogRepo := &catalog.Repo{DB: db}
	carts := &cart.RedisStore{Client: rdb}
	orderSvc := &orders.Service{
		Store:         &orders.Repo{DB: db},
		Carts:         carts,
		Catalog:       catalogRepo,
		Payments:      payment.NewStripe(cfg.StripeAPIKey, cfg.StripeSuccessURL, cfg.StripeCancelURL),
		Placed:        placed,
		StatusChanged: statusChanged,
		Redis:         rdb,
		ServiceName:   cfg.ServiceName,
	}

	// Router & handlers
	m := metrics.New("api")
	router := httpx.NewRouter(m)
	mw := &httpx.AuthMiddleware{Auth: authSvc}
	(&httpx.AuthHandler{Auth: authSvc, MW: mw}).Register(router)
	(&httpx.ShopsHandler{Catalog: catalogRepo, MW: mw}).Register(router)
	(&httpx.ProductsHandler{Catalog: catalogRepo, MW: mw}).Register(router)
	(&httpx.CartHandler{Carts: carts, Catalog: catalogRepo, MW: mw}).Register(router)
	(&httpx.OrdersHandler{Service: orderSvc, Metrics: m, MW: mw}).Register(router)
	(&httpx.StripeHandler{Service: orderSvc, Metrics: m, MW: mw}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

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
	placed.Close() // close inbox -> flush & close writer
	statusChanged.Close()
	placed.WaitClosed()
	statusChanged.WaitClosed()
	cancel()
}
