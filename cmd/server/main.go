package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"scrap/internal/app"
	"scrap/internal/config"
	"scrap/internal/handler"
	"scrap/internal/messaging/kafka"
	"scrap/internal/messaging/rabbitmq"
	"scrap/internal/middleware"
	internalRedis "scrap/internal/redis"
	"scrap/internal/repository/postgres"
	"scrap/internal/service"
)

func main() {
	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database and Redis are instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	publisher, closePublisher := newPublisher(cfg.RabbitMQ)
	defer closePublisher()

	w := wire(db, redisClient, publisher, cfg)

	server := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: app.NewRouter(app.RouterDeps{
			PickupHandler:    w.pickupHandler,
			CollectorHandler: w.collectorHandler,
			WalletHandler:    w.walletHandler,
			AdminHandler:     w.adminHandler,
			PricingHandler:   w.pricingHandler,
			Auth:             middleware.NewAuthMiddleware(cfg.Auth.JWTSecret),
			RedisClient:      redisClient,
			NewRelicApp:      nrApp,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	var workers sync.WaitGroup
	if cfg.Kafka.Enabled {
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.PayoutTopic, kafka.NewPayoutHandler(w.wallet))
		if err != nil {
			log.Fatalf("failed to start payout consumer: %v", err)
		}
		defer consumer.Close()

		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := consumer.Run(runCtx); err != nil {
				log.Printf("payout consumer stopped: %v", err)
			}
		}()
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	stop()
	workers.Wait()

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

// newPublisher connects to RabbitMQ when enabled and falls back to logging
// events otherwise.
func newPublisher(cfg config.RabbitMQConfig) (service.EventPublisher, func()) {
	if !cfg.Enabled {
		log.Println("RabbitMQ disabled, events are logged")
		return service.LogPublisher{}, func() {}
	}

	p, err := rabbitmq.Dial(cfg.URL, cfg.Exchange)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	return p, func() {
		if err := p.Close(); err != nil {
			log.Printf("failed to close RabbitMQ publisher: %v", err)
		}
	}
}

type wiring struct {
	wallet *service.WalletService

	pickupHandler    *handler.PickupHandler
	collectorHandler *handler.CollectorHandler
	walletHandler    *handler.WalletHandler
	adminHandler     *handler.AdminHandler
	pricingHandler   *handler.PricingHandler
}

// wire builds repositories, services and handlers.
func wire(db *sql.DB, redisClient *redis.Client, publisher service.EventPublisher, cfg *config.Config) wiring {
	// Repositories.
	store := postgres.NewStore(db)
	tx := postgres.NewTransactor(db)

	// Redis stores.
	locks := internalRedis.NewLockStore(redisClient)
	pricing := internalRedis.NewPricingCache(redisClient, postgres.NewPricingCatalog(db), cfg.Pickup.PricingCacheTTL)

	// Services.
	estimation := service.NewEstimationService(pricing, cfg.Pickup.PriceLockWindow)
	matching := service.NewMatchingService(store.Collectors(), store.Pickups())
	settlement := service.NewSettlementService(tx, publisher)
	pickups := service.NewPickupService(store.Pickups(), estimation, matching, locks, settlement, publisher, service.PickupConfig{
		AcceptLockTTL: cfg.Pickup.AcceptLockTTL,
		AutoSettle:    cfg.Pickup.AutoSettle,
	})
	wallet := service.NewWalletService(store.Ledger(), tx, publisher)
	collectors := service.NewCollectorService(matching, store.Ledger())

	return wiring{
		wallet:           wallet,
		pickupHandler:    handler.NewPickupHandler(pickups),
		collectorHandler: handler.NewCollectorHandler(pickups, handler.NewCollectorFacade(matching, collectors)),
		walletHandler:    handler.NewWalletHandler(wallet),
		adminHandler:     handler.NewAdminHandler(settlement, pricing),
		pricingHandler:   handler.NewPricingHandler(pricing),
	}
}
