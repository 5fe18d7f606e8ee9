package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "streamrent/internal/api/http"
	"streamrent/internal/assetreg"
	"streamrent/internal/clock"
	"streamrent/internal/config"
	"streamrent/internal/domain"
	"streamrent/internal/events"
	"streamrent/internal/ledger"
	"streamrent/internal/logger"
	"streamrent/internal/oracle"
	"streamrent/internal/policy"
	"streamrent/internal/repository"
	"streamrent/internal/repository/memory"
	"streamrent/internal/repository/postgres"
	"streamrent/internal/security"
	"streamrent/internal/service"
)

type repositories struct {
	Listings   repository.ListingRepository
	Rentals    repository.RentalRepository
	Streams    repository.StreamRepository
	Reputation repository.ReputationRepository
	Collateral repository.CollateralRepository
}

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting streamrent server...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "store", cfg.Server.Store)

	repos, dbClose, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to open backing store", "error", err)
		log.Fatalf("Failed to open backing store: %v", err)
	}
	defer dbClose()

	// Events
	var publisher events.Publisher = events.Noop{}
	if cfg.AMQP.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.Error("Failed to connect to event broker", "error", err)
			log.Fatalf("Failed to connect to event broker: %v", err)
		}
		defer amqpPub.Close()
		publisher = amqpPub
		logger.Info("Event publication enabled", "exchange", cfg.AMQP.Exchange)
	} else {
		logger.Warn("No AMQP URL configured, events will be discarded")
	}

	// External collaborators. The in-process implementations stand in for
	// the real ledger and asset registry integrations.
	balances := ledger.NewMemoryLedger()
	registry := assetreg.NewMockRegistry()
	priceOracle := oracle.NewStaticOracle()
	clk := clock.System()

	// Services
	p := cfg.Protocol
	params := policy.Params{
		MaxScore:            p.ReputationMaxScore,
		InitialScore:        p.ReputationInitialScore,
		Gain:                p.ReputationGain,
		Loss:                p.ReputationLoss,
		BlacklistFloor:      p.BlacklistFloor,
		TrustThreshold:      p.TrustThreshold,
		BlacklistMultiplier: p.BlacklistMultiplier,
		MinSuccessPercent:   p.MinSuccessPercent,
	}

	streamSvc := service.NewStreamService(repos.Streams, balances, clk, publisher,
		domain.Account(p.StreamCustodyAccount))
	reputationSvc := service.NewReputationService(repos.Reputation, params, clk, publisher,
		domain.SessionManagerAccount)
	listingSvc := service.NewListingService(repos.Listings, repos.Rentals, registry, priceOracle,
		clk, publisher, p.MinDurationSeconds, p.MaxDurationSeconds)
	rentalSvc := service.NewRentalService(repos.Rentals, repos.Listings, repos.Collateral,
		streamSvc, reputationSvc, balances, registry, clk, publisher,
		service.RentalConfig{
			RecoveryGraceSeconds: p.RecoveryGraceSeconds,
			DisputeWindowSeconds: p.DisputeWindowSeconds,
			Identity:             domain.SessionManagerAccount,
			CollateralCustody:    domain.Account(p.CollateralCustodyAccount),
			Operator:             domain.Account(p.OperatorAccount),
			Resolver:             domain.Account(p.ResolverAccount),
		})

	// Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	principals := make([]security.Principal, 0, len(cfg.Principals))
	for _, pc := range cfg.Principals {
		principals = append(principals, security.Principal{
			Account: domain.Account(pc.Account),
			Roles:   pc.Roles,
			KeyHash: pc.KeyHash,
		})
	}
	authenticator := security.NewAPIKeyAuthenticator(principals)

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Listings:   listingSvc,
		Rentals:    rentalSvc,
		Streams:    streamSvc,
		Reputation: reputationSvc,
		Keys:       authenticator,
		Tokens:     tokenManager,
		Clock:      clk,
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}

// openStore returns the configured repository set and a close function for
// whatever backs it.
func openStore(cfg *config.Config) (*repositories, func(), error) {
	if cfg.Server.Store == "memory" {
		logger.Info("Using in-memory store (dev mode)")
		store := memory.NewStore()
		return &repositories{
			Listings:   store.ListingRepository,
			Rentals:    store.RentalRepository,
			Streams:    store.StreamRepository,
			Reputation: store.ReputationRepository,
			Collateral: store.CollateralRepository,
		}, func() {}, nil
	}

	logger.Debug("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port,
		"database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	return &repositories{
		Listings:   store.ListingRepository,
		Rentals:    store.RentalRepository,
		Streams:    store.StreamRepository,
		Reputation: store.ReputationRepository,
		Collateral: store.CollateralRepository,
	}, func() { db.Close() }, nil
}
