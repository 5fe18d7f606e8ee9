package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"streamrent/internal/assetreg"
	"streamrent/internal/clock"
	"streamrent/internal/config"
	"streamrent/internal/domain"
	"streamrent/internal/events"
	"streamrent/internal/jobs"
	"streamrent/internal/ledger"
	"streamrent/internal/logger"
	"streamrent/internal/policy"
	"streamrent/internal/repository/postgres"
	"streamrent/internal/scheduler"
	"streamrent/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.Bool("run-once", false, "Run the recovery report once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting streamrent report runner...", "log_level", cfg.Log.Level)

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	clk := clock.System()
	publisher := events.Noop{}
	p := cfg.Protocol

	// The report path is read-only; the service graph is assembled with
	// inert collaborators and never moves funds or touches the registry.
	streamSvc := service.NewStreamService(store.StreamRepository, ledger.NewMemoryLedger(),
		clk, publisher, domain.Account(p.StreamCustodyAccount))
	reputationSvc := service.NewReputationService(store.ReputationRepository, policy.Params{
		MaxScore:            p.ReputationMaxScore,
		InitialScore:        p.ReputationInitialScore,
		Gain:                p.ReputationGain,
		Loss:                p.ReputationLoss,
		BlacklistFloor:      p.BlacklistFloor,
		TrustThreshold:      p.TrustThreshold,
		BlacklistMultiplier: p.BlacklistMultiplier,
		MinSuccessPercent:   p.MinSuccessPercent,
	}, clk, publisher, domain.SessionManagerAccount)
	rentalSvc := service.NewRentalService(store.RentalRepository, store.ListingRepository,
		store.CollateralRepository, streamSvc, reputationSvc, ledger.NewMemoryLedger(),
		assetreg.NewMockRegistry(), clk, publisher,
		service.RentalConfig{
			RecoveryGraceSeconds: p.RecoveryGraceSeconds,
			DisputeWindowSeconds: p.DisputeWindowSeconds,
			Identity:             domain.SessionManagerAccount,
			CollateralCustody:    domain.Account(p.CollateralCustodyAccount),
			Operator:             domain.Account(p.OperatorAccount),
			Resolver:             domain.Account(p.ResolverAccount),
		})

	jobRunner := jobs.NewJobRunner(rentalSvc, cfg)

	if *runOnce {
		logger.Info("Running recovery report once")
		jobRunner.ReportRecoverableRentals()
		logger.Info("Report execution completed")
		return
	}

	cronScheduler := scheduler.NewScheduler(jobRunner)
	cronScheduler.Start()
	logger.Info("Report scheduler is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down report scheduler...")
	cronScheduler.Stop()
	logger.Info("Report scheduler stopped. Goodbye!")
}
