package jobs

import (
	"context"
	"time"

	"streamrent/internal/config"
	"streamrent/internal/logger"
	"streamrent/internal/service"
)

// JobRunner coordinates scheduled jobs. Every job here is read-only:
// rental state transitions only ever happen inside a caller-initiated
// operation, never on a timer.
type JobRunner struct {
	rentals service.RentalService
	config  *config.Config
}

func NewJobRunner(rentals service.RentalService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		rentals: rentals,
		config:  cfg,
	}
}

// Config exposes the runner's configuration to the scheduler.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// ReportRecoverableRentals logs every active rental whose end time plus the
// recovery grace period has passed, so an operator can decide whether to
// invoke emergency recovery. It mutates nothing.
func (jr *JobRunner) ReportRecoverableRentals() {
	jr.runWithRecovery("ReportRecoverableRentals", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		rentals, err := jr.rentals.ListRecoverable(ctx)
		if err != nil {
			logger.Error("Failed to list recoverable rentals", "error", err)
			return
		}
		if len(rentals) == 0 {
			logger.Info("No recoverable rentals")
			return
		}

		for _, r := range rentals {
			logger.Warn("Rental eligible for emergency recovery",
				"rental_id", r.ID,
				"listing_id", r.ListingID,
				"asset", r.Asset.String(),
				"renter", r.Renter,
				"end_time", r.EndTime)
		}
		logger.Info("Recoverable rental report complete", "count", len(rentals))
	})
}
