package service

import (
	"context"

	"streamrent/internal/domain"
)

// ListingQuote pairs a listing's stored price with the oracle's advisory
// suggestion, when one is available.
type ListingQuote struct {
	Listing        *domain.Listing `json:"listing"`
	StoredPrice    int64           `json:"stored_price"`
	SuggestedPrice *int64          `json:"suggested_price,omitempty"`
}

// StreamSettlement reports how a cancelled stream's deposit was split.
// RecipientPayout + SenderRefund + prior withdrawals always equal the
// deposit.
type StreamSettlement struct {
	Stream          *domain.Stream `json:"stream"`
	RecipientPayout int64          `json:"recipient_payout"`
	SenderRefund    int64          `json:"sender_refund"`
}

type ListingService interface {
	CreateListing(ctx context.Context, caller domain.Account, asset domain.AssetRef, pricePerSecond, minDuration, maxDuration, collateralRequired int64) (*domain.Listing, error)
	Deactivate(ctx context.Context, caller domain.Account, listingID string) (*domain.Listing, error)
	GetListing(ctx context.Context, listingID string) (*domain.Listing, error)
	Quote(ctx context.Context, listingID string) (*ListingQuote, error)
	ListByOwner(ctx context.Context, owner domain.Account) ([]domain.Listing, error)
}

// RentalService is the rental session manager: it orchestrates the listing
// registry, payment stream engine, collateral custody, reputation ledger and
// the external asset registry. All time-dependent transitions are evaluated
// lazily when a call arrives; nothing here runs on a timer.
type RentalService interface {
	Rent(ctx context.Context, caller domain.Account, listingID string, durationSeconds, payment int64) (*domain.Rental, error)
	// CompleteRental is callable by anyone once the rental's end time has
	// passed; liveness depends on some party having an incentive to call it.
	CompleteRental(ctx context.Context, caller domain.Account, rentalID string) (*domain.Rental, error)
	Dispute(ctx context.Context, caller domain.Account, rentalID, reason string) (*domain.Rental, error)
	ResolveDispute(ctx context.Context, caller domain.Account, rentalID string, favorRenter bool, refundAmount int64) (*domain.Rental, error)
	EmergencyRecover(ctx context.Context, caller domain.Account, rentalID string) (*domain.Rental, error)
	DepositCollateral(ctx context.Context, caller domain.Account, amount int64) (*domain.CollateralAccount, error)
	WithdrawCollateral(ctx context.Context, caller domain.Account, amount int64) (*domain.CollateralAccount, error)
	GetCollateralAccount(ctx context.Context, account domain.Account) (*domain.CollateralAccount, error)
	GetRental(ctx context.Context, rentalID string) (*domain.Rental, error)
	// ListRecoverable reports rentals past their end time plus the recovery
	// grace period that are still active. Read-only; used by the operator
	// report.
	ListRecoverable(ctx context.Context) ([]domain.Rental, error)
}

// StreamService is the payment stream engine. Deposits are custodied by the
// engine's custody account, not by either party.
type StreamService interface {
	CreateStream(ctx context.Context, sender, recipient domain.Account, deposit, startTime, stopTime int64) (*domain.Stream, error)
	GetStream(ctx context.Context, streamID string) (*domain.Stream, error)
	// VestedAmount evaluates vesting at an explicit unix time.
	VestedAmount(ctx context.Context, streamID string, at int64) (int64, error)
	Withdraw(ctx context.Context, caller domain.Account, streamID string, amount int64) (*domain.Stream, error)
	Cancel(ctx context.Context, caller domain.Account, streamID string) (*StreamSettlement, error)
}

type ReputationService interface {
	// RecordOutcome folds one rental outcome into an account's record. Only
	// the configured session-manager identity may call it; the restriction
	// is enforced by identity check, not by trust.
	RecordOutcome(ctx context.Context, caller, account domain.Account, success bool) (*domain.ReputationRecord, error)
	GetRecord(ctx context.Context, account domain.Account) (*domain.ReputationRecord, error)
	// SizeCollateral prices the collateral required from an account against
	// a listing's base requirement. Read-only and deterministic.
	SizeCollateral(ctx context.Context, account domain.Account, baseRequirement int64) (int64, error)
}
