package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"streamrent/internal/assetreg"
	"streamrent/internal/clock"
	"streamrent/internal/domain"
	"streamrent/internal/events"
	"streamrent/internal/ledger"
	"streamrent/internal/logger"
	"streamrent/internal/repository"
)

// RentalConfig carries the session manager's protocol constants and fixed
// identities.
type RentalConfig struct {
	RecoveryGraceSeconds int64
	DisputeWindowSeconds int64
	// Identity is the account under which the manager writes reputation
	// outcomes.
	Identity          domain.Account
	CollateralCustody domain.Account
	Operator          domain.Account
	Resolver          domain.Account
}

// DisputePolicy decides how a ruling splits the escrowed collateral. The
// arbitration mechanics live outside the core; this hook only prices the
// outcome. Pluggable because the upstream protocol leaves the split formula
// to governance.
type DisputePolicy func(rental *domain.Rental, favorRenter bool) (collateralToOwner int64)

// DefaultDisputePolicy forfeits the full collateral to the owner when the
// ruling goes against the renter, and returns it all otherwise.
func DefaultDisputePolicy(rental *domain.Rental, favorRenter bool) int64 {
	if favorRenter {
		return 0
	}
	return rental.CollateralAmount
}

type rentalService struct {
	rentalRepo     repository.RentalRepository
	listingRepo    repository.ListingRepository
	collateralRepo repository.CollateralRepository
	streamSvc      StreamService
	reputationSvc  ReputationService
	balances       ledger.BalanceLedger
	registry       assetreg.AssetRegistry
	clk            clock.Clock
	publisher      events.Publisher
	cfg            RentalConfig
	disputePolicy  DisputePolicy

	// mu imposes the single global sequential ordering of state-mutating
	// calls: each operation commits fully or unwinds fully before the next
	// begins, which is what makes the listing/rental active flags a safe
	// mutual-exclusion lock.
	mu sync.Mutex
}

func NewRentalService(
	rentalRepo repository.RentalRepository,
	listingRepo repository.ListingRepository,
	collateralRepo repository.CollateralRepository,
	streamSvc StreamService,
	reputationSvc ReputationService,
	balances ledger.BalanceLedger,
	registry assetreg.AssetRegistry,
	clk clock.Clock,
	publisher events.Publisher,
	cfg RentalConfig,
) RentalService {
	return &rentalService{
		rentalRepo:     rentalRepo,
		listingRepo:    listingRepo,
		collateralRepo: collateralRepo,
		streamSvc:      streamSvc,
		reputationSvc:  reputationSvc,
		balances:       balances,
		registry:       registry,
		clk:            clk,
		publisher:      publisher,
		cfg:            cfg,
		disputePolicy:  DefaultDisputePolicy,
	}
}

func (s *rentalService) Rent(ctx context.Context, caller domain.Account, listingID string, durationSeconds, payment int64) (*domain.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.Active {
		return nil, domain.ErrListingInactive
	}
	if durationSeconds < listing.MinDurationSeconds || durationSeconds > listing.MaxDurationSeconds {
		return nil, fmt.Errorf("duration %ds outside listing range %d..%d: %w",
			durationSeconds, listing.MinDurationSeconds, listing.MaxDurationSeconds, domain.ErrInvalidDuration)
	}
	if caller == listing.Owner {
		return nil, domain.ErrSelfRentalForbidden
	}

	cost := listing.PricePerSecond * durationSeconds
	if payment < cost {
		return nil, fmt.Errorf("payment %d below cost %d: %w", payment, cost, domain.ErrInsufficientPayment)
	}

	required, err := s.reputationSvc.SizeCollateral(ctx, caller, listing.CollateralRequired)
	if err != nil {
		return nil, err
	}

	// Collateral is satisfied first out of the payment surplus, then out of
	// the renter's pre-deposited free collateral balance.
	acct, err := s.getCollateralAccount(ctx, caller)
	if err != nil {
		return nil, err
	}
	surplus := payment - cost
	fromPayment := required
	if fromPayment > surplus {
		fromPayment = surplus
	}
	fromBalance := required - fromPayment
	if fromBalance > acct.Free() {
		return nil, fmt.Errorf("need %d collateral, have %d authorized and %d free: %w",
			required, surplus, acct.Free(), domain.ErrInsufficientCollateral)
	}

	// Lock the listing before any external call; the inactive flag is the
	// mutual-exclusion lock against a second rent or a reentrant call.
	listing.Active = false
	if err := s.listingRepo.Update(ctx, listing); err != nil {
		return nil, err
	}
	unlockListing := func() {
		listing.Active = true
		if rbErr := s.listingRepo.Update(ctx, listing); rbErr != nil {
			logger.Error("failed to unlock listing after aborted rent", "listing_id", listing.ID, "error", rbErr)
		}
	}

	now := s.clk.Now().Unix()
	stream, err := s.streamSvc.CreateStream(ctx, caller, listing.Owner, cost, now, now+durationSeconds)
	if err != nil {
		unlockListing()
		return nil, fmt.Errorf("open payment stream: %w", err)
	}
	cancelStream := func() {
		if _, rbErr := s.streamSvc.Cancel(ctx, caller, stream.ID); rbErr != nil {
			logger.Error("failed to cancel stream after aborted rent", "stream_id", stream.ID, "error", rbErr)
		}
	}

	if fromPayment > 0 {
		if err := s.balances.Transfer(ctx, caller, s.cfg.CollateralCustody, fromPayment); err != nil {
			cancelStream()
			unlockListing()
			return nil, fmt.Errorf("escrow collateral: %w", err)
		}
	}
	acct.Balance += fromPayment
	acct.Locked += required
	acct.UpdatedOn = s.clk.Now()
	if err := s.collateralRepo.Upsert(ctx, acct); err != nil {
		s.refundCollateral(ctx, caller, fromPayment)
		cancelStream()
		unlockListing()
		return nil, err
	}

	rental := &domain.Rental{
		ID:               uuid.NewString(),
		ListingID:        listing.ID,
		StreamID:         stream.ID,
		Asset:            listing.Asset,
		Owner:            listing.Owner,
		Renter:           caller,
		PricePerSecond:   listing.PricePerSecond,
		StartTime:        now,
		EndTime:          now + durationSeconds,
		CollateralAmount: required,
		Status:           domain.RentalStatusActive,
		CreatedOn:        s.clk.Now(),
		UpdatedOn:        s.clk.Now(),
	}
	if err := s.rentalRepo.Create(ctx, rental); err != nil {
		s.unwindCollateral(ctx, acct, fromPayment, required)
		cancelStream()
		unlockListing()
		return nil, err
	}

	logger.ExternalCall("asset-registry", "set-temporary-user", "asset", listing.Asset.String(), "until", rental.EndTime)
	if err := s.registry.SetTemporaryUser(ctx, listing.Asset, caller, rental.EndTime); err != nil {
		logger.ExternalResult("asset-registry", "set-temporary-user", err, "asset", listing.Asset.String())
		if delErr := s.rentalRepo.Delete(ctx, rental.ID); delErr != nil {
			logger.Error("failed to roll back rental record", "rental_id", rental.ID, "error", delErr)
		}
		s.unwindCollateral(ctx, acct, fromPayment, required)
		cancelStream()
		unlockListing()
		return nil, fmt.Errorf("grant temporary use: %w", err)
	}

	s.publish(ctx, domain.EventRentalStarted, rental)
	return rental, nil
}

func (s *rentalService) CompleteRental(ctx context.Context, caller domain.Account, rentalID string) (*domain.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != domain.RentalStatusActive {
		return nil, domain.ErrRentalNotActive
	}
	now := s.clk.Now().Unix()
	if now < rental.EndTime {
		return nil, fmt.Errorf("ends at %d, now %d: %w", rental.EndTime, now, domain.ErrTooEarly)
	}

	if err := s.closeOut(ctx, rental, domain.RentalStatusCompleted); err != nil {
		return nil, err
	}

	// Clean completion scores a success for the renter; a recovery
	// deliberately does not.
	if _, err := s.reputationSvc.RecordOutcome(ctx, s.cfg.Identity, rental.Renter, true); err != nil {
		logger.Error("failed to record rental outcome", "rental_id", rental.ID, "error", err)
	}

	s.publish(ctx, domain.EventRentalCompleted, rental)
	return rental, nil
}

func (s *rentalService) Dispute(ctx context.Context, caller domain.Account, rentalID, reason string) (*domain.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != domain.RentalStatusActive {
		return nil, domain.ErrRentalNotActive
	}
	if caller != rental.Renter && caller != rental.Owner {
		return nil, domain.ErrNotParticipant
	}
	now := s.clk.Now().Unix()
	if now > rental.EndTime+s.cfg.DisputeWindowSeconds {
		return nil, domain.ErrDisputeWindowClosed
	}

	// Freezes completion and collateral release until the resolver rules.
	rental.Status = domain.RentalStatusDisputed
	rental.DisputedBy = caller
	rental.DisputeReason = reason
	rental.UpdatedOn = s.clk.Now()
	if err := s.rentalRepo.Update(ctx, rental); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventRentalDisputed, rental)
	return rental, nil
}

func (s *rentalService) ResolveDispute(ctx context.Context, caller domain.Account, rentalID string, favorRenter bool, refundAmount int64) (*domain.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.cfg.Resolver {
		return nil, domain.ErrNotResolver
	}
	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != domain.RentalStatusDisputed {
		return nil, domain.ErrRentalNotDisputed
	}
	if refundAmount < 0 || refundAmount > rental.TotalCost() {
		return nil, domain.ErrInvalidAmount
	}

	collateralToOwner := s.disputePolicy(rental, favorRenter)

	if err := s.settleDispute(ctx, rental, refundAmount, collateralToOwner); err != nil {
		return nil, err
	}

	if _, err := s.reputationSvc.RecordOutcome(ctx, s.cfg.Identity, rental.Renter, favorRenter); err != nil {
		logger.Error("failed to record rental outcome", "rental_id", rental.ID, "error", err)
	}

	s.publish(ctx, domain.EventDisputeResolved, domain.DisputeResolvedBody{
		RentalID:    rental.ID,
		FavorRenter: favorRenter,
		Refund:      refundAmount,
	})
	return rental, nil
}

func (s *rentalService) EmergencyRecover(ctx context.Context, caller domain.Account, rentalID string) (*domain.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.cfg.Operator {
		return nil, domain.ErrNotOperator
	}
	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != domain.RentalStatusActive {
		return nil, domain.ErrRentalNotActive
	}
	now := s.clk.Now().Unix()
	if now <= rental.EndTime+s.cfg.RecoveryGraceSeconds {
		return nil, domain.ErrGracePeriodActive
	}

	// Recovery never touches reputation: the renter is not penalized for
	// the completion caller's inaction.
	if err := s.closeOut(ctx, rental, domain.RentalStatusRecovered); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventRentalRecovered, rental)
	return rental, nil
}

func (s *rentalService) DepositCollateral(ctx context.Context, caller domain.Account, amount int64) (*domain.CollateralAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	acct, err := s.getCollateralAccount(ctx, caller)
	if err != nil {
		return nil, err
	}

	acct.Balance += amount
	acct.UpdatedOn = s.clk.Now()
	if err := s.collateralRepo.Upsert(ctx, acct); err != nil {
		return nil, err
	}
	if err := s.balances.Transfer(ctx, caller, s.cfg.CollateralCustody, amount); err != nil {
		acct.Balance -= amount
		if rbErr := s.collateralRepo.Upsert(ctx, acct); rbErr != nil {
			logger.Error("failed to roll back collateral deposit", "account", caller, "error", rbErr)
		}
		return nil, fmt.Errorf("escrow collateral deposit: %w", err)
	}
	return acct, nil
}

func (s *rentalService) WithdrawCollateral(ctx context.Context, caller domain.Account, amount int64) (*domain.CollateralAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	acct, err := s.getCollateralAccount(ctx, caller)
	if err != nil {
		return nil, err
	}
	if amount > acct.Free() {
		return nil, fmt.Errorf("requested %d of %d free: %w", amount, acct.Free(), domain.ErrInsufficientBalance)
	}

	acct.Balance -= amount
	acct.UpdatedOn = s.clk.Now()
	if err := s.collateralRepo.Upsert(ctx, acct); err != nil {
		return nil, err
	}
	if err := s.balances.Transfer(ctx, s.cfg.CollateralCustody, caller, amount); err != nil {
		acct.Balance += amount
		if rbErr := s.collateralRepo.Upsert(ctx, acct); rbErr != nil {
			logger.Error("failed to roll back collateral withdrawal", "account", caller, "error", rbErr)
		}
		return nil, fmt.Errorf("pay out collateral: %w", err)
	}
	return acct, nil
}

func (s *rentalService) GetCollateralAccount(ctx context.Context, account domain.Account) (*domain.CollateralAccount, error) {
	return s.getCollateralAccount(ctx, account)
}

func (s *rentalService) GetRental(ctx context.Context, rentalID string) (*domain.Rental, error) {
	return s.rentalRepo.GetByID(ctx, rentalID)
}

func (s *rentalService) ListRecoverable(ctx context.Context) ([]domain.Rental, error) {
	return s.rentalRepo.ListRecoverable(ctx, s.clk.Now().Unix(), s.cfg.RecoveryGraceSeconds)
}

// closeOut runs the shared terminal transition for completion and recovery:
// flip the rental terminal, revoke use rights, release the collateral escrow
// to the renter's free balance, settle the stream, reactivate the listing.
// The status flip happens before any external call.
func (s *rentalService) closeOut(ctx context.Context, rental *domain.Rental, terminal domain.RentalStatus) error {
	prev := rental.Status
	rental.Status = terminal
	rental.UpdatedOn = s.clk.Now()
	if err := s.rentalRepo.Update(ctx, rental); err != nil {
		return err
	}
	revertStatus := func() {
		rental.Status = prev
		if rbErr := s.rentalRepo.Update(ctx, rental); rbErr != nil {
			logger.Error("failed to revert rental status", "rental_id", rental.ID, "error", rbErr)
		}
	}

	logger.ExternalCall("asset-registry", "clear-temporary-user", "asset", rental.Asset.String())
	if err := s.registry.ClearTemporaryUser(ctx, rental.Asset); err != nil {
		logger.ExternalResult("asset-registry", "clear-temporary-user", err, "asset", rental.Asset.String())
		revertStatus()
		return fmt.Errorf("revoke temporary use: %w", err)
	}

	// Release the escrow record before settling the stream so a repository
	// failure aborts with everything restored; fund movements come last.
	revertCollateral := func() {}
	if rental.CollateralAmount > 0 {
		acct, err := s.getCollateralAccount(ctx, rental.Renter)
		if err != nil {
			revertStatus()
			return err
		}
		prevLocked := acct.Locked
		acct.Locked -= rental.CollateralAmount
		acct.UpdatedOn = s.clk.Now()
		if err := s.collateralRepo.Upsert(ctx, acct); err != nil {
			revertStatus()
			return err
		}
		revertCollateral = func() {
			acct.Locked = prevLocked
			if rbErr := s.collateralRepo.Upsert(ctx, acct); rbErr != nil {
				logger.Error("failed to revert collateral release", "account", acct.Account, "error", rbErr)
			}
		}
	}

	// Past the end time the full deposit has vested, so settlement pays the
	// owner everything not yet withdrawn and refunds the renter nothing.
	if _, err := s.streamSvc.Cancel(ctx, rental.Owner, rental.StreamID); err != nil {
		if !errors.Is(err, domain.ErrStreamInactive) {
			revertCollateral()
			revertStatus()
			return fmt.Errorf("settle payment stream: %w", err)
		}
		// A party already settled the stream directly; nothing left to move.
	}

	return s.reactivateListing(ctx, rental.ListingID)
}

// settleDispute applies a ruling: terminal status first, then revoke use
// rights, release the collateral escrow, settle the stream pro rata at
// resolution time, move the refund and the collateral share, and reactivate
// the listing. Every failure path restores the Disputed state so the resolver
// can rule again; a retry tolerates a stream an earlier attempt already
// settled.
func (s *rentalService) settleDispute(ctx context.Context, rental *domain.Rental, refundToRenter, collateralToOwner int64) error {
	// The refund is paid by the owner out of their balance plus the stream
	// payout the settlement is about to deliver. Verify the ruling can be
	// funded before anything mutates.
	if refundToRenter > 0 {
		ownerBalance, err := s.balances.Balance(ctx, rental.Owner)
		if err != nil {
			return err
		}
		stream, err := s.streamSvc.GetStream(ctx, rental.StreamID)
		if err != nil {
			return err
		}
		pending := int64(0)
		if stream.Active {
			pending = stream.VestedAt(s.clk.Now().Unix()) - stream.Withdrawn
		}
		if ownerBalance+pending < refundToRenter {
			return fmt.Errorf("owner holds %d against refund %d: %w",
				ownerBalance+pending, refundToRenter, domain.ErrInsufficientBalance)
		}
	}

	rental.Status = domain.RentalStatusResolved
	rental.UpdatedOn = s.clk.Now()
	if err := s.rentalRepo.Update(ctx, rental); err != nil {
		return err
	}
	revertStatus := func() {
		rental.Status = domain.RentalStatusDisputed
		if rbErr := s.rentalRepo.Update(ctx, rental); rbErr != nil {
			logger.Error("failed to revert rental status", "rental_id", rental.ID, "error", rbErr)
		}
	}

	if err := s.registry.ClearTemporaryUser(ctx, rental.Asset); err != nil {
		revertStatus()
		return fmt.Errorf("revoke temporary use: %w", err)
	}

	// Release the escrow record before the irreversible fund movements so a
	// repository failure aborts with everything restored.
	revertCollateral := func() {}
	if rental.CollateralAmount > 0 {
		acct, err := s.getCollateralAccount(ctx, rental.Renter)
		if err != nil {
			revertStatus()
			return err
		}
		prevLocked, prevBalance := acct.Locked, acct.Balance
		acct.Locked -= rental.CollateralAmount
		acct.Balance -= collateralToOwner
		acct.UpdatedOn = s.clk.Now()
		if err := s.collateralRepo.Upsert(ctx, acct); err != nil {
			revertStatus()
			return err
		}
		revertCollateral = func() {
			acct.Locked, acct.Balance = prevLocked, prevBalance
			if rbErr := s.collateralRepo.Upsert(ctx, acct); rbErr != nil {
				logger.Error("failed to revert collateral release", "account", acct.Account, "error", rbErr)
			}
		}
	}

	if _, err := s.streamSvc.Cancel(ctx, rental.Renter, rental.StreamID); err != nil {
		if !errors.Is(err, domain.ErrStreamInactive) {
			revertCollateral()
			revertStatus()
			return fmt.Errorf("settle payment stream: %w", err)
		}
	}

	if refundToRenter > 0 {
		if err := s.balances.Transfer(ctx, rental.Owner, rental.Renter, refundToRenter); err != nil {
			revertCollateral()
			revertStatus()
			return fmt.Errorf("transfer dispute refund: %w", err)
		}
	}

	if collateralToOwner > 0 {
		if err := s.balances.Transfer(ctx, s.cfg.CollateralCustody, rental.Owner, collateralToOwner); err != nil {
			if refundToRenter > 0 {
				if rbErr := s.balances.Transfer(ctx, rental.Renter, rental.Owner, refundToRenter); rbErr != nil {
					logger.Error("failed to reverse dispute refund", "rental_id", rental.ID, "error", rbErr)
				}
			}
			revertCollateral()
			revertStatus()
			return fmt.Errorf("forfeit collateral: %w", err)
		}
	}

	return s.reactivateListing(ctx, rental.ListingID)
}

func (s *rentalService) reactivateListing(ctx context.Context, listingID string) error {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	listing.Active = true
	listing.UpdatedOn = s.clk.Now()
	return s.listingRepo.Update(ctx, listing)
}

func (s *rentalService) getCollateralAccount(ctx context.Context, account domain.Account) (*domain.CollateralAccount, error) {
	acct, err := s.collateralRepo.Get(ctx, account)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.CollateralAccount{Account: account}, nil
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *rentalService) refundCollateral(ctx context.Context, account domain.Account, amount int64) {
	if amount <= 0 {
		return
	}
	if err := s.balances.Transfer(ctx, s.cfg.CollateralCustody, account, amount); err != nil {
		logger.Error("failed to refund collateral after aborted rent", "account", account, "error", err)
	}
}

func (s *rentalService) unwindCollateral(ctx context.Context, acct *domain.CollateralAccount, fromPayment, required int64) {
	acct.Balance -= fromPayment
	acct.Locked -= required
	acct.UpdatedOn = s.clk.Now()
	if err := s.collateralRepo.Upsert(ctx, acct); err != nil {
		logger.Error("failed to unwind collateral account", "account", acct.Account, "error", err)
	}
	s.refundCollateral(ctx, acct.Account, fromPayment)
}

func (s *rentalService) publish(ctx context.Context, eventType string, body any) {
	err := s.publisher.Publish(ctx, domain.Event{
		Type: eventType,
		At:   s.clk.Now().Unix(),
		Body: body,
	})
	if err != nil {
		logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}
