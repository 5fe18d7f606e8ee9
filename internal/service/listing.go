package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"streamrent/internal/assetreg"
	"streamrent/internal/clock"
	"streamrent/internal/domain"
	"streamrent/internal/events"
	"streamrent/internal/logger"
	"streamrent/internal/oracle"
	"streamrent/internal/repository"
)

// listingNamespace seeds the deterministic listing id derivation.
var listingNamespace = uuid.MustParse("8f1a2f60-6c5d-4a38-9f50-3e1be0a4c9d7")

type listingService struct {
	listingRepo repository.ListingRepository
	rentalRepo  repository.RentalRepository
	registry    assetreg.AssetRegistry
	priceOracle oracle.PriceOracle
	clk         clock.Clock
	publisher   events.Publisher

	minDuration int64
	maxDuration int64
}

func NewListingService(
	listingRepo repository.ListingRepository,
	rentalRepo repository.RentalRepository,
	registry assetreg.AssetRegistry,
	priceOracle oracle.PriceOracle,
	clk clock.Clock,
	publisher events.Publisher,
	minDurationSeconds, maxDurationSeconds int64,
) ListingService {
	return &listingService{
		listingRepo: listingRepo,
		rentalRepo:  rentalRepo,
		registry:    registry,
		priceOracle: priceOracle,
		clk:         clk,
		publisher:   publisher,
		minDuration: minDurationSeconds,
		maxDuration: maxDurationSeconds,
	}
}

func (s *listingService) CreateListing(ctx context.Context, caller domain.Account, asset domain.AssetRef, pricePerSecond, minDuration, maxDuration, collateralRequired int64) (*domain.Listing, error) {
	if pricePerSecond <= 0 {
		return nil, domain.ErrZeroPrice
	}
	if minDuration < s.minDuration || maxDuration > s.maxDuration || minDuration > maxDuration {
		return nil, fmt.Errorf("min %ds max %ds (allowed %d..%d): %w",
			minDuration, maxDuration, s.minDuration, s.maxDuration, domain.ErrInvalidDuration)
	}
	// Total cost must stay representable for the longest rentable duration.
	if pricePerSecond > math.MaxInt64/maxDuration {
		return nil, fmt.Errorf("price %d over %ds overflows: %w", pricePerSecond, maxDuration, domain.ErrInvalidAmount)
	}
	if collateralRequired < 0 {
		return nil, domain.ErrInvalidAmount
	}

	owner, err := s.registry.OwnerOf(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("look up asset owner: %w", err)
	}
	if owner != caller {
		return nil, domain.ErrNotOwner
	}

	now := s.clk.Now()
	// Collision-resistant id derived from (asset, owner, timestamp).
	id := uuid.NewSHA1(listingNamespace,
		[]byte(fmt.Sprintf("%s|%s|%d", asset, caller, now.UnixNano()))).String()

	listing := &domain.Listing{
		ID:                 id,
		Asset:              asset,
		Owner:              caller,
		PricePerSecond:     pricePerSecond,
		MinDurationSeconds: minDuration,
		MaxDurationSeconds: maxDuration,
		CollateralRequired: collateralRequired,
		Active:             true,
		CreatedOn:          now,
		UpdatedOn:          now,
	}
	if err := s.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventListingCreated, listing)
	return listing, nil
}

func (s *listingService) Deactivate(ctx context.Context, caller domain.Account, listingID string) (*domain.Listing, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Owner != caller {
		return nil, domain.ErrNotListingOwner
	}
	if _, err := s.rentalRepo.GetActiveByListing(ctx, listingID); err == nil {
		return nil, domain.ErrRentalInProgress
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if !listing.Active {
		// Already deactivated by the owner; idempotent.
		return listing, nil
	}

	listing.Active = false
	listing.UpdatedOn = s.clk.Now()
	if err := s.listingRepo.Update(ctx, listing); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventListingDeactivated, listing)
	return listing, nil
}

func (s *listingService) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	return s.listingRepo.GetByID(ctx, listingID)
}

// Quote returns the stored price plus the oracle's advisory suggestion.
// Oracle failures degrade to the stored price only; they never block.
func (s *listingService) Quote(ctx context.Context, listingID string) (*ListingQuote, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	quote := &ListingQuote{
		Listing:     listing,
		StoredPrice: listing.PricePerSecond,
	}
	if suggested, err := s.priceOracle.SuggestedPrice(ctx, listing.Asset); err == nil {
		quote.SuggestedPrice = &suggested
	} else {
		logger.Debug("price oracle unavailable, using stored price", "listing_id", listingID, "error", err)
	}
	return quote, nil
}

func (s *listingService) ListByOwner(ctx context.Context, owner domain.Account) ([]domain.Listing, error) {
	return s.listingRepo.ListByOwner(ctx, owner)
}

func (s *listingService) publish(ctx context.Context, eventType string, body any) {
	err := s.publisher.Publish(ctx, domain.Event{
		Type: eventType,
		At:   s.clk.Now().Unix(),
		Body: body,
	})
	if err != nil {
		logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}
