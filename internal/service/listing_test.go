package service_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrent/internal/assetreg"
	"streamrent/internal/clock"
	"streamrent/internal/domain"
	"streamrent/internal/events"
	"streamrent/internal/oracle"
	"streamrent/internal/repository/memory"
	"streamrent/internal/service"
)

type listingFixture struct {
	svc      service.ListingService
	store    *memory.Store
	registry *assetreg.MockRegistry
	oracle   *oracle.StaticOracle
	clk      *clock.Fixed
	recorder *events.Recorder
}

func newListingFixture(t *testing.T) *listingFixture {
	t.Helper()
	store := memory.NewStore()
	registry := assetreg.NewMockRegistry()
	priceOracle := oracle.NewStaticOracle()
	clk := clock.NewFixed(time.Unix(1_000_000, 0).UTC())
	recorder := events.NewRecorder()
	svc := service.NewListingService(store.ListingRepository, store.RentalRepository,
		registry, priceOracle, clk, recorder, 60, 30*24*3600)
	return &listingFixture{
		svc:      svc,
		store:    store,
		registry: registry,
		oracle:   priceOracle,
		clk:      clk,
		recorder: recorder,
	}
}

var testAsset = domain.AssetRef{Collection: "cyberpets", ItemID: 42}

func TestListingService_CreateListing(t *testing.T) {
	ctx := context.Background()

	t.Run("OwnerCreatesActiveListing", func(t *testing.T) {
		f := newListingFixture(t)
		f.registry.SetOwner(testAsset, "alice")

		listing, err := f.svc.CreateListing(ctx, "alice", testAsset, 100, 60, 7200, 500)
		require.NoError(t, err)
		assert.NotEmpty(t, listing.ID)
		assert.True(t, listing.Active)
		assert.Equal(t, domain.Account("alice"), listing.Owner)
		assert.Equal(t, int64(100), listing.PricePerSecond)
		assert.Len(t, f.recorder.ByType(domain.EventListingCreated), 1)

		got, err := f.svc.GetListing(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, listing.ID, got.ID)
	})

	t.Run("OnlyAssetOwnerMayList", func(t *testing.T) {
		f := newListingFixture(t)
		f.registry.SetOwner(testAsset, "alice")

		_, err := f.svc.CreateListing(ctx, "bob", testAsset, 100, 60, 7200, 0)
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})

	t.Run("ValidationFailures", func(t *testing.T) {
		f := newListingFixture(t)
		f.registry.SetOwner(testAsset, "alice")

		_, err := f.svc.CreateListing(ctx, "alice", testAsset, 0, 60, 7200, 0)
		assert.ErrorIs(t, err, domain.ErrZeroPrice)
		_, err = f.svc.CreateListing(ctx, "alice", testAsset, 100, 30, 7200, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidDuration)
		_, err = f.svc.CreateListing(ctx, "alice", testAsset, 100, 7200, 60, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidDuration)
		_, err = f.svc.CreateListing(ctx, "alice", testAsset, 100, 60, 31*24*3600, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidDuration)
		_, err = f.svc.CreateListing(ctx, "alice", testAsset, 100, 60, 7200, -1)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("PriceTimesMaxDurationMustFitInt64", func(t *testing.T) {
		f := newListingFixture(t)
		f.registry.SetOwner(testAsset, "alice")

		_, err := f.svc.CreateListing(ctx, "alice", testAsset, math.MaxInt64/2, 60, 7200, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)

		// The boundary price itself is fine.
		listing, err := f.svc.CreateListing(ctx, "alice", testAsset, math.MaxInt64/7200, 60, 7200, 0)
		require.NoError(t, err)
		assert.True(t, listing.Active)
	})

	t.Run("DistinctIDsForRepeatListings", func(t *testing.T) {
		f := newListingFixture(t)
		f.registry.SetOwner(testAsset, "alice")

		first, err := f.svc.CreateListing(ctx, "alice", testAsset, 100, 60, 7200, 0)
		require.NoError(t, err)
		f.clk.Advance(time.Second)
		second, err := f.svc.CreateListing(ctx, "alice", testAsset, 100, 60, 7200, 0)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})
}

func TestListingService_Deactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("OwnerDeactivates", func(t *testing.T) {
		f := newListingFixture(t)
		f.registry.SetOwner(testAsset, "alice")
		listing, err := f.svc.CreateListing(ctx, "alice", testAsset, 100, 60, 7200, 0)
		require.NoError(t, err)

		got, err := f.svc.Deactivate(ctx, "alice", listing.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.Len(t, f.recorder.ByType(domain.EventListingDeactivated), 1)

		// Idempotent retry.
		got, err = f.svc.Deactivate(ctx, "alice", listing.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.Len(t, f.recorder.ByType(domain.EventListingDeactivated), 1)
	})

	t.Run("OnlyListingOwner", func(t *testing.T) {
		f := newListingFixture(t)
		f.registry.SetOwner(testAsset, "alice")
		listing, err := f.svc.CreateListing(ctx, "alice", testAsset, 100, 60, 7200, 0)
		require.NoError(t, err)

		_, err = f.svc.Deactivate(ctx, "bob", listing.ID)
		assert.ErrorIs(t, err, domain.ErrNotListingOwner)
	})

	t.Run("BlockedByOngoingRental", func(t *testing.T) {
		f := newListingFixture(t)
		f.registry.SetOwner(testAsset, "alice")
		listing, err := f.svc.CreateListing(ctx, "alice", testAsset, 100, 60, 7200, 0)
		require.NoError(t, err)

		err = f.store.RentalRepository.Create(ctx, &domain.Rental{
			ID:        "r1",
			ListingID: listing.ID,
			Status:    domain.RentalStatusActive,
		})
		require.NoError(t, err)

		_, err = f.svc.Deactivate(ctx, "alice", listing.ID)
		assert.ErrorIs(t, err, domain.ErrRentalInProgress)
	})

	t.Run("UnknownListing", func(t *testing.T) {
		f := newListingFixture(t)
		_, err := f.svc.Deactivate(ctx, "alice", "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestListingService_Quote(t *testing.T) {
	ctx := context.Background()
	f := newListingFixture(t)
	f.registry.SetOwner(testAsset, "alice")
	listing, err := f.svc.CreateListing(ctx, "alice", testAsset, 100, 60, 7200, 0)
	require.NoError(t, err)

	t.Run("OracleUnavailableFallsBackToStoredPrice", func(t *testing.T) {
		quote, err := f.svc.Quote(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), quote.StoredPrice)
		assert.Nil(t, quote.SuggestedPrice)
	})

	t.Run("OracleSuggestionIncluded", func(t *testing.T) {
		f.oracle.SetPrice(testAsset, 120)
		quote, err := f.svc.Quote(ctx, listing.ID)
		require.NoError(t, err)
		require.NotNil(t, quote.SuggestedPrice)
		assert.Equal(t, int64(120), *quote.SuggestedPrice)
	})
}

func TestListingService_ListByOwner(t *testing.T) {
	ctx := context.Background()
	f := newListingFixture(t)
	f.registry.SetOwner(testAsset, "alice")
	other := domain.AssetRef{Collection: "cyberpets", ItemID: 43}
	f.registry.SetOwner(other, "alice")

	_, err := f.svc.CreateListing(ctx, "alice", testAsset, 100, 60, 7200, 0)
	require.NoError(t, err)
	f.clk.Advance(time.Second)
	_, err = f.svc.CreateListing(ctx, "alice", other, 200, 60, 7200, 0)
	require.NoError(t, err)

	listings, err := f.svc.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, listings, 2)

	listings, err = f.svc.ListByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, listings)
}
