package repository

import (
	"context"

	"streamrent/internal/domain"
)

// All stores are keyed by stable identifiers; none of them require a linear
// scan for lookup by id. Implementations return domain.ErrNotFound (possibly
// wrapped) for missing keys.

type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	Update(ctx context.Context, listing *domain.Listing) error
	ListByOwner(ctx context.Context, owner domain.Account) ([]domain.Listing, error)
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id string) (*domain.Rental, error)
	Update(ctx context.Context, rental *domain.Rental) error
	Delete(ctx context.Context, id string) error
	// GetActiveByListing returns the single active rental for a listing, or
	// domain.ErrNotFound. At most one may exist at a time.
	GetActiveByListing(ctx context.Context, listingID string) (*domain.Rental, error)
	ListByRenter(ctx context.Context, renter domain.Account) ([]domain.Rental, error)
	// ListRecoverable returns rentals still active whose end time plus the
	// given grace period lies before asOf (unix seconds).
	ListRecoverable(ctx context.Context, asOf int64, graceSeconds int64) ([]domain.Rental, error)
}

type StreamRepository interface {
	Create(ctx context.Context, stream *domain.Stream) error
	GetByID(ctx context.Context, id string) (*domain.Stream, error)
	Update(ctx context.Context, stream *domain.Stream) error
	Delete(ctx context.Context, id string) error
}

type ReputationRepository interface {
	// Get returns the record for an account, or domain.ErrNotFound if the
	// account has no history yet.
	Get(ctx context.Context, account domain.Account) (*domain.ReputationRecord, error)
	Upsert(ctx context.Context, rec *domain.ReputationRecord) error
}

type CollateralRepository interface {
	Get(ctx context.Context, account domain.Account) (*domain.CollateralAccount, error)
	Upsert(ctx context.Context, acct *domain.CollateralAccount) error
}
