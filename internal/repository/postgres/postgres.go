package postgres

import (
	"database/sql"

	"streamrent/internal/repository"
)

// Store aggregates the Postgres-backed repositories over one connection pool.
type Store struct {
	ListingRepository    repository.ListingRepository
	RentalRepository     repository.RentalRepository
	StreamRepository     repository.StreamRepository
	ReputationRepository repository.ReputationRepository
	CollateralRepository repository.CollateralRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		ListingRepository:    NewListingRepository(db),
		RentalRepository:     NewRentalRepository(db),
		StreamRepository:     NewStreamRepository(db),
		ReputationRepository: NewReputationRepository(db),
		CollateralRepository: NewCollateralRepository(db),
	}
}
