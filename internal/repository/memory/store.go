// Package memory provides map-backed implementations of the repository
// interfaces. The server uses them in dev mode and the test suites use them
// for deterministic, store-injected runs.
package memory

import (
	"context"
	"sync"

	"streamrent/internal/domain"
	"streamrent/internal/repository"
)

// Store aggregates one in-memory repository per entity.
type Store struct {
	ListingRepository    repository.ListingRepository
	RentalRepository     repository.RentalRepository
	StreamRepository     repository.StreamRepository
	ReputationRepository repository.ReputationRepository
	CollateralRepository repository.CollateralRepository
}

func NewStore() *Store {
	return &Store{
		ListingRepository:    NewListingRepository(),
		RentalRepository:     NewRentalRepository(),
		StreamRepository:     NewStreamRepository(),
		ReputationRepository: NewReputationRepository(),
		CollateralRepository: NewCollateralRepository(),
	}
}

type listingRepository struct {
	mu       sync.RWMutex
	listings map[string]domain.Listing
}

func NewListingRepository() repository.ListingRepository {
	return &listingRepository{listings: make(map[string]domain.Listing)}
}

func (r *listingRepository) Create(_ context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[l.ID] = *l
	return nil
}

func (r *listingRepository) GetByID(_ context.Context, id string) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (r *listingRepository) Update(_ context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[l.ID]; !ok {
		return domain.ErrNotFound
	}
	r.listings[l.ID] = *l
	return nil
}

func (r *listingRepository) ListByOwner(_ context.Context, owner domain.Account) ([]domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Listing
	for _, l := range r.listings {
		if l.Owner == owner {
			out = append(out, l)
		}
	}
	return out, nil
}

type rentalRepository struct {
	mu      sync.RWMutex
	rentals map[string]domain.Rental
}

func NewRentalRepository() repository.RentalRepository {
	return &rentalRepository{rentals: make(map[string]domain.Rental)}
}

func (r *rentalRepository) Create(_ context.Context, rt *domain.Rental) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rentals[rt.ID] = *rt
	return nil
}

func (r *rentalRepository) GetByID(_ context.Context, id string) (*domain.Rental, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.rentals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rt, nil
}

func (r *rentalRepository) Update(_ context.Context, rt *domain.Rental) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rentals[rt.ID]; !ok {
		return domain.ErrNotFound
	}
	r.rentals[rt.ID] = *rt
	return nil
}

func (r *rentalRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rentals, id)
	return nil
}

func (r *rentalRepository) GetActiveByListing(_ context.Context, listingID string) (*domain.Rental, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.rentals {
		if rt.ListingID == listingID && !rt.Status.Terminal() {
			found := rt
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *rentalRepository) ListByRenter(_ context.Context, renter domain.Account) ([]domain.Rental, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Rental
	for _, rt := range r.rentals {
		if rt.Renter == renter {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (r *rentalRepository) ListRecoverable(_ context.Context, asOf int64, graceSeconds int64) ([]domain.Rental, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Rental
	for _, rt := range r.rentals {
		if rt.Status == domain.RentalStatusActive && rt.EndTime+graceSeconds < asOf {
			out = append(out, rt)
		}
	}
	return out, nil
}

type streamRepository struct {
	mu      sync.RWMutex
	streams map[string]domain.Stream
}

func NewStreamRepository() repository.StreamRepository {
	return &streamRepository{streams: make(map[string]domain.Stream)}
}

func (r *streamRepository) Create(_ context.Context, s *domain.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams[s.ID] = *s
	return nil
}

func (r *streamRepository) GetByID(_ context.Context, id string) (*domain.Stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *streamRepository) Update(_ context.Context, s *domain.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.streams[s.ID]; !ok {
		return domain.ErrNotFound
	}
	r.streams[s.ID] = *s
	return nil
}

func (r *streamRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, id)
	return nil
}

type reputationRepository struct {
	mu      sync.RWMutex
	records map[domain.Account]domain.ReputationRecord
}

func NewReputationRepository() repository.ReputationRepository {
	return &reputationRepository{records: make(map[domain.Account]domain.ReputationRecord)}
}

func (r *reputationRepository) Get(_ context.Context, account domain.Account) (*domain.ReputationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[account]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (r *reputationRepository) Upsert(_ context.Context, rec *domain.ReputationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Account] = *rec
	return nil
}

type collateralRepository struct {
	mu       sync.RWMutex
	accounts map[domain.Account]domain.CollateralAccount
}

func NewCollateralRepository() repository.CollateralRepository {
	return &collateralRepository{accounts: make(map[domain.Account]domain.CollateralAccount)}
}

func (r *collateralRepository) Get(_ context.Context, account domain.Account) (*domain.CollateralAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[account]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &acct, nil
}

func (r *collateralRepository) Upsert(_ context.Context, acct *domain.CollateralAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[acct.Account] = *acct
	return nil
}
