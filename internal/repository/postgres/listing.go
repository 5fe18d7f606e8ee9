package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"streamrent/internal/domain"
	"streamrent/internal/repository"
)

type listingRepository struct {
	db *sql.DB
}

func NewListingRepository(db *sql.DB) repository.ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, l *domain.Listing) error {
	query := `INSERT INTO listings (id, asset_collection, asset_item_id, owner_account, price_per_second, min_duration_seconds, max_duration_seconds, collateral_required, active, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	now := time.Now()
	l.CreatedOn = now
	l.UpdatedOn = now
	_, err := r.db.ExecContext(ctx, query, l.ID, l.Asset.Collection, l.Asset.ItemID, l.Owner,
		l.PricePerSecond, l.MinDurationSeconds, l.MaxDurationSeconds, l.CollateralRequired, l.Active, now, now)
	return err
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	l := &domain.Listing{}
	query := `SELECT id, asset_collection, asset_item_id, owner_account, price_per_second, min_duration_seconds, max_duration_seconds, collateral_required, active, created_on, updated_on
	          FROM listings WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&l.ID, &l.Asset.Collection, &l.Asset.ItemID, &l.Owner,
		&l.PricePerSecond, &l.MinDurationSeconds, &l.MaxDurationSeconds, &l.CollateralRequired, &l.Active, &l.CreatedOn, &l.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *listingRepository) Update(ctx context.Context, l *domain.Listing) error {
	query := `UPDATE listings SET active=$1, updated_on=$2 WHERE id=$3`
	res, err := r.db.ExecContext(ctx, query, l.Active, time.Now(), l.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *listingRepository) ListByOwner(ctx context.Context, owner domain.Account) ([]domain.Listing, error) {
	query := `SELECT id, asset_collection, asset_item_id, owner_account, price_per_second, min_duration_seconds, max_duration_seconds, collateral_required, active, created_on, updated_on
	          FROM listings WHERE owner_account = $1 ORDER BY created_on DESC`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var l domain.Listing
		if err := rows.Scan(&l.ID, &l.Asset.Collection, &l.Asset.ItemID, &l.Owner,
			&l.PricePerSecond, &l.MinDurationSeconds, &l.MaxDurationSeconds, &l.CollateralRequired, &l.Active, &l.CreatedOn, &l.UpdatedOn); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
