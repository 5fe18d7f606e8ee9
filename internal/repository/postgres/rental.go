package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"streamrent/internal/domain"
	"streamrent/internal/repository"
)

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

const rentalColumns = `id, listing_id, stream_id, asset_collection, asset_item_id, owner_account, renter_account, price_per_second, start_time, end_time, collateral_amount, status, disputed_by, dispute_reason, created_on, updated_on`

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	query := `INSERT INTO rentals (` + rentalColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	now := time.Now()
	rt.CreatedOn = now
	rt.UpdatedOn = now
	_, err := r.db.ExecContext(ctx, query, rt.ID, rt.ListingID, rt.StreamID,
		rt.Asset.Collection, rt.Asset.ItemID, rt.Owner, rt.Renter, rt.PricePerSecond,
		rt.StartTime, rt.EndTime, rt.CollateralAmount, rt.Status, rt.DisputedBy, rt.DisputeReason, now, now)
	return err
}

func scanRental(row interface{ Scan(...any) error }) (*domain.Rental, error) {
	rt := &domain.Rental{}
	err := row.Scan(&rt.ID, &rt.ListingID, &rt.StreamID, &rt.Asset.Collection, &rt.Asset.ItemID,
		&rt.Owner, &rt.Renter, &rt.PricePerSecond, &rt.StartTime, &rt.EndTime,
		&rt.CollateralAmount, &rt.Status, &rt.DisputedBy, &rt.DisputeReason, &rt.CreatedOn, &rt.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *rentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	return scanRental(r.db.QueryRowContext(ctx, query, id))
}

func (r *rentalRepository) Update(ctx context.Context, rt *domain.Rental) error {
	query := `UPDATE rentals SET status=$1, disputed_by=$2, dispute_reason=$3, updated_on=$4 WHERE id=$5`
	res, err := r.db.ExecContext(ctx, query, rt.Status, rt.DisputedBy, rt.DisputeReason, time.Now(), rt.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *rentalRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rentals WHERE id = $1`, id)
	return err
}

func (r *rentalRepository) GetActiveByListing(ctx context.Context, listingID string) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE listing_id = $1 AND status NOT IN ('COMPLETED', 'RESOLVED', 'RECOVERED')`
	return scanRental(r.db.QueryRowContext(ctx, query, listingID))
}

func (r *rentalRepository) ListByRenter(ctx context.Context, renter domain.Account) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE renter_account = $1 ORDER BY created_on DESC`
	return r.list(ctx, query, renter)
}

func (r *rentalRepository) ListRecoverable(ctx context.Context, asOf int64, graceSeconds int64) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE status = 'ACTIVE' AND end_time + $2 < $1 ORDER BY end_time`
	return r.list(ctx, query, asOf, graceSeconds)
}

func (r *rentalRepository) list(ctx context.Context, query string, args ...any) ([]domain.Rental, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}
