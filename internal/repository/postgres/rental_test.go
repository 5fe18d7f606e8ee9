package postgres

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrent/internal/domain"
)

var rentalCols = []string{
	"id", "listing_id", "stream_id", "asset_collection", "asset_item_id", "owner_account",
	"renter_account", "price_per_second", "start_time", "end_time", "collateral_amount",
	"status", "disputed_by", "dispute_reason", "created_on", "updated_on",
}

func rentalRow(id string, status domain.RentalStatus, endTime int64) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, "l1", "s1", "cyberpets", int64(42), "alice", "bob", int64(100),
		endTime - 3600, endTime, int64(185), string(status), "", "", now, now,
	}
}

func TestRentalRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewRentalRepository(db)

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM rentals WHERE id`).
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows(rentalCols).AddRow(rentalRow("r1", domain.RentalStatusActive, 5000)...))

		rt, err := repo.GetByID(context.Background(), "r1")
		require.NoError(t, err)
		assert.Equal(t, "r1", rt.ID)
		assert.Equal(t, domain.RentalStatusActive, rt.Status)
		assert.Equal(t, domain.Account("bob"), rt.Renter)
		assert.Equal(t, int64(360_000), rt.TotalCost())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM rentals WHERE id`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(rentalCols))

		_, err := repo.GetByID(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_GetActiveByListing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewRentalRepository(db)

	t.Run("NonTerminalRentalBlocks", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM rentals\s+WHERE listing_id = \$1 AND status NOT IN`).
			WithArgs("l1").
			WillReturnRows(sqlmock.NewRows(rentalCols).AddRow(rentalRow("r1", domain.RentalStatusDisputed, 5000)...))

		rt, err := repo.GetActiveByListing(context.Background(), "l1")
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusDisputed, rt.Status)
	})

	t.Run("NoOpenRental", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM rentals\s+WHERE listing_id = \$1 AND status NOT IN`).
			WithArgs("l1").
			WillReturnRows(sqlmock.NewRows(rentalCols))

		_, err := repo.GetActiveByListing(context.Background(), "l1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_ListRecoverable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewRentalRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM rentals\s+WHERE status = 'ACTIVE' AND end_time \+ \$2 < \$1`).
		WithArgs(int64(1_000_000), int64(604_800)).
		WillReturnRows(sqlmock.NewRows(rentalCols).
			AddRow(rentalRow("r1", domain.RentalStatusActive, 5000)...).
			AddRow(rentalRow("r2", domain.RentalStatusActive, 6000)...))

	rentals, err := repo.ListRecoverable(context.Background(), 1_000_000, 604_800)
	require.NoError(t, err)
	require.Len(t, rentals, 2)
	assert.Equal(t, "r1", rentals[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewRentalRepository(db)

	t.Run("StatusTransitionPersists", func(t *testing.T) {
		mock.ExpectExec(`UPDATE rentals SET status`).
			WithArgs(string(domain.RentalStatusDisputed), "bob", "asset unusable", sqlmock.AnyArg(), "r1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), &domain.Rental{
			ID:            "r1",
			Status:        domain.RentalStatusDisputed,
			DisputedBy:    "bob",
			DisputeReason: "asset unusable",
		})
		assert.NoError(t, err)
	})

	t.Run("MissingRowIsNotFound", func(t *testing.T) {
		mock.ExpectExec(`UPDATE rentals SET status`).
			WithArgs(string(domain.RentalStatusCompleted), "", "", sqlmock.AnyArg(), "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), &domain.Rental{ID: "missing", Status: domain.RentalStatusCompleted})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
