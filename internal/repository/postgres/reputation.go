package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"streamrent/internal/domain"
	"streamrent/internal/repository"
)

type reputationRepository struct {
	db *sql.DB
}

func NewReputationRepository(db *sql.DB) repository.ReputationRepository {
	return &reputationRepository{db: db}
}

func (r *reputationRepository) Get(ctx context.Context, account domain.Account) (*domain.ReputationRecord, error) {
	rec := &domain.ReputationRecord{}
	query := `SELECT account, total_rentals, successful_rentals, score, blacklisted, updated_on
	          FROM reputation_records WHERE account = $1`
	err := r.db.QueryRowContext(ctx, query, account).Scan(&rec.Account, &rec.TotalRentals,
		&rec.SuccessfulRentals, &rec.Score, &rec.Blacklisted, &rec.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *reputationRepository) Upsert(ctx context.Context, rec *domain.ReputationRecord) error {
	query := `INSERT INTO reputation_records (account, total_rentals, successful_rentals, score, blacklisted, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (account) DO UPDATE SET
	            total_rentals = EXCLUDED.total_rentals,
	            successful_rentals = EXCLUDED.successful_rentals,
	            score = EXCLUDED.score,
	            blacklisted = EXCLUDED.blacklisted,
	            updated_on = EXCLUDED.updated_on`
	rec.UpdatedOn = time.Now()
	_, err := r.db.ExecContext(ctx, query, rec.Account, rec.TotalRentals, rec.SuccessfulRentals,
		rec.Score, rec.Blacklisted, rec.UpdatedOn)
	return err
}

type collateralRepository struct {
	db *sql.DB
}

func NewCollateralRepository(db *sql.DB) repository.CollateralRepository {
	return &collateralRepository{db: db}
}

func (r *collateralRepository) Get(ctx context.Context, account domain.Account) (*domain.CollateralAccount, error) {
	acct := &domain.CollateralAccount{}
	query := `SELECT account, balance, locked, updated_on FROM collateral_accounts WHERE account = $1`
	err := r.db.QueryRowContext(ctx, query, account).Scan(&acct.Account, &acct.Balance, &acct.Locked, &acct.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (r *collateralRepository) Upsert(ctx context.Context, acct *domain.CollateralAccount) error {
	query := `INSERT INTO collateral_accounts (account, balance, locked, updated_on)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (account) DO UPDATE SET
	            balance = EXCLUDED.balance,
	            locked = EXCLUDED.locked,
	            updated_on = EXCLUDED.updated_on`
	acct.UpdatedOn = time.Now()
	_, err := r.db.ExecContext(ctx, query, acct.Account, acct.Balance, acct.Locked, acct.UpdatedOn)
	return err
}
