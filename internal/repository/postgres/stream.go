package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"streamrent/internal/domain"
	"streamrent/internal/repository"
)

type streamRepository struct {
	db *sql.DB
}

func NewStreamRepository(db *sql.DB) repository.StreamRepository {
	return &streamRepository{db: db}
}

const streamColumns = `id, sender_account, recipient_account, deposit, rate_per_second, remainder, start_time, stop_time, withdrawn, active, created_on, updated_on`

func (r *streamRepository) Create(ctx context.Context, s *domain.Stream) error {
	query := `INSERT INTO streams (` + streamColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	now := time.Now()
	s.CreatedOn = now
	s.UpdatedOn = now
	_, err := r.db.ExecContext(ctx, query, s.ID, s.Sender, s.Recipient, s.Deposit,
		s.RatePerSecond, s.Remainder, s.StartTime, s.StopTime, s.Withdrawn, s.Active, now, now)
	return err
}

func (r *streamRepository) GetByID(ctx context.Context, id string) (*domain.Stream, error) {
	s := &domain.Stream{}
	query := `SELECT ` + streamColumns + ` FROM streams WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Sender, &s.Recipient, &s.Deposit,
		&s.RatePerSecond, &s.Remainder, &s.StartTime, &s.StopTime, &s.Withdrawn, &s.Active, &s.CreatedOn, &s.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *streamRepository) Update(ctx context.Context, s *domain.Stream) error {
	query := `UPDATE streams SET withdrawn=$1, active=$2, updated_on=$3 WHERE id=$4`
	res, err := r.db.ExecContext(ctx, query, s.Withdrawn, s.Active, time.Now(), s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *streamRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM streams WHERE id = $1`, id)
	return err
}
