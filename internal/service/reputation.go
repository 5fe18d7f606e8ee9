package service

import (
	"context"
	"errors"
	"sync"

	"streamrent/internal/clock"
	"streamrent/internal/domain"
	"streamrent/internal/events"
	"streamrent/internal/logger"
	"streamrent/internal/policy"
	"streamrent/internal/repository"
)

type reputationService struct {
	repo      repository.ReputationRepository
	params    policy.Params
	clk       clock.Clock
	publisher events.Publisher
	// manager is the only caller identity allowed to record outcomes.
	manager domain.Account

	mu sync.Mutex
}

func NewReputationService(
	repo repository.ReputationRepository,
	params policy.Params,
	clk clock.Clock,
	publisher events.Publisher,
	manager domain.Account,
) ReputationService {
	return &reputationService{
		repo:      repo,
		params:    params,
		clk:       clk,
		publisher: publisher,
		manager:   manager,
	}
}

func (s *reputationService) RecordOutcome(ctx context.Context, caller, account domain.Account, success bool) (*domain.ReputationRecord, error) {
	if caller != s.manager {
		return nil, domain.ErrNotSessionManager
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.getOrDefault(ctx, account)
	if err != nil {
		return nil, err
	}
	policy.ApplyOutcome(rec, success, s.params)
	rec.UpdatedOn = s.clk.Now()
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	pubErr := s.publisher.Publish(ctx, domain.Event{
		Type: domain.EventReputationChanged,
		At:   s.clk.Now().Unix(),
		Body: domain.ReputationChangedBody{
			Account:     rec.Account,
			Score:       rec.Score,
			Blacklisted: rec.Blacklisted,
			Success:     success,
		},
	})
	if pubErr != nil {
		logger.Warn("event publish failed", "type", domain.EventReputationChanged, "error", pubErr)
	}
	return rec, nil
}

func (s *reputationService) GetRecord(ctx context.Context, account domain.Account) (*domain.ReputationRecord, error) {
	return s.getOrDefault(ctx, account)
}

func (s *reputationService) SizeCollateral(ctx context.Context, account domain.Account, baseRequirement int64) (int64, error) {
	rec, err := s.getOrDefault(ctx, account)
	if err != nil {
		return 0, err
	}
	return policy.SizeCollateral(rec, baseRequirement, s.params), nil
}

// getOrDefault synthesizes a fresh record at the initial score for accounts
// with no history; the record is only persisted once an outcome is written.
func (s *reputationService) getOrDefault(ctx context.Context, account domain.Account) (*domain.ReputationRecord, error) {
	rec, err := s.repo.Get(ctx, account)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.ReputationRecord{
			Account: account,
			Score:   s.params.InitialScore,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}
