package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"streamrent/internal/clock"
	"streamrent/internal/domain"
	"streamrent/internal/events"
	"streamrent/internal/ledger"
	"streamrent/internal/logger"
	"streamrent/internal/repository"
	"streamrent/internal/utils"
)

type streamService struct {
	streamRepo repository.StreamRepository
	ledger     ledger.BalanceLedger
	clk        clock.Clock
	publisher  events.Publisher
	custody    domain.Account

	// mu serializes state-mutating calls so that concurrent withdraw/cancel
	// by both parties cannot double-pay; the withdrawn counter is the single
	// source of truth and is checked-then-updated under this lock.
	mu sync.Mutex
}

func NewStreamService(
	streamRepo repository.StreamRepository,
	balances ledger.BalanceLedger,
	clk clock.Clock,
	publisher events.Publisher,
	custody domain.Account,
) StreamService {
	return &streamService{
		streamRepo: streamRepo,
		ledger:     balances,
		clk:        clk,
		publisher:  publisher,
		custody:    custody,
	}
}

func (s *streamService) CreateStream(ctx context.Context, sender, recipient domain.Account, deposit, startTime, stopTime int64) (*domain.Stream, error) {
	if recipient.IsZero() || recipient == sender || recipient == s.custody {
		return nil, domain.ErrInvalidRecipient
	}
	if deposit <= 0 {
		return nil, domain.ErrZeroDeposit
	}
	now := s.clk.Now().Unix()
	if startTime < now {
		return nil, domain.ErrStartInPast
	}
	if stopTime <= startTime {
		return nil, domain.ErrStopBeforeStart
	}

	rate, remainder, err := utils.StreamTerms(deposit, stopTime-startTime)
	if err != nil {
		return nil, domain.ErrZeroDeposit
	}
	stream := &domain.Stream{
		ID:            uuid.NewString(),
		Sender:        sender,
		Recipient:     recipient,
		Deposit:       deposit,
		RatePerSecond: rate,
		Remainder:     remainder,
		StartTime:     startTime,
		StopTime:      stopTime,
		Active:        true,
		CreatedOn:     s.clk.Now(),
		UpdatedOn:     s.clk.Now(),
	}

	// Record the stream before moving funds; the escrow transfer is the
	// external effect and is compensated if the record cannot stand.
	if err := s.streamRepo.Create(ctx, stream); err != nil {
		return nil, err
	}
	logger.ExternalCall("balance-ledger", "escrow", "stream_id", stream.ID, "amount", deposit)
	if err := s.ledger.Transfer(ctx, sender, s.custody, deposit); err != nil {
		logger.ExternalResult("balance-ledger", "escrow", err, "stream_id", stream.ID)
		if delErr := s.streamRepo.Delete(ctx, stream.ID); delErr != nil {
			logger.Error("failed to roll back stream record", "stream_id", stream.ID, "error", delErr)
		}
		return nil, fmt.Errorf("escrow deposit: %w", err)
	}

	s.publish(ctx, domain.EventStreamCreated, stream)
	return stream, nil
}

func (s *streamService) GetStream(ctx context.Context, streamID string) (*domain.Stream, error) {
	return s.streamRepo.GetByID(ctx, streamID)
}

func (s *streamService) VestedAmount(ctx context.Context, streamID string, at int64) (int64, error) {
	stream, err := s.streamRepo.GetByID(ctx, streamID)
	if err != nil {
		return 0, err
	}
	return stream.VestedAt(at), nil
}

func (s *streamService) Withdraw(ctx context.Context, caller domain.Account, streamID string, amount int64) (*domain.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, err := s.streamRepo.GetByID(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if !stream.Active {
		return nil, domain.ErrStreamInactive
	}
	if caller != stream.Recipient {
		return nil, domain.ErrNotRecipient
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	now := s.clk.Now().Unix()
	available := stream.VestedAt(now) - stream.Withdrawn
	if amount > available {
		return nil, fmt.Errorf("requested %d of %d available: %w", amount, available, domain.ErrInsufficientVested)
	}

	stream.Withdrawn += amount
	stream.UpdatedOn = s.clk.Now()
	if err := s.streamRepo.Update(ctx, stream); err != nil {
		return nil, err
	}
	if err := s.ledger.Transfer(ctx, s.custody, stream.Recipient, amount); err != nil {
		stream.Withdrawn -= amount
		if rbErr := s.streamRepo.Update(ctx, stream); rbErr != nil {
			logger.Error("failed to roll back withdrawal", "stream_id", stream.ID, "error", rbErr)
		}
		return nil, fmt.Errorf("pay out withdrawal: %w", err)
	}

	s.publish(ctx, domain.EventStreamWithdrawn, domain.StreamWithdrawnBody{
		StreamID: stream.ID,
		To:       stream.Recipient,
		Amount:   amount,
	})
	return stream, nil
}

func (s *streamService) Cancel(ctx context.Context, caller domain.Account, streamID string) (*StreamSettlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, err := s.streamRepo.GetByID(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if !stream.Active {
		return nil, domain.ErrStreamInactive
	}
	if caller != stream.Sender && caller != stream.Recipient {
		return nil, domain.ErrNotStreamParty
	}

	now := s.clk.Now().Unix()
	vested := stream.VestedAt(now)
	recipientPayout := vested - stream.Withdrawn
	senderRefund := stream.Deposit - vested

	// Deactivate before paying out; the inactive flag is what blocks a
	// second concurrent settlement.
	prevWithdrawn := stream.Withdrawn
	stream.Active = false
	stream.Withdrawn = vested
	stream.UpdatedOn = s.clk.Now()
	if err := s.streamRepo.Update(ctx, stream); err != nil {
		return nil, err
	}

	rollback := func() {
		stream.Active = true
		stream.Withdrawn = prevWithdrawn
		if rbErr := s.streamRepo.Update(ctx, stream); rbErr != nil {
			logger.Error("failed to roll back stream cancellation", "stream_id", stream.ID, "error", rbErr)
		}
	}

	if recipientPayout > 0 {
		if err := s.ledger.Transfer(ctx, s.custody, stream.Recipient, recipientPayout); err != nil {
			rollback()
			return nil, fmt.Errorf("pay out recipient on cancel: %w", err)
		}
	}
	if senderRefund > 0 {
		if err := s.ledger.Transfer(ctx, s.custody, stream.Sender, senderRefund); err != nil {
			if recipientPayout > 0 {
				if rbErr := s.ledger.Transfer(ctx, stream.Recipient, s.custody, recipientPayout); rbErr != nil {
					logger.Error("failed to reverse recipient payout", "stream_id", stream.ID, "error", rbErr)
				}
			}
			rollback()
			return nil, fmt.Errorf("refund sender on cancel: %w", err)
		}
	}

	s.publish(ctx, domain.EventStreamCancelled, domain.StreamCancelledBody{
		StreamID:        stream.ID,
		RecipientPayout: recipientPayout,
		SenderRefund:    senderRefund,
	})
	return &StreamSettlement{
		Stream:          stream,
		RecipientPayout: recipientPayout,
		SenderRefund:    senderRefund,
	}, nil
}

func (s *streamService) publish(ctx context.Context, eventType string, body any) {
	err := s.publisher.Publish(ctx, domain.Event{
		Type: eventType,
		At:   s.clk.Now().Unix(),
		Body: body,
	})
	if err != nil {
		logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}
