package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrent/internal/clock"
	"streamrent/internal/domain"
	"streamrent/internal/events"
	"streamrent/internal/ledger"
	"streamrent/internal/repository/memory"
	"streamrent/internal/service"
)

const streamCustody = domain.Account("custody:streams")

type streamFixture struct {
	svc      service.StreamService
	balances *ledger.MemoryLedger
	clk      *clock.Fixed
	recorder *events.Recorder
}

func newStreamFixture(t *testing.T) *streamFixture {
	t.Helper()
	balances := ledger.NewMemoryLedger()
	clk := clock.NewFixed(time.Unix(1_000_000, 0).UTC())
	recorder := events.NewRecorder()
	store := memory.NewStore()
	return &streamFixture{
		svc:      service.NewStreamService(store.StreamRepository, balances, clk, recorder, streamCustody),
		balances: balances,
		clk:      clk,
		recorder: recorder,
	}
}

func (f *streamFixture) balance(t *testing.T, account domain.Account) int64 {
	t.Helper()
	b, err := f.balances.Balance(context.Background(), account)
	require.NoError(t, err)
	return b
}

func TestStreamService_CreateStream(t *testing.T) {
	ctx := context.Background()

	t.Run("EscrowsDepositAndComputesTerms", func(t *testing.T) {
		f := newStreamFixture(t)
		f.balances.Mint("alice", 2000)
		now := f.clk.Now().Unix()

		stream, err := f.svc.CreateStream(ctx, "alice", "bob", 1000, now, now+300)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stream.RatePerSecond)
		assert.Equal(t, int64(100), stream.Remainder)
		assert.True(t, stream.Active)
		assert.Equal(t, int64(1000), f.balance(t, streamCustody))
		assert.Equal(t, int64(1000), f.balance(t, "alice"))
		assert.Len(t, f.recorder.ByType(domain.EventStreamCreated), 1)
	})

	t.Run("RejectsBadArguments", func(t *testing.T) {
		f := newStreamFixture(t)
		f.balances.Mint("alice", 2000)
		now := f.clk.Now().Unix()

		_, err := f.svc.CreateStream(ctx, "alice", "alice", 100, now, now+10)
		assert.ErrorIs(t, err, domain.ErrInvalidRecipient)
		_, err = f.svc.CreateStream(ctx, "alice", "", 100, now, now+10)
		assert.ErrorIs(t, err, domain.ErrInvalidRecipient)
		_, err = f.svc.CreateStream(ctx, "alice", streamCustody, 100, now, now+10)
		assert.ErrorIs(t, err, domain.ErrInvalidRecipient)
		_, err = f.svc.CreateStream(ctx, "alice", "bob", 0, now, now+10)
		assert.ErrorIs(t, err, domain.ErrZeroDeposit)
		_, err = f.svc.CreateStream(ctx, "alice", "bob", 100, now-1, now+10)
		assert.ErrorIs(t, err, domain.ErrStartInPast)
		_, err = f.svc.CreateStream(ctx, "alice", "bob", 100, now+10, now+10)
		assert.ErrorIs(t, err, domain.ErrStopBeforeStart)
	})

	t.Run("NoStreamRecordWhenEscrowFails", func(t *testing.T) {
		f := newStreamFixture(t)
		// Sender has no funds, so the escrow transfer must fail.
		now := f.clk.Now().Unix()
		stream, err := f.svc.CreateStream(ctx, "alice", "bob", 1000, now, now+100)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		assert.Nil(t, stream)
		assert.Empty(t, f.recorder.Events())
	})
}

func TestStreamService_Withdraw(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*streamFixture, *domain.Stream) {
		f := newStreamFixture(t)
		f.balances.Mint("alice", 1000)
		now := f.clk.Now().Unix()
		stream, err := f.svc.CreateStream(ctx, "alice", "bob", 1000, now, now+100)
		require.NoError(t, err)
		return f, stream
	}

	t.Run("RecipientWithdrawsVested", func(t *testing.T) {
		f, stream := setup(t)
		f.clk.Advance(40 * time.Second)

		got, err := f.svc.Withdraw(ctx, "bob", stream.ID, 250)
		require.NoError(t, err)
		assert.Equal(t, int64(250), got.Withdrawn)
		assert.Equal(t, int64(250), f.balance(t, "bob"))
		assert.Equal(t, int64(750), f.balance(t, streamCustody))
		assert.Len(t, f.recorder.ByType(domain.EventStreamWithdrawn), 1)
	})

	t.Run("CannotOverdrawVested", func(t *testing.T) {
		f, stream := setup(t)
		f.clk.Advance(40 * time.Second) // 400 vested

		_, err := f.svc.Withdraw(ctx, "bob", stream.ID, 401)
		assert.ErrorIs(t, err, domain.ErrInsufficientVested)

		_, err = f.svc.Withdraw(ctx, "bob", stream.ID, 400)
		require.NoError(t, err)
		_, err = f.svc.Withdraw(ctx, "bob", stream.ID, 1)
		assert.ErrorIs(t, err, domain.ErrInsufficientVested)
	})

	t.Run("OnlyRecipientMayWithdraw", func(t *testing.T) {
		f, stream := setup(t)
		f.clk.Advance(40 * time.Second)

		_, err := f.svc.Withdraw(ctx, "alice", stream.ID, 10)
		assert.ErrorIs(t, err, domain.ErrNotRecipient)
		_, err = f.svc.Withdraw(ctx, "mallory", stream.ID, 10)
		assert.ErrorIs(t, err, domain.ErrNotRecipient)
	})

	t.Run("FullDepositAfterStop", func(t *testing.T) {
		f, stream := setup(t)
		f.clk.Advance(500 * time.Second)

		got, err := f.svc.Withdraw(ctx, "bob", stream.ID, 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), got.Withdrawn)
		assert.Equal(t, int64(1000), f.balance(t, "bob"))
		assert.Equal(t, int64(0), f.balance(t, streamCustody))
	})

	t.Run("RejectsNonPositiveAmount", func(t *testing.T) {
		f, stream := setup(t)
		_, err := f.svc.Withdraw(ctx, "bob", stream.ID, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})
}

func TestStreamService_Cancel(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*streamFixture, *domain.Stream) {
		f := newStreamFixture(t)
		f.balances.Mint("alice", 1000)
		now := f.clk.Now().Unix()
		stream, err := f.svc.CreateStream(ctx, "alice", "bob", 1000, now, now+100)
		require.NoError(t, err)
		return f, stream
	}

	t.Run("ProRataSplitAtCancelTime", func(t *testing.T) {
		f, stream := setup(t)
		f.clk.Advance(40 * time.Second)

		settlement, err := f.svc.Cancel(ctx, "alice", stream.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(400), settlement.RecipientPayout)
		assert.Equal(t, int64(600), settlement.SenderRefund)
		assert.False(t, settlement.Stream.Active)

		// Conservation: every unit of the deposit landed somewhere.
		assert.Equal(t, int64(600), f.balance(t, "alice"))
		assert.Equal(t, int64(400), f.balance(t, "bob"))
		assert.Equal(t, int64(0), f.balance(t, streamCustody))
		assert.Len(t, f.recorder.ByType(domain.EventStreamCancelled), 1)
	})

	t.Run("PriorWithdrawalsCountTowardPayout", func(t *testing.T) {
		f, stream := setup(t)
		f.clk.Advance(40 * time.Second)
		_, err := f.svc.Withdraw(ctx, "bob", stream.ID, 150)
		require.NoError(t, err)

		settlement, err := f.svc.Cancel(ctx, "bob", stream.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(250), settlement.RecipientPayout)
		assert.Equal(t, int64(600), settlement.SenderRefund)
		assert.Equal(t, int64(400), f.balance(t, "bob"))
		assert.Equal(t, int64(600), f.balance(t, "alice"))
	})

	t.Run("CancelAfterStopPaysEverythingToRecipient", func(t *testing.T) {
		f, stream := setup(t)
		f.clk.Advance(200 * time.Second)

		settlement, err := f.svc.Cancel(ctx, "alice", stream.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), settlement.RecipientPayout)
		assert.Equal(t, int64(0), settlement.SenderRefund)
	})

	t.Run("OnlyPartiesMayCancel", func(t *testing.T) {
		f, stream := setup(t)
		_, err := f.svc.Cancel(ctx, "mallory", stream.ID)
		assert.ErrorIs(t, err, domain.ErrNotStreamParty)
	})

	t.Run("SecondCancelFails", func(t *testing.T) {
		f, stream := setup(t)
		_, err := f.svc.Cancel(ctx, "alice", stream.ID)
		require.NoError(t, err)
		_, err = f.svc.Cancel(ctx, "bob", stream.ID)
		assert.ErrorIs(t, err, domain.ErrStreamInactive)
	})

	t.Run("UnknownStream", func(t *testing.T) {
		f := newStreamFixture(t)
		_, err := f.svc.Cancel(ctx, "alice", "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
