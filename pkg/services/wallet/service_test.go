package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fadedpez/eldorado/pkg/entities"
	walletRepo "github.com/fadedpez/eldorado/pkg/repositories/wallet"
	mock_wallet_repo "github.com/fadedpez/eldorado/pkg/repositories/wallet/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestGetOrCreateWallet(t *testing.T) {
	svc := NewService(walletRepo.NewMemoryRepository(), 100, nil)
	ctx := context.Background()

	wallet, created, err := svc.GetOrCreateWallet(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(100), wallet.Balance)

	wallet, created, err = svc.GetOrCreateWallet(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(100), wallet.Balance)
}

func TestGetOrCreateWalletConcurrent(t *testing.T) {
	svc := NewService(walletRepo.NewMemoryRepository(), 100, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	createdCount := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := svc.GetOrCreateWallet(ctx, "user-1")
			assert.NoError(t, err)
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	creations := 0
	for created := range createdCount {
		if created {
			creations++
		}
	}
	assert.Equal(t, 1, creations, "exactly one goroutine creates the wallet")

	balance, err := svc.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance, "starting balance is granted once")
}

func TestDebitAndCredit(t *testing.T) {
	svc := NewService(walletRepo.NewMemoryRepository(), 100, nil)
	ctx := context.Background()

	_, _, err := svc.GetOrCreateWallet(ctx, "user-1")
	require.NoError(t, err)

	adj, err := svc.DebitAndCredit(ctx, "user-1", 10, 50, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), adj.Before)
	assert.Equal(t, int64(140), adj.After)

	entries, err := svc.GetRecentEntries(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(40), entries[0].Amount)
	assert.Equal(t, "tx-1", entries[0].ReferenceID)
	assert.Equal(t, int64(100), entries[0].BalanceBefore)
	assert.Equal(t, int64(140), entries[0].BalanceAfter)
}

func TestDebitAndCreditInsufficientFunds(t *testing.T) {
	svc := NewService(walletRepo.NewMemoryRepository(), 5, nil)
	ctx := context.Background()

	_, _, err := svc.GetOrCreateWallet(ctx, "user-1")
	require.NoError(t, err)

	_, err = svc.DebitAndCredit(ctx, "user-1", 10, 0, "tx-1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	balance, err := svc.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance, "a failed debit never moves the balance")
}

func TestDebitAndCreditNegativeAmount(t *testing.T) {
	svc := NewService(walletRepo.NewMemoryRepository(), 100, nil)

	_, err := svc.DebitAndCredit(context.Background(), "user-1", -1, 0, "tx-1")
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc := NewService(walletRepo.NewMemoryRepository(), 100, nil)
	ctx := context.Background()

	_, _, err := svc.GetOrCreateWallet(ctx, "user-1")
	require.NoError(t, err)

	// 20 concurrent debits of 10 against a balance of 100: exactly 10
	// succeed, the rest fail, and the balance lands on zero.
	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DebitAndCredit(ctx, "user-1", 10, 0, "tx")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 10, succeeded)

	balance, err := svc.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestRefund(t *testing.T) {
	svc := NewService(walletRepo.NewMemoryRepository(), 100, nil)
	ctx := context.Background()

	_, _, err := svc.GetOrCreateWallet(ctx, "user-1")
	require.NoError(t, err)

	adj, err := svc.Refund(ctx, "user-1", 25, "offer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(125), adj.After)

	entries, err := svc.GetRecentEntries(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entities.LedgerEntryTypeRefund, entries[0].Type)
}

func TestCreditCreatesWallet(t *testing.T) {
	svc := NewService(walletRepo.NewMemoryRepository(), 100, nil)
	ctx := context.Background()

	// The performer has never wagered; the credit lands on top of the
	// starting balance of a freshly created wallet.
	adj, err := svc.Credit(ctx, "performer-1", 40, "offer-1", "spin offer payout")
	require.NoError(t, err)
	assert.Equal(t, int64(100), adj.Before)
	assert.Equal(t, int64(140), adj.After)
}

func TestDebitAndCreditLedgerFailureSurfaced(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock_wallet_repo.NewMockRepository(ctrl)
	svc := NewService(repo, 100, nil)
	ctx := context.Background()

	ledgerErr := errors.New("disk full")
	repo.EXPECT().ApplyDelta(gomock.Any(), "user-1", int64(10), int64(0)).
		Return(&walletRepo.Adjustment{Before: 100, After: 90}, nil)
	repo.EXPECT().AddLedgerEntry(gomock.Any(), gomock.Any()).Return(ledgerErr)

	adj, err := svc.DebitAndCredit(ctx, "user-1", 10, 0, "tx-1")
	assert.ErrorIs(t, err, ledgerErr)
	require.NotNil(t, adj, "the balance mutation is durable even when the ledger write fails")
	assert.Equal(t, int64(90), adj.After)
}
